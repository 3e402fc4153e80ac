package cmd

import (
	"context"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-ai/internal/delivery/http"
	"golang-stock-ai/pkg/middleware"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the analysis API and the watchlist scheduler",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {

	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	rateLimiter := middleware.NewRateLimiterMiddleware(middleware.RateLimitConfig{
		PerSecond: appDep.cfg.API.RateLimitPerSec,
		Burst:     appDep.cfg.API.RateLimitBurst,
		ExpiresIn: appDep.cfg.API.RateLimitExpires,
	})
	httpHandler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, appDep.log, appDep.services, rateLimiter)

	if err := appDep.services.SchedulerService.Start(); err != nil {
		log.Fatalf("Failed to start watchlist scheduler: %v", err)
	}

	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && err != httpNet.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	if err := apiServer.Stop(); err != nil {
		log.Fatalf("Failed to stop HTTP server: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	appDep.services.SchedulerService.Stop(stopCtx)

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
