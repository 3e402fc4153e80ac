package cmd

import (
	"context"

	"golang-stock-ai/config"
	"golang-stock-ai/internal/repository"
	"golang-stock-ai/internal/service"
	"golang-stock-ai/pkg/cache"
	"golang-stock-ai/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	repo      *repository.Repository
	services  *service.Service
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)

	repo, err := repository.NewRepository(cfg, inmemoryCache, log)
	if err != nil {
		log.Error("Failed to create repository", zap.Error(err))
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      e,
		cache:     inmemoryCache,
		repo:      repo,
		services:  service.NewService(cfg, log, repo, inmemoryCache),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	d.cache.Flush()
	// stderr sync fails on some platforms, nothing to report there
	_ = d.log.Sync()
	return nil
}
