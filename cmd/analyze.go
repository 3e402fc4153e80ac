package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang-stock-ai/internal/dto"

	"github.com/spf13/cobra"
)

var errAnalysisFailed = errors.New("one or more analyses failed")

var (
	marketFlag string
	streamFlag bool
	formatFlag string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <stock_code>",
	Short: "Analyze one stock and print the records as they stream in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.AnalyzeRequest{
			StockCode:  args[0],
			MarketType: dto.MarketType(strings.ToUpper(marketFlag)),
			Sector:     sectorFlag,
			Concepts:   conceptsFlag,
		}
		if cmd.Flags().Changed("stream") {
			req.Stream = &streamFlag
		}

		return runWithApp(cmd, func(ctx context.Context, appDep *AppDependency) error {
			if err := appDep.validator.Struct(req); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}
			return finish(writeRecords(cmd.OutOrStdout(), formatFlag, appDep.services.AnalyzerService.Analyze(ctx, req)))
		})
	},
}

var (
	sectorFlag   string
	conceptsFlag []string
)

func init() {
	addOutputFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&sectorFlag, "sector", "", "sector hint for the prompt")
	analyzeCmd.Flags().StringSliceVar(&conceptsFlag, "concepts", nil, "concept tags for the prompt")
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&marketFlag, "market", "m", "A", "market type: A, HK, US, ETF or LOF")
	c.Flags().BoolVar(&streamFlag, "stream", true, "stream model output as it is generated")
	c.Flags().StringVarP(&formatFlag, "format", "f", FormatNDJSON, "output format: ndjson or text")
}

// runWithApp builds the dependencies and cancels the run on SIGINT or SIGTERM.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, appDep *AppDependency) error) error {
	if formatFlag != FormatNDJSON && formatFlag != FormatText {
		return fmt.Errorf("unknown format %q", formatFlag)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return err
	}
	defer appDep.Close()

	return fn(ctx, appDep)
}

func finish(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errAnalysisFailed
	}
	return nil
}
