package cmd

import (
	"context"
	"fmt"
	"strings"

	"golang-stock-ai/internal/dto"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <stock_code>...",
	Short: "Analyze several stocks in batches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.ScanRequest{
			StockCodes: args,
			MarketType: dto.MarketType(strings.ToUpper(marketFlag)),
		}
		if cmd.Flags().Changed("stream") {
			req.Stream = &streamFlag
		}

		return runWithApp(cmd, func(ctx context.Context, appDep *AppDependency) error {
			if err := appDep.validator.Struct(req); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}
			return finish(writeRecords(cmd.OutOrStdout(), formatFlag, appDep.services.ScanService.Scan(ctx, req)))
		})
	},
}

func init() {
	addOutputFlags(scanCmd)
}
