package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "golang-stock-ai",
	Short:        "AI assisted stock analysis over streaming model output",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
