package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealer-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealer-scout",
	Short: "Retail-directory scraper for store-locator sites",
	Long:  "Iterates a postal-code list against a dealer locator, drives a headless Chrome session through each search, and extracts deduplicated contact records.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
