package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fs-account-scorer",
	Short: "Financial services account scoring pipeline",
	Long:  "Gathers filings, transcripts, press releases, and app reviews for a registry of banks and insurers, extracts weighted signals via Claude, and ranks every account by consulting opportunity.",
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
