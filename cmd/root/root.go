// Package root contains the root command for the application
package root

import (
	"fjacquet/alipay-ledger/internal/config"
	"fjacquet/alipay-ledger/internal/logging"

	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the loaded application configuration, populated before any
	// subcommand runs
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "alipay-ledger",
		Short: "A CLI tool to ingest Alipay statement archives into a ledger database.",
		Long: `alipay-ledger reads zip archives of Alipay account statements,
reconciles the rows into accounts, orders and transfers, and records
the result in a ledger database.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to alipay-ledger!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			Cfg = cfg
			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
)
