package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/washpos/internal/backend"
	"github.com/vbonduro/washpos/internal/config"
	"github.com/vbonduro/washpos/internal/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "washpos-server",
	Short:        "Reference remote server for washpos terminals",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(configFile)
		if err != nil {
			return err
		}

		logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer cleanup()

		database, err := backend.OpenDB(cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := database.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return backend.New(database, cfg, logger).Listen(ctx, cfg.ListenAddr)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to a config file (env vars take precedence)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
