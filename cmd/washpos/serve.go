package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/washpos/internal/syncer"
	"github.com/vbonduro/washpos/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API and the background sync loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.cleanup()

		go a.monitor.Forward(ctx, a.hub)

		runner := syncer.NewRunner(a.syncer, a.monitor, syncer.RunnerConfig{
			Interval:   a.cfg.SyncInterval,
			BackoffMin: a.cfg.SyncBackoffMin,
			BackoffMax: a.cfg.SyncBackoffMax,
		}, a.logger)
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("sync loop stopped", "error", err)
			}
		}()

		server := web.NewServer(a.service, a.hub, a.logger)
		return server.ListenAndServe(ctx, a.cfg.ListenAddr)
	},
}
