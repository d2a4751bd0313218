package syncer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vbonduro/washpos/internal/domain"
)

// Transitions delivers connectivity changes.
type Transitions interface {
	Subscribe() (<-chan bool, func())
}

// RunnerConfig controls automatic syncing. A zero Interval disables the
// periodic sync; reconnect-triggered syncs always run.
type RunnerConfig struct {
	Interval   time.Duration
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// Runner syncs automatically when the connection comes back, periodically
// while data is pending, and retries failed syncs with exponential backoff.
type Runner struct {
	syncer *Syncer
	conn   Transitions
	cfg    RunnerConfig
	logger *slog.Logger
}

func NewRunner(s *Syncer, conn Transitions, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = time.Second
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}
	return &Runner{syncer: s, conn: conn, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	changes, unsubscribe := r.conn.Subscribe()
	defer unsubscribe()

	var tick <-chan time.Time
	if r.cfg.Interval > 0 {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	retry := time.NewTimer(time.Hour)
	retry.Stop()
	defer retry.Stop()
	backoff := time.Duration(0)

	attempt := func(reason string) {
		err := r.run(ctx, reason)
		switch {
		case err == nil:
			backoff = 0
			retry.Stop()
		case errors.Is(err, domain.ErrOffline), errors.Is(err, ErrInProgress), ctx.Err() != nil:
			// Wait for the next transition or tick.
		default:
			backoff = r.next(backoff)
			r.logger.Info("sync retry scheduled", "in", backoff)
			retry.Reset(backoff)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-changes:
			if online {
				backoff = 0
				attempt("reconnect")
			}
		case <-tick:
			attempt("interval")
		case <-retry.C:
			attempt("retry")
		}
	}
}

func (r *Runner) run(ctx context.Context, reason string) error {
	pending, err := r.syncer.Pending(ctx)
	if err != nil {
		r.logger.Error("failed to check pending data", "error", err)
		return err
	}
	if !pending {
		return nil
	}
	r.logger.Info("automatic sync", "reason", reason)
	_, err = r.syncer.Sync(ctx)
	return err
}

func (r *Runner) next(prev time.Duration) time.Duration {
	if prev == 0 {
		return r.cfg.BackoffMin
	}
	next := prev * 2
	if next > r.cfg.BackoffMax {
		return r.cfg.BackoffMax
	}
	return next
}
