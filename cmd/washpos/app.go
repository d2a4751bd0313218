package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/washpos/internal/config"
	"github.com/vbonduro/washpos/internal/connectivity"
	"github.com/vbonduro/washpos/internal/db"
	"github.com/vbonduro/washpos/internal/events"
	"github.com/vbonduro/washpos/internal/logging"
	"github.com/vbonduro/washpos/internal/remote"
	"github.com/vbonduro/washpos/internal/service"
	"github.com/vbonduro/washpos/internal/store"
	"github.com/vbonduro/washpos/internal/syncer"
)

// app holds the components every subcommand shares.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	monitor *connectivity.Monitor
	hub     *events.Hub
	syncer  *syncer.Syncer
	service *service.POSService
	cleanup func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger, logCleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logCleanup()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: database}
	a.cleanup = func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
		logCleanup()
	}

	collections := store.NewCollectionStore(database)
	reset, err := collections.EnsureSchema(ctx, store.SchemaVersion)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	if reset {
		logger.Warn("local data reset for new schema version", "version", store.SchemaVersion)
	}
	outbox := store.NewOutboxStore(database)

	client := remote.NewClient(cfg.RemoteURL, cfg.RemoteTimeout)
	online := connectivity.Reachable(ctx, client, cfg.RemoteTimeout)
	logger.Info("remote server checked", "url", cfg.RemoteURL, "online", online)

	a.monitor = connectivity.NewMonitor(online, logger)
	a.hub = events.NewHub(32)
	a.syncer = syncer.New(collections, outbox, client, a.monitor, a.hub, logger)
	a.service = service.NewPOSService(collections, outbox, client, a.monitor, a.syncer, logger)
	return a, nil
}
