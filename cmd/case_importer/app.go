package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/case-importer/internal/config"
	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/importer"
	"github.com/jonathan/case-importer/internal/lock"
	"github.com/jonathan/case-importer/internal/validation"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	store    *db.DB
	locker   *lock.RedisLocker
	engine   *importer.Engine
	recorder *importer.Recorder
}

// openApp loads configuration and connects to the database and, when configured,
// to Redis for the run lock.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	store, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, store: store}

	if cfg.RedisAddress != "" {
		a.locker, err = lock.Connect(ctx, cfg.RedisAddress, time.Duration(cfg.LockTTL))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect run lock: %w", err)
		}
	}

	a.recorder = importer.NewRecorder(store, logger)
	a.engine = importer.NewEngine(store, a.recorder, validation.New(cfg.PhoneRegion), logger, importer.Options{
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.Workers,
		RowTimeout: time.Duration(cfg.RowTimeout),
	})
	if a.locker != nil {
		a.engine.WithLocker(a.locker)
	}
	return a, nil
}

// quiet sends log output to w; the CLI keeps stdout for reports.
func (a *app) quiet(w io.Writer) {
	a.logger.SetOutput(w)
}

func (a *app) Close() {
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close redis client")
		}
	}
	a.store.Close()
}
