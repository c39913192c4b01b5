// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package main is the entry point for the FlickLit recommendation server.
//
// FlickLit serves personalized literary work recommendations over a REST
// API. Scoring blends content similarity against a learned taste profile,
// collaborative filtering over like-minded readers, and novelty and
// diversity adjustments, with trending works layered on in real time.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML file,
//     FLICKLIT_-prefixed environment variables)
//  2. Database: embedded DuckDB catalog and interaction log
//  3. Events: BadgerDB write-ahead log plus the in-process Watermill bus
//  4. Engine: the recommendation engine with its caches and breakers
//  5. HTTP server: chi router under /api/v1 with /healthz and /metrics
//  6. Supervisor tree: suture-managed services for the HTTP server,
//     cache sweeping, WAL compaction, and trend refresh
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the supervisor tree stops its services, and the
// WAL and database are closed last.
//
// # Example Usage
//
//	export FLICKLIT_DATABASE_PATH=/data/flicklit.duckdb
//	export FLICKLIT_EVENTS_WAL_PATH=/data/wal
//	export FLICKLIT_SERVER_PORT=8460
//	./flicklit-server
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/api"
	"github.com/mstralka/mark-flicklit-sub001/internal/config"
	"github.com/mstralka/mark-flicklit-sub001/internal/database"
	"github.com/mstralka/mark-flicklit-sub001/internal/events"
	"github.com/mstralka/mark-flicklit-sub001/internal/logging"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend"
	"github.com/mstralka/mark-flicklit-sub001/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors predate logger configuration; use the default.
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Logger()

	log.Info().
		Str("db_path", cfg.Database.Path).
		Str("wal_path", cfg.Events.WALPath).
		Int("port", cfg.Server.Port).
		Msg("starting flicklit")

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("shutdown complete")
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("database close failed")
		}
	}()

	wal, err := events.OpenWAL(events.WALConfig{
		Path:       cfg.Events.WALPath,
		SyncWrites: cfg.Events.WALSyncWrites,
		Retention:  cfg.Events.WALRetention,
	}, log)
	if err != nil {
		return fmt.Errorf("open wal: %w", err)
	}
	defer func() {
		if cerr := wal.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("wal close failed")
		}
	}()

	bus := events.NewBus(cfg.Events.BufferSize, wal, log)
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("bus close failed")
		}
	}()

	engine, err := recommend.NewEngine(db, bus, recommend.Config{
		DefaultLimit:           cfg.Recommend.DefaultLimit,
		MaxLimit:               cfg.Recommend.MaxLimit,
		CandidateMultiplier:    cfg.Recommend.CandidateMultiplier,
		ProfileCacheTTL:        cfg.Recommend.ProfileCacheTTL,
		RecommendationCacheTTL: cfg.Recommend.RecommendationCacheTTL,
		SerendipityRate:        cfg.Recommend.SerendipityRate,
		MinCommonInteractions:  cfg.Recommend.MinCommonInteractions,
		MaxSimilarUsers:        cfg.Recommend.MaxSimilarUsers,
	}, log)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	server := api.NewServer(engine, db, &cfg.Server, log)

	tree := supervisor.NewTree(log, supervisor.DefaultTreeConfig())

	trendSvc := supervisor.NewTrendRefreshService(engine, cfg.Recommend.TrendRefreshInterval, log)
	tree.AddDataService(trendSvc)
	tree.AddDataService(supervisor.NewSweepService(engine, wal, cfg.Recommend.SweepInterval, log))
	tree.AddDataService(supervisor.NewEventRelayService(bus, trendSvc, log))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	tree.AddAPIService(supervisor.NewHTTPService(server, addr, log))

	// Interactions written to the WAL but never published (crash between
	// write and confirm) are replayed before traffic is accepted.
	if err := bus.ReplayPending(ctx); err != nil {
		return fmt.Errorf("replay pending interactions: %w", err)
	}

	return tree.Serve(ctx)
}
