// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

// Command gateway is the entry point for the Loadout websocket gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Populate the Redis read-cache projection.
//  7. Wire the domain: stores, auth service, handlers, dispatch registry.
//  8. Start the notification bus and the connection-snapshot job.
//  9. Start the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vantari/loadout/internal/api"
	"github.com/vantari/loadout/internal/auth"
	"github.com/vantari/loadout/internal/dispatch"
	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/gateway"
	"github.com/vantari/loadout/internal/handlers"
	"github.com/vantari/loadout/internal/platform/config"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/platform/migration"
	pgstore "github.com/vantari/loadout/internal/platform/postgres"
	redisstore "github.com/vantari/loadout/internal/platform/redis"
	"github.com/vantari/loadout/internal/session"
)

// connectionSnapshotInterval is how often the fleet connection count is
// persisted for the admin history chart.
const connectionSnapshotInterval = time.Minute

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Loadout] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Read-Cache Projection ──────────────────────────────────────────
	gameStore := gamelist.NewPostgresStore(pool)
	cache := gamelist.NewCache(rdb, gameStore, log)
	must(log, cache.Populate(startupCtx), "populate read cache")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	sessions := session.NewRegistry()
	authStore := auth.NewPostgresStore(pool)

	// Admin-only fan-out honors the permission cache TTL: a stale flag falls
	// back to the authoritative store, so revoked admins age out of pushes.
	adminGate := func(ctx context.Context, sess *session.Session) bool {
		if sess.AccountID == session.UnresolvedAccount {
			return false
		}
		if value, fresh := sess.CachedAdmin(); fresh {
			return value
		}
		value, err := authStore.IsAdmin(ctx, sess.AccountID)
		if err != nil {
			log.Warn("admin_check_failed",
				slog.Int64("account_id", sess.AccountID),
				slog.Any("error", err))
			return false
		}
		sess.SetCachedAdmin(value)
		return value
	}
	bus := gamelist.NewBus(rdb, cache, sessions, adminGate, cfg.GlyphProxyURL, log)

	providers := auth.NewProviders(cfg)
	rankProvider := auth.NewRankProvider(cfg, rdb, log)
	authService := auth.NewService(authStore, providers, rankProvider, log)

	registry := dispatch.NewRegistry(log)
	handlerSet := handlers.New(authService, authStore, gameStore, cache, bus, rdb, cfg.GlyphProxyURL, log)
	handlerSet.RegisterAll(registry)

	supervisor := gateway.New(registry, sessions, cache, rdb, bus, log)

	// ── 8. Background Tasks ───────────────────────────────────────────────
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		if err := bus.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification bus stopped", slog.Any("error", err))
		}
	}()
	go recordConnectionSnapshots(runCtx, rdb, gameStore, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	server := api.NewServer(cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Websocket: supervisor.Handler(),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	runCancel()

	// Give open sockets enough time to close out.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// recordConnectionSnapshots periodically persists the fleet-wide connection
// count for the admin history chart. Every instance runs the job; the store
// serializes writers so concurrent snapshots don't double-record.
func recordConnectionSnapshots(ctx context.Context, rdb *redis.Client, store gamelist.Store, log *slog.Logger) {
	ticker := time.NewTicker(connectionSnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := rdb.Get(ctx, constants.RedisKeyConnections).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Warn("connection_snapshot_read_failed", slog.Any("error", err))
				continue
			}
			if err := store.RecordConnectionSnapshot(ctx, count); err != nil {
				log.Warn("connection_snapshot_record_failed", slog.Any("error", err))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is
// non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failed",
			slog.String("step", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
