// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

// Package migration applies database schema migrations at gateway startup.
//
// Migrations are plain SQL files under data/migrations, applied through
// golang-migrate. Startup refuses to proceed on a dirty schema so a
// half-applied migration never serves connections.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme with golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

/*
RunUp applies all pending UP migrations and is idempotent: a database that
is already current logs and returns nil.

Parameters:
  - dsn: postgres:// or postgresql:// connection URL.
  - migrationsPath: Filesystem path to the migrations directory.
  - logger: Structured logger for migration events.

Returns:
  - error: Initialization failure, a dirty schema, or a failed migration.
*/
func RunUp(dsn string, migrationsPath string, logger *slog.Logger) error {
	migrator, err := migrate.New("file://"+migrationsPath, pgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("migration_init_failed: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := migrator.Close(); sourceErr != nil || dbErr != nil {
			logger.Error("migration_close_failed",
				slog.Any("source_error", sourceErr),
				slog.Any("db_error", dbErr))
		}
	}()
	migrator.Log = &migrateLogger{logger: logger}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration_version_failed: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration_schema_dirty: version %d requires manual repair", version)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_schema_current", slog.Int("version", int(version)))
			return nil
		}
		return fmt.Errorf("migration_up_failed: %w", err)
	}

	applied, _, _ := migrator.Version()
	logger.Info("migration_applied",
		slog.Int("from_version", int(version)),
		slog.Int("to_version", int(applied)))
	return nil
}

// pgx5DSN rewrites a postgres URL to the pgx5:// scheme golang-migrate's
// pgx/v5 driver registers.
func pgx5DSN(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// migrateLogger bridges golang-migrate's logger interface onto slog at
// debug level.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *migrateLogger) Verbose() bool { return false }
