// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package sqlite implements the committee repository and the person directory
// on a single SQLite file, for local runs and the committeectl tool.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

// Store is a SQLite-backed committee repository and person directory
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies pending migrations
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errs.NewValidation("sqlite path is required")
	}

	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.NewServiceUnavailable("failed to open sqlite database", err)
	}
	// one writer at a time keeps revision checks and member rewrites serial
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.NewServiceUnavailable("failed to ping sqlite database", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errs.NewUnexpected("failed to apply sqlite migrations", err)
	}

	slog.InfoContext(ctx, "sqlite store opened", "path", path)
	return store, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsReady checks that the database still answers
func (s *Store) IsReady(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewServiceUnavailable("sqlite database is not ready", err)
	}
	return nil
}

// migrate brings the schema to the latest embedded version
func (s *Store) migrate(ctx context.Context) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{MigrationsTable: migrationTable})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	// m is never closed: closing it closes s.db too
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}
	slog.DebugContext(ctx, "sqlite schema ready", "version", version)
	return nil
}

// isConstraintError reports whether err is a UNIQUE or PRIMARY KEY violation
func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// rollback is deferred by write transactions; it is a no-op after Commit
func rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.WarnContext(ctx, "sqlite rollback failed", "error", err)
	}
}
