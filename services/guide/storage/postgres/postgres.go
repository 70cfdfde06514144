// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package postgres provides the production storage.Store backed by
// PostgreSQL via sqlx and lib/pq.
//
// Translated content and language readiness are stored as JSONB; the
// ordered checkpoint reference list lives in its own table keyed by
// (version_id, seq_no). The single-active-run invariant is enforced by a
// partial unique index, so it holds under concurrent starts without
// application-side locking.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AleutianAI/AleutianTours/services/guide/storage"
)

// pqUniqueViolation is the Postgres error code for unique constraint
// violations.
const pqUniqueViolation = "23505"

// Constraint names referenced when translating unique violations.
const (
	constraintRouteSlug = "routes_slug_key"
	constraintActiveRun = "runs_one_active_per_user_route"
)

// Store is the Postgres storage backend.
//
// The zero value is not usable; construct via New. Store methods run on
// the pool; WithTx hands callers a Store bound to a transaction.
type Store struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

var _ storage.Store = (*Store)(nil)

// Config holds Postgres connection settings.
type Config struct {
	// DSN is the lib/pq connection string.
	DSN string

	// MaxOpenConns caps pool size. Default 25.
	MaxOpenConns int

	// MaxIdleConns caps idle connections. Default 5.
	MaxIdleConns int

	// ConnMaxLifetime recycles connections. Default 30m.
	ConnMaxLifetime time.Duration
}

// New connects to Postgres, verifies the connection, and applies the
// schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres DSN must not be empty")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, q: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn against a Store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.db == nil {
		// Already inside a transaction: reuse it.
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &Store{q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// translateUnique maps a unique violation to the matching sentinel
// error, or returns the original error unchanged.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case constraintRouteSlug:
		return storage.ErrDuplicateSlug
	case constraintActiveRun:
		return storage.ErrDuplicateActiveRun
	}
	return err
}

// =============================================================================
// JSONB Helpers
// =============================================================================

// jsonbStringMap stores a map[string]string as a JSONB column.
type jsonbStringMap map[string]string

func (m jsonbStringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *jsonbStringMap) Scan(src any) error {
	return scanJSONB(src, m)
}

// jsonbBoolMap stores a map[string]bool as a JSONB column.
type jsonbBoolMap map[string]bool

func (m jsonbBoolMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *jsonbBoolMap) Scan(src any) error {
	return scanJSONB(src, m)
}

func scanJSONB(src, dest any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}
}
