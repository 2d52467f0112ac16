// Package sqlite provides a SQLite-backed persistence.Backend for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/sqlite/migrations"
)

// dsnPragmas are applied by modernc.org/sqlite to every new connection.
const dsnPragmas = "?_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(1)" +
	"&_pragma=synchronous(NORMAL)"

// Store persists profile documents in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ persistence.Backend = (*Store)(nil)

// Open opens a SQLite store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	sqlDB, err := sql.Open("sqlite", cleanPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer. One connection queues writers of
	// different learners in database/sql instead of failing them with
	// SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Name implements persistence.Backend.
func (s *Store) Name() string { return "sqlite" }

// Get implements persistence.Backend.
func (s *Store) Get(ctx context.Context, key string) (persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return persistence.Record{}, persistence.ErrClosed
	}

	var (
		document string
		version  int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT document, version FROM learner_profiles WHERE key = ?`,
		key,
	).Scan(&document, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Record{}, persistence.ErrNotFound
		}
		return persistence.Record{}, fmt.Errorf("get profile: %w", err)
	}
	return persistence.Record{Data: []byte(document), Version: version}, nil
}

// Put implements persistence.Backend.
func (s *Store) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, persistence.ErrClosed
	}
	now := time.Now().UTC().UnixMilli()

	if expected == 0 {
		_, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO learner_profiles (key, document, version, updated_at)
			 VALUES (?, ?, 1, ?)`,
			key, string(data), now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, persistence.ErrVersionConflict
			}
			return 0, fmt.Errorf("insert profile: %w", err)
		}
		return 1, nil
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE learner_profiles
		    SET document = ?, version = version + 1, updated_at = ?
		  WHERE key = ? AND version = ?`,
		string(data), now, key, expected,
	)
	if err != nil {
		return 0, fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return 0, persistence.ErrVersionConflict
	}
	return expected + 1, nil
}

// Ping implements persistence.Backend.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return persistence.ErrClosed
	}
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "learner_profiles.key")
}
