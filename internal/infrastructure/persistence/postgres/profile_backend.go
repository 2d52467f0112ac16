package postgres

import (
	"context"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
)

// ProfileBackend implements persistence.Backend on the learner_profiles table.
type ProfileBackend struct {
	conn *Connection
}

var _ persistence.Backend = (*ProfileBackend)(nil)

// NewProfileBackend creates a backend over an open connection.
func NewProfileBackend(conn *Connection) *ProfileBackend {
	return &ProfileBackend{conn: conn}
}

// Open connects, applies migrations and returns a ready backend.
func Open(ctx context.Context, cfg Config) (*ProfileBackend, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return NewProfileBackend(conn), nil
}

// Name implements persistence.Backend.
func (b *ProfileBackend) Name() string { return "postgres" }

// Get implements persistence.Backend.
func (b *ProfileBackend) Get(ctx context.Context, key string) (persistence.Record, error) {
	if b.conn.IsClosed() {
		return persistence.Record{}, persistence.ErrClosed
	}

	var rec persistence.Record
	err := b.conn.QueryRow(ctx,
		`SELECT document::TEXT, version FROM learner_profiles WHERE key = $1`,
		key,
	).Scan(&rec.Data, &rec.Version)
	if err != nil {
		if IsNoRows(err) {
			return persistence.Record{}, persistence.ErrNotFound
		}
		return persistence.Record{}, fmt.Errorf("postgres: get profile: %w", err)
	}
	return rec, nil
}

// Put implements persistence.Backend.
func (b *ProfileBackend) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	if b.conn.IsClosed() {
		return 0, persistence.ErrClosed
	}

	if expected == 0 {
		_, err := b.conn.Exec(ctx,
			`INSERT INTO learner_profiles (key, document, version) VALUES ($1, $2::JSONB, 1)`,
			key, string(data),
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return 0, persistence.ErrVersionConflict
			}
			return 0, fmt.Errorf("postgres: insert profile: %w", err)
		}
		return 1, nil
	}

	tag, err := b.conn.Exec(ctx,
		`UPDATE learner_profiles
		    SET document = $2::JSONB, version = version + 1
		  WHERE key = $1 AND version = $3`,
		key, string(data), expected,
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, persistence.ErrVersionConflict
	}
	return expected + 1, nil
}

// Ping implements persistence.Backend.
func (b *ProfileBackend) Ping(ctx context.Context) error {
	return b.conn.Ping(ctx)
}

// Close implements persistence.Backend.
func (b *ProfileBackend) Close() error {
	b.conn.Close()
	return nil
}
