package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/backendtest"
)

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=eco_explorer")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "connect_timeout=10")

	cfg.URL = "postgres://u:p@db:5432/eco?sslmode=disable"
	assert.Equal(t, cfg.URL, cfg.DSN())
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConns = 7
	cfg.MaxConnLifetime = 5 * time.Minute

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, 5*time.Minute, pc.MaxConnLifetime)

	_, err = Config{URL: "://broken"}.PoolConfig()
	assert.Error(t, err)
}

func TestGetMigrations_Ordered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
	assert.Contains(t, migs[0].UpSQL, "learner_profiles")
}

func TestErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))

	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("boom")))
}

// TestProfileBackend_Contract runs against a live database named by
// TEST_DATABASE_URL and is skipped without one.
func TestProfileBackend_Contract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.URL = url
	b, err := Open(ctx, cfg)
	require.NoError(t, err)

	prefix := "eco_test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		_, _ = b.conn.Exec(ctx, `DELETE FROM learner_profiles WHERE key LIKE $1`, prefix+"%")
		_ = b.Close()
	})

	backendtest.Run(t, b, prefix)
}
