package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/memory"
	"github.com/ecoquest/eco-explorer-hub/pkg/circuitbreaker"
)

// countingBackend counts Get calls and fails them while down is set.
type countingBackend struct {
	persistence.Backend
	down bool
	gets int
}

func (c *countingBackend) Get(ctx context.Context, key string) (persistence.Record, error) {
	c.gets++
	if c.down {
		return persistence.Record{}, errors.New("dial tcp: connection refused")
	}
	return c.Backend.Get(ctx, key)
}

func TestGuardedBackend_OpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	inner := &countingBackend{Backend: memory.New(), down: true}
	guarded := persistence.NewGuardedBackend(inner, persistence.GuardConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		Now:              func() time.Time { return now },
	}, nil)

	for i := 0; i < 2; i++ {
		_, err := guarded.Get(ctx, "k")
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, guarded.BreakerState())

	_, err := guarded.Get(ctx, "k")
	assert.True(t, circuitbreaker.IsRejected(err))
	assert.Equal(t, 2, inner.gets)

	// the repository still answers with a default profile
	repo := newRepo(t, guarded, nil)
	p := repo.Load(ctx, "alice")
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, int64(0), p.Version)

	inner.down = false
	now = now.Add(time.Minute)
	_, err = guarded.Get(ctx, "k")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.Equal(t, circuitbreaker.StateClosed, guarded.BreakerState())
}

func TestGuardedBackend_NormalAnswersDoNotTrip(t *testing.T) {
	ctx := context.Background()
	guarded := persistence.NewGuardedBackend(memory.New(), persistence.GuardConfig{FailureThreshold: 1, Cooldown: time.Minute}, nil)

	_, err := guarded.Get(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = guarded.Put(ctx, "k", []byte(`{}`), 0)
	require.NoError(t, err)
	_, err = guarded.Put(ctx, "k", []byte(`{}`), 0)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	assert.Equal(t, circuitbreaker.StateClosed, guarded.BreakerState())
	assert.Equal(t, "memory", guarded.Name())

	corrupt := persistence.NewGuardedBackend(unreadableBackend{memory.New()}, persistence.GuardConfig{FailureThreshold: 1, Cooldown: time.Minute}, nil)
	_, err = corrupt.Put(ctx, "k", []byte(`{}`), 0)
	require.NoError(t, err)
	rec, err := corrupt.Get(ctx, "k")
	assert.ErrorIs(t, err, persistence.ErrCorruptRecord)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, circuitbreaker.StateClosed, corrupt.BreakerState())
}
