// Package backendtest checks that a persistence.Backend honours the
// versioned compare-and-set contract the profile repository relies on.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
)

// Run exercises b under keys starting with prefix. Callers pick a prefix
// that no other data uses and remove those keys afterwards if needed.
// Documents are JSON so that stores with a JSON column accept them.
func Run(t *testing.T, b persistence.Backend, prefix string) {
	t.Helper()

	t.Run("create and update", func(t *testing.T) {
		ctx := context.Background()
		key := prefix + "create"

		_, err := b.Get(ctx, key)
		assert.ErrorIs(t, err, persistence.ErrNotFound)

		v, err := b.Put(ctx, key, []byte(`{"points":10}`), 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = b.Put(ctx, key, []byte(`{"points":20}`), 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		rec, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
		assert.JSONEq(t, `{"points":20}`, string(rec.Data))
	})

	t.Run("stale versions conflict", func(t *testing.T) {
		ctx := context.Background()
		key := prefix + "stale"

		_, err := b.Put(ctx, key, []byte(`{"points":1}`), 3)
		assert.ErrorIs(t, err, persistence.ErrVersionConflict)

		_, err = b.Put(ctx, key, []byte(`{"points":1}`), 0)
		require.NoError(t, err)

		_, err = b.Put(ctx, key, []byte(`{"points":2}`), 0)
		assert.ErrorIs(t, err, persistence.ErrVersionConflict)

		_, err = b.Put(ctx, key, []byte(`{"points":3}`), 2)
		assert.ErrorIs(t, err, persistence.ErrVersionConflict)

		rec, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Version)
		assert.JSONEq(t, `{"points":1}`, string(rec.Data))
	})

	t.Run("one racing writer wins", func(t *testing.T) {
		ctx := context.Background()
		key := prefix + "race"

		_, err := b.Put(ctx, key, []byte(`{"points":0}`), 0)
		require.NoError(t, err)

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
			other     []error
		)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				_, err := b.Put(ctx, key, []byte(fmt.Sprintf(`{"points":%d}`, w+1)), 1)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, persistence.ErrVersionConflict):
					conflicts++
				default:
					other = append(other, err)
				}
			}(w)
		}
		wg.Wait()

		require.Empty(t, other)
		assert.Equal(t, 1, wins)
		assert.Equal(t, writers-1, conflicts)

		rec, err := b.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rec.Version)
	})
}
