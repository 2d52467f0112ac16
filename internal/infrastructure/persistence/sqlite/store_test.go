package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence/backendtest"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.db")
	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Get(ctx, "p:alice")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	v, err := store.Put(ctx, "p:alice", []byte(`{"points":10}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.Put(ctx, "p:alice", []byte(`{"points":20}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	rec, err := store.Get(ctx, "p:alice")
	require.NoError(t, err)
	assert.Equal(t, `{"points":20}`, string(rec.Data))
	assert.Equal(t, int64(2), rec.Version)
}

func TestStore_Contract(t *testing.T) {
	store, _ := openTestStore(t)
	backendtest.Run(t, store, "p:")
}

func TestStore_VersionConflicts(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Put(ctx, "p:bob", []byte("a"), 0)
	require.NoError(t, err)

	_, err = store.Put(ctx, "p:bob", []byte("b"), 0)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	_, err = store.Put(ctx, "p:bob", []byte("c"), 5)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)

	_, err = store.Put(ctx, "p:carol", []byte("d"), 1)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)
}

func TestOpen_AppliesPragmas(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	var mode string
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var timeout int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	var fk int
	require.NoError(t, store.sqlDB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestStore_ConcurrentWritersOnDifferentKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	const (
		writers = 16
		puts    = 50
	)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("p:learner-%d", w)
			var version int64
			for i := 0; i < puts; i++ {
				next, err := store.Put(ctx, key, []byte(fmt.Sprintf(`{"points":%d}`, i)), version)
				if err != nil {
					mu.Lock()
					failed = append(failed, err)
					mu.Unlock()
					return
				}
				version = next
			}
		}(w)
	}
	wg.Wait()

	require.Empty(t, failed)
	for w := 0; w < writers; w++ {
		rec, err := store.Get(ctx, fmt.Sprintf("p:learner-%d", w))
		require.NoError(t, err)
		assert.Equal(t, int64(puts), rec.Version)
		assert.Equal(t, fmt.Sprintf(`{"points":%d}`, puts-1), string(rec.Data))
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = store.Put(ctx, "p:alice", []byte("saved"), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, "p:alice")
	require.NoError(t, err)
	assert.Equal(t, "saved", string(rec.Data))
	assert.NoError(t, reopened.Ping(ctx))
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Close())
	assert.ErrorIs(t, store.Ping(context.Background()), persistence.ErrClosed)
}

func TestExtractUp(t *testing.T) {
	sql := "-- +migrate Up\nCREATE TABLE x (id INT);\n-- +migrate Down\nDROP TABLE x;"
	assert.Equal(t, "\nCREATE TABLE x (id INT);\n", extractUp(sql))
	assert.Equal(t, "SELECT 1", extractUp("SELECT 1"))
}
