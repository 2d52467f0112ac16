// Package memory provides an in-process persistence.Backend.
// It is the default backend for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
)

type entry struct {
	data    []byte
	version int64
}

// Backend keeps records in a map guarded by a RWMutex.
type Backend struct {
	mu      sync.RWMutex
	records map[string]entry
	closed  bool
}

var _ persistence.Backend = (*Backend)(nil)

// New creates an empty backend.
func New() *Backend {
	return &Backend{records: make(map[string]entry)}
}

// Name implements persistence.Backend.
func (b *Backend) Name() string { return "memory" }

// Get implements persistence.Backend.
func (b *Backend) Get(ctx context.Context, key string) (persistence.Record, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Record{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.Record{}, persistence.ErrClosed
	}
	e, ok := b.records[key]
	if !ok {
		return persistence.Record{}, persistence.ErrNotFound
	}
	return persistence.Record{Data: copyBytes(e.data), Version: e.version}, nil
}

// Put implements persistence.Backend.
func (b *Backend) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, persistence.ErrClosed
	}
	current := b.records[key].version
	if current != expected {
		return 0, persistence.ErrVersionConflict
	}
	next := current + 1
	b.records[key] = entry{data: copyBytes(data), version: next}
	return next, nil
}

// Ping implements persistence.Backend.
func (b *Backend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return persistence.ErrClosed
	}
	return ctx.Err()
}

// Close implements persistence.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Len returns the number of stored records.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Raw overwrites a record without a version check. Used to seed fixtures.
func (b *Backend) Raw(key string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.records[key]
	b.records[key] = entry{data: copyBytes(data), version: e.version + 1}
}

func copyBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
