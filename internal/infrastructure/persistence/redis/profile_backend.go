package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ecoquest/eco-explorer-hub/internal/infrastructure/persistence"
)

// Hash fields of a stored profile.
const (
	fieldDocument = "document"
	fieldVersion  = "version"
)

// ProfileBackend implements persistence.Backend on Redis hashes.
type ProfileBackend struct {
	client *redis.Client
}

var _ persistence.Backend = (*ProfileBackend)(nil)

// NewProfileBackend wraps an existing client.
func NewProfileBackend(client *redis.Client) *ProfileBackend {
	return &ProfileBackend{client: client}
}

// Open connects to Redis and returns a ready backend.
func Open(ctx context.Context, cfg Config) (*ProfileBackend, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewProfileBackend(client), nil
}

// Name implements persistence.Backend.
func (b *ProfileBackend) Name() string { return "redis" }

// Get implements persistence.Backend.
func (b *ProfileBackend) Get(ctx context.Context, key string) (persistence.Record, error) {
	return readRecord(ctx, b.client, key)
}

// Put implements persistence.Backend.
func (b *ProfileBackend) Put(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	next := expected + 1

	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := currentVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return persistence.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldDocument, data, fieldVersion, next)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return next, nil
	case errors.Is(err, persistence.ErrVersionConflict), errors.Is(err, redis.TxFailedErr):
		return 0, persistence.ErrVersionConflict
	case errors.Is(err, redis.ErrClosed):
		return 0, persistence.ErrClosed
	default:
		return 0, fmt.Errorf("redis: put profile: %w", err)
	}
}

// Ping implements persistence.Backend.
func (b *ProfileBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close implements persistence.Backend.
func (b *ProfileBackend) Close() error {
	return b.client.Close()
}

func readRecord(ctx context.Context, c redis.Cmdable, key string) (persistence.Record, error) {
	values, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return persistence.Record{}, persistence.ErrClosed
		}
		return persistence.Record{}, fmt.Errorf("redis: get profile: %w", err)
	}
	return parseRecord(values)
}

func currentVersion(ctx context.Context, c redis.Cmdable, key string) (int64, error) {
	raw, err := c.HGet(ctx, key, fieldVersion).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: version %q", ErrMalformedRecord, raw)
	}
	return v, nil
}

// parseRecord converts an HGETALL reply into a record.
// An empty reply means the key does not exist. A hash with a valid version
// but no document is reported as corrupt with that version, so the next
// Put can replace it.
func parseRecord(values map[string]string) (persistence.Record, error) {
	if len(values) == 0 {
		return persistence.Record{}, persistence.ErrNotFound
	}
	v, err := strconv.ParseInt(values[fieldVersion], 10, 64)
	if err != nil || v <= 0 {
		return persistence.Record{}, fmt.Errorf("%w: version %q", ErrMalformedRecord, values[fieldVersion])
	}
	doc, ok := values[fieldDocument]
	if !ok {
		return persistence.Record{Version: v},
			fmt.Errorf("%w: %w: missing %s", persistence.ErrCorruptRecord, ErrMalformedRecord, fieldDocument)
	}
	return persistence.Record{Data: []byte(doc), Version: v}, nil
}
