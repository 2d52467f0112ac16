// Package persistence implements the learner profile repository on top of a
// pluggable key/value Backend (memory, SQLite, PostgreSQL or Redis).
//
// The repository owns the document format and the best-effort semantics:
// read failures fall back to a default profile, write failures are logged
// and dropped. Backends only move versioned byte blobs around.
package persistence

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Backend.Get when no record exists for the key.
	ErrNotFound = errors.New("persistence: record not found")

	// ErrVersionConflict is returned by Backend.Put when the stored version
	// does not match the expected one.
	ErrVersionConflict = errors.New("persistence: version conflict")

	// ErrCorruptRecord is returned by Backend.Get together with the stored
	// version when a record exists but its document cannot be read.
	// A Put at that version replaces it.
	ErrCorruptRecord = errors.New("persistence: corrupt record")

	// ErrClosed is returned when the backend has been closed.
	ErrClosed = errors.New("persistence: backend closed")
)

// Record is one stored profile document and its version.
// Version 0 means "no record"; the first successful Put stores version 1.
type Record struct {
	Data    []byte
	Version int64
}

// Backend is a versioned key/value store.
type Backend interface {
	// Name identifies the backend in logs and health checks.
	Name() string

	// Get returns the record stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)

	// Put stores data under key if the current version equals expected
	// (0 = key must not exist) and returns the new version.
	// Returns ErrVersionConflict otherwise.
	Put(ctx context.Context, key string, data []byte, expected int64) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
