// Package store persists scratch code between practice sessions. Entries
// are keyed by a user-chosen name; saving an existing key overwrites it.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no saved entry.
var ErrNotFound = errors.New("store: not found")

// Entry is one saved scratch.
type Entry struct {
	Key       string
	Code      string
	UpdatedAt time.Time
}

// ScratchStore is the persistence interface. Implementations: Memory
// (per-process) and Postgres.
type ScratchStore interface {
	// Save writes code under key, overwriting any previous entry.
	Save(ctx context.Context, key, code string) error
	// Load returns the code saved under key, or ErrNotFound.
	Load(ctx context.Context, key string) (string, error)
	// List returns all entries, most recently updated first.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes the entry under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
	// Close releases any underlying resources.
	Close()
}
