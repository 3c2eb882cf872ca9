// ABOUTME: Preferences interface and errors for parley persistence
// ABOUTME: Defines the key-value contract backing locally persisted adapter state

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Preferences defines the interface for persistent key-value storage.
// The adapter stores small string values under fixed keys, most notably
// the active conversation identifier.
type Preferences interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}
