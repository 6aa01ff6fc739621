// Package metadata is the durable key/value store of the client. It keeps the
// bearer token, the email it was issued for and the preferred language
// across restarts.
package metadata

import (
	"context"
	"time"
)

// Entry is one stored value and the time it was last written.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

type Repository interface {
	Lookup(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	// Remove deletes keys; absent keys are ignored.
	Remove(ctx context.Context, keys ...string) error
	// Entries returns every entry ordered by key.
	Entries(ctx context.Context) ([]Entry, error)
}
