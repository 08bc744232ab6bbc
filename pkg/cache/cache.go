// Package cache stores computed layouts so that re-laying out an unchanged
// canvas does not call into Graphviz again.
//
// Three backends share the [Cache] interface:
//   - [FileCache]: entries as files under a directory (CLI use)
//   - [MemoryCache]: an in-process map (long-running sessions, tests)
//   - [NullCache]: never stores anything (caching disabled)
//
// Keys are produced by a [Keyer]. [ScopedKeyer] prefixes every key with a
// project scope so that projects sharing a cache directory never collide.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the cached bytes and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// DefaultLayoutTTL bounds how long a computed layout stays cached.
const DefaultLayoutTTL = 7 * 24 * time.Hour
