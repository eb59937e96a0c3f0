// Package cache provides byte-level caching for resolved package metadata
// and analysis runs.
//
// The Cache interface abstracts over storage backends (filesystem, Redis,
// null) so callers can swap implementations without code changes. Keys are
// derived through the Keyer interface, which hashes identifying components
// into stable cache keys.
package cache

import (
	"context"
	"time"
)

// Cache is the interface for byte-level storage backends.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves data by key. The bool reports whether the key was
	// found; expired entries are treated as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key with a time-to-live.
	// A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Keyer generates cache keys from identifying components.
type Keyer interface {
	// PackageKey returns the cache key for a package's resolved metadata.
	PackageKey(ecosystem, identifier string) string

	// RunKey returns the cache key for a persisted analysis run.
	RunKey(runID string) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// PackageKey returns "pkg:" followed by the hash of ecosystem and identifier.
func (k *DefaultKeyer) PackageKey(ecosystem, identifier string) string {
	return hashKey("pkg", ecosystem, identifier)
}

// RunKey returns "run:" followed by the hash of the run ID.
func (k *DefaultKeyer) RunKey(runID string) string {
	return hashKey("run", runID)
}
