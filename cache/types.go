// Package cache defines the byte store behind the HTTP response cache.
// Cache semantics (freshness, validation, Vary) live in the HTTP layer; a Store
// only keeps opaque serialized responses keyed by request identity.
package cache

// Store keeps serialized HTTP responses.
// The method set matches github.com/gregjones/httpcache.Cache so any Store can
// back an httpcache.Transport directly.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored bytes for key and whether they were present.
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	// Stores may silently drop values they cannot hold (e.g. larger than capacity).
	Set(key string, value []byte)

	// Delete removes key. Missing keys are ignored.
	Delete(key string)
}

// StatsProvider is implemented by stores that report statistics for observability.
// Keys may include: entries, bytes, max_bytes, hits, misses, evictions.
type StatsProvider interface {
	Stats() map[string]any
}

// Purger is implemented by stores that can drop all entries at once.
type Purger interface {
	Purge() error
}
