package cache

import (
	"time"
)

// Entry represents a cached origin response body.
type Entry struct {
	// Key is the canonical origin URL
	Key string

	// Value is the response body
	Value []byte

	// CachedAt is when the entry was written
	CachedAt time.Time

	// ExpiresAt is when the entry becomes stale
	ExpiresAt time.Time
}

// newEntry stamps an entry written at now that lives for ttl.
func newEntry(key CacheKey, value []byte, now time.Time, ttl time.Duration) Entry {
	return Entry{
		Key:       key.String(),
		Value:     append([]byte(nil), value...),
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpiredAt reports whether the entry is stale at the given instant.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
