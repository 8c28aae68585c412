package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
//
// Expiration is lazy: an expired entry reads as a miss but stays in the map
// until it is overwritten or the store is cleared. The key space of a single
// origin is one key, so the map does not grow.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests that need to move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key if present and not expired.
func (m *MemoryStore) Get(ctx context.Context, key CacheKey) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key.String()]
	m.mu.RUnlock()

	if !ok || entry.IsExpiredAt(m.now()) {
		recordMiss(BackendMemory)
		return nil, ErrCacheMiss
	}

	recordHit(BackendMemory)
	return append([]byte(nil), entry.Value...), nil
}

// Set stores a copy of value under key.
func (m *MemoryStore) Set(ctx context.Context, key CacheKey, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	entry := newEntry(key, value, m.now(), ttl)

	m.mu.Lock()
	m.entries[entry.Key] = entry
	m.mu.Unlock()

	recordWrite(BackendMemory, len(value))
	return nil
}

// Clear drops every entry.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of physically stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
