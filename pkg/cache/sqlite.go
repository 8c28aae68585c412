package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// sqlitePragmas are applied to every pooled connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	cached_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
)`

// SQLiteStore is a file-backed Store that survives restarts.
// Expiration is checked on read; an expired row found by Get is deleted.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
	now        func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the database at dsn.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
		now:        time.Now,
	}, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, pragma := range sqlitePragmas {
		dsn += sep + "_pragma=" + pragma
		sep = "&"
	}
	return dsn
}

// Get returns the value for key if present and not expired.
func (s *SQLiteStore) Get(ctx context.Context, key CacheKey) ([]byte, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM cache WHERE key = ?", key.String(),
	).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			recordMiss(BackendSQLite)
			return nil, ErrCacheMiss
		}
		recordError(BackendSQLite, "get")
		return nil, fmt.Errorf("%w: sqlite select: %v", ErrStoreUnavailable, err)
	}

	now := s.now()
	if !now.Before(time.UnixMilli(expiresAt)) {
		_ = s.deleteExpired(ctx, key, now)
		recordMiss(BackendSQLite)
		return nil, ErrCacheMiss
	}

	recordHit(BackendSQLite)
	return value, nil
}

// Set inserts or replaces the row for key.
func (s *SQLiteStore) Set(ctx context.Context, key CacheKey, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	entry := newEntry(key, value, s.now(), ttl)

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache (key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)",
		entry.Key, entry.Value, entry.CachedAt.UnixMilli(), entry.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		recordError(BackendSQLite, "set")
		return fmt.Errorf("%w: sqlite insert: %v", ErrStoreUnavailable, err)
	}

	recordWrite(BackendSQLite, len(value))
	return nil
}

// deleteExpired removes the row for key only if it is still expired at now,
// so a Set that landed after the read survives.
func (s *SQLiteStore) deleteExpired(ctx context.Context, key CacheKey, now time.Time) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM cache WHERE key = ? AND expires_at <= ?", key.String(), now.UnixMilli(),
	); err != nil {
		recordError(BackendSQLite, "delete")
		return fmt.Errorf("%w: sqlite delete: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache"); err != nil {
		recordError(BackendSQLite, "clear")
		return fmt.Errorf("%w: sqlite clear: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: sqlite ping: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
