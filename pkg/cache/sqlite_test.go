package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func setupTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestSQLiteStore_SetAndGet(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	if err := store.Set(ctx, key, []byte("<p>cached</p>"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "<p>cached</p>" {
		t.Errorf("Get = %s, want <p>cached</p>", got)
	}

	// last write wins
	if err := store.Set(ctx, key, []byte("<p>newer</p>"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "<p>newer</p>" {
		t.Errorf("Get = %s, want <p>newer</p>", got)
	}
}

func TestSQLiteStore_Get_CacheMiss(t *testing.T) {
	store := setupTestSQLite(t)

	_, err := store.Get(context.Background(), mustKey(t, "http://localhost/none"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestSQLiteStore_ExpiredRowIsDeleted(t *testing.T) {
	store := setupTestSQLite(t)
	clock := newFakeClock()
	store.now = clock.Now
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	if err := store.Set(ctx, key, []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clock.Advance(10 * time.Second)
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss after expiry, got %v", err)
	}

	var rows int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM cache").Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 0 {
		t.Errorf("expired row not deleted: %d rows", rows)
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	if err := store.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Clear, got %v", err)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	first, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.Set(ctx, key, []byte("persisted"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore (reopen) failed: %v", err)
	}
	defer second.Close()

	got, err := second.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("Get = %s, want persisted", got)
	}
}

func TestSQLiteStore_ClosedIsUnavailable(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	store.Close()

	_, err = store.Get(context.Background(), mustKey(t, "http://localhost"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSQLiteStore_ExpiredDeleteKeepsNewerRow(t *testing.T) {
	store := setupTestSQLite(t)
	clock := newFakeClock()
	store.now = clock.Now
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	if err := store.Set(ctx, key, []byte("old"), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(10 * time.Second)

	// a reader saw the old row expired at this instant...
	checked := clock.Now()

	// ...and a writer replaces it before the reader deletes
	if err := store.Set(ctx, key, []byte("fresh"), 10*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.deleteExpired(ctx, key, checked); err != nil {
		t.Fatalf("deleteExpired failed: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "fresh" {
		t.Errorf("Get = %s, want fresh", got)
	}
}

func TestSQLiteStore_ConcurrentReadWrite(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()
	key := mustKey(t, "http://localhost")

	if err := store.Set(ctx, key, []byte("v-init"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	const (
		workers    = 16
		iterations = 50
	)
	var (
		wg        sync.WaitGroup
		getErrors atomic.Int32
		setErrors atomic.Int32
		firstErr  atomic.Value
	)

	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				value := []byte(fmt.Sprintf("v-%d-%d", w, i))
				if err := store.Set(ctx, key, value, time.Minute); err != nil {
					setErrors.Add(1)
					firstErr.CompareAndSwap(nil, err.Error())
				}
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations*4; i++ {
				got, err := store.Get(ctx, key)
				if err != nil {
					getErrors.Add(1)
					firstErr.CompareAndSwap(nil, err.Error())
					continue
				}
				if len(got) < 3 || string(got[:2]) != "v-" {
					t.Errorf("torn read: %q", got)
				}
			}
		}()
	}
	wg.Wait()

	if getErrors.Load() != 0 || setErrors.Load() != 0 {
		t.Errorf("get errors = %d, set errors = %d, first: %v",
			getErrors.Load(), setErrors.Load(), firstErr.Load())
	}
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{
			dsn:  "cache.db",
			want: "cache.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		{
			dsn:  "file:cache.db?mode=rwc",
			want: "file:cache.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
	}

	for _, tt := range tests {
		if got := withPragmas(tt.dsn); got != tt.want {
			t.Errorf("withPragmas(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}
