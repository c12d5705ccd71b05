package taskapi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheServesFreshValue(t *testing.T) {
	t.Parallel()

	current := time.Unix(1000, 0)
	cache := NewCache[[]Project](300 * time.Second)
	cache.now = func() time.Time { return current }

	fills := 0
	fill := func(context.Context) ([]Project, error) {
		fills++
		return []Project{{ID: "1", Name: "Inbox"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.Fetch(context.Background(), fill)
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Inbox" {
			t.Fatalf("got = %v", got)
		}
	}

	if fills != 1 {
		t.Fatalf("fills = %d, want 1", fills)
	}
}

func TestCacheExpiresAtTTL(t *testing.T) {
	t.Parallel()

	current := time.Unix(1000, 0)
	cache := NewCache[[]Project](300 * time.Second)
	cache.now = func() time.Time { return current }

	fills := 0
	fill := func(context.Context) ([]Project, error) {
		fills++
		return nil, nil
	}

	if _, err := cache.Fetch(context.Background(), fill); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	// Exactly at TTL the value is stale, never returned as fresh.
	current = current.Add(300 * time.Second)
	if _, ok := cache.Get(); ok {
		t.Fatal("value at TTL boundary reported fresh")
	}
	if _, err := cache.Fetch(context.Background(), fill); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if fills != 2 {
		t.Fatalf("fills = %d, want refetch after expiry", fills)
	}
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	cache := NewCache[[]Label](time.Hour)
	if _, err := cache.Fetch(context.Background(), func(context.Context) ([]Label, error) {
		return []Label{{Name: "home"}}, nil
	}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	cache.Invalidate()
	if _, ok := cache.Get(); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestCacheDoesNotStoreFailedFills(t *testing.T) {
	t.Parallel()

	cache := NewCache[[]Project](time.Hour)
	if _, err := cache.Fetch(context.Background(), func(context.Context) ([]Project, error) {
		return nil, errors.New("boom")
	}); err == nil {
		t.Fatal("expected fill error to surface")
	}

	if _, ok := cache.Get(); ok {
		t.Fatal("failed fill should not populate the cache")
	}
}

func TestCacheFillOutlivesCallerCancellation(t *testing.T) {
	t.Parallel()

	cache := NewCache[[]Project](time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Waiters on the flight share one fill; the winning caller's
	// cancellation must not fail it for everyone.
	got, err := cache.Fetch(ctx, func(fillCtx context.Context) ([]Project, error) {
		if err := fillCtx.Err(); err != nil {
			return nil, err
		}
		return []Project{{ID: "1", Name: "Inbox"}}, nil
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Inbox" {
		t.Fatalf("got = %v", got)
	}

	if _, ok := cache.Get(); !ok {
		t.Fatal("expected fill result to be cached")
	}
}

func TestCacheCollapsesConcurrentFills(t *testing.T) {
	t.Parallel()

	cache := NewCache[[]Project](time.Hour)

	var fills atomic.Int32
	release := make(chan struct{})
	fill := func(context.Context) ([]Project, error) {
		fills.Add(1)
		<-release
		return []Project{{ID: "1"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Fetch(context.Background(), fill); err != nil {
				t.Errorf("Fetch error: %v", err)
			}
		}()
	}

	// Give the goroutines time to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fills.Load(); got != 1 {
		t.Fatalf("fills = %d, want 1", got)
	}
}
