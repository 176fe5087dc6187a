package upload

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConnInfoCacheSingleFlight(t *testing.T) {
	var refreshes int32
	cache := NewConnInfoCache(func(ctx context.Context, force bool) (*ConnInfo, error) {
		atomic.AddInt32(&refreshes, 1)
		time.Sleep(10 * time.Millisecond)
		return &ConnInfo{Auth: "tok"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := cache.Get(context.Background(), false)
			if err != nil {
				t.Error(err)
				return
			}
			if info.Auth != "tok" {
				t.Errorf("Auth = %q", info.Auth)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&refreshes); n != 1 {
		t.Fatalf("refreshes = %d, want 1 (concurrent Gets should share one in-flight refresh)", n)
	}
}

func TestConnInfoCacheForceBypassesCache(t *testing.T) {
	var refreshes int32
	var sawForce bool
	cache := NewConnInfoCache(func(ctx context.Context, force bool) (*ConnInfo, error) {
		atomic.AddInt32(&refreshes, 1)
		if force {
			sawForce = true
		}
		return &ConnInfo{Auth: "tok"}, nil
	})

	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := atomic.LoadInt32(&refreshes); n != 1 {
		t.Fatalf("refreshes = %d, want 1 after two cached Gets", n)
	}

	if _, err := cache.Get(context.Background(), true); err != nil {
		t.Fatalf("Get(force): %v", err)
	}
	if n := atomic.LoadInt32(&refreshes); n != 2 {
		t.Fatalf("refreshes = %d, want 2 after a forced Get", n)
	}
	if !sawForce {
		t.Fatal("expected the collaborator to see force=true")
	}
}

func TestConnInfoCacheExpiresAfterTTL(t *testing.T) {
	var refreshes int32
	cache := NewConnInfoCache(func(ctx context.Context, force bool) (*ConnInfo, error) {
		atomic.AddInt32(&refreshes, 1)
		return &ConnInfo{Auth: "tok", TTL: 5 * time.Millisecond}, nil
	})

	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("Get: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := cache.Get(context.Background(), false); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if n := atomic.LoadInt32(&refreshes); n != 2 {
		t.Fatalf("refreshes = %d, want 2 after the ttl elapsed", n)
	}
}
