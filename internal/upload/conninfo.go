// Package upload implements the multi-host upload dispatcher: ordered
// host fallback, auth-token refresh, and per-host size caps.
package upload

import (
	"context"
	"sync"
	"time"
)

// Host is one candidate upload endpoint. MaxContentLengthBytes of zero
// means unbounded.
type Host struct {
	Hostname              string
	MaxContentLengthBytes int64
}

// ConnInfo is the refreshable record describing how to reach the upload
// hosts right now: an auth token plus the server's ordered host list.
type ConnInfo struct {
	Auth  string
	Hosts []Host

	// TTL is how long this record may be served from cache. Zero means it
	// never expires on its own; a forced Get always re-fetches.
	TTL time.Duration
}

// RefreshFunc acquires or re-acquires a ConnInfo. force requests a hard
// refresh (e.g. after a host rejected the current auth token) rather than a
// cached value.
type RefreshFunc func(ctx context.Context, force bool) (*ConnInfo, error)

// ConnInfoCache wraps a caller-supplied RefreshFunc with a mutex so
// concurrent uploads issue at most one in-flight refresh instead of each
// racing the collaborator: lock, check the
// cache, wait on any in-flight refresh, re-check, then refresh and
// broadcast.
type ConnInfoCache struct {
	refresh RefreshFunc

	mu        sync.Mutex
	cond      *sync.Cond
	inFlight  bool
	cached    *ConnInfo
	fetchedAt time.Time
}

// NewConnInfoCache wraps refresh for serialized, cached access.
func NewConnInfoCache(refresh RefreshFunc) *ConnInfoCache {
	c := &ConnInfoCache{refresh: refresh}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Get returns the cached ConnInfo, refreshing on first use. force bypasses
// the cache and always issues its own refresh once any in-flight refresh
// has finished; concurrent forced callers are serialized, not merged into
// one request.
func (c *ConnInfoCache) Get(ctx context.Context, force bool) (*ConnInfo, error) {
	c.mu.Lock()
	if !force && c.cachedValidLocked() {
		info := c.cached
		c.mu.Unlock()
		return info, nil
	}

	for c.inFlight {
		c.cond.Wait()
	}
	// Another goroutine may have just populated the cache while we waited.
	if !force && c.cachedValidLocked() {
		info := c.cached
		c.mu.Unlock()
		return info, nil
	}
	c.inFlight = true
	c.mu.Unlock()

	info, err := c.refresh(ctx, force)

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.cached = info
		c.fetchedAt = time.Now()
	}
	c.cond.Broadcast()
	c.mu.Unlock()

	return info, err
}

func (c *ConnInfoCache) cachedValidLocked() bool {
	if c.cached == nil {
		return false
	}
	if c.cached.TTL > 0 && time.Since(c.fetchedAt) >= c.cached.TTL {
		return false
	}
	return true
}
