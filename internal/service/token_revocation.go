package service

import (
	"context"
	"sync"
	"time"
)

func revokedTokenKey(tokenID string) string {
	return "revoked:" + tokenID
}

// TokenRevocations remembers access tokens that were logged out until they
// would have expired anyway. Entries are shared through the cache when it is
// enabled and always kept in process.
type TokenRevocations struct {
	cache *CacheService
	now   func() time.Time

	mu    sync.Mutex
	local map[string]time.Time
}

// NewTokenRevocations constructs a revocation list. cache may be nil.
func NewTokenRevocations(cache *CacheService) *TokenRevocations {
	return &TokenRevocations{cache: cache, now: time.Now, local: make(map[string]time.Time)}
}

// Revoke marks tokenID as unusable until expiresAt.
func (r *TokenRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	now := r.now()
	ttl := expiresAt.Sub(now)
	if tokenID == "" || ttl <= 0 {
		return nil
	}

	r.mu.Lock()
	for id, until := range r.local {
		if !until.After(now) {
			delete(r.local, id)
		}
	}
	r.local[tokenID] = expiresAt
	r.mu.Unlock()

	return r.cache.Set(ctx, revokedTokenKey(tokenID), expiresAt.Unix(), ttl)
}

// Revoked reports whether tokenID was logged out. A cache read failure falls
// back to the in-process entries.
func (r *TokenRevocations) Revoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}
	r.mu.Lock()
	until, ok := r.local[tokenID]
	r.mu.Unlock()
	if ok && until.After(r.now()) {
		return true
	}

	var expiresAt int64
	hit, err := r.cache.Get(ctx, revokedTokenKey(tokenID), &expiresAt)
	return err == nil && hit
}
