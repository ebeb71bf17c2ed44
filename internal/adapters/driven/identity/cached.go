package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/logger"
)

// CachedProvider reuses resolved permission sets for a TTL.
// Failed resolutions are not cached.
type CachedProvider struct {
	next  driven.IdentityProvider
	cache *expirable.LRU[domain.CallerContext, domain.PermissionSet]
}

var _ driven.IdentityProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps next with an expiring cache of size entries.
func NewCachedProvider(next driven.IdentityProvider, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = 1024
	}
	return &CachedProvider{
		next:  next,
		cache: expirable.NewLRU[domain.CallerContext, domain.PermissionSet](size, nil, ttl),
	}
}

// PermissionsFor returns the cached set or resolves it through the wrapped provider.
func (c *CachedProvider) PermissionsFor(ctx context.Context, caller domain.CallerContext) (domain.PermissionSet, error) {
	if perms, ok := c.cache.Get(caller); ok {
		return perms, nil
	}

	perms, err := c.next.PermissionsFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	c.cache.Add(caller, perms)
	logger.Debug("Cached %d principal(s) for user %q", len(perms), caller.UserID)
	return perms, nil
}

// Invalidate drops the cached set for a caller.
func (c *CachedProvider) Invalidate(caller domain.CallerContext) {
	c.cache.Remove(caller)
}

// Purge drops every cached set.
func (c *CachedProvider) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached sets.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}
