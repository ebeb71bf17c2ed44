package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// CacheTier is one level of the answer cache.
// Tiers store whole entries; there is no partial update.
type CacheTier interface {
	// Name identifies the tier in logs and stats ("hot", "warm", "materialized").
	Name() string

	// Get returns the entry for a fingerprint or domain.ErrCacheMiss.
	Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, error)

	// Set replaces the entry for a fingerprint. The tier forgets it after ttl.
	Set(ctx context.Context, entry *domain.CacheEntry, ttl time.Duration) error

	// Delete evicts one fingerprint. Missing entries are not an error.
	Delete(ctx context.Context, fingerprint string) error

	// DeleteByTag evicts every entry stored with the tag and returns how many.
	DeleteByTag(ctx context.Context, tag string) (int, error)

	// Ping reports whether the tier is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
