package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// Verify interface compliance.
var _ driving.CacheService = (*CacheManager)(nil)

// CacheManager layers cache tiers, fastest first, and collapses concurrent
// computations of the same fingerprint into one.
type CacheManager struct {
	tiers       []driven.CacheTier
	ttl         time.Duration
	tierTimeout time.Duration
	group       singleflight.Group
	now         func() time.Time

	mu        sync.Mutex
	tierStats []domain.TierStats

	// generation advances on every invalidation.
	generation atomic.Uint64

	lookups  atomic.Int64
	hits     atomic.Int64
	shared   atomic.Int64
	bypassed atomic.Int64
}

// NewCacheManager creates a cache manager over tiers ordered fastest first.
func NewCacheManager(settings domain.CacheSettings, tiers ...driven.CacheTier) *CacheManager {
	stats := make([]domain.TierStats, len(tiers))
	for i, t := range tiers {
		stats[i].Name = t.Name()
	}
	return &CacheManager{
		tiers:       tiers,
		ttl:         settings.TTL,
		tierTimeout: settings.TierTimeout,
		now:         time.Now,
		tierStats:   stats,
	}
}

// TTL returns the lifetime given to new entries.
func (m *CacheManager) TTL() time.Duration {
	return m.ttl
}

// Lookup searches the tiers in order. A hit in a slower tier is copied into
// every faster tier with its remaining lifetime. Expired entries count as
// misses and are evicted. available is false when tiers exist but none
// could be reached.
func (m *CacheManager) Lookup(ctx context.Context, fingerprint string) (entry *domain.CacheEntry, available bool) {
	m.lookups.Add(1)
	if len(m.tiers) == 0 {
		return nil, true
	}

	failed := 0
	for i, tier := range m.tiers {
		e, err := m.get(ctx, tier, fingerprint)
		switch {
		case errors.Is(err, domain.ErrCacheMiss):
			m.record(i, func(s *domain.TierStats) { s.Misses++ })
			continue
		case err != nil:
			failed++
			m.record(i, func(s *domain.TierStats) { s.Errors++ })
			logger.Warn("Cache tier %s unavailable: %v", tier.Name(), err)
			continue
		}

		now := m.now()
		if e.Expired(now) {
			m.record(i, func(s *domain.TierStats) { s.Misses++ })
			m.evict(ctx, tier, fingerprint)
			continue
		}

		m.record(i, func(s *domain.TierStats) { s.Hits++ })
		m.hits.Add(1)
		m.promote(ctx, i, e, e.Remaining(now))
		logger.Debug("Cache hit in %s tier for %s", tier.Name(), shortFingerprint(fingerprint))
		return e, true
	}

	if failed == len(m.tiers) {
		m.bypassed.Add(1)
		return nil, false
	}
	return nil, true
}

// Store writes the entry to every tier concurrently. It fails only when no
// tier accepted the entry.
func (m *CacheManager) Store(ctx context.Context, entry *domain.CacheEntry) error {
	if len(m.tiers) == 0 {
		return nil
	}

	var stored atomic.Int32
	var g errgroup.Group
	for _, tier := range m.tiers {
		g.Go(func() error {
			tctx, cancel := m.tierContext(ctx)
			defer cancel()
			if err := tier.Set(tctx, entry, entry.TTL); err != nil {
				logger.Warn("Cache tier %s rejected write: %v", tier.Name(), err)
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if stored.Load() == 0 {
		m.bypassed.Add(1)
		return fmt.Errorf("%w: no tier accepted %s", domain.ErrCacheUnavailable, shortFingerprint(entry.Fingerprint))
	}
	return nil
}

// Generation returns a counter that advances on every invalidation.
func (m *CacheManager) Generation() uint64 {
	return m.generation.Load()
}

// StoreIfCurrent stores entry unless an invalidation happened since gen was
// read from Generation. An invalidation that races the write evicts the
// entry again. stored reports whether the entry was kept.
func (m *CacheManager) StoreIfCurrent(ctx context.Context, entry *domain.CacheEntry, gen uint64) (stored bool, err error) {
	if m.generation.Load() != gen {
		logger.Debug("Discarding %s: cache invalidated during computation", shortFingerprint(entry.Fingerprint))
		return false, nil
	}
	if err := m.Store(ctx, entry); err != nil {
		return false, err
	}
	if m.generation.Load() != gen {
		logger.Debug("Evicting %s: cache invalidated during write", shortFingerprint(entry.Fingerprint))
		m.deleteAll(ctx, entry.Fingerprint)
		return false, nil
	}
	return true, nil
}

// Do runs fn at most once at a time per fingerprint. Concurrent callers with
// the same fingerprint wait for and share the leader's result. When the
// leader gave up because its own context ended, a follower whose context is
// still live tries again.
func (m *CacheManager) Do(
	ctx context.Context, fingerprint string, fn func(ctx context.Context) (any, error),
) (v any, shared bool, err error) {
	for {
		led := false
		ch := m.group.DoChan(fingerprint, func() (any, error) {
			led = true
			return fn(ctx)
		})

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case res := <-ch:
			if res.Err != nil && !led && isContextError(res.Err) && ctx.Err() == nil {
				logger.Debug("Shared computation for %s was cancelled, retrying", shortFingerprint(fingerprint))
				continue
			}
			if res.Shared && !led {
				m.shared.Add(1)
			}
			return res.Val, res.Shared, res.Err
		}
	}
}

// InvalidateFingerprint evicts one entry from every tier.
func (m *CacheManager) InvalidateFingerprint(ctx context.Context, fingerprint string) error {
	m.generation.Add(1)
	m.group.Forget(fingerprint)
	errs := m.deleteAll(ctx, fingerprint)
	if len(m.tiers) > 0 && len(errs) == len(m.tiers) {
		return fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, errors.Join(errs...))
	}
	return nil
}

// InvalidateSource evicts every entry that drew on a source.
func (m *CacheManager) InvalidateSource(ctx context.Context, sourceID string) (int, error) {
	return m.invalidateTag(ctx, domain.SourceTag(sourceID))
}

// InvalidateDocument evicts every entry that contains a document.
func (m *CacheManager) InvalidateDocument(ctx context.Context, sourceID, documentID string) (int, error) {
	return m.invalidateTag(ctx, domain.DocumentTag(sourceID, documentID))
}

// invalidateTag returns the largest eviction count reported by any tier,
// since tiers hold copies of the same entries.
func (m *CacheManager) invalidateTag(ctx context.Context, tag string) (int, error) {
	m.generation.Add(1)
	evicted := 0
	var errs []error
	for _, tier := range m.tiers {
		tctx, cancel := m.tierContext(ctx)
		n, err := tier.DeleteByTag(tctx, tag)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name(), err))
			continue
		}
		evicted = max(evicted, n)
	}
	if len(m.tiers) > 0 && len(errs) == len(m.tiers) {
		return 0, fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, errors.Join(errs...))
	}
	logger.Info("Invalidated %d cached answer(s) tagged %s", evicted, tag)
	return evicted, nil
}

// Stats returns a snapshot of cache counters.
func (m *CacheManager) Stats() domain.CacheStats {
	m.mu.Lock()
	tiers := make([]domain.TierStats, len(m.tierStats))
	copy(tiers, m.tierStats)
	m.mu.Unlock()

	return domain.CacheStats{
		Tiers:    tiers,
		Lookups:  m.lookups.Load(),
		Hits:     m.hits.Load(),
		Shared:   m.shared.Load(),
		Bypassed: m.bypassed.Load(),
	}
}

// Health pings every tier. A nil value means the tier is reachable.
func (m *CacheManager) Health(ctx context.Context) map[string]error {
	out := make(map[string]error, len(m.tiers))
	for _, tier := range m.tiers {
		tctx, cancel := m.tierContext(ctx)
		out[tier.Name()] = tier.Ping(tctx)
		cancel()
	}
	return out
}

// Close closes every tier.
func (m *CacheManager) Close() error {
	var errs []error
	for _, tier := range m.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", tier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *CacheManager) get(ctx context.Context, tier driven.CacheTier, fingerprint string) (*domain.CacheEntry, error) {
	tctx, cancel := m.tierContext(ctx)
	defer cancel()
	return tier.Get(tctx, fingerprint)
}

func (m *CacheManager) promote(ctx context.Context, hitTier int, entry *domain.CacheEntry, remaining time.Duration) {
	for _, tier := range m.tiers[:hitTier] {
		tctx, cancel := m.tierContext(ctx)
		if err := tier.Set(tctx, entry, remaining); err != nil {
			logger.Debug("Promotion into %s tier failed: %v", tier.Name(), err)
		}
		cancel()
	}
}

// deleteAll removes fingerprint from every tier and returns the failures.
func (m *CacheManager) deleteAll(ctx context.Context, fingerprint string) []error {
	var errs []error
	for _, tier := range m.tiers {
		tctx, cancel := m.tierContext(ctx)
		err := tier.Delete(tctx, fingerprint)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name(), err))
		}
	}
	return errs
}

func (m *CacheManager) evict(ctx context.Context, tier driven.CacheTier, fingerprint string) {
	tctx, cancel := m.tierContext(ctx)
	defer cancel()
	if err := tier.Delete(tctx, fingerprint); err != nil {
		logger.Debug("Evicting expired entry from %s tier failed: %v", tier.Name(), err)
	}
}

func (m *CacheManager) tierContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.tierTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.tierTimeout)
}

func (m *CacheManager) record(tier int, fn func(*domain.TierStats)) {
	m.mu.Lock()
	fn(&m.tierStats[tier])
	m.mu.Unlock()
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
