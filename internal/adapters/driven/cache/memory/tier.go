// Package memory provides the in-process hot cache tier.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// TierName is the name the hot tier reports.
const TierName = "hot"

// item is one cached entry with its tier-local expiry.
type item struct {
	entry     *domain.CacheEntry
	expiresAt time.Time
}

// Tier is a size-bounded LRU cache tier with a tag index for invalidation.
type Tier struct {
	cache *lru.Cache[string, item]
	now   func() time.Time

	mu     sync.Mutex
	byTag  map[string]map[string]struct{}
	tagsOf map[string][]string
}

var _ driven.CacheTier = (*Tier)(nil)

// New creates a hot tier holding at most size entries.
func New(size int) (*Tier, error) {
	t := &Tier{
		now:    time.Now,
		byTag:  make(map[string]map[string]struct{}),
		tagsOf: make(map[string][]string),
	}
	cache, err := lru.NewWithEvict[string, item](size, t.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	t.cache = cache
	return t, nil
}

// Name returns the tier name.
func (t *Tier) Name() string {
	return TierName
}

// Get returns the entry for a fingerprint. Entries past the tier TTL are evicted.
func (t *Tier) Get(_ context.Context, fingerprint string) (*domain.CacheEntry, error) {
	it, ok := t.cache.Get(fingerprint)
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !t.now().Before(it.expiresAt) {
		t.cache.Remove(fingerprint)
		return nil, domain.ErrCacheMiss
	}
	return it.entry, nil
}

// Set stores the entry and indexes its tags.
func (t *Tier) Set(_ context.Context, entry *domain.CacheEntry, ttl time.Duration) error {
	t.cache.Add(entry.Fingerprint, item{entry: entry, expiresAt: t.now().Add(ttl)})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.unindex(entry.Fingerprint)
	for _, tag := range entry.Tags {
		set, ok := t.byTag[tag]
		if !ok {
			set = make(map[string]struct{})
			t.byTag[tag] = set
		}
		set[entry.Fingerprint] = struct{}{}
	}
	t.tagsOf[entry.Fingerprint] = entry.Tags
	return nil
}

// Delete evicts one fingerprint.
func (t *Tier) Delete(_ context.Context, fingerprint string) error {
	t.cache.Remove(fingerprint)
	return nil
}

// DeleteByTag evicts every entry indexed under the tag.
func (t *Tier) DeleteByTag(_ context.Context, tag string) (int, error) {
	t.mu.Lock()
	fingerprints := make([]string, 0, len(t.byTag[tag]))
	for fp := range t.byTag[tag] {
		fingerprints = append(fingerprints, fp)
	}
	t.mu.Unlock()

	n := 0
	for _, fp := range fingerprints {
		if t.cache.Remove(fp) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of cached entries.
func (t *Tier) Len() int {
	return t.cache.Len()
}

// Ping always succeeds.
func (t *Tier) Ping(_ context.Context) error {
	return nil
}

// Close purges the cache.
func (t *Tier) Close() error {
	t.cache.Purge()
	return nil
}

// onEvict keeps the tag index in step with the LRU. golang-lru invokes it
// outside its own lock.
func (t *Tier) onEvict(fingerprint string, _ item) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unindex(fingerprint)
}

// unindex removes a fingerprint from the tag index. Callers hold t.mu.
func (t *Tier) unindex(fingerprint string) {
	for _, tag := range t.tagsOf[fingerprint] {
		set := t.byTag[tag]
		delete(set, fingerprint)
		if len(set) == 0 {
			delete(t.byTag, tag)
		}
	}
	delete(t.tagsOf, fingerprint)
}
