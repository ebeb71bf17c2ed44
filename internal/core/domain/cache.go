package domain

import "time"

// Tag prefixes stored alongside cache entries.
const (
	TagSourcePrefix   = "source:"
	TagDocumentPrefix = "doc:"
)

// SourceTag is the tag attached to entries that drew on a source.
func SourceTag(sourceID string) string {
	return TagSourcePrefix + sourceID
}

// DocumentTag is the tag attached to entries that contain a document.
func DocumentTag(sourceID, documentID string) string {
	return TagDocumentPrefix + sourceID + "/" + documentID
}

// CacheEntry is a complete cached answer for one fingerprint.
// Entries are replaced or evicted whole, never partially updated.
type CacheEntry struct {
	Fingerprint string          `json:"fingerprint"`
	Results     []RankedResult  `json:"results"`
	Trace       *ReasoningTrace `json:"trace"`
	CreatedAt   time.Time       `json:"created_at"`
	TTL         time.Duration   `json:"ttl"`
	Tags        []string        `json:"tags"`
}

// ExpiresAt returns when the entry stops being valid.
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}

// Remaining returns the TTL left at now, never negative.
func (e *CacheEntry) Remaining(now time.Time) time.Duration {
	d := e.ExpiresAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// TagsFor derives the invalidation tags for a result set.
// Sources are tagged even when their documents were merged into another result.
func TagsFor(results []RankedResult, sources []string) []string {
	seen := make(map[string]struct{})
	var tags []string
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	for _, s := range sources {
		add(SourceTag(s))
	}
	for i := range results {
		c := results[i].Candidate
		add(SourceTag(c.SourceID))
		add(DocumentTag(c.SourceID, c.DocumentID))
		for _, ref := range results[i].MergedFrom {
			add(SourceTag(ref.SourceID))
			add(DocumentTag(ref.SourceID, ref.DocumentID))
		}
	}
	return tags
}

// TierStats counts lookups served by one cache tier.
type TierStats struct {
	Name   string `json:"name"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
	Errors int64  `json:"errors"`
}

// CacheStats summarises cache behaviour since start-up.
type CacheStats struct {
	Tiers    []TierStats `json:"tiers"`
	Lookups  int64       `json:"lookups"`
	Hits     int64       `json:"hits"`
	Shared   int64       `json:"shared"`
	Bypassed int64       `json:"bypassed"`
}

// HitRate returns hits over lookups, or 0 before the first lookup.
func (s CacheStats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups)
}
