package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheEntry_Expiry(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := CacheEntry{CreatedAt: created, TTL: 10 * time.Minute}

	assert.False(t, e.Expired(created.Add(9*time.Minute)))
	assert.True(t, e.Expired(created.Add(10*time.Minute)))
	assert.Equal(t, time.Minute, e.Remaining(created.Add(9*time.Minute)))
	assert.Equal(t, time.Duration(0), e.Remaining(created.Add(time.Hour)))
}

func TestTagsFor(t *testing.T) {
	results := []RankedResult{
		{
			Candidate:  Candidate{SourceID: "wiki", DocumentID: "1"},
			MergedFrom: []SourceRef{{SourceID: "drive", DocumentID: "x"}},
		},
		{Candidate: Candidate{SourceID: "wiki", DocumentID: "2"}},
	}

	tags := TagsFor(results, []string{"wiki", "github"})

	assert.Equal(t, []string{
		"source:wiki",
		"source:github",
		"doc:wiki/1",
		"source:drive",
		"doc:drive/x",
		"doc:wiki/2",
	}, tags)
}

func TestCacheStats_HitRate(t *testing.T) {
	assert.Zero(t, CacheStats{}.HitRate())
	assert.InDelta(t, 0.25, CacheStats{Lookups: 4, Hits: 1}.HitRate(), 1e-9)
}
