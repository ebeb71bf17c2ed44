package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func newTestTier(t *testing.T) (*Tier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	tier := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { _ = tier.Close() })
	return tier, mr
}

func entry(fp string, tags ...string) *domain.CacheEntry {
	return &domain.CacheEntry{
		Fingerprint: fp,
		Results: []domain.RankedResult{{
			Candidate:  domain.Candidate{SourceID: "wiki", DocumentID: "1", Title: "Runbook"},
			FusedScore: 0.7,
			Freshness:  domain.FreshnessAging,
		}},
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		TTL:       30 * time.Minute,
		Tags:      tags,
	}
}

func TestTier_SetGet(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	_, err := tier.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, tier.Set(ctx, entry("fp", "source:wiki"), 10*time.Minute))

	got, err := tier.Get(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, "Runbook", got.Results[0].Candidate.Title)
	assert.Equal(t, domain.FreshnessAging, got.Results[0].Freshness)
	assert.Equal(t, 10*time.Minute, mr.TTL("navo:cache:fp"))
	assert.True(t, mr.Exists("navo:tag:source:wiki"))
}

func TestTier_NativeExpiry(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entry("fp"), time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, err := tier.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestTier_DeleteByTag(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entry("a", "source:wiki"), time.Minute))
	require.NoError(t, tier.Set(ctx, entry("b", "source:wiki", "doc:wiki/1"), time.Minute))
	require.NoError(t, tier.Set(ctx, entry("c", "source:drive"), time.Minute))

	n, err := tier.DeleteByTag(ctx, "source:wiki")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("navo:tag:source:wiki"))

	_, err = tier.Get(ctx, "c")
	assert.NoError(t, err)

	n, err = tier.DeleteByTag(ctx, "doc:wiki/1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = tier.DeleteByTag(ctx, "never-used")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTier_Delete(t *testing.T) {
	tier, _ := newTestTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, entry("fp"), time.Minute))
	require.NoError(t, tier.Delete(ctx, "fp"))

	_, err := tier.Get(ctx, "fp")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestTier_Unavailable(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()
	require.NoError(t, tier.Ping(ctx))

	mr.Close()

	assert.Error(t, tier.Ping(ctx))
	_, err := tier.Get(ctx, "fp")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCacheMiss)
}

func TestTier_NonPositiveTTLIsNoop(t *testing.T) {
	tier, mr := newTestTier(t)
	require.NoError(t, tier.Set(context.Background(), entry("fp"), 0))
	assert.False(t, mr.Exists("navo:cache:fp"))
	assert.Equal(t, TierName, tier.Name())
}
