package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func TestTraceShowCmd(t *testing.T) {
	a := testApp()
	a.Trace = &mockTraceService{
		trace:    sampleAnswer().Trace,
		feedback: []domain.Feedback{{TraceID: "trace-1", DocumentID: "42", Helpful: false}},
	}

	out, err := execute(t, a, "trace", "show", "trace-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Confidence: 0.74 (high)")
	assert.Contains(t, out, "analytical")
	assert.Contains(t, out, "42: not helpful")

	_, err = execute(t, a, "trace", "show", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTraceFeedbackCmd(t *testing.T) {
	a := testApp()
	traces := &mockTraceService{}
	a.Trace = traces

	out, err := execute(t, a, "trace", "feedback", "trace-1", "42", "--helpful=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Feedback recorded.")
	require.Len(t, traces.feedback, 1)
	assert.Equal(t, domain.Feedback{TraceID: "trace-1", DocumentID: "42", Helpful: false}, traces.feedback[0])

	traces.err = domain.NewInputError(domain.ErrNotFound, "document 9 is not part of trace")
	_, err = execute(t, a, "trace", "feedback", "trace-1", "9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCacheInvalidateCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		call string
		out  string
	}{
		{"fingerprint", []string{"--fingerprint", "abc"}, "fingerprint:abc", "Evicted 1 answer."},
		{"source", []string{"--source", "wiki"}, "source:wiki", "Evicted 4 answer(s)."},
		{"document", []string{"--source", "wiki", "--document", "42"}, "document:wiki/42", "Evicted 4 answer(s)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp()
			cache := &mockCacheService{count: 4}
			a.Cache = cache

			out, err := execute(t, a, append([]string{"cache", "invalidate"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, cache.calls)
			assert.Contains(t, out, tt.out)
		})
	}

	t.Run("document without source", func(t *testing.T) {
		_, err := execute(t, testApp(), "cache", "invalidate", "--document", "42")
		assert.ErrorContains(t, err, "--document requires --source")
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, err := execute(t, testApp(), "cache", "invalidate")
		assert.Error(t, err)
	})
}

func TestCacheStatsCmd(t *testing.T) {
	a := testApp()
	a.Cache = &mockCacheService{stats: domain.CacheStats{
		Lookups: 10,
		Hits:    4,
		Tiers:   []domain.TierStats{{Name: "hot", Hits: 3, Misses: 7}, {Name: "warm", Hits: 1, Misses: 6}},
	}}

	out, err := execute(t, a, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "hits      4 (40%)")
	assert.Contains(t, out, "hot")
	assert.Contains(t, out, "warm")
}

func TestCachePruneCmd(t *testing.T) {
	out, err := execute(t, testApp(), "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "No persistent cache configured.")

	a := testApp()
	a.Prune = func(context.Context) (int, error) { return 3, nil }
	out, err = execute(t, a, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 3 expired answer(s).")
}

func TestSourcesListCmd(t *testing.T) {
	out, err := execute(t, testApp(), "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sources enabled.")

	a := testApp()
	a.Sources = &mockCatalog{sources: []domain.SourceSettings{{ID: "wiki", Type: "confluence", Authority: 0.9}}}
	out, err = execute(t, a, "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "wiki")
	assert.Contains(t, out, "confluence")
	assert.Contains(t, out, "0.90")
	assert.Contains(t, out, "unknown")
}

func TestSourcesListCmd_ShowsStatus(t *testing.T) {
	a := testApp()
	a.Sources = &mockCatalog{
		sources: []domain.SourceSettings{{ID: "wiki", Type: "confluence", Authority: 0.9}},
		health:  []domain.SourceHealth{{SourceID: "wiki", Status: domain.SourceStatusDown}},
	}
	out, err := execute(t, a, "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "down")
}

func TestSourcesCheckCmd(t *testing.T) {
	catalog := &mockCatalog{health: []domain.SourceHealth{
		{SourceID: "drive", Type: "gdrive", Status: domain.SourceStatusDegraded, LastError: "403 forbidden", LastLatency: 40 * time.Millisecond},
		{SourceID: "wiki", Type: "confluence", Status: domain.SourceStatusHealthy, LastLatency: 12 * time.Millisecond},
	}}
	a := testApp()
	a.Sources = catalog

	out, err := execute(t, a, "sources", "check")
	require.NoError(t, err)
	assert.True(t, catalog.checked)
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "403 forbidden")
	assert.Contains(t, out, "12ms")

	out, err = execute(t, a, "sources", "check", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "healthy"`)
}

func TestTraceListCmd(t *testing.T) {
	asked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	traces := &mockTraceService{history: []domain.HistoryEntry{{
		TraceID:    "trace-9",
		UserID:     "ana",
		Query:      "how do I rotate the vault keys for the payments service in production",
		Confidence: 0.81,
		FromCache:  true,
		AskedAt:    asked,
	}}}
	a := testApp()
	a.Trace = traces

	out, err := execute(t, a, "trace", "list", "--user", "ana", "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, "ana", traces.gotUserID)
	assert.Equal(t, 5, traces.gotLimit)
	assert.Contains(t, out, "trace-9")
	assert.Contains(t, out, "0.81")
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "how do I rotate the vault keys for the payments s…")

	_, err = execute(t, a, "trace", "list", "--user", "ana", "--all")
	require.NoError(t, err)
	assert.Empty(t, traces.gotUserID)

	a.Trace = &mockTraceService{}
	out, err = execute(t, a, "trace", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No questions recorded.")
}

func TestTraceAnalyticsCmd(t *testing.T) {
	traces := &mockTraceService{analytics: domain.Analytics{
		TotalQueries:      4,
		CacheHits:         1,
		AverageConfidence: 0.62,
		AverageElapsed:    42 * time.Millisecond,
		Levels:            map[domain.ConfidenceLevel]int{domain.ConfidenceMedium: 3, domain.ConfidenceHigh: 1},
		Recent:            []domain.HistoryEntry{{TraceID: "trace-4", Query: "vpn", Confidence: 0.6}},
	}}
	a := testApp()
	a.Trace = traces

	out, err := execute(t, a, "trace", "analytics", "--user", "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana", traces.gotUserID)
	assert.Contains(t, out, "Questions: 4")
	assert.Contains(t, out, "Served from cache: 1")
	assert.Contains(t, out, "Average confidence: 0.62")
	assert.Contains(t, out, "42ms")
	assert.Contains(t, out, "medium")
	assert.Contains(t, out, "trace-4")

	out, err = execute(t, a, "trace", "analytics", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_queries": 4`)
}

func TestConfigInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navo", "config.toml")

	out, err := execute(t, nil, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default config to "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = execute(t, nil, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = execute(t, nil, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path)
}

func TestRoot_LoaderError(t *testing.T) {
	resetFlags(rootCmd)
	loadApp = func(context.Context, string) (*App, error) { return nil, errors.New("bad config") }
	defer func() { loadApp = nil }()
	rootCmd.SetArgs([]string{"sources", "list"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "bad config")
}

func TestRoot_ClosesApp(t *testing.T) {
	a := testApp()
	closed := 0
	a.Close = func() error {
		closed++
		return nil
	}

	_, err := execute(t, a, "sources", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Nil(t, app)
}

func TestInvalidateOnChange(t *testing.T) {
	cache := &mockCacheService{}
	onChange := invalidateOnChange(context.Background(), cache)

	onChange("notes", "runbooks/vault.md")
	onChange("notes", "")

	assert.Equal(t, []string{"document:notes/runbooks/vault.md", "source:notes"}, cache.calls)
}
