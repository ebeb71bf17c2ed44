package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/core/domain"
)

var rankNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRanker() *Ranker {
	return NewRanker(domain.DefaultSettings().Ranking)
}

func cand(doc, title, excerpt string, relevance float64, age time.Duration) domain.Candidate {
	return domain.Candidate{
		DocumentID:   doc,
		Title:        title,
		URL:          "https://example.com/" + doc,
		Excerpt:      excerpt,
		LastModified: rankNow.Add(-age),
		Relevance:    relevance,
		Permissions:  []string{domain.PrincipalEveryone},
	}
}

func batch(sourceID string, authority float64, candidates ...domain.Candidate) sourceBatch {
	for i := range candidates {
		candidates[i].SourceID = sourceID
	}
	return sourceBatch{sourceID: sourceID, authority: authority, candidates: candidates}
}

func TestNormalizeRelevance(t *testing.T) {
	got := normalizeRelevance([]domain.Candidate{{Relevance: 2}, {Relevance: 4}, {Relevance: 6}})
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}

func TestNormalizeRelevance_ZeroRange(t *testing.T) {
	got := normalizeRelevance([]domain.Candidate{{Relevance: 3}, {Relevance: 3}})
	assert.Equal(t, []float64{1, 1}, got)
	assert.Empty(t, normalizeRelevance(nil))
}

func TestRanker_ScoresAreBounded(t *testing.T) {
	r := newTestRanker()
	b := batch("wiki", 1,
		cand("a", "A", "x", 1000, 0),
		cand("b", "B", "y", -50, 10*365*24*time.Hour),
		cand("c", "C", "z", 0.1, -24*time.Hour),
	)
	for _, res := range r.Rank([]sourceBatch{b}, rankNow) {
		assert.GreaterOrEqual(t, res.FusedScore, 0.0)
		assert.LessOrEqual(t, res.FusedScore, 1.0)
	}
}

func TestRanker_DecayIsMonotonic(t *testing.T) {
	r := newTestRanker()
	prev := r.Decay(rankNow, rankNow)
	assert.InDelta(t, 1.0, prev, 1e-9)
	for days := 1; days <= 2000; days += 7 {
		d := r.Decay(rankNow.Add(-time.Duration(days)*24*time.Hour), rankNow)
		assert.LessOrEqual(t, d, prev, "age %d days", days)
		assert.GreaterOrEqual(t, d, 0.1)
		prev = d
	}
	assert.InDelta(t, 0.5, r.Decay(rankNow.Add(-90*24*time.Hour), rankNow), 1e-9)
}

func TestRanker_FutureTimestampIsFresh(t *testing.T) {
	r := newTestRanker()
	future := rankNow.Add(48 * time.Hour)
	assert.InDelta(t, 1.0, r.Decay(future, rankNow), 1e-9)
	assert.Equal(t, domain.FreshnessFresh, r.FreshnessOf(future, rankNow))
}

func TestRanker_FreshnessBuckets(t *testing.T) {
	r := newTestRanker()
	day := 24 * time.Hour
	assert.Equal(t, domain.FreshnessFresh, r.FreshnessOf(rankNow.Add(-29*day), rankNow))
	assert.Equal(t, domain.FreshnessAging, r.FreshnessOf(rankNow.Add(-30*day), rankNow))
	assert.Equal(t, domain.FreshnessAging, r.FreshnessOf(rankNow.Add(-364*day), rankNow))
	assert.Equal(t, domain.FreshnessStale, r.FreshnessOf(rankNow.Add(-365*day), rankNow))
	assert.Equal(t, domain.FreshnessStale, r.FreshnessOf(time.Time{}, rankNow))
}

func TestRanker_SortedDescending(t *testing.T) {
	r := newTestRanker()
	results := r.Rank([]sourceBatch{
		batch("wiki", 0.9, cand("w1", "Rollback guide", "how to roll back", 9, 0), cand("w2", "Deploy FAQ", "faq", 3, 0), cand("w3", "Release notes", "notes", 1, 0)),
		batch("github", 0.5, cand("g1", "rollback.sh", "script", 0.8, 0), cand("g2", "Deploy README", "readme", 0.2, 0)),
	}, rankNow)

	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].FusedScore, results[i].FusedScore)
	}
}

func TestRanker_TieBreakers(t *testing.T) {
	r := newTestRanker()
	day := 24 * time.Hour
	// All candidates normalize to relevance 1. Age and authority decide.
	results := r.Rank([]sourceBatch{
		batch("b-src", 0.5, cand("z", "Z", "z", 1, 0)),
		batch("a-src", 0.5, cand("z", "Z2", "other", 1, 0)),
		batch("c-src", 0.5, cand("y", "Y", "y", 1, 0)),
		batch("d-src", 0.9, cand("x", "X", "x", 1, 0)),
		batch("e-src", 0.5, cand("old", "Old", "old", 1, 400*day)),
	}, rankNow)

	var order []string
	for _, res := range results {
		order = append(order, res.Candidate.SourceID+"/"+res.Candidate.DocumentID)
	}
	assert.Equal(t, []string{"d-src/x", "c-src/y", "a-src/z", "b-src/z", "e-src/old"}, order)
}

func TestSortResults_FreshnessBreaksScoreTies(t *testing.T) {
	results := []domain.RankedResult{
		{Candidate: domain.Candidate{DocumentID: "a"}, FusedScore: 0.5, Freshness: domain.FreshnessStale},
		{Candidate: domain.Candidate{DocumentID: "b"}, FusedScore: 0.5, Freshness: domain.FreshnessAging},
		{Candidate: domain.Candidate{DocumentID: "c"}, FusedScore: 0.5, Freshness: domain.FreshnessFresh},
	}
	sortResults(results)
	assert.Equal(t, "c", results[0].Candidate.DocumentID)
	assert.Equal(t, "b", results[1].Candidate.DocumentID)
	assert.Equal(t, "a", results[2].Candidate.DocumentID)
}

func TestRanker_DedupMergesSourceReferences(t *testing.T) {
	r := newTestRanker()
	excerpt := "to roll back a deployment run the rollback pipeline with the previous tag"
	wiki := cand("123", "Deployment Rollback", excerpt, 5, 0)
	wiki.Permissions = []string{"group:eng"}
	drive := cand("abc", "deployment  rollback", excerpt+".", 2, 0)
	drive.Permissions = []string{"group:ops"}

	results := r.Rank([]sourceBatch{
		batch("wiki", 0.9, wiki, cand("456", "Other", "unrelated", 1, 0)),
		batch("drive", 0.4, drive),
	}, rankNow)

	require.Len(t, results, 2)
	top := results[0]
	assert.Equal(t, "wiki", top.Candidate.SourceID)
	require.Len(t, top.MergedFrom, 1)
	assert.Equal(t, domain.SourceRef{
		SourceID:    "drive",
		DocumentID:  "abc",
		URL:         "https://example.com/abc",
		Permissions: []string{"group:ops"},
	}, top.MergedFrom[0])
}

func TestRanker_DedupKeepsMergedCopies(t *testing.T) {
	r := newTestRanker()
	excerpt := "expense reports are due on the fifth business day"
	results := r.Rank([]sourceBatch{
		batch("wiki", 0.9, cand("policy", "Expense policy", excerpt, 5, 0)),
		batch("drive", 0.4, cand("abc", "Expense Policy", excerpt, 1, 0)),
	}, rankNow)

	require.Len(t, results, 1)
	require.Len(t, results[0].Duplicates, 1)
	dup := results[0].Duplicates[0]
	assert.Equal(t, "drive", dup.Candidate.SourceID)
	assert.Greater(t, dup.FusedScore, 0.0)
	assert.Empty(t, dup.MergedFrom)
}

func TestReinforce(t *testing.T) {
	results := []domain.RankedResult{
		{Candidate: domain.Candidate{SourceID: "wiki", DocumentID: "a"}, FusedScore: 0.6},
		{Candidate: domain.Candidate{SourceID: "wiki", DocumentID: "b"}, FusedScore: 0.55},
	}
	success := map[string]domain.DocumentSuccess{
		"wiki/a": {Unhelpful: 1},
		"wiki/b": {Helpful: 2},
	}

	got := Reinforce(results, success)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Candidate.DocumentID)
	assert.InDelta(t, 0.65, got[0].FusedScore, 1e-9)
	assert.InDelta(t, 0.55, got[1].FusedScore, 1e-9)
	assert.Equal(t, "a", results[0].Candidate.DocumentID, "input is not modified")
	assert.InDelta(t, 0.6, results[0].FusedScore, 1e-9)
}

func TestReinforce_ClampsScores(t *testing.T) {
	got := Reinforce([]domain.RankedResult{
		{Candidate: domain.Candidate{SourceID: "wiki", DocumentID: "a"}, FusedScore: 0.95},
	}, map[string]domain.DocumentSuccess{"wiki/a": {Helpful: 10}})
	assert.Equal(t, 1.0, got[0].FusedScore)
}

func TestRanker_DistinctExcerptsAreNotMerged(t *testing.T) {
	r := newTestRanker()
	results := r.Rank([]sourceBatch{
		batch("wiki", 0.9, cand("1", "Onboarding", "laptop setup and accounts", 1, 0)),
		batch("drive", 0.4, cand("2", "Onboarding", "benefits enrollment and payroll forms", 1, 0)),
	}, rankNow)
	assert.Len(t, results, 2)
}

func TestRanker_OrderIndependentOfArrival(t *testing.T) {
	r := newTestRanker()
	var batches []sourceBatch
	for s := 0; s < 4; s++ {
		var cs []domain.Candidate
		for d := 0; d < 5; d++ {
			id := fmt.Sprintf("d%d", d)
			cs = append(cs, cand(id, fmt.Sprintf("Doc %d-%d", s, d), "text", float64((s+d)%3), time.Duration(d)*24*time.Hour))
		}
		batches = append(batches, batch(fmt.Sprintf("src%d", s), 0.25*float64(s), cs...))
	}

	forward := r.Rank(batches, rankNow)
	reversed := make([]sourceBatch, len(batches))
	for i := range batches {
		reversed[len(batches)-1-i] = batches[i]
	}
	backward := r.Rank(reversed, rankNow)

	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("ranking depends on arrival order (-forward +reversed):\n%s", diff)
	}
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, jaccard(tokenSet(""), tokenSet("")), 1e-9)
	assert.InDelta(t, 1.0, jaccard(tokenSet("a b"), tokenSet("B, a.")), 1e-9)
	assert.InDelta(t, 1.0/3.0, jaccard(tokenSet("a b"), tokenSet("b c")), 1e-9)
}
