package services

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// sourceBatch is the candidates returned by one source in one pass.
type sourceBatch struct {
	sourceID   string
	authority  float64
	candidates []domain.Candidate
}

// Ranker fuses per-source candidates into one ordered, de-duplicated list.
type Ranker struct {
	settings domain.RankingSettings
}

// NewRanker creates a ranker. Settings are expected to be validated.
func NewRanker(settings domain.RankingSettings) *Ranker {
	return &Ranker{settings: settings}
}

// Rank normalizes, scores, sorts and de-duplicates batches. The output does
// not depend on batch order.
func (r *Ranker) Rank(batches []sourceBatch, now time.Time) []domain.RankedResult {
	var results []domain.RankedResult
	for _, b := range batches {
		normalized := normalizeRelevance(b.candidates)
		for i, c := range b.candidates {
			decay := r.Decay(c.LastModified, now)
			fused := r.settings.RelevanceWeight*normalized[i] +
				r.settings.FreshnessWeight*decay +
				r.settings.AuthorityWeight*b.authority
			results = append(results, domain.RankedResult{
				Candidate:  c,
				FusedScore: clamp01(fused),
				Freshness:  r.FreshnessOf(c.LastModified, now),
				Authority:  b.authority,
			})
		}
	}

	sortResults(results)
	return r.dedupe(results)
}

// Decay returns the freshness score of a document: half-life decay floored
// at the configured minimum. Future timestamps count as brand new.
func (r *Ranker) Decay(modified, now time.Time) float64 {
	if modified.IsZero() {
		return r.settings.FreshnessFloor
	}
	age := now.Sub(modified)
	if age < 0 {
		age = 0
	}
	decay := math.Pow(0.5, float64(age)/float64(r.settings.HalfLife))
	return math.Max(r.settings.FreshnessFloor, decay)
}

// FreshnessOf buckets a document by age.
func (r *Ranker) FreshnessOf(modified, now time.Time) domain.Freshness {
	if modified.IsZero() {
		return domain.FreshnessStale
	}
	age := now.Sub(modified)
	switch {
	case age < r.settings.FreshWithin:
		return domain.FreshnessFresh
	case age >= r.settings.StaleAfter:
		return domain.FreshnessStale
	default:
		return domain.FreshnessAging
	}
}

// dedupe walks results in sorted order, so the first of a duplicate group
// is the winner; the others are folded into its MergedFrom and kept, in
// order, in its Duplicates.
func (r *Ranker) dedupe(sorted []domain.RankedResult) []domain.RankedResult {
	out := make([]domain.RankedResult, 0, len(sorted))
	excerpts := make([]map[string]struct{}, 0, len(sorted))

	for _, res := range sorted {
		tokens := tokenSet(res.Candidate.Excerpt)
		merged := false
		for i := range out {
			if !r.duplicate(&out[i], excerpts[i], &res, tokens) {
				continue
			}
			out[i].MergedFrom = append(out[i].MergedFrom, refOf(res.Candidate))
			out[i].MergedFrom = append(out[i].MergedFrom, res.MergedFrom...)
			dup := res
			dup.MergedFrom, dup.Duplicates = nil, nil
			out[i].Duplicates = append(out[i].Duplicates, dup)
			out[i].Duplicates = append(out[i].Duplicates, res.Duplicates...)
			merged = true
			break
		}
		if !merged {
			out = append(out, res)
			excerpts = append(excerpts, tokens)
		}
	}
	return out
}

func (r *Ranker) duplicate(a *domain.RankedResult, aTokens map[string]struct{}, b *domain.RankedResult, bTokens map[string]struct{}) bool {
	ac, bc := a.Candidate, b.Candidate
	if ac.SourceID == bc.SourceID && ac.DocumentID == bc.DocumentID {
		return true
	}
	title := normalizeTitle(ac.Title)
	if title == "" || title != normalizeTitle(bc.Title) {
		return false
	}
	return jaccard(aTokens, bTokens) >= r.settings.DedupSimilarity
}

// Reinforce shifts fused scores by the recorded feedback of each document,
// keyed by domain.DocumentKey, and re-sorts. The input is not modified.
func Reinforce(results []domain.RankedResult, success map[string]domain.DocumentSuccess) []domain.RankedResult {
	out := make([]domain.RankedResult, len(results))
	copy(out, results)
	if len(success) == 0 {
		return out
	}

	boost := func(res *domain.RankedResult) {
		if s, ok := success[domain.DocumentKey(res.Candidate.SourceID, res.Candidate.DocumentID)]; ok {
			res.FusedScore = clamp01(res.FusedScore + s.Boost())
		}
	}
	for i := range out {
		boost(&out[i])
		if len(out[i].Duplicates) == 0 {
			continue
		}
		dups := make([]domain.RankedResult, len(out[i].Duplicates))
		copy(dups, out[i].Duplicates)
		for j := range dups {
			boost(&dups[j])
		}
		sortResults(dups)
		out[i].Duplicates = dups
	}
	sortResults(out)
	return out
}

// documentKeys lists the keys of every result and duplicate.
func documentKeys(results []domain.RankedResult) []string {
	var keys []string
	for _, res := range results {
		keys = append(keys, domain.DocumentKey(res.Candidate.SourceID, res.Candidate.DocumentID))
		for _, d := range res.Duplicates {
			keys = append(keys, domain.DocumentKey(d.Candidate.SourceID, d.Candidate.DocumentID))
		}
	}
	return keys
}

// sortResults orders by fused score, then freshness, authority, document id
// and source id.
func sortResults(results []domain.RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if a.Freshness.Rank() != b.Freshness.Rank() {
			return a.Freshness.Rank() < b.Freshness.Rank()
		}
		if a.Authority != b.Authority {
			return a.Authority > b.Authority
		}
		if a.Candidate.DocumentID != b.Candidate.DocumentID {
			return a.Candidate.DocumentID < b.Candidate.DocumentID
		}
		return a.Candidate.SourceID < b.Candidate.SourceID
	})
}

// normalizeRelevance min-max scales relevance within one batch. A batch
// whose scores are all equal maps to 1.
func normalizeRelevance(candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range candidates {
		lo = math.Min(lo, c.Relevance)
		hi = math.Max(hi, c.Relevance)
	}
	span := hi - lo
	for i, c := range candidates {
		if span == 0 {
			out[i] = 1
			continue
		}
		out[i] = (c.Relevance - lo) / span
	}
	return out
}

func refOf(c domain.Candidate) domain.SourceRef {
	return domain.SourceRef{
		SourceID:    c.SourceID,
		DocumentID:  c.DocumentID,
		URL:         c.URL,
		Permissions: c.Permissions,
	}
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

func tokenSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jaccard returns |a∩b| / |a∪b|. Two empty sets are identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
