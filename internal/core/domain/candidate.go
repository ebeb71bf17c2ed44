package domain

import "time"

// Candidate is one document fragment retrieved from a source.
// Candidates are produced fresh per orchestration pass and never mutated.
type Candidate struct {
	// SourceID identifies the source adapter that produced the candidate.
	SourceID string `json:"source_id"`

	// DocumentID is stable and unique within the source.
	DocumentID string `json:"document_id"`

	// Title is the document title.
	Title string `json:"title"`

	// URL links to the document in its source system.
	URL string `json:"url"`

	// Excerpt is the matching fragment.
	Excerpt string `json:"excerpt"`

	// LastModified is when the source last changed the document.
	LastModified time.Time `json:"last_modified"`

	// Relevance is the source-local score. It is not comparable across sources.
	Relevance float64 `json:"relevance"`

	// Permissions lists the principals allowed to view the document.
	Permissions []string `json:"permissions"`
}

// Freshness classifies a document by age.
type Freshness string

// Freshness values, from newest to oldest.
const (
	FreshnessFresh Freshness = "fresh"
	FreshnessAging Freshness = "aging"
	FreshnessStale Freshness = "stale"
)

// Rank orders freshness values: lower is fresher.
func (f Freshness) Rank() int {
	switch f {
	case FreshnessFresh:
		return 0
	case FreshnessAging:
		return 1
	default:
		return 2
	}
}

// String returns the string representation.
func (f Freshness) String() string {
	return string(f)
}

// SourceRef points at one copy of a document in one source.
type SourceRef struct {
	SourceID    string   `json:"source_id"`
	DocumentID  string   `json:"document_id"`
	URL         string   `json:"url"`
	Permissions []string `json:"permissions,omitempty"`
}

// RankedResult is a candidate with a score comparable across sources.
// Created by the orchestrator and read-only afterwards.
type RankedResult struct {
	Candidate Candidate `json:"candidate"`

	// FusedScore is in [0,1].
	FusedScore float64 `json:"fused_score"`

	// Freshness is derived from the candidate's age.
	Freshness Freshness `json:"freshness"`

	// Authority is the static weight of the candidate's source.
	Authority float64 `json:"authority"`

	// MergedFrom lists copies of the same document found in other sources.
	MergedFrom []SourceRef `json:"merged_from,omitempty"`

	// Duplicates holds the scored copies behind MergedFrom, best first, so a
	// visible copy can stand in when the winner is restricted. It is cleared
	// by the permission filter and never cached.
	Duplicates []RankedResult `json:"-"`
}

// DegradedSource records a source that was excluded from an orchestration pass.
type DegradedSource struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// Resolution is the outcome of one orchestration pass.
type Resolution struct {
	// Results are ordered by descending fused score.
	Results []RankedResult

	// Degraded lists sources excluded from this pass.
	Degraded []DegradedSource

	// Queried is the number of sources dispatched to.
	Queried int

	// AllUnavailable is set when every dispatched source failed.
	AllUnavailable bool
}
