package domain

// DefaultMaxResults is used when AnswerOptions.MaxResults is not set.
const DefaultMaxResults = 10

// AnswerOptions tune a single answer call.
type AnswerOptions struct {
	// MaxResults caps the returned results (default 10).
	MaxResults int

	// Sources restricts the query to a subset of enabled sources (default all).
	Sources []string

	// MinConfidence drops the trace when its overall confidence is lower (default 0).
	MinConfidence float64
}

// Answer is the result of the public query operation.
type Answer struct {
	Query   Query           `json:"query"`
	Results []RankedResult  `json:"results"`
	Trace   *ReasoningTrace `json:"trace,omitempty"`

	// FromCache is true when the answer was served from a cache tier.
	FromCache bool `json:"from_cache"`

	// DegradedSources lists sources excluded from the orchestration pass.
	DegradedSources []DegradedSource `json:"degraded_sources,omitempty"`

	// AllSourcesUnavailable distinguishes "system degraded" from "no matches".
	AllSourcesUnavailable bool `json:"all_sources_unavailable,omitempty"`

	// CacheBypassed is true when no cache tier could be reached.
	CacheBypassed bool `json:"cache_bypassed,omitempty"`

	// TraceSuppressed is true when the trace fell below MinConfidence.
	TraceSuppressed bool `json:"trace_suppressed,omitempty"`
}
