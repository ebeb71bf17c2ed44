package domain

import (
	"math"
	"time"
)

// StepKind names a reasoning pass.
type StepKind string

// Reasoning passes in execution order.
const (
	StepAnalytical   StepKind = "analytical"
	StepPredictive   StepKind = "predictive"
	StepDiagnostic   StepKind = "diagnostic"
	StepPrescriptive StepKind = "prescriptive"
	StepComparative  StepKind = "comparative"
)

// StepKinds lists all reasoning passes in execution order.
func StepKinds() []StepKind {
	return []StepKind{StepAnalytical, StepPredictive, StepDiagnostic, StepPrescriptive, StepComparative}
}

// RationaleStepFailed is recorded for a step that failed.
const RationaleStepFailed = "step_failed"

// Step is one reasoning pass in a trace.
type Step struct {
	Kind       StepKind      `json:"kind"`
	Rationale  string        `json:"rationale"`
	Confidence float64       `json:"confidence"`
	Elapsed    time.Duration `json:"elapsed"`
	Failed     bool          `json:"failed,omitempty"`
}

// ConfidenceLevel is a coarse label for a confidence value.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceVeryLow  ConfidenceLevel = "very_low"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// LevelFor buckets a confidence value.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence < 0.3:
		return ConfidenceVeryLow
	case confidence < 0.5:
		return ConfidenceLow
	case confidence < 0.7:
		return ConfidenceMedium
	case confidence < 0.9:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

// Alternative is one ranked option produced by the comparative pass.
type Alternative struct {
	Rank       int     `json:"rank"`
	SourceID   string  `json:"source_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale"`
}

// ReasoningTrace is the audit record of one answer. Immutable once built.
type ReasoningTrace struct {
	ID           string          `json:"id"`
	Fingerprint  string          `json:"fingerprint"`
	Steps        []Step          `json:"steps"`
	Confidence   float64         `json:"confidence"`
	Level        ConfidenceLevel `json:"level"`
	Summary      string          `json:"summary"`
	Action       string          `json:"action,omitempty"`
	Gaps         []string        `json:"gaps,omitempty"`
	Alternatives []Alternative   `json:"alternatives,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Step returns the step of the given kind.
func (t *ReasoningTrace) Step(kind StepKind) (Step, bool) {
	for _, s := range t.Steps {
		if s.Kind == kind {
			return s, true
		}
	}
	return Step{}, false
}

// Feedback is a caller's judgement of one document in a traced answer.
type Feedback struct {
	TraceID    string    `json:"trace_id"`
	SourceID   string    `json:"source_id"`
	DocumentID string    `json:"document_id"`
	Helpful    bool      `json:"helpful"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Key returns the DocumentKey of the judged document.
func (f Feedback) Key() string {
	return DocumentKey(f.SourceID, f.DocumentID)
}

// DocumentKey identifies a document across sources.
func DocumentKey(sourceID, documentID string) string {
	return sourceID + "/" + documentID
}

// Feedback moves a fused score by FeedbackStep per net vote, capped at
// MaxFeedbackBoost either way.
const (
	FeedbackStep     = 0.05
	MaxFeedbackBoost = 0.2
)

// DocumentSuccess tallies the feedback recorded for one document.
type DocumentSuccess struct {
	Helpful   int `json:"helpful"`
	Unhelpful int `json:"unhelpful"`
}

// Boost returns the fused score adjustment earned by the votes.
func (d DocumentSuccess) Boost() float64 {
	b := FeedbackStep * float64(d.Helpful-d.Unhelpful)
	return math.Max(-MaxFeedbackBoost, math.Min(MaxFeedbackBoost, b))
}

// HistoryEntry records one answered question. Cached answers share a trace,
// so the caller lives here and not on the trace.
type HistoryEntry struct {
	TraceID    string          `json:"trace_id"`
	UserID     string          `json:"user_id"`
	Query      string          `json:"query"`
	Intent     Intent          `json:"intent"`
	Confidence float64         `json:"confidence"`
	Level      ConfidenceLevel `json:"level"`
	Results    int             `json:"results"`
	FromCache  bool            `json:"from_cache"`
	Elapsed    time.Duration   `json:"elapsed"`
	AskedAt    time.Time       `json:"asked_at"`
}

// Analytics summarises answer history.
type Analytics struct {
	TotalQueries      int                     `json:"total_queries"`
	CacheHits         int                     `json:"cache_hits"`
	AverageConfidence float64                 `json:"average_confidence"`
	AverageElapsed    time.Duration           `json:"average_elapsed"`
	Levels            map[ConfidenceLevel]int `json:"levels"`
	Intents           map[Intent]int          `json:"intents"`
	Recent            []HistoryEntry          `json:"recent"`
}

// Summarize aggregates history, which must be ordered newest first.
// Recent keeps at most recent entries.
func Summarize(history []HistoryEntry, recent int) Analytics {
	a := Analytics{
		TotalQueries: len(history),
		Levels:       make(map[ConfidenceLevel]int),
		Intents:      make(map[Intent]int),
		Recent:       []HistoryEntry{},
	}
	if len(history) == 0 {
		return a
	}

	var confidence float64
	var elapsed time.Duration
	for _, h := range history {
		confidence += h.Confidence
		elapsed += h.Elapsed
		a.Levels[h.Level]++
		if h.Intent != "" {
			a.Intents[h.Intent]++
		}
		if h.FromCache {
			a.CacheHits++
		}
	}
	a.AverageConfidence = confidence / float64(len(history))
	a.AverageElapsed = elapsed / time.Duration(len(history))

	if recent > len(history) {
		recent = len(history)
	}
	if recent > 0 {
		a.Recent = append(a.Recent, history[:recent]...)
	}
	return a
}
