package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Query         string   `json:"query" jsonschema:"the question to answer"`
	MaxResults    int      `json:"max_results,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Sources       []string `json:"sources,omitempty" jsonschema:"restrict the question to these source IDs"`
	MinConfidence float64  `json:"min_confidence,omitempty" jsonschema:"drop the reasoning trace when confidence is lower (0-1)"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Results               []ResultOutput   `json:"results"`
	Count                 int              `json:"count"`
	TraceID               string           `json:"trace_id,omitempty"`
	Confidence            float64          `json:"confidence,omitempty"`
	ConfidenceLevel       string           `json:"confidence_level,omitempty"`
	Summary               string           `json:"summary,omitempty"`
	Action                string           `json:"action,omitempty"`
	FromCache             bool             `json:"from_cache"`
	CacheBypassed         bool             `json:"cache_bypassed"`
	DegradedSources       []DegradedOutput `json:"degraded_sources,omitempty"`
	AllSourcesUnavailable bool             `json:"all_sources_unavailable,omitempty"`
	TraceSuppressed       bool             `json:"trace_suppressed,omitempty"`
}

// ResultOutput represents a single ranked result.
type ResultOutput struct {
	SourceID     string   `json:"source_id"`
	DocumentID   string   `json:"document_id"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Excerpt      string   `json:"excerpt,omitempty"`
	Score        float64  `json:"score"`
	Freshness    string   `json:"freshness"`
	LastModified string   `json:"last_modified,omitempty"`
	AlsoIn       []string `json:"also_in,omitempty"`
}

// DegradedOutput names a source left out of an answer.
type DegradedOutput struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// TraceInput is the input schema for the get_trace tool.
type TraceInput struct {
	TraceID string `json:"trace_id" jsonschema:"the trace ID returned by the answer tool"`
}

// TraceOutput is the output schema for the get_trace tool.
type TraceOutput struct {
	ID           string              `json:"id"`
	Fingerprint  string              `json:"fingerprint"`
	Confidence   float64             `json:"confidence"`
	Level        string              `json:"level"`
	Summary      string              `json:"summary"`
	Action       string              `json:"action,omitempty"`
	Gaps         []string            `json:"gaps,omitempty"`
	Steps        []StepOutput        `json:"steps"`
	Alternatives []AlternativeOutput `json:"alternatives,omitempty"`
	Feedback     []FeedbackEntry     `json:"feedback,omitempty"`
	CreatedAt    string              `json:"created_at"`
}

// StepOutput is one reasoning pass.
type StepOutput struct {
	Kind       string  `json:"kind"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
	ElapsedMS  int64   `json:"elapsed_ms"`
	Failed     bool    `json:"failed,omitempty"`
}

// AlternativeOutput is one ranked option from the comparative pass.
type AlternativeOutput struct {
	Rank       int     `json:"rank"`
	SourceID   string  `json:"source_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Rationale  string  `json:"rationale"`
}

// FeedbackEntry is feedback already recorded on a trace.
type FeedbackEntry struct {
	SourceID   string `json:"source_id,omitempty"`
	DocumentID string `json:"document_id"`
	Helpful    bool   `json:"helpful"`
	RecordedAt string `json:"recorded_at"`
}

// FeedbackInput is the input schema for the record_feedback tool.
type FeedbackInput struct {
	TraceID    string `json:"trace_id" jsonschema:"the trace ID returned by the answer tool"`
	DocumentID string `json:"document_id" jsonschema:"the document the feedback is about"`
	Helpful    bool   `json:"helpful" jsonschema:"whether the document helped"`
}

// FeedbackOutput acknowledges recorded feedback.
type FeedbackOutput struct {
	Recorded bool `json:"recorded"`
}

// HistoryInput is the input schema for the list_traces tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of entries to return (default 10, max 100)"`
}

// HistoryOutput is the output schema for the list_traces tool.
type HistoryOutput struct {
	Entries []HistoryItem `json:"entries"`
	Count   int           `json:"count"`
}

// HistoryItem is one previously answered question.
type HistoryItem struct {
	TraceID         string  `json:"trace_id"`
	Query           string  `json:"query"`
	Intent          string  `json:"intent,omitempty"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
	Results         int     `json:"results"`
	FromCache       bool    `json:"from_cache"`
	ElapsedMS       int64   `json:"elapsed_ms"`
	AskedAt         string  `json:"asked_at"`
}

// AnalyticsInput is the input schema for the get_analytics tool.
type AnalyticsInput struct{}

// AnalyticsOutput is the output schema for the get_analytics tool.
type AnalyticsOutput struct {
	TotalQueries      int            `json:"total_queries"`
	CacheHits         int            `json:"cache_hits"`
	AverageConfidence float64        `json:"average_confidence"`
	AverageElapsedMS  int64          `json:"average_elapsed_ms"`
	Levels            map[string]int `json:"levels"`
	Intents           map[string]int `json:"intents"`
	Recent            []HistoryItem  `json:"recent"`
}

// errTraceUnavailable is returned when no trace service is configured.
var errTraceUnavailable = errors.New("traces are not available")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a question from the organisation's connected knowledge sources, with ranked results and a reasoning trace",
	}, s.handleAnswer)

	if s.ports.Trace != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_trace",
			Description: "Fetch the full reasoning trace of a previous answer",
		}, s.handleGetTrace)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "record_feedback",
			Description: "Record whether a document in a previous answer was helpful",
		}, s.handleFeedback)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_traces",
			Description: "List your most recent questions with their trace IDs and confidence",
		}, s.handleListTraces)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_analytics",
			Description: "Summarise your recent questions: volume, cache hits and confidence",
		}, s.handleAnalytics)
	}
}

// handleAnswer handles the answer tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	opts := domain.AnswerOptions{
		MaxResults:    input.MaxResults,
		Sources:       input.Sources,
		MinConfidence: input.MinConfidence,
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Query, s.ports.Caller, opts)
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	return nil, toAnswerOutput(answer), nil
}

// handleGetTrace handles the get_trace tool invocation.
func (s *Server) handleGetTrace(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TraceInput,
) (*mcp.CallToolResult, TraceOutput, error) {
	if s.ports.Trace == nil {
		return nil, TraceOutput{}, errTraceUnavailable
	}
	trace, err := s.ports.Trace.GetTrace(ctx, input.TraceID)
	if err != nil {
		return nil, TraceOutput{}, err
	}
	feedback, err := s.ports.Trace.Feedback(ctx, input.TraceID)
	if err != nil {
		return nil, TraceOutput{}, err
	}
	return nil, toTraceOutput(trace, feedback), nil
}

// handleFeedback handles the record_feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	if s.ports.Trace == nil {
		return nil, FeedbackOutput{}, errTraceUnavailable
	}
	if err := s.ports.Trace.RecordFeedback(ctx, input.TraceID, input.DocumentID, input.Helpful); err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, FeedbackOutput{Recorded: true}, nil
}

// handleListTraces handles the list_traces tool invocation. History is
// scoped to the server's caller.
func (s *Server) handleListTraces(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	if s.ports.Trace == nil {
		return nil, HistoryOutput{}, errTraceUnavailable
	}
	entries, err := s.ports.Trace.History(ctx, s.ports.Caller.UserID, input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	items := toHistoryItems(entries)
	return nil, HistoryOutput{Entries: items, Count: len(items)}, nil
}

// handleAnalytics handles the get_analytics tool invocation.
func (s *Server) handleAnalytics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ AnalyticsInput,
) (*mcp.CallToolResult, AnalyticsOutput, error) {
	if s.ports.Trace == nil {
		return nil, AnalyticsOutput{}, errTraceUnavailable
	}
	a, err := s.ports.Trace.Analytics(ctx, s.ports.Caller.UserID)
	if err != nil {
		return nil, AnalyticsOutput{}, err
	}

	out := AnalyticsOutput{
		TotalQueries:      a.TotalQueries,
		CacheHits:         a.CacheHits,
		AverageConfidence: a.AverageConfidence,
		AverageElapsedMS:  a.AverageElapsed.Milliseconds(),
		Levels:            make(map[string]int, len(a.Levels)),
		Intents:           make(map[string]int, len(a.Intents)),
		Recent:            toHistoryItems(a.Recent),
	}
	for level, n := range a.Levels {
		out.Levels[string(level)] = n
	}
	for intent, n := range a.Intents {
		out.Intents[string(intent)] = n
	}
	return nil, out, nil
}

func toHistoryItems(entries []domain.HistoryEntry) []HistoryItem {
	items := make([]HistoryItem, len(entries))
	for i, e := range entries {
		items[i] = HistoryItem{
			TraceID:         e.TraceID,
			Query:           e.Query,
			Intent:          string(e.Intent),
			Confidence:      e.Confidence,
			ConfidenceLevel: string(e.Level),
			Results:         e.Results,
			FromCache:       e.FromCache,
			ElapsedMS:       e.Elapsed.Milliseconds(),
			AskedAt:         formatTime(e.AskedAt),
		}
	}
	return items
}

func toAnswerOutput(a *domain.Answer) AnswerOutput {
	out := AnswerOutput{
		Results:               make([]ResultOutput, len(a.Results)),
		Count:                 len(a.Results),
		FromCache:             a.FromCache,
		CacheBypassed:         a.CacheBypassed,
		AllSourcesUnavailable: a.AllSourcesUnavailable,
		TraceSuppressed:       a.TraceSuppressed,
	}

	for i, r := range a.Results {
		var alsoIn []string
		for _, ref := range r.MergedFrom {
			alsoIn = append(alsoIn, ref.SourceID)
		}
		out.Results[i] = ResultOutput{
			SourceID:     r.Candidate.SourceID,
			DocumentID:   r.Candidate.DocumentID,
			Title:        r.Candidate.Title,
			URL:          r.Candidate.URL,
			Excerpt:      r.Candidate.Excerpt,
			Score:        r.FusedScore,
			Freshness:    r.Freshness.String(),
			LastModified: formatTime(r.Candidate.LastModified),
			AlsoIn:       alsoIn,
		}
	}

	for _, d := range a.DegradedSources {
		out.DegradedSources = append(out.DegradedSources, DegradedOutput{SourceID: d.SourceID, Reason: d.Reason})
	}

	if t := a.Trace; t != nil {
		out.TraceID = t.ID
		out.Confidence = t.Confidence
		out.ConfidenceLevel = string(t.Level)
		out.Summary = t.Summary
		out.Action = t.Action
	}
	return out
}

func toTraceOutput(t *domain.ReasoningTrace, feedback []domain.Feedback) TraceOutput {
	out := TraceOutput{
		ID:          t.ID,
		Fingerprint: t.Fingerprint,
		Confidence:  t.Confidence,
		Level:       string(t.Level),
		Summary:     t.Summary,
		Action:      t.Action,
		Gaps:        t.Gaps,
		Steps:       make([]StepOutput, len(t.Steps)),
		CreatedAt:   formatTime(t.CreatedAt),
	}
	for i, step := range t.Steps {
		out.Steps[i] = StepOutput{
			Kind:       string(step.Kind),
			Rationale:  step.Rationale,
			Confidence: step.Confidence,
			ElapsedMS:  step.Elapsed.Milliseconds(),
			Failed:     step.Failed,
		}
	}
	for _, alt := range t.Alternatives {
		out.Alternatives = append(out.Alternatives, AlternativeOutput{
			Rank:       alt.Rank,
			SourceID:   alt.SourceID,
			DocumentID: alt.DocumentID,
			Title:      alt.Title,
			Score:      alt.Score,
			Rationale:  alt.Rationale,
		})
	}
	for _, fb := range feedback {
		out.Feedback = append(out.Feedback, FeedbackEntry{
			SourceID:   fb.SourceID,
			DocumentID: fb.DocumentID,
			Helpful:    fb.Helpful,
			RecordedAt: formatTime(fb.RecordedAt),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
