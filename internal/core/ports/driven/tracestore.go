package driven

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// TraceStore persists reasoning traces, caller history and feedback.
type TraceStore interface {
	// Save stores a trace. Traces are immutable; saving an existing ID is a no-op.
	Save(ctx context.Context, trace *domain.ReasoningTrace) error

	// Get returns a trace by ID or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.ReasoningTrace, error)

	// SaveHistory appends one answered question.
	SaveHistory(ctx context.Context, entry domain.HistoryEntry) error

	// List returns up to limit history entries, newest first. An empty
	// userID lists every caller.
	List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)

	// SaveFeedback records a judgement on a document in a trace.
	SaveFeedback(ctx context.Context, feedback domain.Feedback) error

	// ListFeedback returns feedback for a trace, oldest first.
	ListFeedback(ctx context.Context, traceID string) ([]domain.Feedback, error)

	// DocumentSuccess tallies all feedback per document. Keys are
	// domain.DocumentKey values; documents without feedback are absent.
	DocumentSuccess(ctx context.Context, keys []string) (map[string]domain.DocumentSuccess, error)
}
