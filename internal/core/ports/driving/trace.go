package driving

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// TraceService retrieves traces for audit and records feedback on them.
type TraceService interface {
	// GetTrace returns a stored trace or domain.ErrNotFound.
	GetTrace(ctx context.Context, id string) (*domain.ReasoningTrace, error)

	// RecordFeedback stores whether a document in a traced answer helped.
	RecordFeedback(ctx context.Context, traceID, documentID string, helpful bool) error

	// Feedback lists feedback recorded against a trace.
	Feedback(ctx context.Context, traceID string) ([]domain.Feedback, error)

	// History lists answered questions, newest first. An empty userID lists
	// every caller; a zero limit uses the default.
	History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)

	// Analytics summarises recent answers of a caller, or of everyone.
	Analytics(ctx context.Context, userID string) (domain.Analytics, error)
}
