package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
	"github.com/custodia-labs/navo/internal/logger"
)

// Verify interface compliance.
var _ driving.TraceService = (*TraceService)(nil)

// History limits.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	// analyticsWindow is how many recent answers Analytics aggregates.
	analyticsWindow = 100
	analyticsRecent = 10
)

// TraceService reads stored traces and history and records feedback.
type TraceService struct {
	store driven.TraceStore
	cache driving.CacheService
	now   func() time.Time
}

// NewTraceService creates a trace service.
// The cache is optional (can be nil); when set, feedback evicts cached
// answers that contain the judged document so the next ranking sees it.
func NewTraceService(store driven.TraceStore, cache driving.CacheService) *TraceService {
	return &TraceService{store: store, cache: cache, now: time.Now}
}

// GetTrace returns a stored trace.
func (s *TraceService) GetTrace(ctx context.Context, id string) (*domain.ReasoningTrace, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewInputError(domain.ErrInvalidInput, "trace id is required")
	}
	trace, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get trace %s: %w", id, err)
	}
	return trace, nil
}

// History returns a caller's answered questions, newest first. An empty
// userID lists every caller. limit defaults to DefaultHistoryLimit.
func (s *TraceService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	switch {
	case limit < 0:
		return nil, domain.NewInputError(domain.ErrInvalidInput, "limit must not be negative")
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	entries, err := s.store.List(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Analytics summarises the most recent answers of a caller, or of every
// caller when userID is empty.
func (s *TraceService) Analytics(ctx context.Context, userID string) (domain.Analytics, error) {
	entries, err := s.store.List(ctx, userID, analyticsWindow)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("list history: %w", err)
	}
	return domain.Summarize(entries, analyticsRecent), nil
}

// RecordFeedback stores whether a document recommended by a trace helped.
// The document must be one of the trace's alternatives.
func (s *TraceService) RecordFeedback(ctx context.Context, traceID, documentID string, helpful bool) error {
	if strings.TrimSpace(documentID) == "" {
		return domain.NewInputError(domain.ErrInvalidInput, "document id is required")
	}
	trace, err := s.GetTrace(ctx, traceID)
	if err != nil {
		return err
	}

	var alt *domain.Alternative
	for i := range trace.Alternatives {
		if trace.Alternatives[i].DocumentID == documentID {
			alt = &trace.Alternatives[i]
			break
		}
	}
	if alt == nil {
		return fmt.Errorf("document %s in trace %s: %w", documentID, traceID, domain.ErrNotFound)
	}

	if err := s.store.SaveFeedback(ctx, domain.Feedback{
		TraceID:    traceID,
		SourceID:   alt.SourceID,
		DocumentID: documentID,
		Helpful:    helpful,
		RecordedAt: s.now(),
	}); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}

	if s.cache != nil {
		if _, err := s.cache.InvalidateDocument(ctx, alt.SourceID, documentID); err != nil {
			logger.Warn("Feedback saved but cached answers for %s/%s were not evicted: %v", alt.SourceID, documentID, err)
		}
	}
	return nil
}

// Feedback lists the feedback recorded against a trace.
func (s *TraceService) Feedback(ctx context.Context, traceID string) ([]domain.Feedback, error) {
	return s.store.ListFeedback(ctx, traceID)
}
