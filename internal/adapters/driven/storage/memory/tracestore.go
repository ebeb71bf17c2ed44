package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// Ensure TraceStore implements the interface.
var _ driven.TraceStore = (*TraceStore)(nil)

// TraceStore is an in-memory implementation of driven.TraceStore.
type TraceStore struct {
	mu       sync.RWMutex
	traces   map[string]domain.ReasoningTrace
	feedback map[string][]domain.Feedback
	success  map[string]domain.DocumentSuccess
	history  []domain.HistoryEntry
}

// NewTraceStore creates a new in-memory trace store.
func NewTraceStore() *TraceStore {
	return &TraceStore{
		traces:   make(map[string]domain.ReasoningTrace),
		feedback: make(map[string][]domain.Feedback),
		success:  make(map[string]domain.DocumentSuccess),
	}
}

// Save stores a trace. An existing trace with the same ID is kept.
func (s *TraceStore) Save(_ context.Context, trace *domain.ReasoningTrace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[trace.ID]; !ok {
		s.traces[trace.ID] = *trace
	}
	return nil
}

// Get retrieves a trace by ID.
func (s *TraceStore) Get(_ context.Context, id string) (*domain.ReasoningTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trace, ok := s.traces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &trace, nil
}

// SaveFeedback records feedback against a stored trace.
func (s *TraceStore) SaveFeedback(_ context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[fb.TraceID]; !ok {
		return domain.ErrNotFound
	}
	s.feedback[fb.TraceID] = append(s.feedback[fb.TraceID], fb)

	tally := s.success[fb.Key()]
	if fb.Helpful {
		tally.Helpful++
	} else {
		tally.Unhelpful++
	}
	s.success[fb.Key()] = tally
	return nil
}

// ListFeedback returns feedback for a trace, oldest first.
func (s *TraceStore) ListFeedback(_ context.Context, traceID string) ([]domain.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Feedback, len(s.feedback[traceID]))
	copy(out, s.feedback[traceID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// DocumentSuccess returns the feedback tallies of the given documents.
func (s *TraceStore) DocumentSuccess(_ context.Context, keys []string) (map[string]domain.DocumentSuccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.DocumentSuccess)
	for _, k := range keys {
		if tally, ok := s.success[k]; ok {
			out[k] = tally
		}
	}
	return out, nil
}

// SaveHistory appends one answered question.
func (s *TraceStore) SaveHistory(_ context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

// List returns history newest first. An empty userID lists every caller.
func (s *TraceStore) List(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.HistoryEntry{}
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if userID == "" || s.history[i].UserID == userID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}
