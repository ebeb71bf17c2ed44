package tui

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *MockAnswerService) Answer(_ context.Context, rawText string, caller domain.CallerContext, _ domain.AnswerOptions) (*domain.Answer, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Query:   domain.Query{Raw: rawText, Caller: caller},
		Results: []domain.RankedResult{},
	}, nil
}

// MockTraceService implements driving.TraceService for testing.
type MockTraceService struct {
	feedback []domain.Feedback
	votes    []domain.Feedback
}

func (m *MockTraceService) GetTrace(_ context.Context, _ string) (*domain.ReasoningTrace, error) {
	return nil, domain.ErrNotFound
}

func (m *MockTraceService) RecordFeedback(_ context.Context, traceID, documentID string, helpful bool) error {
	m.votes = append(m.votes, domain.Feedback{TraceID: traceID, DocumentID: documentID, Helpful: helpful})
	return nil
}

func (m *MockTraceService) Feedback(_ context.Context, _ string) ([]domain.Feedback, error) {
	return m.feedback, nil
}

func (m *MockTraceService) History(_ context.Context, _ string, _ int) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{}, nil
}

func (m *MockTraceService) Analytics(_ context.Context, _ string) (domain.Analytics, error) {
	return domain.Analytics{}, nil
}

// MockCatalog implements driving.SourceCatalog for testing.
type MockCatalog struct {
	sources []domain.SourceSettings
	health  []domain.SourceHealth
}

func (m *MockCatalog) List() []domain.SourceSettings {
	return m.sources
}

func (m *MockCatalog) Health() []domain.SourceHealth {
	return m.health
}

func (m *MockCatalog) Check(_ context.Context) []domain.SourceHealth {
	return m.health
}
