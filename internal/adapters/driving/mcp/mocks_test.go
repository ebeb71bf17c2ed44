package mcp

import (
	"context"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error

	gotQuery  string
	gotCaller domain.CallerContext
	gotOpts   domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	rawText string,
	caller domain.CallerContext,
	opts domain.AnswerOptions,
) (*domain.Answer, error) {
	m.gotQuery = rawText
	m.gotCaller = caller
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.answer == nil {
		return &domain.Answer{}, nil
	}
	return m.answer, nil
}

// mockTraceService is a mock implementation of driving.TraceService.
type mockTraceService struct {
	traces    map[string]*domain.ReasoningTrace
	feedback  []domain.Feedback
	history   []domain.HistoryEntry
	analytics domain.Analytics
	err       error

	gotUserID string
	gotLimit  int
}

func (m *mockTraceService) GetTrace(_ context.Context, id string) (*domain.ReasoningTrace, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.traces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *mockTraceService) RecordFeedback(_ context.Context, traceID, documentID string, helpful bool) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.traces[traceID]; !ok {
		return domain.ErrNotFound
	}
	m.feedback = append(m.feedback, domain.Feedback{TraceID: traceID, DocumentID: documentID, Helpful: helpful})
	return nil
}

func (m *mockTraceService) Feedback(_ context.Context, traceID string) ([]domain.Feedback, error) {
	var out []domain.Feedback
	for _, fb := range m.feedback {
		if fb.TraceID == traceID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (m *mockTraceService) History(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.gotUserID, m.gotLimit = userID, limit
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockTraceService) Analytics(_ context.Context, userID string) (domain.Analytics, error) {
	m.gotUserID = userID
	if m.err != nil {
		return domain.Analytics{}, m.err
	}
	return m.analytics, nil
}

// mockCatalog is a mock implementation of driving.SourceCatalog.
type mockCatalog struct {
	sources []domain.SourceSettings
	health  []domain.SourceHealth
}

func (m *mockCatalog) List() []domain.SourceSettings {
	return m.sources
}

func (m *mockCatalog) Health() []domain.SourceHealth {
	return m.health
}

func (m *mockCatalog) Check(_ context.Context) []domain.SourceHealth {
	return m.health
}
