package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/navo/internal/core/domain"
)

type mockAnswerService struct {
	answer    *domain.Answer
	err       error
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
	m.gotQuery, m.gotCaller, m.gotOpts = rawText, caller, opts
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockTraceService struct {
	trace     *domain.ReasoningTrace
	feedback  []domain.Feedback
	history   []domain.HistoryEntry
	analytics domain.Analytics
	err       error

	gotUserID string
	gotLimit  int
}

func (m *mockTraceService) GetTrace(_ context.Context, id string) (*domain.ReasoningTrace, error) {
	if m.trace == nil || m.trace.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.trace, nil
}

func (m *mockTraceService) RecordFeedback(_ context.Context, traceID, documentID string, helpful bool) error {
	if m.err != nil {
		return m.err
	}
	m.feedback = append(m.feedback, domain.Feedback{TraceID: traceID, DocumentID: documentID, Helpful: helpful})
	return nil
}

func (m *mockTraceService) Feedback(_ context.Context, _ string) ([]domain.Feedback, error) {
	return m.feedback, nil
}

func (m *mockTraceService) History(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.gotUserID, m.gotLimit = userID, limit
	return m.history, m.err
}

func (m *mockTraceService) Analytics(_ context.Context, userID string) (domain.Analytics, error) {
	m.gotUserID = userID
	return m.analytics, m.err
}

type mockCacheService struct {
	calls []string
	count int
	stats domain.CacheStats
}

func (m *mockCacheService) InvalidateFingerprint(_ context.Context, fingerprint string) error {
	m.calls = append(m.calls, "fingerprint:"+fingerprint)
	return nil
}

func (m *mockCacheService) InvalidateSource(_ context.Context, sourceID string) (int, error) {
	m.calls = append(m.calls, "source:"+sourceID)
	return m.count, nil
}

func (m *mockCacheService) InvalidateDocument(_ context.Context, sourceID, documentID string) (int, error) {
	m.calls = append(m.calls, "document:"+sourceID+"/"+documentID)
	return m.count, nil
}

func (m *mockCacheService) Stats() domain.CacheStats {
	return m.stats
}

type mockCatalog struct {
	sources []domain.SourceSettings
	health  []domain.SourceHealth
	checked bool
}

func (m *mockCatalog) List() []domain.SourceSettings {
	return m.sources
}

func (m *mockCatalog) Health() []domain.SourceHealth {
	return m.health
}

func (m *mockCatalog) Check(_ context.Context) []domain.SourceHealth {
	m.checked = true
	return m.health
}

// testApp returns an App backed by empty mocks.
func testApp() *App {
	return &App{
		Answer:  &mockAnswerService{answer: &domain.Answer{}},
		Trace:   &mockTraceService{},
		Cache:   &mockCacheService{},
		Sources: &mockCatalog{},
	}
}

// execute runs the root command against a, with every flag reset.
func execute(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	loadApp = func(context.Context, string) (*App, error) { return a, nil }
	t.Cleanup(func() {
		loadApp = nil
		app = nil
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	_ = teardown()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
