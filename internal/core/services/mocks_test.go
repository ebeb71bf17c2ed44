package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driven"
)

// --- Mock implementations ---

var (
	_ driven.EntityExtractor   = (*mockExtractor)(nil)
	_ driven.SourceAdapter     = (*mockSource)(nil)
	_ driven.IdentityProvider  = (*mockIdentity)(nil)
	_ driven.CacheTier         = (*mockTier)(nil)
	_ driven.TraceStore        = (*mockTraceStore)(nil)
	_ driven.CompletionService = (*mockCompletion)(nil)
)

// mockExtractor implements driven.EntityExtractor for testing.
type mockExtractor struct {
	entities  []domain.Entity
	err       error
	panicWith any
	calls     int
}

func (m *mockExtractor) Extract(_ context.Context, _ string) ([]domain.Entity, error) {
	m.calls++
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.entities, nil
}

// mockSource implements driven.SourceAdapter for testing.
type mockSource struct {
	id         string
	candidates []domain.Candidate

	// errs are returned by successive calls; the last one repeats.
	errs []error

	// delay blocks each call until it elapses or ctx ends.
	delay time.Duration

	// gate, when set, blocks each call until closed.
	gate chan struct{}

	calls   atomic.Int32
	lastReq atomic.Pointer[driven.SearchRequest]
}

func (m *mockSource) ID() string   { return m.id }
func (m *mockSource) Type() string { return "mock" }
func (m *mockSource) Close() error { return nil }

func (m *mockSource) Search(ctx context.Context, req driven.SearchRequest) ([]domain.Candidate, error) {
	n := int(m.calls.Add(1))
	m.lastReq.Store(&req)

	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(m.errs) > 0 {
		err := m.errs[min(n, len(m.errs))-1]
		if err != nil {
			return nil, err
		}
	}
	out := make([]domain.Candidate, len(m.candidates))
	for i, c := range m.candidates {
		c.SourceID = m.id
		out[i] = c
	}
	return out, nil
}

// mockIdentity implements driven.IdentityProvider for testing.
type mockIdentity struct {
	perms map[string][]string
	err   error
	calls atomic.Int32
}

func (m *mockIdentity) PermissionsFor(_ context.Context, caller domain.CallerContext) (domain.PermissionSet, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	principals := append([]string{domain.PrincipalEveryone, "user:" + caller.UserID}, m.perms[caller.UserID]...)
	return domain.NewPermissionSet(principals...), nil
}

// mockTier implements driven.CacheTier for testing.
type mockTier struct {
	name string
	err  error

	mu      sync.Mutex
	entries map[string]*domain.CacheEntry
	ttls    map[string]time.Duration
	gets    int
	sets    int
}

func newMockTier(name string) *mockTier {
	return &mockTier{
		name:    name,
		entries: make(map[string]*domain.CacheEntry),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *mockTier) Name() string { return m.name }

func (m *mockTier) Get(_ context.Context, fingerprint string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return e, nil
}

func (m *mockTier) Set(_ context.Context, entry *domain.CacheEntry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	m.entries[entry.Fingerprint] = entry
	m.ttls[entry.Fingerprint] = ttl
	return nil
}

func (m *mockTier) Delete(_ context.Context, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.entries, fingerprint)
	return nil
}

func (m *mockTier) DeleteByTag(_ context.Context, tag string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for fp, e := range m.entries {
		for _, t := range e.Tags {
			if t == tag {
				delete(m.entries, fp)
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *mockTier) Ping(_ context.Context) error { return m.err }
func (m *mockTier) Close() error                 { return nil }

func (m *mockTier) has(fingerprint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[fingerprint]
	return ok
}

func (m *mockTier) ttlOf(fingerprint string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[fingerprint]
}

// mockTraceStore implements driven.TraceStore for testing.
type mockTraceStore struct {
	mu         sync.Mutex
	traces     map[string]*domain.ReasoningTrace
	history    []domain.HistoryEntry
	feedback   []domain.Feedback
	saveErr    error
	successErr error
}

func newMockTraceStore() *mockTraceStore {
	return &mockTraceStore{traces: make(map[string]*domain.ReasoningTrace)}
}

func (m *mockTraceStore) Save(_ context.Context, trace *domain.ReasoningTrace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.traces[trace.ID]; !ok {
		m.traces[trace.ID] = trace
	}
	return nil
}

func (m *mockTraceStore) Get(_ context.Context, id string) (*domain.ReasoningTrace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.traces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *mockTraceStore) SaveFeedback(_ context.Context, fb domain.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, fb)
	return nil
}

func (m *mockTraceStore) ListFeedback(_ context.Context, traceID string) ([]domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Feedback
	for _, fb := range m.feedback {
		if fb.TraceID == traceID {
			out = append(out, fb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// mockCompletion implements driven.CompletionService for testing.
type mockCompletion struct {
	text      string
	err       error
	lastInput driven.PromptContext
	calls     int
}

func (m *mockCompletion) Complete(_ context.Context, prompt driven.PromptContext) (driven.Completion, error) {
	m.calls++
	m.lastInput = prompt
	if m.err != nil {
		return driven.Completion{}, m.err
	}
	return driven.Completion{Text: m.text}, nil
}

func (m *mockCompletion) ModelName() string { return "mock-model" }
func (m *mockCompletion) Close() error      { return nil }

func (m *mockTraceStore) SaveHistory(_ context.Context, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entry)
	return nil
}

func (m *mockTraceStore) List(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.HistoryEntry
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if userID == "" || m.history[i].UserID == userID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

func (m *mockTraceStore) DocumentSuccess(_ context.Context, keys []string) (map[string]domain.DocumentSuccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.successErr != nil {
		return nil, m.successErr
	}
	out := make(map[string]domain.DocumentSuccess)
	for _, key := range keys {
		for _, fb := range m.feedback {
			if fb.Key() != key {
				continue
			}
			s := out[key]
			if fb.Helpful {
				s.Helpful++
			} else {
				s.Unhelpful++
			}
			out[key] = s
		}
	}
	return out, nil
}

func (m *mockTraceStore) historyLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}
