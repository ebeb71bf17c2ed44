package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// MockCatalog implements driving.SourceCatalog for testing.
type MockCatalog struct {
	sources []domain.SourceSettings
	health  []domain.SourceHealth
	checked []domain.SourceHealth
	checks  int
}

func (m *MockCatalog) List() []domain.SourceSettings {
	return m.sources
}

func (m *MockCatalog) Health() []domain.SourceHealth {
	return m.health
}

func (m *MockCatalog) Check(_ context.Context) []domain.SourceHealth {
	m.checks++
	return m.checked
}

func testCatalog() *MockCatalog {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &MockCatalog{
		sources: []domain.SourceSettings{
			{ID: "docs", Type: "filesystem", Authority: 0.8},
			{ID: "tickets", Type: "github", Authority: 0.5},
		},
		health: []domain.SourceHealth{
			{SourceID: "docs", Status: domain.SourceStatusHealthy, Queries: 4, LastLatency: 12 * time.Millisecond},
		},
		checked: []domain.SourceHealth{
			{SourceID: "docs", Status: domain.SourceStatusHealthy, Queries: 5},
			{
				SourceID: "tickets", Status: domain.SourceStatusDegraded, Queries: 1, Failures: 1,
				LastError: "rate limited", LastErrorAt: at,
			},
		},
	}
}

// loaded returns a view that has run Init against the catalog.
func loaded(t *testing.T, catalog *MockCatalog) *View {
	t.Helper()
	view := NewView(nil, catalog)
	cmd := view.Init()
	require.NotNil(t, cmd)
	view.Update(cmd())
	return view
}

func TestNewView_NilCatalog(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	view.Update(view.Init()())

	assert.ErrorIs(t, view.Err(), ErrNoCatalog)
	assert.Contains(t, view.View(), "source catalog not available")
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	assert.Nil(t, cmd)
}

func TestView_Init_LoadsSourcesAndHealth(t *testing.T) {
	view := loaded(t, testCatalog())

	require.Len(t, view.Sources(), 2)
	out := view.View()
	assert.Contains(t, out, "docs")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "12ms")
	// tickets has not been queried yet.
	assert.Contains(t, out, "unknown")
}

func TestView_Empty(t *testing.T) {
	view := loaded(t, &MockCatalog{})

	assert.Contains(t, view.View(), "No sources enabled.")
}

func TestView_Check(t *testing.T) {
	catalog := testCatalog()
	view := loaded(t, catalog)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	require.NotNil(t, cmd)
	assert.True(t, view.Checking())
	assert.Contains(t, view.View(), "Checking sources...")

	// A second press while checking is ignored.
	_, again := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	assert.Nil(t, again)

	view.Update(cmd())
	assert.False(t, view.Checking())
	assert.Equal(t, 1, catalog.checks)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, view.Selected())
	out := view.View()
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "Last error (2026-03-01 09:00:00): rate limited")
}

func TestView_Refresh(t *testing.T) {
	catalog := testCatalog()
	view := loaded(t, catalog)
	catalog.sources = catalog.sources[:1]

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)
	view.Update(cmd())

	assert.Len(t, view.Sources(), 1)
}

func TestView_LoadError(t *testing.T) {
	view := loaded(t, testCatalog())

	view.Update(messages.SourcesLoaded{Err: errors.New("config reload failed")})

	assert.EqualError(t, view.Err(), "config reload failed")
}

func TestView_Navigation(t *testing.T) {
	view := loaded(t, testCatalog())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, view.Selected())

	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, view.Selected())
}

func TestView_Esc(t *testing.T) {
	view := NewView(nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewAsk}, cmd())
}
