package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/core/domain"
)

func testAnswer() *domain.Answer {
	return &domain.Answer{
		Results: []domain.RankedResult{
			{Candidate: domain.Candidate{SourceID: "wiki", DocumentID: "vpn", Title: "VPN setup"}, FusedScore: 0.9},
		},
		Trace: &domain.ReasoningTrace{ID: "trace-1", Confidence: 0.8, Level: domain.ConfidenceHigh},
	}
}

func newTestApp(t *testing.T) (*App, *MockTraceService) {
	t.Helper()
	trace := &MockTraceService{
		feedback: []domain.Feedback{{TraceID: "trace-1", SourceID: "wiki", DocumentID: "vpn", Helpful: true}},
	}
	app, err := NewApp(&Ports{
		Answer: &MockAnswerService{answer: testAnswer()},
		Trace:  trace,
		Sources: &MockCatalog{
			sources: []domain.SourceSettings{{ID: "wiki", Type: "filesystem"}},
			health:  []domain.SourceHealth{{SourceID: "wiki", Status: domain.SourceStatusHealthy}},
		},
		Caller: domain.CallerContext{UserID: "ana"},
	})
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app, trace
}

// send delivers a message and then every message its commands produce.
func send(app *App, msg tea.Msg) {
	_, cmd := app.Update(msg)
	for cmd != nil {
		next := cmd()
		if next == nil {
			return
		}
		if _, isBatch := next.(tea.BatchMsg); isBatch {
			return
		}
		_, cmd = app.Update(next)
	}
}

// askQuestion types a question and delivers the answer.
func askQuestion(app *App, question string) {
	for _, r := range question {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	send(app, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNewApp_Success(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewAsk, app.CurrentView())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Caller: domain.CallerContext{UserID: "ana"}})

	assert.ErrorIs(t, err, ErrMissingAnswerService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, app, app.WithContext(context.Background()))
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Init())
}

func TestApp_View_NotReady(t *testing.T) {
	app, err := NewApp(&Ports{Answer: &MockAnswerService{}, Caller: domain.CallerContext{UserID: "ana"}})
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
}

func TestApp_AskShowsResults(t *testing.T) {
	app, _ := newTestApp(t)

	askQuestion(app, "vpn setup")

	assert.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.Contains(t, app.View(), "VPN setup")
	assert.NoError(t, app.Err())
}

func TestApp_AnswerError(t *testing.T) {
	app, err := NewApp(&Ports{
		Answer: &MockAnswerService{err: domain.NewInputError(domain.ErrInvalidInput, "query too short")},
		Caller: domain.CallerContext{UserID: "ana"},
	})
	require.NoError(t, err)
	app.SetDimensions(100, 40)

	askQuestion(app, "x")

	assert.ErrorIs(t, app.Err(), domain.ErrInvalidInput)
	assert.Contains(t, app.View(), "query too short")
}

func TestApp_FeedbackFromActionMenu(t *testing.T) {
	app, trace := newTestApp(t)
	askQuestion(app, "vpn setup")

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	send(app, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, trace.votes, 1)
	assert.Equal(t, domain.Feedback{TraceID: "trace-1", DocumentID: "vpn", Helpful: true}, trace.votes[0])
	assert.Contains(t, app.View(), "Marked vpn helpful")
}

func TestApp_ReasoningAndBack(t *testing.T) {
	app, _ := newTestApp(t)
	askQuestion(app, "vpn setup")

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})

	assert.Equal(t, messages.ViewTrace, app.CurrentView())
	out := app.View()
	assert.Contains(t, out, "trace-1")
	assert.Contains(t, out, "wiki/vpn  helpful")

	send(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
	assert.Contains(t, app.View(), "VPN setup")
}

func TestApp_SourcesView(t *testing.T) {
	app, _ := newTestApp(t)
	askQuestion(app, "vpn setup")

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})

	assert.Equal(t, messages.ViewSources, app.CurrentView())
	assert.Contains(t, app.View(), "healthy")

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	assert.Contains(t, app.View(), "healthy")

	send(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
}

func TestApp_HelpView(t *testing.T) {
	app, _ := newTestApp(t)
	askQuestion(app, "vpn setup")

	send(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Show reasoning")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewAsk, app.CurrentView())
}

func TestApp_Update_CtrlC(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_QuitMessage(t *testing.T) {
	app, _ := newTestApp(t)
	askQuestion(app, "vpn setup")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_ErrorOccurred(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
}
