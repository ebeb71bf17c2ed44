package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/views/sources"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/views/trace"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// styles holds the TUI styles.
	styles *styles.Styles

	// askView takes questions and lists ranked results.
	askView *ask.View

	// traceView shows the reasoning behind an answer.
	traceView *trace.View

	// sourcesView lists sources and their health.
	sourcesView *sources.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:       ports,
		styles:      s,
		askView:     ask.NewView(s, nil, ports.Answer, ports.Trace, ports.Caller),
		traceView:   trace.NewView(s, ports.Trace),
		sourcesView: sources.NewView(s, ports.Sources),
		currentView: messages.ViewAsk,
	}, nil
}

// WithContext sets the context the views call services with.
func (a *App) WithContext(ctx context.Context) *App {
	a.askView.WithContext(ctx)
	a.traceView.WithContext(ctx)
	a.sourcesView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("navo"),
		a.askView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.updateCurrent(msg)

	case messages.AnswerCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = msg.Err
		return a, cmd

	case messages.FeedbackRecorded:
		a.askView, cmd = a.askView.Update(msg)
		return a, cmd

	case messages.TraceSelected:
		a.traceView.SetTrace(msg.Trace)
		a.currentView = messages.ViewTrace
		return a, a.traceView.Init()

	case messages.FeedbackLoaded:
		a.traceView, cmd = a.traceView.Update(msg)
		return a, cmd

	case messages.SourcesLoaded, messages.SourcesChecked:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewSources {
			return a, a.sourcesView.Init()
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.updateCurrent(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.updateCurrent(msg)
}

// updateCurrent forwards a message to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewTrace:
		a.traceView, cmd = a.traceView.Update(msg)
	case messages.ViewSources:
		a.sourcesView, cmd = a.sourcesView.Update(msg)
	case messages.ViewHelp:
		if k, ok := msg.(tea.KeyMsg); ok && (k.Type == tea.KeyEsc || k.String() == "q") {
			a.currentView = messages.ViewAsk
		}
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewTrace:
		return a.traceView.View()
	case messages.ViewSources:
		return a.sourcesView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.askView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Asking:
  (type)      Enter a question
  enter       Ask
  esc         Back to results, or quit

Results:
  j/k, ↑/↓    Navigate results
  enter       Actions (helpful, not helpful, reasoning)
  t           Show reasoning
  s           Source health
  n           New question
  q           Quit

Reasoning:
  j/k, ↑/↓    Scroll
  esc         Back to results

Sources:
  c           Query every source once
  r           Refresh
  esc         Back to results

Anywhere:
  ctrl+c      Quit

[esc] back`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.askView.SetDimensions(width, height)
	a.traceView.SetDimensions(width, height)
	a.sourcesView.SetDimensions(width, height)
}
