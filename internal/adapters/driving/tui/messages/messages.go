// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/navo/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewAsk is the question input and ranked results view.
	ViewAsk ViewType = iota
	// ViewTrace shows the reasoning behind an answer.
	ViewTrace
	// ViewSources lists sources and their health.
	ViewSources
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewAsk:
		return "ask"
	case ViewTrace:
		return "trace"
	case ViewSources:
		return "sources"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// AnswerCompleted carries an answer back to the model.
type AnswerCompleted struct {
	Answer *domain.Answer
	Err    error
}

// TraceSelected opens the reasoning trace of an answer.
type TraceSelected struct {
	Trace *domain.ReasoningTrace
}

// FeedbackLoaded carries the feedback recorded against a trace.
type FeedbackLoaded struct {
	TraceID  string
	Feedback []domain.Feedback
	Err      error
}

// FeedbackRecorded signals a helpful or unhelpful vote was stored.
type FeedbackRecorded struct {
	DocumentID string
	Helpful    bool
	Err        error
}

// SourcesLoaded carries source settings and health.
type SourcesLoaded struct {
	Sources []domain.SourceSettings
	Health  []domain.SourceHealth
	Err     error
}

// SourcesChecked carries health after every source was queried once.
type SourcesChecked struct {
	Health []domain.SourceHealth
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
