package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/navo/internal/core/domain"
)

// styles render command output. Colour is used only on a terminal.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Score   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// Terminal palette.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorAccent  = lipgloss.Color("#06B6D4")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")
)

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{Title: plain, Muted: plain, Score: plain, Success: plain, Warning: plain, Error: plain}
	}
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Score:   lipgloss.NewStyle().Foreground(colorAccent),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confidenceStyle picks a style for a confidence level.
func (s styles) confidenceStyle(confidence float64) lipgloss.Style {
	switch {
	case confidence >= 0.7:
		return s.Success
	case confidence >= 0.5:
		return s.Warning
	default:
		return s.Error
	}
}

// statusStyle picks a style for a source status.
func (s styles) statusStyle(status domain.SourceStatus) lipgloss.Style {
	switch status {
	case domain.SourceStatusHealthy:
		return s.Success
	case domain.SourceStatusDegraded:
		return s.Warning
	case domain.SourceStatusDown:
		return s.Error
	default:
		return s.Muted
	}
}
