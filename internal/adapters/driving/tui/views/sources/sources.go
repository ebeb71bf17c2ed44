// Package sources provides the source health view for the TUI.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
)

// ErrNoCatalog indicates that no source catalog was provided.
var ErrNoCatalog = errors.New("source catalog not available")

// View lists the enabled sources and their health.
type View struct {
	styles  *styles.Styles
	catalog driving.SourceCatalog
	ctx     context.Context

	sources  []domain.SourceSettings
	health   map[string]domain.SourceHealth
	selected int
	checking bool
	width    int
	height   int
	err      error
}

// NewView creates a new sources view.
func NewView(s *styles.Styles, catalog driving.SourceCatalog) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:  s,
		catalog: catalog,
		ctx:     context.Background(),
		health:  make(map[string]domain.SourceHealth),
		width:   80,
		height:  24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads sources and their health.
func (v *View) Init() tea.Cmd {
	return func() tea.Msg {
		if v.catalog == nil {
			return messages.SourcesLoaded{Err: ErrNoCatalog}
		}
		return messages.SourcesLoaded{Sources: v.catalog.List(), Health: v.catalog.Health()}
	}
}

// check queries every source once.
func (v *View) check() tea.Cmd {
	if v.catalog == nil || v.checking {
		return nil
	}
	v.checking = true
	return func() tea.Msg {
		return messages.SourcesChecked{Health: v.catalog.Check(v.ctx)}
	}
}

// Update handles messages for the sources view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SourcesLoaded:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.sources = msg.Sources
		v.setHealth(msg.Health)
		if v.selected >= len(v.sources) {
			v.selected = 0
		}

	case messages.SourcesChecked:
		v.checking = false
		v.setHealth(msg.Health)
	}
	return v, nil
}

func (v *View) setHealth(health []domain.SourceHealth) {
	v.health = make(map[string]domain.SourceHealth, len(health))
	for _, h := range health {
		v.health[h.SourceID] = h
	}
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.sources)-1 {
			v.selected++
		}
	case "c":
		return v, v.check()
	case "r":
		return v, v.Init()
	case "esc", "q":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewAsk}
		}
	}
	return v, nil
}

// View renders the sources view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sources"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if len(v.sources) == 0 {
		b.WriteString(v.styles.Muted.Render("No sources enabled."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("  %-18s %-12s %-9s %-10s %8s %8s %10s",
		"ID", "TYPE", "AUTHORITY", "STATUS", "QUERIES", "FAILURES", "LATENCY")))
	b.WriteString("\n")

	for i, s := range v.sources {
		h := v.healthOf(s.ID)
		row := fmt.Sprintf("%-18s %-12s %-9.2f ", s.ID, s.Type, s.Authority)
		tail := fmt.Sprintf(" %8d %8d %10s", h.Queries, h.Failures, latency(h))
		status := fmt.Sprintf("%-10s", h.Status)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + row + status + tail))
		} else {
			b.WriteString(v.styles.Normal.Render("  "+row) + v.styles.Status(h.Status).Render(status) + v.styles.Normal.Render(tail))
		}
		b.WriteString("\n")
	}

	if h := v.healthOf(v.sources[v.selected].ID); h.LastError != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Last error (%s): %s",
			h.LastErrorAt.Format("2006-01-02 15:04:05"), h.LastError)))
		b.WriteString("\n")
	}

	if v.checking {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Checking sources..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

// healthOf returns the health of a source, or unknown if none was reported.
func (v *View) healthOf(id string) domain.SourceHealth {
	if h, ok := v.health[id]; ok {
		if h.Status == "" {
			h.Status = domain.SourceStatusUnknown
		}
		return h
	}
	return domain.SourceHealth{SourceID: id, Status: domain.SourceStatusUnknown}
}

func latency(h domain.SourceHealth) string {
	if h.Queries == 0 {
		return "-"
	}
	return h.LastLatency.Round(time.Millisecond).String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] select  [c] check  [r] refresh  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Sources returns the sources on display.
func (v *View) Sources() []domain.SourceSettings {
	return v.sources
}

// Selected returns the index of the selected source.
func (v *View) Selected() int {
	return v.selected
}

// Checking returns whether a check is in flight.
func (v *View) Checking() bool {
	return v.checking
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
