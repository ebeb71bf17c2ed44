// Package trace provides the reasoning trace view for the TUI.
package trace

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
)

// View shows the steps, gaps, alternatives and feedback of one trace.
type View struct {
	styles       *styles.Styles
	traceService driving.TraceService
	ctx          context.Context

	trace        *domain.ReasoningTrace
	feedback     []domain.Feedback
	scrollOffset int
	width        int
	height       int
	err          error
}

// NewView creates a new trace view.
func NewView(s *styles.Styles, traceService driving.TraceService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:       s,
		traceService: traceService,
		ctx:          context.Background(),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetTrace sets the trace to display.
func (v *View) SetTrace(trace *domain.ReasoningTrace) {
	v.trace = trace
	v.feedback = nil
	v.scrollOffset = 0
	v.err = nil
}

// Init loads the feedback recorded against the trace.
func (v *View) Init() tea.Cmd {
	if v.trace == nil || v.traceService == nil {
		return nil
	}
	id := v.trace.ID
	return func() tea.Msg {
		fb, err := v.traceService.Feedback(v.ctx, id)
		return messages.FeedbackLoaded{TraceID: id, Feedback: fb, Err: err}
	}
}

// Update handles messages for the trace view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.FeedbackLoaded:
		if v.trace == nil || msg.TraceID != v.trace.ID {
			return v, nil
		}
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.feedback = msg.Feedback

	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "esc", "q":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewAsk}
		}
	}
	return v, nil
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Title, separator, scroll indicator and help.
	return max(v.height-6, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

// buildContent builds the content lines for display.
func (v *View) buildContent() []string {
	t := v.trace
	if t == nil {
		return nil
	}

	level := v.styles.Confidence(t.Level)
	lines := []string{
		v.field("ID", t.ID),
		v.field("Created", t.CreatedAt.Format("2006-01-02 15:04:05")),
		v.styles.Subtitle.Render(fmt.Sprintf("%-12s ", "Confidence:")) +
			level.Render(fmt.Sprintf("%.2f (%s)", t.Confidence, t.Level)),
	}
	if t.Summary != "" {
		lines = append(lines, v.field("Summary", t.Summary))
	}
	if t.Action != "" {
		lines = append(lines, v.field("Action", t.Action))
	}

	lines = append(lines, "", v.styles.Subtitle.Render("Steps:"))
	for _, s := range t.Steps {
		mark := v.styles.Success.Render("✓")
		if s.Failed {
			mark = v.styles.Error.Render("✗")
		}
		lines = append(lines,
			fmt.Sprintf("  %s %-13s %.2f  %s", mark, s.Kind, s.Confidence, v.styles.Muted.Render(s.Elapsed.String())),
			v.styles.Muted.Render("      "+s.Rationale))
	}

	if len(t.Gaps) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render("Gaps:"))
		for _, g := range t.Gaps {
			lines = append(lines, v.styles.Warning.Render("  - "+g))
		}
	}

	if len(t.Alternatives) > 0 {
		lines = append(lines, "", v.styles.Subtitle.Render("Alternatives:"))
		for _, a := range t.Alternatives {
			lines = append(lines,
				fmt.Sprintf("  %d. %s  %s", a.Rank, v.styles.Normal.Render(a.Title),
					v.styles.Muted.Render(fmt.Sprintf("%s/%s %.2f", a.SourceID, a.DocumentID, a.Score))),
				v.styles.Muted.Render("     "+a.Rationale))
		}
	}

	lines = append(lines, "", v.styles.Subtitle.Render("Feedback:"))
	if len(v.feedback) == 0 {
		lines = append(lines, v.styles.Muted.Render("  none recorded"))
	}
	for _, f := range v.feedback {
		verdict := v.styles.Success.Render("helpful")
		if !f.Helpful {
			verdict = v.styles.Error.Render("not helpful")
		}
		lines = append(lines, fmt.Sprintf("  %s  %s  %s", f.Key(), verdict,
			v.styles.Muted.Render(f.RecordedAt.Format("2006-01-02 15:04"))))
	}

	return lines
}

// field formats a label and value.
func (v *View) field(label, value string) string {
	return v.styles.Subtitle.Render(fmt.Sprintf("%-12s ", label+":")) + v.styles.Normal.Render(value)
}

// View renders the trace view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Reasoning"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	if v.trace == nil {
		b.WriteString(v.styles.Muted.Render("No trace selected"))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	lines := v.buildContent()
	visible := v.visibleLines()
	start := min(v.scrollOffset, len(lines))
	end := min(start+visible, len(lines))
	for _, line := range lines[start:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]", start+1, end, len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] scroll  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Trace returns the trace on display, or nil.
func (v *View) Trace() *domain.ReasoningTrace {
	return v.trace
}

// Feedback returns the feedback loaded for the trace.
func (v *View) Feedback() []domain.Feedback {
	return v.feedback
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
