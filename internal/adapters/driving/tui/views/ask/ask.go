// Package ask provides the question and ranked results view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/navo/internal/core/domain"
	"github.com/custodia-labs/navo/internal/core/ports/driving"
)

// Result actions.
const (
	ActionHelpful   = "Mark helpful"
	ActionUnhelpful = "Mark not helpful"
	ActionReasoning = "Show reasoning"
	ActionCancel    = "Cancel"
)

// ActionMenu represents a simple action selection overlay.
type ActionMenu struct {
	actions  []string
	selected int
	result   *domain.RankedResult
}

// View represents the ask view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.ResultList
	statusbar *status.Bar

	answerService driving.AnswerService
	traceService  driving.TraceService
	caller        domain.CallerContext
	ctx           context.Context

	answer     *domain.Answer
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a question, false = navigating results
	actionMenu *ActionMenu
}

// NewView creates a new ask view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	traceService driving.TraceService,
	caller domain.CallerContext,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		answerService: answerService,
		traceService:  traceService,
		caller:        caller,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focusInput:    true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case messages.FeedbackRecorded:
		v.handleFeedbackRecorded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	// Cursor blink and other input housekeeping.
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.actionMenu != nil {
		return v.handleActionMenuKey(msg)
	}
	if v.focusInput {
		return v.handleInputKey(msg)
	}

	switch msg.String() {
	case "enter":
		if result := v.list.SelectedResult(); result != nil {
			v.actionMenu = &ActionMenu{
				actions: []string{ActionHelpful, ActionUnhelpful, ActionReasoning, ActionCancel},
				result:  result,
			}
		}
	case "up", "k":
		v.list.MoveUp()
	case "down", "j":
		v.list.MoveDown()
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case "esc":
		v.focusInput = true
		return v, v.input.Focus()
	case "t":
		return v, v.showTrace()
	case "s":
		return v, changeView(messages.ViewSources)
	case "?":
		return v, changeView(messages.ViewHelp)
	case "q":
		return v, func() tea.Msg { return messages.Quit{} }
	}
	return v, nil
}

// handleInputKey processes keys while the question has focus.
func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEnter:
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.err = nil
		v.statusbar.SetState(status.StateAsking)
		v.statusbar.SetMessage("")
		v.focusInput = false
		v.input.Blur()
		return v, v.ask(question)

	case tea.KeyEsc:
		if v.answer != nil {
			v.focusInput = false
			v.input.Blur()
			return v, nil
		}
		return v, func() tea.Msg { return messages.Quit{} }
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleActionMenuKey processes keyboard input when the action menu is open.
func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.actionMenu.selected > 0 {
			v.actionMenu.selected--
		}
	case "down", "j":
		if v.actionMenu.selected < len(v.actionMenu.actions)-1 {
			v.actionMenu.selected++
		}
	case "enter":
		action := v.actionMenu.actions[v.actionMenu.selected]
		result := v.actionMenu.result
		v.actionMenu = nil
		return v, v.executeAction(action, result)
	case "esc":
		v.actionMenu = nil
	}
	return v, nil
}

// executeAction performs the selected action on a result.
func (v *View) executeAction(action string, result *domain.RankedResult) tea.Cmd {
	switch action {
	case ActionHelpful:
		return v.recordFeedback(result, true)
	case ActionUnhelpful:
		return v.recordFeedback(result, false)
	case ActionReasoning:
		return v.showTrace()
	}
	return nil
}

// ask resolves a question.
func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.ErrorOccurred{Err: ErrNoAnswerService}
		}
		answer, err := v.answerService.Answer(v.ctx, question, v.caller, domain.AnswerOptions{})
		return messages.AnswerCompleted{Answer: answer, Err: err}
	}
}

// recordFeedback votes on a result of the current answer.
func (v *View) recordFeedback(result *domain.RankedResult, helpful bool) tea.Cmd {
	if v.traceService == nil {
		v.statusbar.SetMessage("Feedback not available")
		return nil
	}
	if v.answer == nil || v.answer.Trace == nil {
		v.statusbar.SetMessage("No reasoning trace to attach feedback to")
		return nil
	}

	traceID := v.answer.Trace.ID
	documentID := result.Candidate.DocumentID
	return func() tea.Msg {
		err := v.traceService.RecordFeedback(v.ctx, traceID, documentID, helpful)
		return messages.FeedbackRecorded{DocumentID: documentID, Helpful: helpful, Err: err}
	}
}

// showTrace opens the reasoning trace of the current answer.
func (v *View) showTrace() tea.Cmd {
	if v.answer == nil || v.answer.Trace == nil {
		v.statusbar.SetMessage("No reasoning trace for this answer")
		return nil
	}
	trace := v.answer.Trace
	return func() tea.Msg {
		return messages.TraceSelected{Trace: trace}
	}
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}

// handleAnswerCompleted shows an answer or the error that replaced it.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.focusInput = true
		v.input.Focus()
		return
	}

	v.err = nil
	v.answer = msg.Answer
	v.list.SetResults(msg.Answer.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResults(len(msg.Answer.Results), msg.Answer.FromCache)
	v.statusbar.SetMessage("")
	if msg.Answer.AllSourcesUnavailable {
		v.statusbar.SetMessage("All sources unavailable")
	}
	v.focusInput = false
	v.input.Blur()
}

// handleFeedbackRecorded reports the outcome of a vote.
func (v *View) handleFeedbackRecorded(msg messages.FeedbackRecorded) {
	switch {
	case msg.Err != nil:
		v.statusbar.SetMessage("Feedback: " + msg.Err.Error())
	case msg.Helpful:
		v.statusbar.SetMessage(fmt.Sprintf("Marked %s helpful", msg.DocumentID))
	default:
		v.statusbar.SetMessage(fmt.Sprintf("Marked %s not helpful", msg.DocumentID))
	}
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("navo"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if summary := v.renderSummary(); summary != "" {
		sections = append(sections, summary, "")
	}

	sections = append(sections, v.list.View())

	if v.actionMenu != nil {
		sections = append(sections, "", v.renderActionMenu())
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSummary renders the confidence, summary and degraded sources of the answer.
func (v *View) renderSummary() string {
	if v.answer == nil {
		return ""
	}

	var lines []string
	switch {
	case v.answer.Trace != nil:
		t := v.answer.Trace
		confidence := v.styles.Confidence(t.Level).Render(fmt.Sprintf("%.2f %s", t.Confidence, t.Level))
		lines = append(lines, v.styles.Subtitle.Render("Confidence: ")+confidence)
		if t.Summary != "" {
			lines = append(lines, v.styles.Normal.Render(t.Summary))
		}
	case v.answer.TraceSuppressed:
		lines = append(lines, v.styles.Muted.Render("Reasoning withheld: confidence below the requested minimum"))
	}

	if len(v.answer.DegradedSources) > 0 {
		degraded := make([]string, 0, len(v.answer.DegradedSources))
		for _, d := range v.answer.DegradedSources {
			degraded = append(degraded, fmt.Sprintf("%s (%s)", d.SourceID, d.Reason))
		}
		lines = append(lines, v.styles.Warning.Render("Degraded: "+strings.Join(degraded, ", ")))
	}
	if v.answer.CacheBypassed {
		lines = append(lines, v.styles.Warning.Render("Cache unavailable, answered live"))
	}

	return strings.Join(lines, "\n")
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}

	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-14) // header, input, summary and status
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current question.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the question.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Answer returns the answer on display, or nil.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Results returns the ranked results on display.
func (v *View) Results() []domain.RankedResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the question input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// ActionMenuOpen returns whether the action menu is showing.
func (v *View) ActionMenuOpen() bool {
	return v.actionMenu != nil
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}
