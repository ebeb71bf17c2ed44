package cli

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui"
	"github.com/custodia-labs/navo/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/navo/internal/core/domain"
)

// stubProgram replaces runProgram for the duration of a test.
func stubProgram(t *testing.T, run func(ctx context.Context, m tea.Model) error) {
	t.Helper()
	orig := runProgram
	runProgram = run
	t.Cleanup(func() { runProgram = orig })
}

func TestTUICmd_AsksAsCaller(t *testing.T) {
	answers := &mockAnswerService{answer: &domain.Answer{Results: []domain.RankedResult{}}}
	a := testApp()
	a.Answer = answers

	var model tea.Model
	stubProgram(t, func(_ context.Context, m tea.Model) error {
		model = m
		browser := m.(*tui.App)
		browser.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		for _, r := range "vpn setup" {
			browser.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		}
		_, cmd := browser.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd)
		browser.Update(cmd())
		return nil
	})

	_, err := execute(t, a, "tui", "--user", "ana", "--team", "platform")
	require.NoError(t, err)

	require.IsType(t, &tui.App{}, model)
	assert.Equal(t, messages.ViewAsk, model.(*tui.App).CurrentView())
	assert.Equal(t, "vpn setup", answers.gotQuery)
	assert.Equal(t, domain.CallerContext{UserID: "ana", Team: "platform"}, answers.gotCaller)
}

func TestTUICmd_RequiresUser(t *testing.T) {
	stubProgram(t, func(context.Context, tea.Model) error {
		t.Fatal("program started without a caller")
		return nil
	})

	_, err := execute(t, testApp(), "tui", "--user", "")
	assert.ErrorIs(t, err, tui.ErrMissingCaller)
}

func TestTUICmd_ProgramError(t *testing.T) {
	stubProgram(t, func(context.Context, tea.Model) error {
		return errors.New("no tty")
	})

	_, err := execute(t, testApp(), "tui", "--user", "ana")
	assert.EqualError(t, err, "TUI error: no tty")
}
