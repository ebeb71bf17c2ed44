package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/adapters/driving/tui"
	"github.com/custodia-labs/navo/internal/logger"
)

// runProgram runs a Bubbletea model until it quits or ctx is cancelled.
var runProgram = func(ctx context.Context, m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive answer browser",
	Long: `Launch the interactive terminal browser for navo.

Ask questions, move through the ranked results, mark results helpful or
not, read the reasoning behind an answer and check source health. Every
question is asked as the caller given by --user, --team and --project.

Controls:
  Enter    - Ask / Actions on a result
  ↑/k, ↓/j - Navigate results
  t        - Show reasoning
  s        - Source health
  n        - New question
  ?        - Help
  Esc      - Back
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := &tui.Ports{
		Answer:  app.Answer,
		Trace:   app.Trace,
		Sources: app.Sources,
		Caller:  caller(),
	}

	browser, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	browser.WithContext(cmd.Context())

	if watcher, ok := app.Sources.(sourceWatcher); ok && app.Cache != nil {
		watching := watcher.Watch(cmd.Context(), invalidateOnChange(cmd.Context(), app.Cache))
		if len(watching) > 0 {
			logger.Debug("Watching sources for changes: %v", watching)
		}
	}

	if err := runProgram(cmd.Context(), browser); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
