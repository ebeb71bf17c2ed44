package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/core/domain"
)

var (
	traceJSON       bool
	feedbackHelpful bool
	historyLimit    int
	historyAll      bool
)

// queryColumn is the width queries are truncated to in listings.
const queryColumn = 50

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect reasoning traces",
}

var traceShowCmd = &cobra.Command{
	Use:   "show [trace-id]",
	Short: "Show a stored reasoning trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceShow,
}

var traceFeedbackCmd = &cobra.Command{
	Use:   "feedback [trace-id] [document-id]",
	Short: "Record whether a document in an answer helped",
	Long: `Records feedback on one document of a traced answer. The document must be
among the alternatives the answer considered.

Examples:
  navo trace feedback 6f1c... CONF-42
  navo trace feedback 6f1c... CONF-42 --helpful=false`,
	Args: cobra.ExactArgs(2),
	RunE: runTraceFeedback,
}

var traceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent questions and their traces",
	Long: `Lists the questions asked as --user, newest first, with the trace ID of
each answer. Use --all to list every caller.`,
	Args: cobra.NoArgs,
	RunE: runTraceList,
}

var traceAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarise recent answers",
	Args:  cobra.NoArgs,
	RunE:  runTraceAnalytics,
}

func init() {
	traceShowCmd.Flags().BoolVar(&traceJSON, "json", false, "output the trace as JSON")
	traceFeedbackCmd.Flags().BoolVar(&feedbackHelpful, "helpful", true, "whether the document helped")
	traceListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of entries")
	traceListCmd.Flags().BoolVar(&historyAll, "all", false, "list every caller")
	traceListCmd.Flags().BoolVar(&traceJSON, "json", false, "output the history as JSON")
	traceAnalyticsCmd.Flags().BoolVar(&historyAll, "all", false, "summarise every caller")
	traceAnalyticsCmd.Flags().BoolVar(&traceJSON, "json", false, "output the summary as JSON")
	traceCmd.AddCommand(traceShowCmd, traceFeedbackCmd, traceListCmd, traceAnalyticsCmd)
	rootCmd.AddCommand(traceCmd)
}

func runTraceShow(cmd *cobra.Command, args []string) error {
	trace, err := app.Trace.GetTrace(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trace: %w", err)
	}
	if traceJSON {
		return writeJSON(cmd.OutOrStdout(), trace)
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	printTraceSummary(w, st, trace)
	printSteps(w, st, trace)

	feedback, err := app.Trace.Feedback(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}
	if len(feedback) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.Title.Render("Feedback:"))
		for _, fb := range feedback {
			verdict := st.Success.Render("helpful")
			if !fb.Helpful {
				verdict = st.Error.Render("not helpful")
			}
			fmt.Fprintf(w, "  %s: %s\n", fb.DocumentID, verdict)
		}
	}
	return nil
}

func runTraceFeedback(cmd *cobra.Command, args []string) error {
	if err := app.Trace.RecordFeedback(cmd.Context(), args[0], args[1], feedbackHelpful); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	cmd.Println("Feedback recorded.")
	return nil
}

// historyUser returns the user whose history is listed; empty means all.
func historyUser() string {
	if historyAll {
		return ""
	}
	return caller().UserID
}

func runTraceList(cmd *cobra.Command, _ []string) error {
	entries, err := app.Trace.History(cmd.Context(), historyUser(), historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if traceJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		cmd.Println("No questions recorded.")
		return nil
	}

	w := cmd.OutOrStdout()
	printHistory(w, newStyles(w), entries, historyAll)
	return nil
}

func runTraceAnalytics(cmd *cobra.Command, _ []string) error {
	a, err := app.Trace.Analytics(cmd.Context(), historyUser())
	if err != nil {
		return fmt.Errorf("analytics: %w", err)
	}
	if traceJSON {
		return writeJSON(cmd.OutOrStdout(), a)
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	fmt.Fprintf(w, "%s %d\n", st.Title.Render("Questions:"), a.TotalQueries)
	if a.TotalQueries == 0 {
		return nil
	}
	fmt.Fprintf(w, "Served from cache: %d\n", a.CacheHits)
	fmt.Fprintf(w, "Average confidence: %s\n", st.confidenceStyle(a.AverageConfidence).Render(fmt.Sprintf("%.2f", a.AverageConfidence)))
	fmt.Fprintf(w, "Average time: %v\n", a.AverageElapsed.Round(time.Millisecond))

	fmt.Fprintln(w, st.Title.Render("By confidence:"))
	for _, level := range []domain.ConfidenceLevel{
		domain.ConfidenceVeryHigh, domain.ConfidenceHigh, domain.ConfidenceMedium, domain.ConfidenceLow, domain.ConfidenceVeryLow,
	} {
		if n := a.Levels[level]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", level, n)
		}
	}

	if len(a.Recent) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.Title.Render("Recent:"))
		printHistory(w, st, a.Recent, historyAll)
	}
	return nil
}

func printHistory(w io.Writer, st styles, entries []domain.HistoryEntry, showUser bool) {
	for _, e := range entries {
		user := ""
		if showUser {
			user = st.Muted.Render(e.UserID) + " "
		}
		cached := ""
		if e.FromCache {
			cached = st.Muted.Render(" (cached)")
		}
		fmt.Fprintf(w, "%s %s%s  %s  %s%s\n",
			st.Muted.Render(e.AskedAt.Local().Format("2006-01-02 15:04")),
			user,
			e.TraceID,
			st.confidenceStyle(e.Confidence).Render(fmt.Sprintf("%.2f", e.Confidence)),
			truncate(e.Query, queryColumn),
			cached,
		)
	}
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
