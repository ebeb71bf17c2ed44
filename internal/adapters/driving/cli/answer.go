package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/core/domain"
)

var (
	answerMaxResults    int
	answerSources       []string
	answerMinConfidence float64
	answerJSON          bool
	answerShowTrace     bool
)

var answerCmd = &cobra.Command{
	Use:   "answer [question]",
	Short: "Answer a question from connected sources",
	Long: `Queries every enabled source live, fuses and ranks the results, removes
anything the caller may not see and explains the answer with a reasoning trace.

Repeated questions are served from the answer cache.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().IntVarP(&answerMaxResults, "max-results", "n", domain.DefaultMaxResults, "maximum number of results")
	answerCmd.Flags().StringSliceVarP(&answerSources, "source", "s", nil, "restrict to these source IDs")
	answerCmd.Flags().Float64Var(&answerMinConfidence, "min-confidence", 0, "drop the trace below this confidence (0-1)")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "output the answer as JSON")
	answerCmd.Flags().BoolVar(&answerShowTrace, "trace", false, "show every reasoning step")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	opts := domain.AnswerOptions{
		MaxResults:    answerMaxResults,
		Sources:       answerSources,
		MinConfidence: answerMinConfidence,
	}

	answer, err := app.Answer.Answer(cmd.Context(), strings.Join(args, " "), caller(), opts)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if answerJSON {
		return writeJSON(cmd.OutOrStdout(), answer)
	}
	printAnswer(cmd.OutOrStdout(), answer, answerShowTrace)
	return nil
}

func printAnswer(w io.Writer, a *domain.Answer, showTrace bool) {
	st := newStyles(w)

	switch {
	case a.AllSourcesUnavailable:
		fmt.Fprintln(w, st.Error.Render("No source could be reached."))
	case len(a.Results) == 0:
		fmt.Fprintln(w, "No results found.")
	default:
		fmt.Fprintln(w, st.Title.Render("Results:"))
		fmt.Fprintln(w)
		for i, r := range a.Results {
			title := r.Candidate.Title
			if title == "" {
				title = r.Candidate.DocumentID
			}
			fmt.Fprintf(w, "  [%d] %s %s\n", i+1, title, st.Score.Render(fmt.Sprintf("(%.2f)", r.FusedScore)))
			fmt.Fprintf(w, "      %s\n", st.Muted.Render(fmt.Sprintf("%s · %s", r.Candidate.SourceID, r.Freshness)))
			if r.Candidate.URL != "" {
				fmt.Fprintf(w, "      %s\n", r.Candidate.URL)
			}
			if r.Candidate.Excerpt != "" {
				fmt.Fprintf(w, "      %s\n", r.Candidate.Excerpt)
			}
			for _, ref := range r.MergedFrom {
				fmt.Fprintf(w, "      %s\n", st.Muted.Render("also in "+ref.SourceID))
			}
			fmt.Fprintln(w)
		}
	}

	for _, d := range a.DegradedSources {
		fmt.Fprintln(w, st.Warning.Render(fmt.Sprintf("Source %s skipped: %s", d.SourceID, d.Reason)))
	}
	if a.CacheBypassed {
		fmt.Fprintln(w, st.Muted.Render("Cache unavailable; answer computed live."))
	}
	if a.FromCache {
		fmt.Fprintln(w, st.Muted.Render("Served from cache."))
	}

	if a.Trace == nil {
		if a.TraceSuppressed {
			fmt.Fprintln(w, st.Muted.Render("Trace suppressed: confidence below threshold."))
		}
		return
	}
	printTraceSummary(w, st, a.Trace)
	if showTrace {
		printSteps(w, st, a.Trace)
	}
}

func printTraceSummary(w io.Writer, st styles, t *domain.ReasoningTrace) {
	fmt.Fprintln(w)
	conf := st.confidenceStyle(t.Confidence).Render(fmt.Sprintf("%.2f (%s)", t.Confidence, t.Level))
	fmt.Fprintf(w, "Confidence: %s\n", conf)
	if t.Summary != "" {
		fmt.Fprintf(w, "Summary:    %s\n", t.Summary)
	}
	if t.Action != "" {
		fmt.Fprintf(w, "Next step:  %s\n", t.Action)
	}
	for _, g := range t.Gaps {
		fmt.Fprintf(w, "Gap:        %s\n", g)
	}
	fmt.Fprintf(w, "Trace:      %s\n", st.Muted.Render(t.ID))
}

func printSteps(w io.Writer, st styles, t *domain.ReasoningTrace) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Title.Render("Reasoning:"))
	for _, s := range t.Steps {
		status := fmt.Sprintf("%.2f", s.Confidence)
		if s.Failed {
			status = st.Error.Render("failed")
		}
		fmt.Fprintf(w, "  %-12s %s  %s\n", s.Kind, status, s.Rationale)
	}
	if len(t.Alternatives) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.Title.Render("Alternatives:"))
		for _, alt := range t.Alternatives {
			fmt.Fprintf(w, "  %d. %s (%s, %.2f) %s\n", alt.Rank, alt.Title, alt.SourceID, alt.Score, st.Muted.Render(alt.Rationale))
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return nil
}
