package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/navo/internal/core/domain"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect configured sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled sources",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Query every source once and report its health",
	Long: `Sends a one-result query to every enabled source and reports whether it
answered, how long it took and the last error it returned.`,
	Args: cobra.NoArgs,
	RunE: runSourcesCheck,
}

func init() {
	sourcesCheckCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output health as JSON")
	sourcesCmd.AddCommand(sourcesListCmd, sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	sources := app.Sources.List()
	if len(sources) == 0 {
		cmd.Println("No sources enabled.")
		return nil
	}

	status := make(map[string]domain.SourceStatus)
	for _, h := range app.Sources.Health() {
		status[h.SourceID] = h.Status
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	fmt.Fprintln(w, st.Title.Render(fmt.Sprintf("%-20s %-12s %-10s %s", "ID", "TYPE", "AUTHORITY", "STATUS")))
	for _, s := range sources {
		fmt.Fprintf(w, "%-20s %-12s %-10.2f %s\n", s.ID, s.Type, s.Authority, st.statusStyle(status[s.ID]).Render(statusOf(status[s.ID])))
	}
	return nil
}

func runSourcesCheck(cmd *cobra.Command, _ []string) error {
	health := app.Sources.Check(cmd.Context())
	if sourcesJSON {
		return writeJSON(cmd.OutOrStdout(), health)
	}
	if len(health) == 0 {
		cmd.Println("No sources enabled.")
		return nil
	}

	w := cmd.OutOrStdout()
	printHealth(w, newStyles(w), health)
	return nil
}

func printHealth(w io.Writer, st styles, health []domain.SourceHealth) {
	fmt.Fprintln(w, st.Title.Render(fmt.Sprintf("%-20s %-12s %-10s %s", "ID", "TYPE", "STATUS", "LATENCY")))
	for _, h := range health {
		fmt.Fprintf(w, "%-20s %-12s %-10s %v\n",
			h.SourceID, h.Type, st.statusStyle(h.Status).Render(statusOf(h.Status)), h.LastLatency.Round(time.Millisecond))
		if h.LastError != "" && h.Status != domain.SourceStatusHealthy {
			fmt.Fprintf(w, "  %s\n", st.Error.Render(h.LastError))
		}
	}
}

func statusOf(s domain.SourceStatus) string {
	if s == "" {
		return string(domain.SourceStatusUnknown)
	}
	return string(s)
}
