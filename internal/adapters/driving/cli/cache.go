package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	invalidateFingerprint string
	invalidateSource      string
	invalidateDocument    string
	cacheStatsJSON        bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the answer cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Evict cached answers",
	Long: `Evicts cached answers from every tier.

Examples:
  navo cache invalidate --fingerprint 3fa9...
  navo cache invalidate --source wiki
  navo cache invalidate --source wiki --document 12345`,
	Args: cobra.NoArgs,
	RunE: runCacheInvalidate,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired answers from the persistent cache",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

func init() {
	cacheInvalidateCmd.Flags().StringVar(&invalidateFingerprint, "fingerprint", "", "evict one answer by fingerprint")
	cacheInvalidateCmd.Flags().StringVar(&invalidateSource, "source", "", "evict answers drawing on a source")
	cacheInvalidateCmd.Flags().StringVar(&invalidateDocument, "document", "", "with --source, evict answers containing a document")
	cacheStatsCmd.Flags().BoolVar(&cacheStatsJSON, "json", false, "output statistics as JSON")
	cacheCmd.AddCommand(cacheInvalidateCmd, cacheStatsCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheInvalidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	switch {
	case invalidateFingerprint != "":
		if err := app.Cache.InvalidateFingerprint(ctx, invalidateFingerprint); err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
		cmd.Println("Evicted 1 answer.")
		return nil
	case invalidateSource != "" && invalidateDocument != "":
		n, err := app.Cache.InvalidateDocument(ctx, invalidateSource, invalidateDocument)
		if err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
		cmd.Printf("Evicted %d answer(s).\n", n)
		return nil
	case invalidateSource != "":
		n, err := app.Cache.InvalidateSource(ctx, invalidateSource)
		if err != nil {
			return fmt.Errorf("invalidate: %w", err)
		}
		cmd.Printf("Evicted %d answer(s).\n", n)
		return nil
	case invalidateDocument != "":
		return errors.New("--document requires --source")
	default:
		return errors.New("one of --fingerprint or --source is required")
	}
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	stats := app.Cache.Stats()
	if cacheStatsJSON {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	w := cmd.OutOrStdout()
	st := newStyles(w)
	fmt.Fprintln(w, st.Title.Render("Cache:"))
	fmt.Fprintf(w, "  lookups   %d\n", stats.Lookups)
	fmt.Fprintf(w, "  hits      %d (%.0f%%)\n", stats.Hits, stats.HitRate()*100)
	fmt.Fprintf(w, "  shared    %d\n", stats.Shared)
	fmt.Fprintf(w, "  bypassed  %d\n", stats.Bypassed)
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Title.Render("Tiers:"))
	for _, t := range stats.Tiers {
		fmt.Fprintf(w, "  %-13s hits %-6d misses %-6d errors %d\n", t.Name, t.Hits, t.Misses, t.Errors)
	}
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	if app.Prune == nil {
		cmd.Println("No persistent cache configured.")
		return nil
	}
	n, err := app.Prune(cmd.Context())
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	cmd.Printf("Pruned %d expired answer(s).\n", n)
	return nil
}
