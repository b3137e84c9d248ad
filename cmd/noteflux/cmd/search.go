package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noteflux/noteflux/internal/observability"
	"github.com/noteflux/noteflux/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		mode     string
		vault    string
		category string
		person   string
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed vaults",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			searchMode, err := parseSearchMode(mode)
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			ctx, span := observability.InstrumentSearch(cmd.Context(), a.tracer.Tracer(), string(searchMode), limit)
			defer span.End()

			results, err := a.searcher.Search(ctx, query, vault, category, person, limit, searchMode)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			printResults(results)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "hybrid", "search mode: vector, bm25, hybrid, or query")
	cmd.Flags().StringVar(&vault, "vault", "", "limit to one vault")
	cmd.Flags().StringVar(&category, "category", "", "limit to one category")
	cmd.Flags().StringVar(&person, "person", "", "limit to notes mentioning this person")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func parseSearchMode(mode string) (search.SearchMode, error) {
	switch search.SearchMode(mode) {
	case search.ModeVector, search.ModeBM25, search.ModeHybrid, search.ModeQuery:
		return search.SearchMode(mode), nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want vector, bm25, hybrid, or query)", mode)
	}
}

func printResults(results []search.Result) {
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s (%s, %s)\n", i+1, r.Score, r.Title, r.FilePath, r.Date)
		excerpt := r.Excerpt
		if excerpt == "" {
			excerpt = r.Content
		}
		fmt.Printf("   %s\n", truncate(excerpt, 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
