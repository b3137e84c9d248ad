package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var vault string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question answered from the indexed vaults",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			ctx, span := a.tracer.StartSpan(cmd.Context(), "cli.ask")
			defer span.End()

			answer, sources, err := a.searcher.QueryWithLLM(ctx, question, vault, "")
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer)
			if len(sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range sources {
					fmt.Printf("- %s (%s)\n", s.Title, s.FilePath)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "limit to one vault")
	return cmd
}
