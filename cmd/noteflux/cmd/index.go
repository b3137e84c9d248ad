package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/observability"
)

func newIndexCmd() *cobra.Command {
	var vault string

	index := &cobra.Command{
		Use:   "index [full|incremental]",
		Short: "Index the configured vault(s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := args[0]
			if mode != "full" && mode != "incremental" {
				return fmt.Errorf("unknown index mode %q (want \"full\" or \"incremental\")", mode)
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.store.Close()
			defer a.tracer.Shutdown(cmd.Context()) //nolint:errcheck // best-effort flush on exit

			var vaults []string
			if vault != "" {
				vaults = []string{vault}
			} else {
				for name := range a.vaultPaths() {
					vaults = append(vaults, name)
				}
			}
			if len(vaults) == 0 {
				return fmt.Errorf("no vaults configured")
			}

			opts := a.indexOptions()
			tracer := a.tracer.Tracer()
			for _, v := range vaults {
				ctx, span := observability.InstrumentIndexerOperation(cmd.Context(), tracer, mode, v)
				status, err := runIndexPass(ctx, a.indexer, opts, mode, v)
				span.End()
				if err != nil {
					return fmt.Errorf("index vault %s: %w", v, err)
				}
				a.logger.Info("indexing complete",
					"vault", v,
					"mode", mode,
					"files_processed", status.FilesProcessed,
					"chunks_indexed", status.ChunksIndexed,
					"cancelled", status.Cancelled,
				)
				if status.LastError != "" {
					a.logger.Warn("indexing pass had errors", "vault", v, "last_error", status.LastError)
				}
			}
			return nil
		},
	}

	index.Flags().StringVar(&vault, "vault", "", "limit to one vault (\"work\" or \"personal\"); default is every configured vault")
	return index
}

func runIndexPass(ctx context.Context, idx *indexer.DefaultIndexer, opts indexer.IndexOptions, mode, vault string) (indexer.IndexStatus, error) {
	if mode == "full" {
		return idx.FullReindex(ctx, opts, vault)
	}
	return idx.IncrementalIndex(ctx, opts, vault)
}
