package cmd

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/observability"
)

// runScheduler polls the configured cron expression once a minute and
// triggers an incremental index pass per vault when it's due. This is a
// thin wrapper, not a general-purpose job scheduler: one expression, one
// recurring action.
func runScheduler(ctx context.Context, cron string, idx *indexer.DefaultIndexer, opts indexer.IndexOptions, vaults []string, logger *observability.Logger) {
	if cron == "" {
		return
	}
	gron := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	digest := indexer.NewDirectoryDigest(indexer.NewFileWalker())
	lastDigest := map[string]string{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := gron.IsDue(cron)
			if err != nil {
				logger.Warn("invalid schedule expression", "cron", cron, "error", err)
				continue
			}
			if !due {
				continue
			}
			for _, vault := range vaults {
				root, ok := opts.VaultPaths[vault]
				if !ok {
					continue
				}

				if err := indexer.SyncVaultGit(root); err != nil {
					logger.Warn("vault git sync failed", "vault", vault, "error", err)
				}

				hash, err := digest.Hash(ctx, root, opts.ExcludedFolders)
				if err != nil {
					logger.Warn("vault digest failed, indexing anyway", "vault", vault, "error", err)
				} else if hash == lastDigest[vault] {
					logger.Info("vault unchanged since last tick, skipping incremental index", "vault", vault)
					continue
				}

				status, err := idx.IncrementalIndex(ctx, opts, vault)
				if err != nil {
					logger.Error("scheduled incremental index failed", "vault", vault, "error", err)
					continue
				}
				logger.Info("scheduled incremental index complete",
					"vault", vault, "files_processed", status.FilesProcessed, "chunks_indexed", status.ChunksIndexed)

				if hash != "" {
					lastDigest[vault] = hash
				}
			}
		}
	}
}
