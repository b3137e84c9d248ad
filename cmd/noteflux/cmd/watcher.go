package cmd

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/noteflux/noteflux/internal/indexer"
	"github.com/noteflux/noteflux/internal/observability"
)

// debounceWindow is how long a watched vault must be quiet before a
// filesystem change triggers an incremental index pass, so a sequence of
// saves from an editor collapses into one pass instead of many.
const debounceWindow = 2 * time.Second

// runWatcher watches every configured vault root for changes and triggers
// an incremental index pass after a quiet period, as an alternative (or
// supplement) to the cron-scheduled pass.
func runWatcher(ctx context.Context, idx *indexer.DefaultIndexer, opts indexer.IndexOptions, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for vault, root := range opts.VaultPaths {
		if err := addRecursive(watcher, root); err != nil {
			logger.Warn("watch vault failed", "vault", vault, "root", root, "error", err)
		}
	}

	pending := map[string]bool{}
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			for vault, root := range opts.VaultPaths {
				if within(root, event.Name) {
					pending[vault] = true
				}
			}
			timer.Reset(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			for vault := range pending {
				status, err := idx.IncrementalIndex(ctx, opts, vault)
				if err != nil {
					logger.Error("watch-triggered incremental index failed", "vault", vault, "error", err)
					continue
				}
				logger.Info("watch-triggered incremental index complete",
					"vault", vault, "files_processed", status.FilesProcessed, "chunks_indexed", status.ChunksIndexed)
			}
			pending = map[string]bool{}
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && len(rel) > 0 && rel[0] != '.' && !filepath.IsAbs(rel)
}
