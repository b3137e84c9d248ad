package indexer

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// FileWalker enumerates markdown files under a vault root, skipping dotfiles
// and any path containing one of the configured excluded folder names.
type FileWalker struct{}

// NewFileWalker creates a Walker for vault traversal.
func NewFileWalker() *FileWalker {
	return &FileWalker{}
}

// Walk traverses root, calling fn with the path of every non-excluded .md
// file. Excluded folders are matched by substring containment against the
// path, matching the reference implementation's exclusion rule.
func (w *FileWalker) Walk(ctx context.Context, root string, excludedFolders []string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			name := d.Name()
			if name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if isExcluded(path, excludedFolders) {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if strings.ToLower(filepath.Ext(name)) != ".md" {
			return nil
		}

		return fn(path)
	})
}

// isExcluded reports whether path contains any of the configured excluded
// folder names as a substring.
func isExcluded(path string, excludedFolders []string) bool {
	normalized := filepath.ToSlash(path)
	for _, folder := range excludedFolders {
		if folder == "" {
			continue
		}
		if strings.Contains(normalized, folder) {
			return true
		}
	}
	return false
}
