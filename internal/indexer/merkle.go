package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/noteflux/noteflux/internal/security"
)

// DirectoryDigest summarizes a vault's current on-disk state as a single
// hash, derived from the sorted per-file hashes of every markdown file the
// walker visits. It is a diagnostic, not part of the incremental-index
// algorithm (which compares file hashes directly — see FullReindex/
// IncrementalIndex) — useful for the serve command's health/status output to
// answer "has anything under this vault changed" without a full reindex.
type DirectoryDigest struct {
	walker Walker
}

// NewDirectoryDigest creates a DirectoryDigest using the given Walker.
func NewDirectoryDigest(walker Walker) *DirectoryDigest {
	return &DirectoryDigest{walker: walker}
}

// Hash walks root and returns a single hex digest summarizing every markdown
// file's content hash, in sorted path order (so the digest is independent of
// walk order).
func (d *DirectoryDigest) Hash(ctx context.Context, root string, excludedFolders []string) (string, error) {
	if d.walker == nil {
		return "", fmt.Errorf("walker cannot be nil")
	}

	fileHashes := map[string]string{}
	err := d.walker.Walk(ctx, root, excludedFolders, func(path string) error {
		hash, err := computeFileHash(path, root)
		if err != nil {
			return err
		}
		fileHashes[path] = hash
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}

	paths := make([]string, 0, len(fileHashes))
	for p := range fileHashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s:%s\n", p, fileHashes[p])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// computeFileHash computes the SHA256 hash of a file's contents, validating
// that path stays within basePath to guard against traversal via symlinks or
// crafted vault content.
func computeFileHash(path string, basePath string) (string, error) {
	if _, err := security.ValidatePathWithinBase(path, basePath); err != nil {
		if errors.Is(err, security.ErrPathTraversal) {
			return "", fmt.Errorf("security: path traversal detected for %s: %w", path, err)
		}
		return "", fmt.Errorf("security: invalid path %s: %w", path, err)
	}

	// #nosec G304 - path validated above with ValidatePathWithinBase
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
