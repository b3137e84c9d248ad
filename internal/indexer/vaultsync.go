package indexer

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// SyncVaultGit fast-forwards root if it's a git working tree, ahead of a
// scheduled full/incremental pass. A vault that isn't a git repo, or one
// that's already up to date, is not an error.
func SyncVaultGit(root string) error {
	repo, err := git.PlainOpen(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil
		}
		return fmt.Errorf("open vault git repo %s: %w", root, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("vault worktree %s: %w", root, err)
	}

	if err := wt.Pull(&git.PullOptions{}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fmt.Errorf("pull vault %s: %w", root, err)
	}
	return nil
}
