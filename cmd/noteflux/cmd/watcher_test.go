package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithin_AcceptsPathsUnderRoot(t *testing.T) {
	root := "/vault/work"
	assert.True(t, within(root, filepath.Join(root, "notes/today.md")))
}

func TestWithin_RejectsPathsOutsideRoot(t *testing.T) {
	assert.False(t, within("/vault/work", "/vault/personal/notes.md"))
}

func TestWithin_RejectsRootItself(t *testing.T) {
	assert.False(t, within("/vault/work", "/vault/work"))
}
