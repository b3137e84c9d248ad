package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientBackendError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransientBackend("embedding", cause)

	assert.True(t, IsTransientBackend(err))
	assert.False(t, IsMalformedInput(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embedding")
}

func TestMalformedInputError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("missing frontmatter delimiter")
	err := NewMalformedInput("notes/broken.md", cause)

	assert.True(t, IsMalformedInput(err))
	assert.False(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "notes/broken.md")
}

func TestConfigError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("must not be empty")
	err := NewConfigError("vaults.work", cause)

	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "vaults.work")
}

func TestStoreError_WrapsAndUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStoreError("upsert", cause)

	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "upsert")
}

func TestIsCancelled_DetectsContextCanceledThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("indexing aborted: %w", context.Canceled)
	assert.True(t, IsCancelled(wrapped))
	assert.False(t, IsCancelled(errors.New("some other failure")))
}

func TestErrorPredicates_DoNotMisclassifyUnrelatedErrors(t *testing.T) {
	plain := errors.New("boring error")
	assert.False(t, IsTransientBackend(plain))
	assert.False(t, IsMalformedInput(plain))
	assert.False(t, IsConfigError(plain))
	assert.False(t, IsStoreError(plain))
}
