// Package apperr defines the error taxonomy shared across noteflux's core
// pipeline: indexing, embedding, reranking, and search. Call sites distinguish
// failure kinds with errors.As rather than string matching, and wrap the
// underlying cause with fmt.Errorf("...: %w", err) as usual.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// TransientBackendError wraps a failure reaching the embedding, reranker, or
// answer LLM backend (unreachable, timed out). Callers degrade gracefully
// rather than abort: VectorSearch returns an empty result set on embedding
// failure, Rerank omits the failing document, QueryWithLLM falls back to a
// context-only answer.
type TransientBackendError struct {
	Backend string // "embedding", "reranker", "answer_llm"
	Err     error
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

func (e *TransientBackendError) Unwrap() error { return e.Err }

// NewTransientBackend wraps err as a TransientBackendError for the named backend.
func NewTransientBackend(backend string, err error) error {
	return &TransientBackendError{Backend: backend, Err: err}
}

// MalformedInputError wraps an unreadable file, invalid frontmatter, or
// content too short to index. Indexer call sites log at DEBUG and skip the
// file; this error never aborts the rest of a pass.
type MalformedInputError struct {
	Path string
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// NewMalformedInput wraps err as a MalformedInputError for the given file path.
func NewMalformedInput(path string, err error) error {
	return &MalformedInputError{Path: path, Err: err}
}

// ConfigError wraps a missing or invalid configuration value discovered at
// startup (vault paths, backend URLs, ...). Surfaced outside the core
// pipeline, before any indexing or search operation begins.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err as a ConfigError for the named field.
func NewConfigError(field string, err error) error {
	return &ConfigError{Field: field, Err: err}
}

// StoreError wraps a vector or full-text store write failure. The indexer
// logs it and aborts the pipeline for that one file; the next file proceeds.
type StoreError struct {
	Op  string // "upsert", "delete", "search", ...
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err as a StoreError for the given store operation.
func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsTransientBackend reports whether err is (or wraps) a TransientBackendError.
func IsTransientBackend(err error) bool {
	var target *TransientBackendError
	return errors.As(err, &target)
}

// IsMalformedInput reports whether err is (or wraps) a MalformedInputError.
func IsMalformedInput(err error) bool {
	var target *MalformedInputError
	return errors.As(err, &target)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// IsCancelled reports whether err is (or wraps) context.Canceled — the
// idiomatic Go signal for the spec's "Cancelled" case, rather than a
// dedicated sentinel type. Operations that observe cancellation mid-pass
// return their partial results alongside this error so callers can tell
// "cancelled with partial progress" apart from "failed".
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
