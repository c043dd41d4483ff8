package sync

import (
	"errors"
	"fmt"
)

// Error kinds. Per-item failures wrap one of these in an ItemError so callers
// can classify them with errors.Is.
var (
	ErrRead        = errors.New("read error")
	ErrWrite       = errors.New("write error")
	ErrConflict    = errors.New("conflict")
	ErrStatePolicy = errors.New("state policy violation")
	ErrTransport   = errors.New("transport error")
	ErrValidation  = errors.New("validation error")
	ErrManifest    = errors.New("manifest error")
)

// ItemError describes why a single item did not succeed.
type ItemError struct {
	Kind error
	Path string
	Err  error
}

func newItemError(kind error, path string, err error) *ItemError {
	return &ItemError{Kind: kind, Path: path, Err: err}
}

func (e *ItemError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ItemError) Is(target error) bool {
	return target == e.Kind
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ValidationError rejects an illegal scope before anything is scheduled.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scope: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
