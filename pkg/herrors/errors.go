// Package herrors defines the typed error taxonomy the store event
// handler returns to its callers. The core never retries; every failure
// is one of these, wrapping the underlying cause where there is one.
package herrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParam covers unknown store/event kinds, ID overflow, and
	// malformed iterator bounds.
	ErrInvalidParam = errors.New("invalid_param")
	// ErrStorageFailure covers any KV-level error during commit, read, or
	// prune.
	ErrStorageFailure = errors.New("storage_failure")
	// ErrTooBusy is returned when the commit slot's queue is full or the
	// wait for it timed out.
	ErrTooBusy = errors.New("too_busy")
	// ErrNotFound is returned by GetEvent for an absent ID.
	ErrNotFound = errors.New("not_found")
)

// InvalidParam wraps ErrInvalidParam with context.
func InvalidParam(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))
}

// StorageFailure wraps an underlying KV error as ErrStorageFailure.
func StorageFailure(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageFailure, op, cause)
}

// TooBusy wraps ErrTooBusy with context.
func TooBusy(reason string) error {
	return fmt.Errorf("%w: %s", ErrTooBusy, reason)
}

// NotFound wraps ErrNotFound with context.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}
