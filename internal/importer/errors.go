// Package importer reconciles batches of raw case rows against the case store.
package importer

import (
	"fmt"

	"github.com/google/uuid"
)

// FatalInputError rejects a whole run before anything is persisted. It is raised
// when the batch is not a list of rows or a row carries a value outside the
// string | number | null union.
type FatalInputError struct {
	Message string
	Index   int // row position, -1 when the batch itself is malformed
	Cause   error
}

func (e *FatalInputError) Error() string {
	prefix := "invalid import batch"
	if e.Index >= 0 {
		prefix = fmt.Sprintf("invalid import batch: row %d", e.Index)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *FatalInputError) Unwrap() error {
	return e.Cause
}

// RunInProgressError is returned when the caller already has an import running.
type RunInProgressError struct {
	CallerID uuid.UUID
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("an import is already running for caller %s", e.CallerID)
}

// PersistFatalError reports a FAILED row that could not be stored under any
// fallback key.
type PersistFatalError struct {
	Key      string
	Attempts int
	Cause    error
}

func (e *PersistFatalError) Error() string {
	return fmt.Sprintf("fallback key %s still conflicting after %d attempts: %v", e.Key, e.Attempts, e.Cause)
}

func (e *PersistFatalError) Unwrap() error {
	return e.Cause
}

// ForbiddenError is returned when the caller may not act on an import log.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: not allowed to %s", e.Action)
}
