package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// caseKeyConstraint is the unique constraint on cases.case_key.
const caseKeyConstraint = "cases_case_key_key"

// ErrNotFound is returned by mutations whose target row does not exist.
var ErrNotFound = errors.New("record not found")

// KeyConflictError reports an insert whose case_key already exists.
type KeyConflictError struct {
	Key   string
	Cause error
}

func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("case key already exists: %s", e.Key)
}

func (e *KeyConflictError) Unwrap() error {
	return e.Cause
}

// ConstraintViolationError reports an integrity constraint failure other than a
// case_key conflict.
type ConstraintViolationError struct {
	Constraint string
	Message    string
	Cause      error
}

func (e *ConstraintViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint violation (%s): %s", e.Constraint, e.Message)
	}
	return fmt.Sprintf("constraint violation: %s", e.Message)
}

func (e *ConstraintViolationError) Unwrap() error {
	return e.Cause
}

// classifyWriteError converts PostgreSQL integrity errors into typed errors.
// keyConflicts selects whether a case_key unique violation is a KeyConflictError.
func classifyWriteError(err error, key string, keyConflicts bool) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	// Class 23: integrity constraint violation
	if !strings.HasPrefix(pgErr.Code, "23") {
		return err
	}
	if keyConflicts && pgErr.Code == "23505" && pgErr.ConstraintName == caseKeyConstraint {
		return &KeyConflictError{Key: key, Cause: err}
	}
	return &ConstraintViolationError{
		Constraint: pgErr.ConstraintName,
		Message:    pgErr.Message,
		Cause:      err,
	}
}
