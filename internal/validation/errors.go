// Package validation validates and coerces raw import rows into typed case fields.
package validation

import (
	"fmt"
	"strings"
)

// FieldError is a single problem with one field of a row.
type FieldError struct {
	Field   string
	Message string
}

// RowError collects every field error found on one row. Its message joins the
// individual messages with "; ".
type RowError struct {
	Errors []FieldError
}

func (e *RowError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// TypeError reports a row value whose type is outside the accepted
// string | number | null union. It is a contract violation, not a row failure.
type TypeError struct {
	Field string
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("field %q has unsupported type %T", e.Field, e.Value)
}
