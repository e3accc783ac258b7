// Package cases implements the read and single-record edit paths for cases.
package cases

import "fmt"

// NotFoundError is returned when a case does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ForbiddenError is returned when the caller neither imported the case nor holds
// an elevated role.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: not allowed to %s", e.Action)
}

// FieldError reports an invalid field in an update, note or filter.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
