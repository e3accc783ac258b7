// Package server provides the HTTP API for case imports and case records.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/case-importer/internal/cases"
	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/importer"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		inputErr      *importer.FatalInputError
		fieldErr      *cases.FieldError
		runErr        *importer.RunInProgressError
		keyErr        *db.KeyConflictError
		importForbid  *importer.ForbiddenError
		caseForbid    *cases.ForbiddenError
		notFound      *cases.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &inputErr), errors.As(err, &fieldErr):
		return http.StatusBadRequest
	case errors.As(err, &importForbid), errors.As(err, &caseForbid):
		return http.StatusForbidden
	case errors.As(err, &notFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &runErr), errors.As(err, &keyErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
