package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/case-importer/internal/cases"
	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/importer"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "limit", Message: "must be a number"}
	assert.Equal(t, "validation error: limit - must be a number", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "fatal input", err: &importer.FatalInputError{Message: "bad", Index: -1}, expected: http.StatusBadRequest},
		{name: "field error", err: &cases.FieldError{Field: "email", Message: "Invalid email"}, expected: http.StatusBadRequest},
		{name: "run in progress", err: &importer.RunInProgressError{CallerID: uuid.New()}, expected: http.StatusConflict},
		{name: "key conflict", err: &db.KeyConflictError{Key: "A-1"}, expected: http.StatusConflict},
		{name: "import forbidden", err: &importer.ForbiddenError{Action: "delete"}, expected: http.StatusForbidden},
		{name: "case forbidden", err: &cases.ForbiddenError{Action: "view"}, expected: http.StatusForbidden},
		{name: "case not found", err: &cases.NotFoundError{Resource: "case", ID: "x"}, expected: http.StatusNotFound},
		{name: "db not found", err: db.ErrNotFound, expected: http.StatusNotFound},
		{name: "wrapped", err: fmt.Errorf("failed to delete import: %w", db.ErrNotFound), expected: http.StatusNotFound},
		{name: "wrapped field", err: fmt.Errorf("update: %w", &cases.FieldError{Field: "status"}), expected: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
