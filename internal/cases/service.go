package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
	"github.com/jonathan/case-importer/internal/validation"
)

// Store is the persistence used by Service.
type Store interface {
	GetCase(ctx context.Context, id uuid.UUID) (*db.Case, error)
	ListCases(ctx context.Context, filter db.CaseFilter) (*db.CasePage, error)
	UpdateCaseFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*db.Case, error)
	ListNotesByCase(ctx context.Context, caseID uuid.UUID) ([]db.Note, error)
	CreateNote(ctx context.Context, in *db.NoteInput) (*db.Note, error)
}

// Service serves case listings, details and edits with role-scoped access.
type Service struct {
	store     Store
	validator *validation.Validator
	logger    logrus.FieldLogger
}

// NewService creates a Service.
func NewService(store Store, v *validation.Validator, logger logrus.FieldLogger) *Service {
	return &Service{store: store, validator: v, logger: logger.WithField("component", "cases")}
}

// List returns one page of cases. Callers without an elevated role only see
// cases they imported.
func (s *Service) List(ctx context.Context, caller *types.Caller, filter db.CaseFilter) (*db.CasePage, error) {
	if caller == nil {
		return nil, &ForbiddenError{Action: "list cases"}
	}
	if filter.Status != "" {
		st, ok := types.ParseStatus(filter.Status)
		if !ok {
			return nil, &FieldError{Field: "status", Message: "Invalid status"}
		}
		filter.Status = string(st)
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, &FieldError{Field: "from", Message: "from must be before to"}
	}
	if caller.IsElevated() {
		filter.ImportedBy = nil
	} else {
		id := caller.ID
		filter.ImportedBy = &id
	}

	page, err := s.store.ListCases(ctx, filter)
	if err != nil {
		var ce *db.InvalidCursorError
		if errors.As(err, &ce) {
			return nil, &FieldError{Field: "cursor", Message: "Invalid cursor"}
		}
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return page, nil
}

// Get returns a visible case together with its notes and timeline.
func (s *Service) Get(ctx context.Context, caller *types.Caller, id uuid.UUID) (*Detail, error) {
	c, err := s.authorize(ctx, caller, id, "view this case")
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotesByCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return &Detail{Case: c, Notes: notes, Timeline: BuildTimeline(c, notes)}, nil
}

// AddNote attaches a free-text note authored by the caller.
func (s *Service) AddNote(ctx context.Context, caller *types.Caller, caseID uuid.UUID, content string) (*db.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &FieldError{Field: "content", Message: "Note content is required"}
	}
	if _, err := s.authorize(ctx, caller, caseID, "annotate this case"); err != nil {
		return nil, err
	}
	author := caller.ID
	note, err := s.store.CreateNote(ctx, &db.NoteInput{CaseID: caseID, AuthorID: &author, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// authorize loads a case and checks the caller may act on it.
func (s *Service) authorize(ctx context.Context, caller *types.Caller, id uuid.UUID, action string) (*db.Case, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if c == nil {
		return nil, &NotFoundError{Resource: "case", ID: id.String()}
	}
	if !caller.Owns(c.ImportedBy) {
		return nil, &ForbiddenError{Action: action}
	}
	return c, nil
}
