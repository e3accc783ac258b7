package cases

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
	"github.com/jonathan/case-importer/internal/validation"
)

// editableFields maps request field names to case columns.
var editableFields = map[string]string{
	"applicantName": db.ColumnApplicantName,
	"email":         db.ColumnEmail,
	"phone":         db.ColumnPhone,
	"category":      db.ColumnCategory,
	"status":        db.ColumnStatus,
	"dob":           db.ColumnDOB,
	"priority":      db.ColumnPriority,
}

// Update applies a sparse patch to a case. Fields absent from patch are left
// untouched; a null value clears the field. dob and priority follow the same
// coercion as imports: unparsable values become null.
func (s *Service) Update(ctx context.Context, caller *types.Caller, id uuid.UUID, patch map[string]any) (*db.Case, error) {
	columns, err := s.columnsForPatch(patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, caller, id, "edit this case"); err != nil {
		return nil, err
	}

	c, err := s.store.UpdateCaseFields(ctx, id, columns)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, &NotFoundError{Resource: "case", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to update case: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"case_id": id,
		"caller":  caller.ID,
		"fields":  len(columns),
	}).Info("case updated")
	return c, nil
}

// columnsForPatch validates a patch and converts it to column values.
func (s *Service) columnsForPatch(patch map[string]any) (map[string]any, error) {
	names := make([]string, 0, len(patch))
	for name := range patch {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make(map[string]any, len(patch))
	for _, name := range names {
		column, ok := editableFields[name]
		if !ok {
			return nil, &FieldError{Field: name, Message: "Field cannot be edited"}
		}
		raw := patch[name]
		if err := validation.CheckTypes(types.RawRow{name: raw}); err != nil {
			return nil, &FieldError{Field: name, Message: "Unsupported value type"}
		}

		switch column {
		case db.ColumnEmail:
			email := validation.Text(raw)
			if email != "" && !s.validator.ValidEmail(email) {
				return nil, &FieldError{Field: name, Message: "Invalid email"}
			}
			columns[column] = textOrNil(email)
		case db.ColumnPhone:
			columns[column] = textOrNil(s.validator.NormalizePhone(validation.Text(raw)))
		case db.ColumnStatus:
			st, known := types.ParseStatus(validation.Text(raw))
			if !known || st == types.StatusFailed {
				return nil, &FieldError{Field: name, Message: "Invalid status"}
			}
			columns[column] = string(st)
			columns[db.ColumnErrorMessage] = nil
		case db.ColumnDOB:
			if d := validation.ParseDate(raw); d != nil {
				columns[column] = *d
			} else {
				columns[column] = nil
			}
		case db.ColumnPriority:
			if p := validation.CoercePriority(raw); p != nil {
				columns[column] = *p
			} else {
				columns[column] = nil
			}
		default:
			columns[column] = textOrNil(validation.Text(raw))
		}
	}
	return columns, nil
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
