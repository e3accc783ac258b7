package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/jonathan/case-importer/internal/types"
)

// Validator turns raw rows into CaseFields.
type Validator struct {
	validate    *validator.Validate
	phoneRegion string
}

// New creates a Validator. phoneRegion is the ISO region used to normalize phone
// numbers written without a country code; empty disables normalization.
func New(phoneRegion string) *Validator {
	return &Validator{
		validate:    validator.New(),
		phoneRegion: phoneRegion,
	}
}

// ValidEmail reports whether s has a standard email shape.
func (v *Validator) ValidEmail(s string) bool {
	return v.validate.Var(s, "required,email") == nil
}

// NormalizePhone applies the validator's phone region to raw.
func (v *Validator) NormalizePhone(raw string) string {
	return NormalizePhone(raw, v.phoneRegion)
}

// ValidateRow validates one row. It returns *TypeError for a contract violation and
// *RowError when one or more fields are invalid.
func (v *Validator) ValidateRow(row types.RawRow) (*types.CaseFields, error) {
	if err := CheckTypes(row); err != nil {
		return nil, err
	}

	var errs []FieldError
	fields := &types.CaseFields{}

	fields.CaseKey = CaseKey(row)
	switch {
	case fields.CaseKey == "":
		errs = append(errs, FieldError{Field: "case_id", Message: "Missing case_id"})
	case types.IsFallbackKey(fields.CaseKey):
		errs = append(errs, FieldError{Field: "case_id", Message: "Reserved case_id"})
	}

	if raw, ok := lookup(row, emailAliases); ok {
		email := Text(raw)
		if email != "" && !v.ValidEmail(email) {
			errs = append(errs, FieldError{Field: "email", Message: "Invalid email"})
		}
		fields.Email = email
	}

	if raw, ok := lookup(row, statusAliases); ok {
		if s := Text(raw); s != "" {
			st, known := types.ParseStatus(s)
			if !known || st == types.StatusFailed {
				errs = append(errs, FieldError{Field: "status", Message: "Invalid status"})
			}
			fields.Status = st
		}
	}

	if raw, ok := lookup(row, applicantNameAliases); ok {
		fields.ApplicantName = Text(raw)
	}
	if raw, ok := lookup(row, phoneAliases); ok {
		fields.Phone = v.NormalizePhone(Text(raw))
	}
	if raw, ok := lookup(row, categoryAliases); ok {
		fields.Category = Text(raw)
	}
	if raw, ok := lookup(row, dobAliases); ok {
		fields.DOB = ParseDate(raw)
	}
	if raw, ok := lookup(row, priorityAliases); ok {
		fields.Priority = CoercePriority(raw)
	}

	if len(errs) > 0 {
		return nil, &RowError{Errors: errs}
	}
	return fields, nil
}

// Salvage extracts whatever fields it can from a row that failed validation so the
// FAILED record keeps the submitted data. Invalid values are kept as text.
func (v *Validator) Salvage(row types.RawRow) *types.CaseFields {
	fields := &types.CaseFields{CaseKey: CaseKey(row), Status: types.StatusFailed}
	if raw, ok := lookup(row, applicantNameAliases); ok {
		fields.ApplicantName = Text(raw)
	}
	if raw, ok := lookup(row, emailAliases); ok {
		fields.Email = Text(raw)
	}
	if raw, ok := lookup(row, phoneAliases); ok {
		fields.Phone = v.NormalizePhone(Text(raw))
	}
	if raw, ok := lookup(row, categoryAliases); ok {
		fields.Category = Text(raw)
	}
	if raw, ok := lookup(row, dobAliases); ok {
		fields.DOB = ParseDate(raw)
	}
	if raw, ok := lookup(row, priorityAliases); ok {
		fields.Priority = CoercePriority(raw)
	}
	return fields
}
