package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Case status values as stored in cases.status
const (
	CaseStatusNew        = "NEW"
	CaseStatusProcessing = "PROCESSING"
	CaseStatusCompleted  = "COMPLETED"
	CaseStatusFailed     = "FAILED"
)

// Case represents an applicant case record
type Case struct {
	ID            uuid.UUID  `json:"id"`
	CaseKey       string     `json:"case_key"`
	ApplicantName string     `json:"applicant_name,omitempty"`
	DOB           *Date      `json:"dob,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Category      string     `json:"category,omitempty"`
	Priority      *int       `json:"priority,omitempty"`
	Status        string     `json:"status"`
	ImportedBy    *uuid.UUID `json:"imported_by,omitempty"`
	ImportedAt    *time.Time `json:"imported_at,omitempty"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CaseInput holds the fields written by an insert or upsert.
type CaseInput struct {
	CaseKey       string
	ApplicantName string
	DOB           *time.Time
	Email         string
	Phone         string
	Category      string
	Priority      *int
	Status        string
	ImportedBy    *uuid.UUID
	ImportedAt    time.Time
	ErrorMessage  *string
}

// CaseFilter holds optional filters for listing cases
type CaseFilter struct {
	Status     string
	Category   string
	Priority   *int
	From       *time.Time // imported_at lower bound, inclusive
	To         *time.Time // imported_at upper bound, exclusive
	Query      string     // substring of case_key or applicant_name
	ImportedBy *uuid.UUID // restricts to one importer when set
	Cursor     string
	Limit      int
}

// CasePage is one page of a case listing.
type CasePage struct {
	Cases      []Case `json:"cases"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Updatable case columns for partial updates
const (
	ColumnApplicantName = "applicant_name"
	ColumnEmail         = "email"
	ColumnPhone         = "phone"
	ColumnCategory      = "category"
	ColumnStatus        = "status"
	ColumnDOB           = "dob"
	ColumnPriority      = "priority"
	ColumnErrorMessage  = "error_message"
)

var updatableColumns = map[string]bool{
	ColumnApplicantName: true,
	ColumnEmail:         true,
	ColumnPhone:         true,
	ColumnCategory:      true,
	ColumnStatus:        true,
	ColumnDOB:           true,
	ColumnPriority:      true,
	ColumnErrorMessage:  true,
}

// Date is a custom type for handling SQL DATE (YYYY-MM-DD)
type Date struct {
	time.Time
}

// NewDate wraps t, returning nil for a nil time.
func NewDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// MarshalJSON implements json.Marshaler
func (d *Date) MarshalJSON() ([]byte, error) {
	if d == nil || d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	// Trim quotes
	if len(str) > 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	var err error
	d.Time, err = time.Parse("2006-01-02", str)
	return err
}
