package db

import (
	"time"

	"github.com/google/uuid"
)

// CascadeWindow is the tolerance applied when matching FAILED cases to the
// timestamp of their import log.
const CascadeWindow = 5 * time.Second

// ImportLog is the summary record of one reconciliation run
type ImportLog struct {
	ID           uuid.UUID `json:"id"`
	RunBy        uuid.UUID `json:"run_by"`
	TotalRows    int       `json:"total_rows"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImportLogInput holds the fields of a new import log
type ImportLogInput struct {
	RunBy        uuid.UUID
	TotalRows    int
	SuccessCount int
	FailCount    int
	CreatedAt    time.Time
}

// Note is a free-text annotation on a case
type Note struct {
	ID        uuid.UUID  `json:"id"`
	CaseID    uuid.UUID  `json:"case_id"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
}

// NoteInput holds the fields of a new note
type NoteInput struct {
	CaseID   uuid.UUID
	AuthorID *uuid.UUID
	Content  string
}
