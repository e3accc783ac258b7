package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Note Methods
// -----------------------------------------------------------------------------

// CreateNote attaches a note to a case
func (db *DB) CreateNote(ctx context.Context, in *NoteInput) (*Note, error) {
	var n Note
	err := db.pool.QueryRow(ctx,
		`INSERT INTO notes (case_id, author_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, case_id, author_id, content, created_at`,
		in.CaseID, in.AuthorID, in.Content,
	).Scan(&n.ID, &n.CaseID, &n.AuthorID, &n.Content, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", classifyWriteError(err, "", false))
	}
	return &n, nil
}

// ListNotesByCase retrieves all notes of a case, oldest first
func (db *DB) ListNotesByCase(ctx context.Context, caseID uuid.UUID) ([]Note, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, case_id, author_id, content, created_at
		 FROM notes WHERE case_id = $1 ORDER BY created_at ASC`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.CaseID, &n.AuthorID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
