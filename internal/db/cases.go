package db

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const caseColumns = `id, case_key, applicant_name, dob, email, phone, category, priority, status,
	imported_by, imported_at, error_message, created_at, updated_at`

const (
	defaultCaseLimit = 50
	maxCaseLimit     = 200
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*Case, error) {
	var c Case
	var name, email, phone, category *string
	var dob *time.Time
	var priority *int16
	err := row.Scan(&c.ID, &c.CaseKey, &name, &dob, &email, &phone, &category, &priority, &c.Status,
		&c.ImportedBy, &c.ImportedAt, &c.ErrorMessage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ApplicantName = derefString(name)
	c.Email = derefString(email)
	c.Phone = derefString(phone)
	c.Category = derefString(category)
	c.DOB = NewDate(dob)
	if priority != nil {
		p := int(*priority)
		c.Priority = &p
	}
	return &c, nil
}

func caseArgs(in *CaseInput) []any {
	return []any{
		in.CaseKey, nullIfEmpty(in.ApplicantName), in.DOB, nullIfEmpty(in.Email),
		nullIfEmpty(in.Phone), nullIfEmpty(in.Category), in.Priority, in.Status,
		in.ImportedBy, in.ImportedAt, in.ErrorMessage,
	}
}

// -----------------------------------------------------------------------------
// Case Methods
// -----------------------------------------------------------------------------

// UpsertCaseByKey inserts a case or overwrites the existing case with the same key
// in a single statement. A conflict on case_key is resolved by the upsert itself,
// so any integrity error returned is a *ConstraintViolationError on another rule.
func (db *DB) UpsertCaseByKey(ctx context.Context, key string, in *CaseInput) (*Case, error) {
	input := *in
	input.CaseKey = key
	row := db.pool.QueryRow(ctx,
		`INSERT INTO cases (case_key, applicant_name, dob, email, phone, category, priority, status,
		                    imported_by, imported_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (case_key) DO UPDATE SET
		     applicant_name = EXCLUDED.applicant_name,
		     dob = EXCLUDED.dob,
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     category = EXCLUDED.category,
		     priority = EXCLUDED.priority,
		     status = EXCLUDED.status,
		     imported_by = EXCLUDED.imported_by,
		     imported_at = EXCLUDED.imported_at,
		     error_message = EXCLUDED.error_message,
		     updated_at = NOW()
		 RETURNING `+caseColumns,
		caseArgs(&input)...,
	)
	c, err := scanCase(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert case %s: %w", key, classifyWriteError(err, key, false))
	}
	return c, nil
}

// CreateCase inserts a new case. A duplicate case_key yields *KeyConflictError.
func (db *DB) CreateCase(ctx context.Context, in *CaseInput) (*Case, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO cases (case_key, applicant_name, dob, email, phone, category, priority, status,
		                    imported_by, imported_at, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+caseColumns,
		caseArgs(in)...,
	)
	c, err := scanCase(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create case %s: %w", in.CaseKey, classifyWriteError(err, in.CaseKey, true))
	}
	return c, nil
}

// FindCaseByKey retrieves a case by business key, returning nil when absent.
func (db *DB) FindCaseByKey(ctx context.Context, key string) (*Case, error) {
	c, err := scanCase(db.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE case_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find case %s: %w", key, err)
	}
	return c, nil
}

// GetCase retrieves a case by ID, returning nil when absent.
func (db *DB) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := scanCase(db.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// UpdateCaseFields sets the given columns on one case. Keys must be updatable
// column names; values are written as-is (nil clears the column).
func (db *DB) UpdateCaseFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*Case, error) {
	if len(fields) == 0 {
		c, err := db.GetCase(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ErrNotFound
		}
		return c, nil
	}

	var sets []string
	var args []any
	argNum := 1
	for _, col := range sortedKeys(fields) {
		if !updatableColumns[col] {
			return nil, fmt.Errorf("column %q cannot be updated", col)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, fields[col])
		argNum++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE cases SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), argNum, caseColumns)

	c, err := scanCase(db.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update case: %w", classifyWriteError(err, "", false))
	}
	return c, nil
}

// ListCases retrieves a page of cases, newest first, with optional filters.
func (db *DB) ListCases(ctx context.Context, filter CaseFilter) (*CasePage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCaseLimit
	}
	if limit > maxCaseLimit {
		limit = maxCaseLimit
	}

	query := `SELECT ` + caseColumns + ` FROM cases WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, filter.Category)
		argNum++
	}
	if filter.Priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argNum)
		args = append(args, *filter.Priority)
		argNum++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND imported_at >= $%d", argNum)
		args = append(args, *filter.From)
		argNum++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND imported_at < $%d", argNum)
		args = append(args, *filter.To)
		argNum++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(" AND (case_key ILIKE $%d OR applicant_name ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+filter.Query+"%")
		argNum++
	}
	if filter.ImportedBy != nil {
		query += fmt.Sprintf(" AND imported_by = $%d", argNum)
		args = append(args, *filter.ImportedBy)
		argNum++
	}
	if filter.Cursor != "" {
		createdAt, id, err := DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argNum, argNum+1)
		args = append(args, createdAt, id)
		argNum += 2
	}

	// Fetch one extra row to learn whether another page exists
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argNum)
	args = append(args, limit+1)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	page := &CasePage{Cases: []Case{}}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		page.Cases = append(page.Cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	if len(page.Cases) > limit {
		page.Cases = page.Cases[:limit]
		last := page.Cases[limit-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// InvalidCursorError reports a cursor that could not be decoded.
type InvalidCursorError struct {
	Cursor string
}

func (e *InvalidCursorError) Error() string {
	return fmt.Sprintf("invalid cursor: %q", e.Cursor)
}

// EncodeCursor builds an opaque keyset cursor from a row's sort key.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(createdAt.UnixNano(), 10) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, &InvalidCursorError{Cursor: cursor}
	}
	nanos, idStr, ok := strings.Cut(string(raw), "|")
	if !ok {
		return time.Time{}, uuid.Nil, &InvalidCursorError{Cursor: cursor}
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, &InvalidCursorError{Cursor: cursor}
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return time.Time{}, uuid.Nil, &InvalidCursorError{Cursor: cursor}
	}
	return time.Unix(0, n).UTC(), id, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
