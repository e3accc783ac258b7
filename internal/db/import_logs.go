package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultImportLogLimit = 50

// -----------------------------------------------------------------------------
// Import Log Methods
// -----------------------------------------------------------------------------

// CreateImportLog stores the summary of a reconciliation run
func (db *DB) CreateImportLog(ctx context.Context, in *ImportLogInput) (*ImportLog, error) {
	var l ImportLog
	err := db.pool.QueryRow(ctx,
		`INSERT INTO import_logs (run_by, total_rows, success_count, fail_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, run_by, total_rows, success_count, fail_count, created_at`,
		in.RunBy, in.TotalRows, in.SuccessCount, in.FailCount, in.CreatedAt,
	).Scan(&l.ID, &l.RunBy, &l.TotalRows, &l.SuccessCount, &l.FailCount, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create import log: %w", classifyWriteError(err, "", false))
	}
	return &l, nil
}

// GetImportLog retrieves an import log by ID, returning nil when absent
func (db *DB) GetImportLog(ctx context.Context, id uuid.UUID) (*ImportLog, error) {
	var l ImportLog
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_by, total_rows, success_count, fail_count, created_at
		 FROM import_logs WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.RunBy, &l.TotalRows, &l.SuccessCount, &l.FailCount, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import log: %w", err)
	}
	return &l, nil
}

// ListImportLogs retrieves recent import logs, optionally restricted to one caller
func (db *DB) ListImportLogs(ctx context.Context, runBy *uuid.UUID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = defaultImportLogLimit
	}

	query := `SELECT id, run_by, total_rows, success_count, fail_count, created_at
		FROM import_logs WHERE 1=1`
	args := []any{}
	argNum := 1

	if runBy != nil {
		query += fmt.Sprintf(" AND run_by = $%d", argNum)
		args = append(args, *runBy)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []ImportLog{}
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.RunBy, &l.TotalRows, &l.SuccessCount, &l.FailCount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteImportLogCascade deletes an import log together with the FAILED cases of
// its run and their notes, in one transaction. Cases are matched by importer and
// by imported_at within CascadeWindow of the log timestamp. It returns the number
// of cases deleted, or ErrNotFound when the log does not exist.
func (db *DB) DeleteImportLogCascade(ctx context.Context, id uuid.UUID) (int, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var l ImportLog
	err = tx.QueryRow(ctx,
		`SELECT id, run_by, created_at FROM import_logs WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&l.ID, &l.RunBy, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to lock import log: %w", err)
	}

	from := l.CreatedAt.Add(-CascadeWindow)
	to := l.CreatedAt.Add(CascadeWindow)

	_, err = tx.Exec(ctx,
		`DELETE FROM notes WHERE case_id IN (
		     SELECT id FROM cases
		     WHERE status = $1 AND imported_by = $2 AND imported_at BETWEEN $3 AND $4)`,
		CaseStatusFailed, l.RunBy, from, to,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notes of failed cases: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM cases
		 WHERE status = $1 AND imported_by = $2 AND imported_at BETWEEN $3 AND $4`,
		CaseStatusFailed, l.RunBy, from, to,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete failed cases: %w", err)
	}
	deleted := int(tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM import_logs WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("failed to delete import log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit cascade delete: %w", err)
	}
	return deleted, nil
}
