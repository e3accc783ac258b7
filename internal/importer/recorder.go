package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
)

// LogStore persists import logs.
type LogStore interface {
	CreateImportLog(ctx context.Context, in *db.ImportLogInput) (*db.ImportLog, error)
	GetImportLog(ctx context.Context, id uuid.UUID) (*db.ImportLog, error)
	ListImportLogs(ctx context.Context, runBy *uuid.UUID, limit int) ([]db.ImportLog, error)
	DeleteImportLogCascade(ctx context.Context, id uuid.UUID) (int, error)
}

// Recorder writes one import log per run and manages existing logs.
type Recorder struct {
	store  LogStore
	logger logrus.FieldLogger
}

// NewRecorder creates a Recorder.
func NewRecorder(store LogStore, logger logrus.FieldLogger) *Recorder {
	return &Recorder{store: store, logger: logger.WithField("component", "recorder")}
}

// Record persists the summary of a finished run. runAt must be the timestamp the
// run stamped on its cases; the cascade delete joins on it.
func (r *Recorder) Record(ctx context.Context, runBy uuid.UUID, runAt time.Time, report *types.ImportReport) (*db.ImportLog, error) {
	entry, err := r.store.CreateImportLog(ctx, &db.ImportLogInput{
		RunBy:        runBy,
		TotalRows:    report.TotalRows,
		SuccessCount: report.SuccessCount,
		FailCount:    report.FailCount,
		CreatedAt:    runAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create import log: %w", err)
	}
	return entry, nil
}

// Get returns a log visible to the caller.
func (r *Recorder) Get(ctx context.Context, caller *types.Caller, id uuid.UUID) (*db.ImportLog, error) {
	entry, err := r.store.GetImportLog(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get import log: %w", err)
	}
	if entry == nil {
		return nil, db.ErrNotFound
	}
	if !caller.Owns(&entry.RunBy) {
		return nil, &ForbiddenError{Action: "view this import log"}
	}
	return entry, nil
}

// List returns the caller's logs newest first; elevated callers see all logs.
func (r *Recorder) List(ctx context.Context, caller *types.Caller, limit int) ([]db.ImportLog, error) {
	if caller == nil {
		return nil, &ForbiddenError{Action: "list import logs"}
	}
	var runBy *uuid.UUID
	if !caller.IsElevated() {
		id := caller.ID
		runBy = &id
	}
	logs, err := r.store.ListImportLogs(ctx, runBy, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	return logs, nil
}

// Delete removes a log together with the FAILED cases of its run. Only the
// caller who ran the import or an elevated caller may delete it.
func (r *Recorder) Delete(ctx context.Context, caller *types.Caller, id uuid.UUID) (int, error) {
	entry, err := r.store.GetImportLog(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get import log: %w", err)
	}
	if entry == nil {
		return 0, db.ErrNotFound
	}
	if !caller.Owns(&entry.RunBy) {
		return 0, &ForbiddenError{Action: "delete this import log"}
	}

	deleted, err := r.store.DeleteImportLogCascade(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import log: %w", err)
	}
	r.logger.WithFields(logrus.Fields{
		"import_log_id": id,
		"deleted_cases": deleted,
		"caller":        caller.ID,
	}).Info("import log deleted")
	return deleted, nil
}
