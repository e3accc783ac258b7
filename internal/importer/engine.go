package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/types"
	"github.com/jonathan/case-importer/internal/validation"
)

// Defaults used when Options leaves a value unset.
const (
	DefaultBatchSize  = 100
	DefaultRowTimeout = 10 * time.Second

	// maxFallbackAttempts bounds the writes of one FAILED row: the plain fallback
	// key, then the key with a random suffix.
	maxFallbackAttempts = 2

	duplicateMessage = "Duplicate case_id in file; a later row was used"
)

// Gateway is the case store the engine writes through.
type Gateway interface {
	UpsertCaseByKey(ctx context.Context, key string, in *db.CaseInput) (*db.Case, error)
	CreateCase(ctx context.Context, in *db.CaseInput) (*db.Case, error)
	FindCaseByKey(ctx context.Context, key string) (*db.Case, error)
	CreateNote(ctx context.Context, in *db.NoteInput) (*db.Note, error)
}

// RunLocker serializes runs. IsLocked reports whether an Acquire error means the
// lock is held by another run.
type RunLocker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
	IsLocked(err error) bool
}

// Options tunes a reconciliation run.
type Options struct {
	BatchSize  int
	Workers    int
	RowTimeout time.Duration
}

// Engine reconciles batches of raw rows against the case store.
type Engine struct {
	gateway   Gateway
	recorder  *Recorder
	validator *validation.Validator
	locker    RunLocker
	logger    logrus.FieldLogger
	opts      Options

	now    func() time.Time
	suffix func() string
}

// NewEngine creates an engine. recorder may be nil, in which case no import log
// is written.
func NewEngine(gateway Gateway, recorder *Recorder, v *validation.Validator, logger logrus.FieldLogger, opts Options) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RowTimeout <= 0 {
		opts.RowTimeout = DefaultRowTimeout
	}
	return &Engine{
		gateway:   gateway,
		recorder:  recorder,
		validator: v,
		logger:    logger.WithField("component", "importer"),
		opts:      opts,
		now:       time.Now,
		suffix:    randomSuffix,
	}
}

// WithLocker enables per-caller run locking.
func (e *Engine) WithLocker(l RunLocker) *Engine {
	e.locker = l
	return e
}

// Reconcile validates and persists rows on behalf of caller and returns the run
// report. Only a FatalInputError, a RunInProgressError or a cancelled context
// fail the run as a whole; every row-level problem is reported in the result.
func (e *Engine) Reconcile(ctx context.Context, rows []types.RawRow, caller *types.Caller) (*types.ImportReport, error) {
	if err := CheckRows(rows); err != nil {
		return nil, err
	}

	if e.locker != nil && caller != nil {
		release, err := e.locker.Acquire(ctx, "case-import:"+caller.ID.String())
		if err != nil {
			if e.locker.IsLocked(err) {
				return nil, &RunInProgressError{CallerID: caller.ID}
			}
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				e.logger.WithError(err).Warn("failed to release run lock")
			}
		}()
	}

	// Postgres keeps microseconds; truncating keeps the stamp identical on read-back.
	runAt := e.now().UTC().Truncate(time.Microsecond)
	log := e.logger.WithFields(logrus.Fields{"run_at": runAt.Format(time.RFC3339Nano), "rows": len(rows)})
	log.Info("import run started")

	ordered, skipped := Normalize(rows)
	acc := newTally()

	for start := 0; start < len(ordered); start += e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("import run cancelled")
			return nil, fmt.Errorf("import cancelled: %w", err)
		}
		end := min(start+e.opts.BatchSize, len(ordered))
		e.runBatch(ctx, log, acc, ordered[start:end], start, start/e.opts.BatchSize, runAt, caller)
	}

	report := acc.report(len(rows))

	report.Warnings = append(report.Warnings, e.attachDuplicateNotes(ctx, log, skipped, acc.succeeded, caller)...)

	switch {
	case caller == nil:
		log.Warn("no caller identity; import log not written")
		report.Warnings = append(report.Warnings, "import log not written: no caller identity")
	case e.recorder != nil:
		logCtx, cancel := context.WithTimeout(ctx, e.opts.RowTimeout)
		entry, err := e.recorder.Record(logCtx, caller.ID, runAt, report)
		cancel()
		if err != nil {
			log.WithError(err).Error("failed to record import log")
			report.Warnings = append(report.Warnings, fmt.Sprintf("import log not written: %v", err))
		} else {
			id := entry.ID.String()
			report.ImportLogID = &id
		}
	}

	log.WithFields(logrus.Fields{
		"success": report.SuccessCount,
		"failed":  report.FailCount,
		"skipped": len(rows) - report.SuccessCount - report.FailCount,
	}).Info("import run finished")
	return report, nil
}

// runBatch processes one batch. With more than one worker the rows of the batch
// run concurrently; rows never share a key so their writes are independent.
func (e *Engine) runBatch(ctx context.Context, log logrus.FieldLogger, acc *tally, batch []PendingRow, base, batchNo int, runAt time.Time, caller *types.Caller) {
	if e.opts.Workers == 1 {
		for offset, row := range batch {
			e.processRow(ctx, log, acc, row, base+offset, batchNo, offset, runAt, caller)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for offset, row := range batch {
		g.Go(func() error {
			e.processRow(ctx, log, acc, row, base+offset, batchNo, offset, runAt, caller)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) processRow(ctx context.Context, log logrus.FieldLogger, acc *tally, row PendingRow, pos, batchNo, offset int, runAt time.Time, caller *types.Caller) {
	rowLog := log.WithFields(logrus.Fields{"index": row.Index, "case_key": row.Key})

	if row.Duplicate {
		acc.addError(pos, row, duplicateMessage)
		return
	}

	fields, err := e.validator.ValidateRow(row.Row)
	if err != nil {
		rowLog.WithError(err).Debug("row failed validation")
		e.storeFailed(ctx, rowLog, row, e.validator.Salvage(row.Row), err.Error(), batchNo, offset, runAt, caller)
		acc.fail(pos, row, err.Error())
		return
	}

	in := caseInput(fields, caller, runAt)
	in.Status = string(fields.Status)
	if in.Status == "" {
		in.Status = db.CaseStatusCompleted
	}

	rowCtx, cancel := context.WithTimeout(ctx, e.opts.RowTimeout)
	_, err = e.gateway.UpsertCaseByKey(rowCtx, fields.CaseKey, in)
	cancel()
	if err != nil {
		msg := persistMessage(err)
		rowLog.WithError(err).Warn("failed to persist row")
		e.storeFailed(ctx, rowLog, row, fields, msg, batchNo, offset, runAt, caller)
		acc.fail(pos, row, msg)
		return
	}
	acc.succeed(row.Key)
}

// storeFailed writes the FAILED record for a row under its fallback key. Errors
// are logged only; the row is already counted as failed.
func (e *Engine) storeFailed(ctx context.Context, log logrus.FieldLogger, row PendingRow, fields *types.CaseFields, msg string, batchNo, offset int, runAt time.Time, caller *types.Caller) {
	original := row.Key
	if original == "" {
		original = "(none)"
	}
	errMsg := fmt.Sprintf("Original case_id: %s. %s", original, msg)

	in := caseInput(fields, caller, runAt)
	in.Status = db.CaseStatusFailed
	in.ErrorMessage = &errMsg

	res := e.writeFallback(ctx, FallbackKey(runAt, batchNo, offset), in)
	if res.Err != nil {
		log.WithError(res.Err).WithField("fallback_key", res.Key).Error("failed to store FAILED case")
	}
}

// fallbackResult is the outcome of writing a FAILED record.
type fallbackResult struct {
	Key      string
	Attempts int
	Err      error
}

func (e *Engine) writeFallback(ctx context.Context, base string, in *db.CaseInput) fallbackResult {
	key := base
	var lastErr error
	for attempt := 1; attempt <= maxFallbackAttempts; attempt++ {
		in.CaseKey = key
		rowCtx, cancel := context.WithTimeout(ctx, e.opts.RowTimeout)
		_, err := e.gateway.CreateCase(rowCtx, in)
		cancel()
		if err == nil {
			return fallbackResult{Key: key, Attempts: attempt}
		}
		var conflict *db.KeyConflictError
		if !errors.As(err, &conflict) {
			return fallbackResult{Key: key, Attempts: attempt, Err: err}
		}
		lastErr = err
		key = base + "-" + e.suffix()
	}
	return fallbackResult{
		Key:      base,
		Attempts: maxFallbackAttempts,
		Err:      &PersistFatalError{Key: base, Attempts: maxFallbackAttempts, Cause: lastErr},
	}
}

// attachDuplicateNotes records on each authoritative case how many earlier rows
// with its key were ignored. It returns one warning per note that could not be written.
func (e *Engine) attachDuplicateNotes(ctx context.Context, log logrus.FieldLogger, skipped map[string]int, succeeded map[string]bool, caller *types.Caller) []string {
	keys := make([]string, 0, len(skipped))
	for k := range skipped {
		if succeeded[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var author *uuid.UUID
	if caller != nil {
		id := caller.ID
		author = &id
	}

	var warnings []string
	for _, key := range keys {
		if err := e.attachNote(ctx, key, skipped[key], author); err != nil {
			log.WithError(err).WithField("case_key", key).Warn("failed to attach duplicate note")
			warnings = append(warnings, fmt.Sprintf("duplicate note not written for %s: %v", key, err))
		}
	}
	return warnings
}

func (e *Engine) attachNote(ctx context.Context, key string, count int, author *uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.RowTimeout)
	defer cancel()

	c, err := e.gateway.FindCaseByKey(ctx, key)
	if err != nil {
		return err
	}
	if c == nil {
		return db.ErrNotFound
	}
	_, err = e.gateway.CreateNote(ctx, &db.NoteInput{
		CaseID:   c.ID,
		AuthorID: author,
		Content:  DuplicateNote(count),
	})
	return err
}

// DuplicateNote is the note text attached to a case whose key appeared more than once.
func DuplicateNote(count int) string {
	return fmt.Sprintf("%d earlier occurrence(s) ignored", count)
}

// FallbackKey is the key a FAILED row is stored under. It is unique per run,
// batch and offset within the batch.
func FallbackKey(runAt time.Time, batchNo, offset int) string {
	return fmt.Sprintf("%s%d-%d-%d", types.FallbackKeyPrefix, runAt.UnixMilli(), batchNo, offset)
}

func caseInput(fields *types.CaseFields, caller *types.Caller, runAt time.Time) *db.CaseInput {
	in := &db.CaseInput{
		CaseKey:       fields.CaseKey,
		ApplicantName: fields.ApplicantName,
		DOB:           fields.DOB,
		Email:         fields.Email,
		Phone:         fields.Phone,
		Category:      fields.Category,
		Priority:      fields.Priority,
		ImportedAt:    runAt,
	}
	if caller != nil {
		id := caller.ID
		in.ImportedBy = &id
	}
	return in
}

func persistMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Persistence timed out"
	}
	return err.Error()
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// ----- Accumulator -----

type indexedError struct {
	pos int
	err types.RowError
}

// tally accumulates row outcomes; safe for concurrent use by batch workers.
type tally struct {
	mu           sync.Mutex
	successCount int
	failCount    int
	errs         []indexedError
	succeeded    map[string]bool
}

func newTally() *tally {
	return &tally{succeeded: make(map[string]bool)}
}

func (t *tally) succeed(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successCount++
	t.succeeded[key] = true
}

func (t *tally) fail(pos int, row PendingRow, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failCount++
	t.errs = append(t.errs, indexedError{pos: pos, err: rowError(row, msg)})
}

func (t *tally) addError(pos int, row PendingRow, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, indexedError{pos: pos, err: rowError(row, msg)})
}

// report builds the run report with errors in processing order.
func (t *tally) report(total int) *types.ImportReport {
	t.mu.Lock()
	defer t.mu.Unlock()
	sort.Slice(t.errs, func(i, j int) bool { return t.errs[i].pos < t.errs[j].pos })
	errs := make([]types.RowError, 0, len(t.errs))
	for _, ie := range t.errs {
		errs = append(errs, ie.err)
	}
	return &types.ImportReport{
		TotalRows:    total,
		SuccessCount: t.successCount,
		FailCount:    t.failCount,
		Errors:       errs,
	}
}

func rowError(row PendingRow, msg string) types.RowError {
	re := types.RowError{Index: row.Index, Error: msg}
	if row.Key != "" {
		key := row.Key
		re.CaseKey = &key
	}
	return re
}
