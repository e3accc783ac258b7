package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/case-importer/internal/db"
)

// fakeStore is an in-memory Gateway and LogStore.
type fakeStore struct {
	mu    sync.Mutex
	cases map[string]*db.Case
	notes []db.Note
	logs  []db.ImportLog

	upsertErr map[string]error
	slowKeys  map[string]bool
	noteErr   error
	logErr    error
	slowNotes bool
	slowLogs  bool

	createAttempts []string
	upsertCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:     make(map[string]*db.Case),
		upsertErr: make(map[string]error),
		slowKeys:  make(map[string]bool),
	}
}

func (f *fakeStore) seed(key string) {
	f.cases[key] = &db.Case{ID: uuid.New(), CaseKey: key, Status: db.CaseStatusCompleted}
}

func (f *fakeStore) UpsertCaseByKey(ctx context.Context, key string, in *db.CaseInput) (*db.Case, error) {
	f.mu.Lock()
	slow := f.slowKeys[key]
	injected := f.upsertErr[key]
	f.upsertCalls++
	f.mu.Unlock()

	if slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if injected != nil {
		return nil, injected
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.cases[key]
	c := toCase(in)
	if ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	f.cases[key] = c
	return c, nil
}

func (f *fakeStore) CreateCase(_ context.Context, in *db.CaseInput) (*db.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createAttempts = append(f.createAttempts, in.CaseKey)
	if _, ok := f.cases[in.CaseKey]; ok {
		return nil, &db.KeyConflictError{Key: in.CaseKey}
	}
	c := toCase(in)
	f.cases[in.CaseKey] = c
	return c, nil
}

func (f *fakeStore) FindCaseByKey(_ context.Context, key string) (*db.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[key]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (f *fakeStore) CreateNote(ctx context.Context, in *db.NoteInput) (*db.Note, error) {
	if f.slowNotes {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noteErr != nil {
		return nil, f.noteErr
	}
	n := db.Note{ID: uuid.New(), CaseID: in.CaseID, AuthorID: in.AuthorID, Content: in.Content, CreatedAt: time.Now()}
	f.notes = append(f.notes, n)
	return &n, nil
}

func (f *fakeStore) CreateImportLog(ctx context.Context, in *db.ImportLogInput) (*db.ImportLog, error) {
	if f.slowLogs {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logErr != nil {
		return nil, f.logErr
	}
	if in.SuccessCount+in.FailCount > in.TotalRows {
		return nil, &db.ConstraintViolationError{Constraint: "import_logs_counts_check", Message: "counts exceed total"}
	}
	l := db.ImportLog{
		ID:           uuid.New(),
		RunBy:        in.RunBy,
		TotalRows:    in.TotalRows,
		SuccessCount: in.SuccessCount,
		FailCount:    in.FailCount,
		CreatedAt:    in.CreatedAt,
	}
	f.logs = append(f.logs, l)
	return &l, nil
}

func (f *fakeStore) GetImportLog(_ context.Context, id uuid.UUID) (*db.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.logs {
		if f.logs[i].ID == id {
			l := f.logs[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListImportLogs(_ context.Context, runBy *uuid.UUID, _ int) ([]db.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.ImportLog
	for _, l := range f.logs {
		if runBy == nil || l.RunBy == *runBy {
			out = append(out, l)
		}
	}
	return out, nil
}

// DeleteImportLogCascade mirrors the SQL cascade: FAILED cases of the same
// importer within the window of the log timestamp.
func (f *fakeStore) DeleteImportLogCascade(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i := range f.logs {
		if f.logs[i].ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return 0, db.ErrNotFound
	}
	entry := f.logs[idx]
	deleted := 0
	for key, c := range f.cases {
		if c.Status != db.CaseStatusFailed || c.ImportedBy == nil || *c.ImportedBy != entry.RunBy || c.ImportedAt == nil {
			continue
		}
		diff := c.ImportedAt.Sub(entry.CreatedAt)
		if diff < -db.CascadeWindow || diff > db.CascadeWindow {
			continue
		}
		delete(f.cases, key)
		deleted++
	}
	f.logs = append(f.logs[:idx], f.logs[idx+1:]...)
	return deleted, nil
}

func (f *fakeStore) failedCases() []*db.Case {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*db.Case
	for _, c := range f.cases {
		if c.Status == db.CaseStatusFailed {
			out = append(out, c)
		}
	}
	return out
}

func toCase(in *db.CaseInput) *db.Case {
	at := in.ImportedAt
	return &db.Case{
		ID:            uuid.New(),
		CaseKey:       in.CaseKey,
		ApplicantName: in.ApplicantName,
		DOB:           db.NewDate(in.DOB),
		Email:         in.Email,
		Phone:         in.Phone,
		Category:      in.Category,
		Priority:      in.Priority,
		Status:        in.Status,
		ImportedBy:    in.ImportedBy,
		ImportedAt:    &at,
		ErrorMessage:  in.ErrorMessage,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

// fakeLocker holds at most one lock per key.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released int
}

var errFakeLocked = errors.New("lock held")

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, errFakeLocked
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released++
		return nil
	}, nil
}

func (l *fakeLocker) IsLocked(err error) bool {
	return errors.Is(err, errFakeLocked)
}
