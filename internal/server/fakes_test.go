package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/case-importer/internal/cases"
	"github.com/jonathan/case-importer/internal/config"
	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/importer"
	"github.com/jonathan/case-importer/internal/server/ratelimit"
	"github.com/jonathan/case-importer/internal/types"
)

type fakeImporter struct {
	report    *types.ImportReport
	err       error
	gotRows   []types.RawRow
	gotCaller *types.Caller
}

func (f *fakeImporter) Reconcile(_ context.Context, rows []types.RawRow, caller *types.Caller) (*types.ImportReport, error) {
	f.gotRows = rows
	f.gotCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &types.ImportReport{TotalRows: len(rows), SuccessCount: len(rows), Errors: []types.RowError{}}, nil
}

type fakeLogs struct {
	logs    map[uuid.UUID]db.ImportLog
	deleted int
}

func (f *fakeLogs) Get(_ context.Context, caller *types.Caller, id uuid.UUID) (*db.ImportLog, error) {
	entry, ok := f.logs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !caller.Owns(&entry.RunBy) {
		return nil, &importer.ForbiddenError{Action: "view this import log"}
	}
	return &entry, nil
}

func (f *fakeLogs) List(_ context.Context, caller *types.Caller, _ int) ([]db.ImportLog, error) {
	var out []db.ImportLog
	for _, entry := range f.logs {
		if caller.Owns(&entry.RunBy) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLogs) Delete(ctx context.Context, caller *types.Caller, id uuid.UUID) (int, error) {
	if _, err := f.Get(ctx, caller, id); err != nil {
		return 0, err
	}
	delete(f.logs, id)
	return f.deleted, nil
}

type fakeCases struct {
	cases     map[uuid.UUID]*db.Case
	gotFilter db.CaseFilter
	gotPatch  map[string]any
}

func (f *fakeCases) visible(caller *types.Caller, id uuid.UUID) (*db.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, &cases.NotFoundError{Resource: "case", ID: id.String()}
	}
	if !caller.Owns(c.ImportedBy) {
		return nil, &cases.ForbiddenError{Action: "view this case"}
	}
	return c, nil
}

func (f *fakeCases) List(_ context.Context, _ *types.Caller, filter db.CaseFilter) (*db.CasePage, error) {
	f.gotFilter = filter
	if filter.Status == "BOGUS" {
		return nil, &cases.FieldError{Field: "status", Message: "Invalid status"}
	}
	return &db.CasePage{}, nil
}

func (f *fakeCases) Get(_ context.Context, caller *types.Caller, id uuid.UUID) (*cases.Detail, error) {
	c, err := f.visible(caller, id)
	if err != nil {
		return nil, err
	}
	return &cases.Detail{Case: c, Notes: []db.Note{}, Timeline: cases.BuildTimeline(c, nil)}, nil
}

func (f *fakeCases) Update(_ context.Context, caller *types.Caller, id uuid.UUID, patch map[string]any) (*db.Case, error) {
	c, err := f.visible(caller, id)
	if err != nil {
		return nil, err
	}
	f.gotPatch = patch
	if v, ok := patch["applicantName"].(string); ok {
		c.ApplicantName = v
	}
	return c, nil
}

func (f *fakeCases) AddNote(_ context.Context, caller *types.Caller, caseID uuid.UUID, content string) (*db.Note, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &cases.FieldError{Field: "content", Message: "Note content is required"}
	}
	if _, err := f.visible(caller, caseID); err != nil {
		return nil, err
	}
	author := caller.ID
	return &db.Note{ID: uuid.New(), CaseID: caseID, AuthorID: &author, Content: content}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

// testEnv is a server wired to fakes plus a token issuer.
type testEnv struct {
	server   *Server
	tokens   *JWTService
	importer *fakeImporter
	logs     *fakeLogs
	cases    *fakeCases
	hook     *logtest.Hook
}

func newTestEnv(t *testing.T, rl *ratelimit.Config) *testEnv {
	t.Helper()
	logger, hook := logtest.NewNullLogger()

	env := &testEnv{
		hook:     hook,
		tokens:   NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 1}),
		importer: &fakeImporter{},
		logs:     &fakeLogs{logs: map[uuid.UUID]db.ImportLog{}},
		cases:    &fakeCases{cases: map[uuid.UUID]*db.Case{}},
	}
	env.server = New(0, Deps{
		Importer:   env.importer,
		ImportLogs: env.logs,
		Cases:      env.cases,
		Health:     fakePinger{},
		Tokens:     env.tokens.AsTokenValidator(),
		RateLimit:  rl,
		Logger:     logger,
	})
	t.Cleanup(func() {
		if env.server.rateLimiter != nil {
			env.server.rateLimiter.Stop()
		}
	})
	return env
}

func (e *testEnv) token(t *testing.T, caller *types.Caller) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(caller.ID, caller.Role)
	require.NoError(t, err)
	return tok
}

// do sends a request through the full middleware chain.
func (e *testEnv) do(t *testing.T, caller *types.Caller, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, caller))
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}
