package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/case-importer/internal/db"
)

// AddNoteRequest is the body of POST /cases/{id}/notes
type AddNoteRequest struct {
	Content string `json:"content"`
}

// parseFilter builds a case filter from query parameters. Malformed numbers and
// dates are rejected rather than ignored.
func parseFilter(r *http.Request) (db.CaseFilter, error) {
	q := r.URL.Query()
	filter := db.CaseFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Cursor:   q.Get("cursor"),
	}

	if v := q.Get("priority"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return filter, &ErrValidation{Field: "priority", Message: "must be an integer"}
		}
		filter.Priority = &p
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, &ErrValidation{Field: "limit", Message: "must be a positive integer"}
		}
		filter.Limit = n
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		t, err := parseTimeParam(v)
		if err != nil {
			return filter, &ErrValidation{Field: bound.name, Message: "must be RFC3339 or YYYY-MM-DD"}
		}
		*bound.dst = &t
	}
	return filter, nil
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

// handleListCases returns one page of cases
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.deps.Cases.List(r.Context(), caller, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if page.Cases == nil {
		page.Cases = []db.Case{}
	}
	s.jsonResponse(w, http.StatusOK, page)
}

// handleGetCase returns a case with its notes and timeline
func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	detail, err := s.deps.Cases.Get(r.Context(), caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, detail)
}

// handleUpdateCase applies a sparse patch
func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var patch map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&patch); err != nil || patch == nil {
		s.errorResponse(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}
	if len(patch) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "No fields to update")
		return
	}

	updated, err := s.deps.Cases.Update(r.Context(), caller, id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

// handleAddNote attaches a note to a case
func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := s.deps.Cases.AddNote(r.Context(), caller, id, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, note)
}
