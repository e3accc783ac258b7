package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/importer"
)

// ListImportsResponse represents the response for listing import logs
type ListImportsResponse struct {
	ImportLogs []db.ImportLog `json:"import_logs"`
	Count      int            `json:"count"`
}

// DeleteImportResponse reports how many FAILED cases a cascade removed.
type DeleteImportResponse struct {
	DeletedCases int `json:"deleted_cases"`
}

// parseQueryInt reads a non-negative integer query parameter, falling back to
// defaultValue when absent or invalid and clamping to maxValue when positive.
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// handleCreateImport reconciles the posted batch and returns its report
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	rows, err := importer.ParseBatch(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.deps.Importer.Reconcile(r.Context(), rows, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleListImports lists import logs visible to the caller
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}

	logs, err := s.deps.ImportLogs.List(r.Context(), caller, parseQueryInt(r, "limit", 50, 200))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []db.ImportLog{}
	}
	s.jsonResponse(w, http.StatusOK, ListImportsResponse{ImportLogs: logs, Count: len(logs)})
}

// handleGetImport retrieves one import log
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.deps.ImportLogs.Get(r.Context(), caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

// handleDeleteImport deletes an import log and the FAILED cases of its run
func (s *Server) handleDeleteImport(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerOrAbort(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	deleted, err := s.deps.ImportLogs.Delete(r.Context(), caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, DeleteImportResponse{DeletedCases: deleted})
}
