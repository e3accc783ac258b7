package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/case-importer/internal/cases"
	"github.com/jonathan/case-importer/internal/config"
	"github.com/jonathan/case-importer/internal/db"
	"github.com/jonathan/case-importer/internal/server/middleware"
	"github.com/jonathan/case-importer/internal/server/ratelimit"
	"github.com/jonathan/case-importer/internal/types"
)

// Importer runs reconciliation for a batch of rows.
type Importer interface {
	Reconcile(ctx context.Context, rows []types.RawRow, caller *types.Caller) (*types.ImportReport, error)
}

// ImportLogs reads and deletes import logs on behalf of a caller.
type ImportLogs interface {
	Get(ctx context.Context, caller *types.Caller, id uuid.UUID) (*db.ImportLog, error)
	List(ctx context.Context, caller *types.Caller, limit int) ([]db.ImportLog, error)
	Delete(ctx context.Context, caller *types.Caller, id uuid.UUID) (int, error)
}

// CaseService serves the case read and edit paths.
type CaseService interface {
	List(ctx context.Context, caller *types.Caller, filter db.CaseFilter) (*db.CasePage, error)
	Get(ctx context.Context, caller *types.Caller, id uuid.UUID) (*cases.Detail, error)
	Update(ctx context.Context, caller *types.Caller, id uuid.UUID, patch map[string]any) (*db.Case, error)
	AddNote(ctx context.Context, caller *types.Caller, caseID uuid.UUID, content string) (*db.Note, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer dispatches to.
type Deps struct {
	Importer   Importer
	ImportLogs ImportLogs
	Cases      CaseService
	Health     Pinger // optional
	Tokens     middleware.TokenValidator
	RateLimit  *ratelimit.Config // nil disables rate limiting
	Logger     logrus.FieldLogger
}

// maxImportBody caps the size of an import request body.
const maxImportBody = 32 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	deps        Deps
	logger      logrus.FieldLogger
	rateLimiter *ratelimit.Limiter
	handler     http.Handler
}

// New wires the routes and middleware around deps.
func New(port int, deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: deps.Logger.WithField("component", "server"),
	}
	if deps.RateLimit != nil && deps.RateLimit.Enabled {
		s.rateLimiter = ratelimit.NewLimiter(deps.RateLimit)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /imports", s.protected(s.handleCreateImport))
	mux.Handle("GET /imports", s.protected(s.handleListImports))
	mux.Handle("GET /imports/{id}", s.protected(s.handleGetImport))
	mux.Handle("DELETE /imports/{id}", s.protected(s.handleDeleteImport))

	mux.Handle("GET /cases", s.protected(s.handleListCases))
	mux.Handle("GET /cases/{id}", s.protected(s.handleGetCase))
	mux.Handle("PATCH /cases/{id}", s.protected(s.handleUpdateCase))
	mux.Handle("POST /cases/{id}/notes", s.protected(s.handleAddNote))

	s.handler = s.withLogging(s.withCORS(mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // large imports run synchronously
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.logger.Info("server stopped")
	return nil
}

// protected requires a bearer token and applies per-caller rate limits.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.AuthMiddleware(s.deps.Tokens)(s.withRateLimit(h))
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles by caller when authenticated, by address otherwise.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request completed")
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status. Internal errors are logged and masked.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(s.logger, "server", r.Method+" "+r.URL.Path, nil, err)
		s.errorResponse(w, status, "Internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID returns the caller ID when authenticated, else the remote IP.
func (s *Server) extractClientID(r *http.Request) string {
	if caller, err := middleware.GetCaller(r); err == nil {
		return caller.ID.String()
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if secs := int(info.RetryAfter.Seconds()); secs > 0 {
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.WithFields(logrus.Fields{
		"limit":    info.Limit,
		"reset_at": info.ResetTime.Format(time.RFC3339),
	}).Warn("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// callerOrAbort fetches the authenticated caller or writes 401.
func (s *Server) callerOrAbort(w http.ResponseWriter, r *http.Request) (*types.Caller, bool) {
	caller, err := middleware.GetCaller(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return caller, true
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}
