// Package api - Thin, deterministic API layer
// The API is ONLY responsible for: input ingestion, lifecycle manager
// orchestration, output serialization. The API NEVER performs pricing
// or lifecycle logic.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tradein-engine/core/session"
	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
	"tradein-engine/internal/logging"
	"tradein-engine/store"
)

// Server is the API server
type Server struct {
	manager *session.Manager
	mux     *http.ServeMux
	version string
}

// NewServer creates a new API server
func NewServer(version string, manager *session.Manager) *Server {
	s := &Server{
		manager: manager,
		mux:     http.NewServeMux(),
		version: version,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Wizard endpoints
	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("PATCH /sessions/{id}/answers", s.handleUpdateAnswers)
	s.mux.HandleFunc("PUT /sessions/{id}/defects", s.handleUpdateDefects)
	s.mux.HandleFunc("PUT /sessions/{id}/accessories", s.handleUpdateAccessories)
	s.mux.HandleFunc("GET /sessions/{id}/price", s.handleGetCurrentPrice)
	s.mux.HandleFunc("POST /sessions/{id}/extend", s.handleExtendSession)
	s.mux.HandleFunc("POST /sessions/{id}/terminate", s.handleTerminateSession)
	s.mux.HandleFunc("POST /sessions/{id}/convert", s.handleMarkConverted)

	// Admin endpoints
	s.mux.HandleFunc("GET /admin/sessions", s.handleListSessions)
	s.mux.HandleFunc("PUT /admin/sessions/{id}/status", s.handleSetStatus)
	s.mux.HandleFunc("POST /admin/cleanup", s.handleCleanupExpired)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
}

// handleCreateSession handles POST /sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateCreateSession(&req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	sess, err := s.manager.Create(r.Context(), req.ProductID, req.VariantID, req.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusCreated)
}

// handleGetSession handles GET /sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleUpdateAnswers handles PATCH /sessions/{id}/answers
func (s *Server) handleUpdateAnswers(w http.ResponseWriter, r *http.Request) {
	var req UpdateAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateUpdateAnswers(&req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	sess, err := s.manager.UpdateAnswers(r.Context(), r.PathValue("id"), req.Answers, req.ExpectedVersion)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleUpdateDefects handles PUT /sessions/{id}/defects
func (s *Server) handleUpdateDefects(w http.ResponseWriter, r *http.Request) {
	var req UpdateDefectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateUpdateDefects(&req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	sess, err := s.manager.UpdateDefects(r.Context(), r.PathValue("id"), req.Defects, req.ExpectedVersion)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleUpdateAccessories handles PUT /sessions/{id}/accessories
func (s *Server) handleUpdateAccessories(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccessoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateUpdateAccessories(&req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	sess, err := s.manager.UpdateAccessories(r.Context(), r.PathValue("id"), req.Accessories, req.ExpectedVersion)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleGetCurrentPrice handles GET /sessions/{id}/price
func (s *Server) handleGetCurrentPrice(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Quote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, PriceResponse{SessionID: sess.ID, Breakdown: sess.LastBreakdown}, http.StatusOK)
}

// handleExtendSession handles POST /sessions/{id}/extend
func (s *Server) handleExtendSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Extend(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleTerminateSession handles POST /sessions/{id}/terminate
func (s *Server) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	var req TerminateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
			return
		}
	}

	sess, err := s.manager.Terminate(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleMarkConverted handles POST /sessions/{id}/convert
func (s *Server) handleMarkConverted(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.MarkConverted(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleListSessions handles GET /admin/sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		UserID: r.URL.Query().Get("user_id"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := types.ParseStatus(raw)
		if !ok {
			s.writeError(w, "VALIDATION_ERROR", "unknown status: "+raw, http.StatusBadRequest)
			return
		}
		filter.Status = status
	}

	sessions, err := s.manager.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, ListSessionsResponse{Sessions: sessions, Count: len(sessions)}, http.StatusOK)
}

// handleSetStatus handles PUT /admin/sessions/{id}/status
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if err := validateSetStatus(&req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	sess, err := s.manager.SetStatus(r.Context(), r.PathValue("id"), types.Status(req.Status))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, SessionResponse{Session: sess}, http.StatusOK)
}

// handleCleanupExpired handles POST /admin/cleanup
func (s *Server) handleCleanupExpired(w http.ResponseWriter, r *http.Request) {
	count, err := s.manager.CleanupExpired(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, CleanupResponse{Expired: count}, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "tradein-engine",
		"api_version": "v1",
	}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}, status)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
// Internal failures are logged with full context and surfaced opaque.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*apperrors.Error)
	if !ok {
		logging.Error("unclassified failure", zap.Error(err))
		s.writeError(w, string(apperrors.TypeInternal), "internal error", http.StatusInternalServerError)
		return
	}

	switch appErr.Type {
	case apperrors.TypeInvalid:
		s.writeError(w, string(appErr.Type), appErr.Message, http.StatusBadRequest)
	case apperrors.TypeNotFound:
		s.writeError(w, string(appErr.Type), appErr.Message, http.StatusNotFound)
	case apperrors.TypeConflict:
		s.writeError(w, string(appErr.Type), appErr.Message, http.StatusConflict)
	case apperrors.TypeExpired:
		s.writeError(w, string(appErr.Type), appErr.Message, http.StatusGone)
	default:
		logging.Error("internal failure", zap.Error(err))
		s.writeError(w, string(apperrors.TypeInternal), "internal error", http.StatusInternalServerError)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
