package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aurin/impact-dashboard/internal/domain"
)

// maxRequestBodySize caps JSON request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// createSessionRequest is the JSON request body for opening a session.
type createSessionRequest struct {
	APIKey string `json:"api_key"`
}

// createSession handles POST /api/v1/sessions. It opens a session and runs
// the initial load synchronously; an upstream failure still creates the
// session, in the failed state.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req createSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	// An empty api_key is allowed when the service carries an
	// operator-provisioned default; the service rejects it otherwise.
	snap := s.service.CreateSession()
	loaded, err := s.service.Load(r.Context(), snap.ID, req.APIKey)
	if err != nil {
		// Load errors are pre-flight failures; the session is unusable.
		_ = s.service.CloseSession(snap.ID)
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snapshotToResponse(loaded))
}

// deleteSession handles DELETE /api/v1/sessions.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	if err := s.service.CloseSession(sessionID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getDashboard handles GET /api/v1/dashboard. A failed session returns its
// error alongside an empty element list.
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	view, err := s.service.Render(sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(view))
}

// refreshDashboard handles POST /api/v1/dashboard/refresh. It re-runs the
// load with the session's stored credential.
func (s *Server) refreshDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}

	snap, err := s.service.Refresh(r.Context(), sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToResponse(snap))
}

// writeServiceError maps domain errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, "a load is already in progress")
	case errors.Is(err, domain.ErrAuthentication):
		writeError(w, http.StatusUnauthorized, "a valid API key is required")
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrDataShape):
		writeError(w, http.StatusBadGateway, "upstream source unavailable")
	default:
		s.logger.Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
