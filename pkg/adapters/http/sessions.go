package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type createSessionRequest struct {
	Group string `json:"group"`
	ID    string `json:"id,omitempty"`
}

// DispatchResponse is returned by dispatch and reset. Error is set when an epsilon cycle
// aborted the dispatch after its state was committed.
type DispatchResponse struct {
	Changes  domain.ChangeSet `json:"changes"`
	Snapshot *domain.Snapshot `json:"snapshot"`
	Error    string           `json:"error,omitempty"`
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		s.logger.Warn("CreateSession: Invalid request body", "error", err)
		return
	}

	snap, err := s.Sessions.Create(r.Context(), body.Group, body.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch handles the POST /sessions/{id}/dispatch request.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		s.logger.Warn("Dispatch: Invalid request body", "error", err)
		return
	}

	cs, snap, err := s.Sessions.Dispatch(r.Context(), chi.URLParam(r, "id"), msg)
	s.respondChange(w, r, cs, snap, err)
}

// ResetSession handles the POST /sessions/{id}/reset request.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	cs, snap, err := s.Sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	s.respondChange(w, r, cs, snap, err)
}

func (s *Server) respondChange(w http.ResponseWriter, r *http.Request, cs domain.ChangeSet, snap *domain.Snapshot, err error) {
	var cycle *domain.EpsilonCycleError
	switch {
	case errors.As(err, &cycle):
		s.logger.Warn("epsilon cycle", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusOK, DispatchResponse{Changes: cs, Snapshot: snap, Error: err.Error()})
	case err != nil:
		s.fail(w, r, err)
	default:
		writeJSON(w, http.StatusOK, DispatchResponse{Changes: cs, Snapshot: snap})
	}
}
