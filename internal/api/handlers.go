package api

import (
	"encoding/json"
	"net/http"

	"github.com/j-hartig/platzwart/internal/seat"
	"github.com/j-hartig/platzwart/internal/session"
	"github.com/j-hartig/platzwart/protocol"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.PID <= 0 {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "pid must be positive")
		return
	}

	id, err := s.manager.CreateSession(req.PID, req.UID, seat.ID(req.Seat), req.TTY)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, protocol.CreateSessionResponse{SessionID: string(id)})
}

func (s *Server) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	// Removal is idempotent, so release always succeeds.
	s.manager.RemoveSession(session.ID(r.PathValue("id")))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateSeat(w http.ResponseWriter, r *http.Request) {
	var req protocol.ActivateSeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Seat == "" {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "seat is required")
		return
	}

	if err := s.manager.AcquireSeat(session.ID(r.PathValue("id")), seat.ID(req.Seat)); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Sessions())
}

func (s *Server) handleListSeats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Seats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
