// Package api serves the control channel: a JSON-over-HTTP API bound to a
// local unix socket through which login helpers create, release and
// activate sessions. Socket file permissions stand in for authentication.
package api

import (
	"log/slog"
	"net/http"

	"github.com/j-hartig/platzwart/internal/seat"
	"github.com/j-hartig/platzwart/internal/session"
)

// SessionService is the orchestrator surface the control channel exposes.
type SessionService interface {
	CreateSession(pid int, uid uint32, seatHint seat.ID, tty string) (session.ID, error)
	RemoveSession(id session.ID)
	AcquireSeat(id session.ID, seatID seat.ID) error
	Sessions() []session.Info
	Seats() []session.SeatInfo
}

type Server struct {
	manager SessionService
	logger  *slog.Logger
	mux     *http.ServeMux
}

func NewServer(manager SessionService, logger *slog.Logger) *Server {
	s := &Server{
		manager: manager,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.requestIDMiddleware(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleReleaseSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/seat", s.handleActivateSeat)
	s.mux.HandleFunc("GET /v1/seats", s.handleListSeats)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Unrecognized calls are logged and answered, never fatal.
	s.mux.HandleFunc("/", s.handleUnknown)
}

func (s *Server) handleUnknown(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("unrecognized control call", "method", r.Method, "path", r.URL.Path)
	writeError(w, http.StatusNotFound, errCodeUnknownCall, "unrecognized control call")
}
