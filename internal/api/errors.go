package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/j-hartig/platzwart/internal/seat"
	"github.com/j-hartig/platzwart/internal/session"
	"github.com/j-hartig/platzwart/protocol"
)

// Error codes returned in control-channel responses.
const (
	errCodeTTYBusy        = "TTY_BUSY"
	errCodeSeatTaken      = "SEAT_TAKEN"
	errCodeUnknownSeat    = "UNKNOWN_SEAT"
	errCodeUnknownSession = "UNKNOWN_SESSION"
	errCodeInvalidRequest = "INVALID_REQUEST"
	errCodeUnknownCall    = "UNKNOWN_CALL"
	errCodeInternalError  = "INTERNAL_ERROR"
)

// writeMappedError translates orchestrator errors into the structured
// error envelope.
func writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrTTYBusy):
		writeError(w, http.StatusConflict, errCodeTTYBusy, err.Error())
	case errors.Is(err, session.ErrSeatTaken):
		writeError(w, http.StatusConflict, errCodeSeatTaken, err.Error())
	case errors.Is(err, seat.ErrUnknownSeat):
		writeError(w, http.StatusNotFound, errCodeUnknownSeat, err.Error())
	case errors.Is(err, session.ErrUnknownSession):
		writeError(w, http.StatusNotFound, errCodeUnknownSession, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, errCodeInternalError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{Code: code, Message: message})
}
