// Package protocol defines the JSON message types exchanged between the
// platzwart daemon and control-channel clients on the local socket.
package protocol

// CreateSessionRequest registers a login session for an existing process.
type CreateSessionRequest struct {
	UID uint32 `json:"uid"`
	PID int    `json:"pid"`
	// Seat is a hint for which seat the session intends to use; creating
	// a session does not acquire the seat.
	Seat string `json:"seat,omitempty"`
	TTY  string `json:"tty,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// ActivateSeatRequest asks that a session take ownership of a seat's
// devices.
type ActivateSeatRequest struct {
	Seat string `json:"seat"`
}

// ErrorResponse is the structured error envelope for all failed calls.
type ErrorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}
