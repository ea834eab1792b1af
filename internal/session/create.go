package session

import (
	"fmt"
	"strconv"

	"github.com/j-hartig/platzwart/internal/seat"
)

// CreateSession registers a new session for pid/uid and places the process
// into a fresh cgroup leaf. The seat hint is recorded for diagnostics only;
// creating a session never acquires a seat. A non-empty tty must be free:
// if any live session already claims it the call fails with ErrTTYBusy and
// nothing is created, neither a registry entry nor a cgroup leaf.
func (m *Manager) CreateSession(pid int, uid uint32, seatHint seat.ID, tty string) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tty != "" {
		if _, ok := m.sessionForTTYLocked(tty); ok {
			return "", fmt.Errorf("%w: %s", ErrTTYBusy, tty)
		}
	}

	name := fmt.Sprintf("User_%d_Session_%d", uid, m.counter)
	leaf, err := m.root.NewLeaf(name)
	if err != nil {
		return "", fmt.Errorf("create session cgroup %s: %w", name, err)
	}
	if err := leaf.MoveInto(pid); err != nil {
		return "", fmt.Errorf("move pid %d into session cgroup %s: %w", pid, name, err)
	}

	id := ID(strconv.FormatUint(m.counter, 10))
	m.counter++
	m.sessions[id] = &Session{
		ID:   id,
		Name: name,
		UID:  uid,
		TTY:  tty,
		leaf: leaf,
	}

	m.logger.Info("session created",
		"session_id", id, "uid", uid, "pid", pid, "tty", tty, "seat_hint", seatHint)
	return id, nil
}

// RemoveSession deregisters a session, releasing its seat first if it owns
// one. Removing an unknown session is a no-op: a session already gone is
// not an error.
func (m *Manager) RemoveSession(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return
	}
	if seatID, ok := m.sessionToSeat[id]; ok {
		if err := m.leaveSeatLocked(id, seatID); err != nil {
			// The session goes away regardless; residual grants are
			// better than a zombie registry entry.
			m.logger.Warn("release seat on session removal", "session_id", id, "seat", seatID, "error", err)
		}
	}
	delete(m.sessions, id)
	m.logger.Info("session removed", "session_id", id)
}
