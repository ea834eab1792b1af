package session

import (
	"errors"
	"fmt"

	"github.com/j-hartig/platzwart/internal/seat"
)

// AcquireSeat makes the session the owner of the seat's devices, granting
// its uid read/write on every device file. It fails with ErrSeatTaken while
// the seat has any owner, including the requesting session itself.
func (m *Manager) AcquireSeat(id ID, seatID seat.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireSeatLocked(id, seatID)
}

func (m *Manager) acquireSeatLocked(id ID, seatID seat.ID) error {
	if owner, ok := m.seatToSession[seatID]; ok {
		return fmt.Errorf("%w: %s held by session %s", ErrSeatTaken, seatID, owner)
	}
	st, err := m.seats.Get(seatID)
	if err != nil {
		return err
	}
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	var granted []string
	for _, dev := range st.Devices {
		if err := m.acl.Grant(dev.Path, sess.UID); err != nil {
			// Roll back so no device keeps a grant for a session that
			// never became the owner.
			for _, path := range granted {
				if rerr := m.acl.Revoke(path, sess.UID); rerr != nil {
					m.logger.Warn("rollback revoke", "device", path, "uid", sess.UID, "error", rerr)
				}
			}
			return fmt.Errorf("grant %s to uid %d: %w", dev.Path, sess.UID, err)
		}
		granted = append(granted, dev.Path)
	}

	m.sessionToSeat[id] = seatID
	m.seatToSession[seatID] = id
	m.logger.Info("seat acquired", "session_id", id, "seat", seatID, "devices", len(st.Devices))
	return nil
}

// LeaveSeat revokes the session's device grants on the seat and clears the
// ownership mapping for the pairing.
func (m *Manager) LeaveSeat(id ID, seatID seat.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveSeatLocked(id, seatID)
}

func (m *Manager) leaveSeatLocked(id ID, seatID seat.ID) error {
	st, err := m.seats.Get(seatID)
	if err != nil {
		return err
	}
	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	// Visit every device even after a failure to keep residual grants to
	// a minimum.
	var errs []error
	for _, dev := range st.Devices {
		if err := m.acl.Revoke(dev.Path, sess.UID); err != nil {
			errs = append(errs, fmt.Errorf("revoke %s from uid %d: %w", dev.Path, sess.UID, err))
		}
	}

	if m.sessionToSeat[id] == seatID {
		delete(m.sessionToSeat, id)
		delete(m.seatToSession, seatID)
	}
	m.logger.Info("seat released", "session_id", id, "seat", seatID)
	return errors.Join(errs...)
}

// TTYActivated handles a foreground terminal change reported by the
// hardware watcher: the session bound to the new tty, if any, attempts to
// acquire the default seat. Losing that race to the current owner is
// expected and swallowed; the watcher fires on every churn of the active
// tty. No session on the tty is a silent no-op.
func (m *Manager) TTYActivated(tty string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.sessionForTTYLocked(tty)
	if !ok {
		return nil
	}
	err := m.acquireSeatLocked(id, m.defaultSeat)
	if errors.Is(err, ErrSeatTaken) {
		m.logger.Debug("tty activation lost seat race", "session_id", id, "tty", tty)
		return nil
	}
	return err
}
