package session

import (
	"sort"

	"github.com/j-hartig/platzwart/internal/seat"
)

// Info is a point-in-time snapshot of one session for diagnostics and the
// control API.
type Info struct {
	ID     ID      `json:"id"`
	Name   string  `json:"name"`
	UID    uint32  `json:"uid"`
	TTY    string  `json:"tty,omitempty"`
	Seat   seat.ID `json:"seat,omitempty"`
	Cgroup string  `json:"cgroup"`
}

// SeatInfo is a snapshot of one seat and its current owner.
type SeatInfo struct {
	ID      seat.ID  `json:"id"`
	Devices []string `json:"devices"`
	Owner   ID       `json:"owner,omitempty"`
}

// SessionForTTY returns the session, if any, bound to the given tty.
func (m *Manager) SessionForTTY(tty string) (ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionForTTYLocked(tty)
}

func (m *Manager) sessionForTTYLocked(tty string) (ID, bool) {
	for _, sess := range m.sessions {
		if sess.TTY != "" && sess.TTY == tty {
			return sess.ID, true
		}
	}
	return "", false
}

// Owner returns the session currently owning the seat.
func (m *Manager) Owner(seatID seat.ID) (ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.seatToSession[seatID]
	return id, ok
}

// Sessions lists all live sessions, ordered by id.
func (m *Manager) Sessions() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, Info{
			ID:     sess.ID,
			Name:   sess.Name,
			UID:    sess.UID,
			TTY:    sess.TTY,
			Seat:   m.sessionToSeat[sess.ID],
			Cgroup: sess.leaf.Path(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Seats lists all loaded seats with their devices and owners.
func (m *Manager) Seats() []SeatInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SeatInfo, 0, m.seats.Len())
	for _, id := range m.seats.IDs() {
		st, err := m.seats.Get(id)
		if err != nil {
			continue
		}
		devices := make([]string, 0, len(st.Devices))
		for path := range st.Devices {
			devices = append(devices, path)
		}
		sort.Strings(devices)
		infos = append(infos, SeatInfo{
			ID:      id,
			Devices: devices,
			Owner:   m.seatToSession[id],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
