// Package session tracks login sessions and arbitrates seat ownership.
//
// All manager state (sessions, seats, the session↔seat ownership mapping,
// the id counter) forms one unit of shared mutable state behind a single
// mutex. Every operation holds the lock for its entire duration, including
// the ACL and cgroup syscalls it performs, which is what keeps the
// at-most-one-owner-per-seat invariant intact under concurrent calls from
// the control channel and the tty watcher.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/j-hartig/platzwart/internal/seat"
)

// ID identifies a session for the process lifetime. IDs come from a
// monotonically increasing counter and are never reused.
type ID string

var (
	// ErrTTYBusy means another live session already claims the tty.
	ErrTTYBusy = errors.New("session exists on tty")

	// ErrSeatTaken means the seat already has an owning session. Acquiring
	// a seat one already owns is rejected the same way.
	ErrSeatTaken = errors.New("seat taken")

	// ErrUnknownSession is returned for operations on session ids that
	// were never created or have been removed.
	ErrUnknownSession = errors.New("unknown session")
)

// Session is one logical login instance.
type Session struct {
	ID   ID
	Name string
	UID  uint32
	TTY  string // empty when the session has no controlling terminal
	leaf CgroupLeaf
}

// Manager owns the session registry, the seat registry and the ownership
// mapping, and drives device ACL transitions on seat ownership change.
type Manager struct {
	mu sync.Mutex

	root        CgroupRoot
	acl         DeviceACL
	seats       *seat.Registry
	defaultSeat seat.ID
	logger      *slog.Logger

	sessions      map[ID]*Session
	sessionToSeat map[ID]seat.ID
	seatToSession map[seat.ID]ID
	counter       uint64
}

func NewManager(root CgroupRoot, acl DeviceACL, seats *seat.Registry, defaultSeat seat.ID, logger *slog.Logger) *Manager {
	return &Manager{
		root:          root,
		acl:           acl,
		seats:         seats,
		defaultSeat:   defaultSeat,
		logger:        logger,
		sessions:      make(map[ID]*Session),
		sessionToSeat: make(map[ID]seat.ID),
		seatToSession: make(map[seat.ID]ID),
	}
}

// ReloadSeats refreshes the device lists of all known seats from device
// discovery, loading the default seat first if none are known yet. Seat
// identities and the ownership mapping are untouched.
func (m *Manager) ReloadSeats() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seats.Len() == 0 {
		return m.seats.Load(m.defaultSeat)
	}
	var errs []error
	for _, id := range m.seats.IDs() {
		if err := m.seats.Load(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
