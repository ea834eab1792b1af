// Package seat models physical seats: named bundles of local input/output
// devices that exactly one session may own at a time.
package seat

import (
	"errors"
	"fmt"
)

// ID names a physical seat, e.g. "seat0". IDs are supplied by device
// discovery and stable for the process lifetime.
type ID string

// Device is one seat-local device file. Immutable once discovered.
type Device struct {
	// Path is the device special file, e.g. /dev/dri/card0.
	Path string
	// SeatTag is the seat the device was tagged with by discovery, empty
	// when the device carried no explicit tag.
	SeatTag string
}

// Seat is a seat and its current device map, keyed by device path.
type Seat struct {
	ID      ID
	Devices map[string]Device
}

// ErrUnknownSeat is returned for lookups of seats never loaded.
var ErrUnknownSeat = errors.New("unknown seat")

// Enumerator supplies the device list for a seat. An empty list is valid;
// a seat may legitimately have zero devices.
type Enumerator interface {
	Devices(id ID) ([]Device, error)
}

// Registry holds the known seats. It is not safe for concurrent use on its
// own; the session manager serializes all access under its lock.
type Registry struct {
	enum  Enumerator
	seats map[ID]*Seat
}

func NewRegistry(enum Enumerator) *Registry {
	return &Registry{
		enum:  enum,
		seats: make(map[ID]*Seat),
	}
}

// Load populates or refreshes a seat's device map from the enumerator. The
// first Load for an id creates the Seat; later Loads replace the device
// contents in place so existing references to the Seat stay valid.
func (r *Registry) Load(id ID) error {
	devices, err := r.enum.Devices(id)
	if err != nil {
		return fmt.Errorf("enumerate devices of %s: %w", id, err)
	}

	st, ok := r.seats[id]
	if !ok {
		st = &Seat{ID: id, Devices: make(map[string]Device)}
		r.seats[id] = st
	}
	clear(st.Devices)
	for _, dev := range devices {
		st.Devices[dev.Path] = dev
	}
	return nil
}

// Get resolves a seat by id.
func (r *Registry) Get(id ID) (*Seat, error) {
	st, ok := r.seats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeat, id)
	}
	return st, nil
}

// IDs lists the loaded seats.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.seats))
	for id := range r.seats {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of loaded seats.
func (r *Registry) Len() int {
	return len(r.seats)
}
