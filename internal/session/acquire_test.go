package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-hartig/platzwart/internal/seat"
)

func TestAcquireSeatGrantsAllDevices(t *testing.T) {
	mgr, acl := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)
	require.NoError(t, mgr.AcquireSeat(sid, "seat0"))

	owner, ok := mgr.Owner("seat0")
	require.True(t, ok)
	assert.Equal(t, sid, owner)
	for _, dev := range seat0Devices {
		assert.Equal(t, []uint32{1000}, acl.holders(dev.Path))
	}
}

func TestAcquireSeatTaken(t *testing.T) {
	mgr, _ := newTestManager(t)

	first, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)
	second, err := mgr.CreateSession(200, 1001, "seat0", "tty3")
	require.NoError(t, err)

	require.NoError(t, mgr.AcquireSeat(first, "seat0"))
	err = mgr.AcquireSeat(second, "seat0")
	require.ErrorIs(t, err, ErrSeatTaken)

	owner, _ := mgr.Owner("seat0")
	assert.Equal(t, first, owner, "failed acquisition must not change ownership")
}

func TestAcquireSeatSelfReacquisitionRejected(t *testing.T) {
	mgr, _ := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)
	require.NoError(t, mgr.AcquireSeat(sid, "seat0"))

	// Holding the seat oneself counts as taken too.
	assert.ErrorIs(t, mgr.AcquireSeat(sid, "seat0"), ErrSeatTaken)
}

func TestAcquireSeatUnknownSeat(t *testing.T) {
	mgr, _ := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.AcquireSeat(sid, "seat9"), seat.ErrUnknownSeat)
}

func TestAcquireSeatUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	assert.ErrorIs(t, mgr.AcquireSeat("42", "seat0"), ErrUnknownSession)
}

func TestAcquireSeatGrantFailureRollsBack(t *testing.T) {
	reg := seat.NewRegistry(&stubEnumerator{devices: map[seat.ID][]seat.Device{
		"seat0": seat0Devices,
	}})
	require.NoError(t, reg.Load("seat0"))

	acl := &MockDeviceACL{}
	mgr := NewManager(&stubRoot{}, acl, reg, "seat0", discardLogger())

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)

	// One device grants fine, the other fails; any grant that went
	// through must be revoked again and the seat stay unowned.
	acl.On("Grant", "/dev/dri/card0", uint32(1000)).Return(nil).Maybe()
	acl.On("Grant", "/dev/input/event3", uint32(1000)).Return(fmt.Errorf("operation not supported"))
	acl.On("Revoke", "/dev/dri/card0", uint32(1000)).Return(nil).Maybe()

	err = mgr.AcquireSeat(sid, "seat0")
	require.Error(t, err)

	_, owned := mgr.Owner("seat0")
	assert.False(t, owned)
}

func TestLeaveSeatRevokesAndClearsOwnership(t *testing.T) {
	mgr, acl := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)
	require.NoError(t, mgr.AcquireSeat(sid, "seat0"))
	require.NoError(t, mgr.LeaveSeat(sid, "seat0"))

	_, owned := mgr.Owner("seat0")
	assert.False(t, owned)
	for _, dev := range seat0Devices {
		assert.Empty(t, acl.holders(dev.Path))
	}

	// Acquire/leave leaves no residue; the same pair works again.
	require.NoError(t, mgr.AcquireSeat(sid, "seat0"))
}

func TestLeaveSeatUnknownSeat(t *testing.T) {
	mgr, _ := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.LeaveSeat(sid, "seat9"), seat.ErrUnknownSeat)
}

func TestLeaveSeatUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	assert.ErrorIs(t, mgr.LeaveSeat("42", "seat0"), ErrUnknownSession)
}

func TestTTYActivatedAcquiresDefaultSeat(t *testing.T) {
	mgr, acl := newTestManager(t)

	sid, err := mgr.CreateSession(100, 1000, "seat0", "tty3")
	require.NoError(t, err)

	require.NoError(t, mgr.TTYActivated("tty3"))

	owner, ok := mgr.Owner("seat0")
	require.True(t, ok)
	assert.Equal(t, sid, owner)
	assert.Equal(t, []uint32{1000}, acl.holders("/dev/dri/card0"))
}

func TestTTYActivatedRaceIsSwallowed(t *testing.T) {
	mgr, _ := newTestManager(t)

	first, err := mgr.CreateSession(100, 1000, "seat0", "tty2")
	require.NoError(t, err)
	_, err = mgr.CreateSession(200, 1001, "seat0", "tty3")
	require.NoError(t, err)
	require.NoError(t, mgr.AcquireSeat(first, "seat0"))

	// tty3's session loses the race for seat0; that is not an error.
	require.NoError(t, mgr.TTYActivated("tty3"))

	owner, _ := mgr.Owner("seat0")
	assert.Equal(t, first, owner)
}

func TestTTYActivatedNoMatchingSessionIsNoop(t *testing.T) {
	mgr, acl := newTestManager(t)

	require.NoError(t, mgr.TTYActivated("tty7"))

	_, owned := mgr.Owner("seat0")
	assert.False(t, owned)
	assert.Empty(t, acl.holders("/dev/dri/card0"))
}

// End-to-end seat handoff, following the full lifecycle: create, acquire,
// contested acquire, removal releasing the seat, second acquire.
func TestSeatHandoffLifecycle(t *testing.T) {
	mgr, acl := newTestManager(t)

	s1, err := mgr.CreateSession(4242, 1000, "seat0", "tty3")
	require.NoError(t, err)
	require.NoError(t, mgr.AcquireSeat(s1, "seat0"))
	for _, dev := range seat0Devices {
		assert.Equal(t, []uint32{1000}, acl.holders(dev.Path))
	}

	s2, err := mgr.CreateSession(4343, 1001, "seat0", "tty4")
	require.NoError(t, err)
	require.ErrorIs(t, mgr.AcquireSeat(s2, "seat0"), ErrSeatTaken)

	mgr.RemoveSession(s1)
	_, owned := mgr.Owner("seat0")
	assert.False(t, owned)
	for _, dev := range seat0Devices {
		assert.Empty(t, acl.holders(dev.Path), "uid 1000 grants must be gone after removal")
	}

	require.NoError(t, mgr.AcquireSeat(s2, "seat0"))
	for _, dev := range seat0Devices {
		assert.Equal(t, []uint32{1001}, acl.holders(dev.Path))
	}
}
