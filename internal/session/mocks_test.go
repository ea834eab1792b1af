package session

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/j-hartig/platzwart/internal/seat"
)

type MockCgroupRoot struct {
	mock.Mock
}

func (m *MockCgroupRoot) NewLeaf(name string) (CgroupLeaf, error) {
	args := m.Called(name)
	if leaf := args.Get(0); leaf != nil {
		return leaf.(CgroupLeaf), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCgroupLeaf struct {
	mock.Mock
}

func (m *MockCgroupLeaf) MoveInto(pid int) error {
	args := m.Called(pid)
	return args.Error(0)
}

func (m *MockCgroupLeaf) Path() string {
	args := m.Called()
	return args.String(0)
}

type MockDeviceACL struct {
	mock.Mock
}

func (m *MockDeviceACL) Grant(path string, uid uint32) error {
	args := m.Called(path, uid)
	return args.Error(0)
}

func (m *MockDeviceACL) Revoke(path string, uid uint32) error {
	args := m.Called(path, uid)
	return args.Error(0)
}

// fakeACL records which uids hold a grant on which device, for asserting
// the ownership/ACL mirror property across whole scenarios.
type fakeACL struct {
	grants map[string]map[uint32]bool
}

func newFakeACL() *fakeACL {
	return &fakeACL{grants: make(map[string]map[uint32]bool)}
}

func (f *fakeACL) Grant(path string, uid uint32) error {
	if f.grants[path] == nil {
		f.grants[path] = make(map[uint32]bool)
	}
	f.grants[path][uid] = true
	return nil
}

func (f *fakeACL) Revoke(path string, uid uint32) error {
	delete(f.grants[path], uid)
	return nil
}

func (f *fakeACL) holders(path string) []uint32 {
	var uids []uint32
	for uid := range f.grants[path] {
		uids = append(uids, uid)
	}
	return uids
}

type stubEnumerator struct {
	devices map[seat.ID][]seat.Device
}

func (s *stubEnumerator) Devices(id seat.ID) ([]seat.Device, error) {
	return s.devices[id], nil
}

// stubRoot hands out leaves that accept any pid.
type stubRoot struct{}

type stubLeaf struct {
	path string
	pids []int
}

func (r *stubRoot) NewLeaf(name string) (CgroupLeaf, error) {
	return &stubLeaf{path: "/sys/fs/cgroup/" + name}, nil
}

func (l *stubLeaf) MoveInto(pid int) error {
	l.pids = append(l.pids, pid)
	return nil
}

func (l *stubLeaf) Path() string {
	return l.path
}

var seat0Devices = []seat.Device{
	{Path: "/dev/dri/card0", SeatTag: "seat0"},
	{Path: "/dev/input/event3", SeatTag: "seat0"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager builds a manager over stub cgroups, the recording fake
// ACL and a registry preloaded with seat0's devices.
func newTestManager(t *testing.T) (*Manager, *fakeACL) {
	t.Helper()
	reg := seat.NewRegistry(&stubEnumerator{devices: map[seat.ID][]seat.Device{
		"seat0": seat0Devices,
	}})
	require.NoError(t, reg.Load("seat0"))

	acl := newFakeACL()
	return NewManager(&stubRoot{}, acl, reg, "seat0", discardLogger()), acl
}
