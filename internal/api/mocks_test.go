package api

import (
	"github.com/stretchr/testify/mock"

	"github.com/j-hartig/platzwart/internal/seat"
	"github.com/j-hartig/platzwart/internal/session"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) CreateSession(pid int, uid uint32, seatHint seat.ID, tty string) (session.ID, error) {
	args := m.Called(pid, uid, seatHint, tty)
	return args.Get(0).(session.ID), args.Error(1)
}

func (m *MockSessionService) RemoveSession(id session.ID) {
	m.Called(id)
}

func (m *MockSessionService) AcquireSeat(id session.ID, seatID seat.ID) error {
	args := m.Called(id, seatID)
	return args.Error(0)
}

func (m *MockSessionService) Sessions() []session.Info {
	args := m.Called()
	if infos := args.Get(0); infos != nil {
		return infos.([]session.Info)
	}
	return nil
}

func (m *MockSessionService) Seats() []session.SeatInfo {
	args := m.Called()
	if infos := args.Get(0); infos != nil {
		return infos.([]session.SeatInfo)
	}
	return nil
}
