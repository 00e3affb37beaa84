package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) ExpireStaleBookings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockBookings) RetryOutstandingRefunds(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) AutoMarkNoShows(ctx context.Context, grace time.Duration) (int, error) {
	args := m.Called(ctx, grace)
	return args.Int(0), args.Error(1)
}

func TestReconcilerRunOnce(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("ExpireStaleBookings", mock.Anything).Return(0, errors.New("db down"))
	bookings.On("RetryOutstandingRefunds", mock.Anything).Return(2, nil)
	sessions := &mockSessions{}
	sessions.On("AutoMarkNoShows", mock.Anything, time.Hour).Return(1, nil)

	r := NewReconciler(bookings, sessions, time.Minute, time.Hour, zap.NewNop())
	r.RunOnce(context.Background())

	bookings.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestReconcilerNoShowDisabled(t *testing.T) {
	bookings := &mockBookings{}
	bookings.On("ExpireStaleBookings", mock.Anything).Return(0, nil)
	bookings.On("RetryOutstandingRefunds", mock.Anything).Return(0, nil)
	sessions := &mockSessions{}

	r := NewReconciler(bookings, sessions, time.Minute, 0, zap.NewNop())
	r.RunOnce(context.Background())

	sessions.AssertNotCalled(t, "AutoMarkNoShows", mock.Anything, mock.Anything)
}

type countingBookings struct {
	passes atomic.Int32
}

func (c *countingBookings) ExpireStaleBookings(context.Context) (int, error) {
	c.passes.Add(1)
	return 0, nil
}

func (c *countingBookings) RetryOutstandingRefunds(context.Context) (int, error) {
	return 0, nil
}

func TestReconcilerStartStop(t *testing.T) {
	bookings := &countingBookings{}
	r := NewReconciler(bookings, &mockSessions{}, 10*time.Millisecond, 0, zap.NewNop())

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return bookings.passes.Load() >= 2 }, time.Second, 5*time.Millisecond)

	r.Stop()
	r.Stop()
	after := bookings.passes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, bookings.passes.Load())
}
