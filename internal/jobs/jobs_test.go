package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRefunds struct{ mock.Mock }

func (m *mockRefunds) ProcessRefund(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

type mockReminders struct{ mock.Mock }

func (m *mockReminders) SendReminder(ctx context.Context, sessionID int64, kind ReminderKind, scheduledAt time.Time) error {
	return m.Called(ctx, sessionID, kind, scheduledAt).Error(0)
}

var at = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func TestNewReminderTask(t *testing.T) {
	task, opts, err := NewReminderTask(ReminderPayload{SessionID: 5, Kind: Reminder1h, ScheduledAt: at})
	require.NoError(t, err)
	assert.Equal(t, TypeReminderSend, task.Type())
	assert.Len(t, opts, 3)

	var p ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, int64(5), p.SessionID)
	assert.Equal(t, Reminder1h, p.Kind)
	assert.True(t, at.Equal(p.ScheduledAt))
}

func TestReminderOffsets(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Reminder24h.Offset())
	assert.Equal(t, time.Hour, Reminder1h.Offset())
}

func TestWorker_HandleRefund(t *testing.T) {
	refunds := new(mockRefunds)
	refunds.On("ProcessRefund", mock.Anything, int64(42)).Return(nil).Once()

	w := &Worker{refunds: refunds, logger: zap.NewNop()}
	task, _, err := NewRefundTask(42)
	require.NoError(t, err)

	require.NoError(t, w.HandleRefund(context.Background(), task))
	refunds.AssertExpectations(t)
}

func TestWorker_HandleRefund_PropagatesErrorForRetry(t *testing.T) {
	refunds := new(mockRefunds)
	refunds.On("ProcessRefund", mock.Anything, int64(42)).Return(errors.New("processor down"))

	w := &Worker{refunds: refunds, logger: zap.NewNop()}
	task, _, _ := NewRefundTask(42)

	err := w.HandleRefund(context.Background(), task)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_BadPayloadSkipsRetry(t *testing.T) {
	w := &Worker{logger: zap.NewNop()}
	err := w.HandleReminder(context.Background(), asynq.NewTask(TypeReminderSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_HandleReminder(t *testing.T) {
	reminders := new(mockReminders)
	reminders.On("SendReminder", mock.Anything, int64(7), Reminder24h, mock.MatchedBy(func(t time.Time) bool {
		return t.Equal(at)
	})).Return(nil).Once()

	w := &Worker{reminders: reminders, logger: zap.NewNop()}
	task, _, err := NewReminderTask(ReminderPayload{SessionID: 7, Kind: Reminder24h, ScheduledAt: at})
	require.NoError(t, err)

	require.NoError(t, w.HandleReminder(context.Background(), task))
	reminders.AssertExpectations(t)
}
