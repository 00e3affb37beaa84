// Package jobs отложенные задачи движка на asynq: возвраты и напоминания
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRefundIssue  = "refund:issue"
	TypeReminderSend = "reminder:send"
)

type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)

// Offset насколько раньше начала сессии отправляется напоминание
func (k ReminderKind) Offset() time.Duration {
	if k == Reminder1h {
		return time.Hour
	}
	return 24 * time.Hour
}

type RefundPayload struct {
	BookingID int64 `json:"booking_id"`
}

type ReminderPayload struct {
	SessionID   int64        `json:"session_id"`
	Kind        ReminderKind `json:"kind"`
	ScheduledAt time.Time    `json:"scheduled_at"` // время сессии на момент постановки
}

// NewRefundTask задача возврата. TaskID по бронированию не даёт поставить дубль
func NewRefundTask(bookingID int64) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(RefundPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeRefundIssue, b)
	opts := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("refund:%d", bookingID)),
		asynq.MaxRetry(20),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

func NewReminderTask(payload ReminderPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	fireAt := payload.ScheduledAt.Add(-payload.Kind.Offset())
	task := asynq.NewTask(TypeReminderSend, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(fmt.Sprintf("reminder:%d:%s:%d", payload.SessionID, payload.Kind, payload.ScheduledAt.Unix())),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}
