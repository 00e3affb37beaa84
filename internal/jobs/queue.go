package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/clock"
	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// RefundProcessor проводит возврат по бронированию, идемпотентно
type RefundProcessor interface {
	ProcessRefund(ctx context.Context, bookingID int64) error
}

// ReminderSender отправляет напоминание, если сессия всё ещё актуальна
type ReminderSender interface {
	SendReminder(ctx context.Context, sessionID int64, kind ReminderKind, scheduledAt time.Time) error
}

var reminderKinds = []ReminderKind{Reminder24h, Reminder1h}

// AsynqQueue ставит задачи в Redis через asynq
type AsynqQueue struct {
	client *asynq.Client
	clock  clock.Clock
	logger *zap.Logger
}

func NewAsynqQueue(client *asynq.Client, c clock.Clock, logger *zap.Logger) *AsynqQueue {
	return &AsynqQueue{client: client, clock: c, logger: logger}
}

func (q *AsynqQueue) enqueue(ctx context.Context, task *asynq.Task, opts []asynq.Option) error {
	_, err := q.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// задача уже стоит в очереди
		return nil
	}
	return err
}

func (q *AsynqQueue) EnqueueRefund(ctx context.Context, bookingID int64) error {
	task, opts, err := NewRefundTask(bookingID)
	if err != nil {
		return fmt.Errorf("build refund task: %w", err)
	}
	if err := q.enqueue(ctx, task, opts); err != nil {
		return fmt.Errorf("enqueue refund task: %w", err)
	}
	q.logger.Info("Refund task enqueued", zap.Int64("booking_id", bookingID))
	return nil
}

func (q *AsynqQueue) ScheduleReminders(ctx context.Context, session *model.Session) error {
	now := q.clock.Now()
	for _, kind := range reminderKinds {
		payload := ReminderPayload{SessionID: session.ID, Kind: kind, ScheduledAt: session.ScheduledAt}
		if !session.ScheduledAt.Add(-kind.Offset()).After(now) {
			continue
		}
		task, opts, err := NewReminderTask(payload)
		if err != nil {
			return fmt.Errorf("build reminder task: %w", err)
		}
		if err := q.enqueue(ctx, task, opts); err != nil {
			return fmt.Errorf("enqueue reminder task: %w", err)
		}
	}
	return nil
}

// Inline очередь без Redis: возврат проводится сразу,
// напоминания живут в таймерах процесса и теряются при рестарте
type Inline struct {
	clock     clock.Clock
	logger    *zap.Logger
	refunds   RefundProcessor
	reminders ReminderSender
}

func NewInline(c clock.Clock, logger *zap.Logger) *Inline {
	return &Inline{clock: c, logger: logger}
}

// Bind подключает обработчики после сборки сервисов
func (q *Inline) Bind(refunds RefundProcessor, reminders ReminderSender) {
	q.refunds = refunds
	q.reminders = reminders
}

func (q *Inline) EnqueueRefund(ctx context.Context, bookingID int64) error {
	if q.refunds == nil {
		return fmt.Errorf("inline queue: refund processor not bound")
	}
	return q.refunds.ProcessRefund(ctx, bookingID)
}

func (q *Inline) ScheduleReminders(_ context.Context, session *model.Session) error {
	if q.reminders == nil {
		return nil
	}
	now := q.clock.Now()
	for _, kind := range reminderKinds {
		fireAt := session.ScheduledAt.Add(-kind.Offset())
		if !fireAt.After(now) {
			continue
		}
		sessionID, scheduledAt, kind := session.ID, session.ScheduledAt, kind
		time.AfterFunc(fireAt.Sub(now), func() {
			if err := q.reminders.SendReminder(context.Background(), sessionID, kind, scheduledAt); err != nil {
				q.logger.Warn("Failed to send reminder", zap.Int64("session_id", sessionID), zap.Error(err))
			}
		})
	}
	return nil
}
