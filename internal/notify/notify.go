// Package notify точки срабатывания уведомлений. Доставка best effort:
// ошибки логируются и никогда не откатывают операцию, которая их вызвала
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventBookingConfirmed   EventType = "booking_confirmed"
	EventBookingFailed      EventType = "booking_failed" // конфликт при подтверждении, деньги возвращаются
	EventSessionCancelled   EventType = "session_cancelled"
	EventSessionRescheduled EventType = "session_rescheduled"
	EventReminder24h        EventType = "reminder_24h"
	EventReminder1h         EventType = "reminder_1h"
	EventReviewReceived     EventType = "review_received"
	EventSessionCompleted   EventType = "session_completed"
	EventRefundIssued       EventType = "refund_issued"
)

type Event struct {
	Type          EventType
	SessionID     int64
	BookingID     int64
	CoachID       int64
	MenteeID      int64
	Recipients    []int64 // пользователи, которым уходит событие
	ScheduledAt   time.Time
	PreviousAt    *time.Time // для переноса
	Timezone      string
	Reason        string
	CancelledBy   string
	RefundPercent int
	RefundAmount  int64
	Currency      string
	Rating        int
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Multi рассылает событие во все каналы и собирает ошибки
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log пишет события в лог
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, event Event) error {
	l.logger.Info("Notification",
		zap.String("event", string(event.Type)),
		zap.Int64("session_id", event.SessionID),
		zap.Int64("booking_id", event.BookingID),
		zap.Int64s("recipients", event.Recipients),
		zap.Time("scheduled_at", event.ScheduledAt),
	)
	return nil
}

// Emitter отправляет события без ожидания результата для вызывающего
type Emitter struct {
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration
	async    bool
}

func NewEmitter(notifier Notifier, logger *zap.Logger) *Emitter {
	return &Emitter{notifier: notifier, logger: logger, timeout: 10 * time.Second, async: true}
}

// NewSyncEmitter доставляет в вызывающей горутине, для тестов и воркеров
func NewSyncEmitter(notifier Notifier, logger *zap.Logger) *Emitter {
	return &Emitter{notifier: notifier, logger: logger, timeout: 10 * time.Second}
}

// Emit доставляет событие, ошибки только логируются.
// Контекст запроса не используется, чтобы отмена запроса не обрывала доставку
func (e *Emitter) Emit(event Event) {
	if e == nil || e.notifier == nil {
		return
	}
	if e.async {
		go e.deliver(event)
		return
	}
	e.deliver(event)
}

func (e *Emitter) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("Failed to deliver notification",
			zap.String("event", string(event.Type)),
			zap.Int64("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
