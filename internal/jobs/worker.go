package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker обработчик задач asynq
type Worker struct {
	server    *asynq.Server
	refunds   RefundProcessor
	reminders ReminderSender
	logger    *zap.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, refunds RefundProcessor, reminders ReminderSender, logger *zap.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		Logger: logger.Sugar(),
	})
	return &Worker{server: srv, refunds: refunds, reminders: reminders, logger: logger}
}

// Mux маршрутизация типов задач
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRefundIssue, w.HandleRefund)
	mux.HandleFunc(TypeReminderSend, w.HandleReminder)
	return mux
}

func (w *Worker) Start() error {
	w.logger.Info("Starting job worker")
	if err := w.server.Start(w.Mux()); err != nil {
		return fmt.Errorf("start job worker: %w", err)
	}
	return nil
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping job worker")
	w.server.Shutdown()
}

func (w *Worker) HandleRefund(ctx context.Context, task *asynq.Task) error {
	var p RefundPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode refund payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := w.refunds.ProcessRefund(ctx, p.BookingID); err != nil {
		w.logger.Warn("Refund task failed", zap.Int64("booking_id", p.BookingID), zap.Error(err))
		return err
	}
	return nil
}

func (w *Worker) HandleReminder(ctx context.Context, task *asynq.Task) error {
	var p ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.reminders.SendReminder(ctx, p.SessionID, p.Kind, p.ScheduledAt)
}
