package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BookingSweeper просроченные оплаты и незавершённые возвраты
type BookingSweeper interface {
	ExpireStaleBookings(ctx context.Context) (int, error)
	RetryOutstandingRefunds(ctx context.Context) (int, error)
}

// NoShowSweeper автоматическая неявка
type NoShowSweeper interface {
	AutoMarkNoShows(ctx context.Context, grace time.Duration) (int, error)
}

// Reconciler периодически доводит до конца то, что не закрыли вебхуки и очередь
type Reconciler struct {
	bookings BookingSweeper
	sessions NoShowSweeper
	interval time.Duration
	noShow   time.Duration // 0 = выключено
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReconciler создаёт новый планировщик
func NewReconciler(bookings BookingSweeper, sessions NoShowSweeper, interval, autoNoShowAfter time.Duration, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		bookings: bookings,
		sessions: sessions,
		interval: interval,
		noShow:   autoNoShowAfter,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновый цикл
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting reconciler", zap.Duration("interval", r.interval))

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop останавливает цикл и ждёт текущий проход
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info("Stopping reconciler")
		close(r.stopChan)
	})
	r.wg.Wait()
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	// Первый проход сразу при старте
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.stopChan:
			r.logger.Info("Reconciler stopped")
			return
		case <-ctx.Done():
			r.logger.Info("Reconciler cancelled")
			return
		}
	}
}

// RunOnce один проход. Ошибка одного шага не мешает остальным
func (r *Reconciler) RunOnce(ctx context.Context) {
	expired, err := r.bookings.ExpireStaleBookings(ctx)
	if err != nil {
		r.logger.Error("Failed to expire stale bookings", zap.Error(err))
	}

	refunded, err := r.bookings.RetryOutstandingRefunds(ctx)
	if err != nil {
		r.logger.Error("Failed to retry refunds", zap.Error(err))
	}

	var noShows int
	if r.noShow > 0 {
		noShows, err = r.sessions.AutoMarkNoShows(ctx, r.noShow)
		if err != nil {
			r.logger.Error("Failed to mark no-shows", zap.Error(err))
		}
	}

	if expired+refunded+noShows > 0 {
		r.logger.Info("Reconcile pass completed",
			zap.Int("expired_bookings", expired),
			zap.Int("refunds", refunded),
			zap.Int("no_shows", noShows),
		)
	}
}
