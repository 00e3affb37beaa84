package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/clock"
	"github.com/Freeeeeet/coach_scheduler/internal/config"
	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/reservation"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

// JobQueue отложенные задачи: возвраты и напоминания
type JobQueue interface {
	EnqueueRefund(ctx context.Context, bookingID int64) error
	ScheduleReminders(ctx context.Context, session *model.Session) error
}

// Deps общие зависимости сервисов
type Deps struct {
	Store    repository.Store
	Clock    clock.Clock
	Payments payment.Processor
	Reserver reservation.Reserver
	Jobs     JobQueue
	Notifier *notify.Emitter
	Logger   *zap.Logger
	Booking  config.BookingConfig
}

func (d Deps) refundPolicy() scheduling.RefundPolicy {
	return scheduling.RefundPolicy{
		FullRefundWindow:  d.Booking.FullRefundWindow,
		LateCancelPercent: d.Booking.LateCancelRefundPercent,
	}
}

// Services все сервисы движка
type Services struct {
	Users        *UserService
	Availability *AvailabilityService
	Bookings     *BookingService
	Sessions     *SessionService
	Artifacts    *ArtifactService
}

func New(d Deps) *Services {
	availability := NewAvailabilityService(d)
	bookings := NewBookingService(d, availability)
	return &Services{
		Users:        NewUserService(d.Store.Repos().Users, d.Logger),
		Availability: availability,
		Bookings:     bookings,
		Sessions:     NewSessionService(d, availability, bookings),
		Artifacts:    NewArtifactService(d),
	}
}
