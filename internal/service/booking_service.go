package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/reservation"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

// errConfirmConflict слот занят к моменту подтверждения оплаты
var errConfirmConflict = errors.New("slot taken before confirmation")

type CreateBookingRequest struct {
	CoachID         int64     `json:"coach_id"`
	SlotStart       time.Time `json:"slot_start"`
	DurationMinutes int       `json:"duration_minutes"`
	Message         string    `json:"message"`
	// Amount необязателен. Если передан, должен совпасть с ценой коуча
	Amount int64 `json:"amount"`
}

// PaymentSession то, что клиент получает для перехода к оплате
type PaymentSession struct {
	BookingID   int64     `json:"booking_id"`
	Reference   string    `json:"reference"`
	IntentID    string    `json:"intent_id"`
	RedirectURL string    `json:"redirect_url"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// BookingService превращает выбранный слот в оплаченную сессию:
// pending-бронирование, внешнее подтверждение, атомарное создание сессии или возврат
type BookingService struct {
	Deps
	availability *AvailabilityService
}

func NewBookingService(d Deps, availability *AvailabilityService) *BookingService {
	return &BookingService{Deps: d, availability: availability}
}

// CreateBooking создаёт pending-бронирование и платёжный intent. Сессия пока не создаётся
func (s *BookingService) CreateBooking(ctx context.Context, actor model.Actor, req CreateBookingRequest) (*PaymentSession, error) {
	if !scheduling.CanPerform(scheduling.ActionBook, actor, req.CoachID, actor.UserID) {
		return nil, fmt.Errorf("%w: only mentees can book sessions", ErrUnauthorized)
	}
	if req.CoachID == 0 || req.CoachID == actor.UserID {
		return nil, fmt.Errorf("%w: invalid coach", ErrValidation)
	}
	if err := validateDuration(req.DurationMinutes); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	start := req.SlotStart.UTC()
	if start.Before(now.Add(s.Booking.LeadTime)) {
		return nil, fmt.Errorf("%w: slot must start at least %s from now", ErrValidation, s.Booking.LeadTime)
	}
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	repos := s.Store.Repos()

	av, ok, err := s.availability.onGrid(ctx, repos, req.CoachID, start, req.DurationMinutes)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: slot is not available", ErrSlotConflict)
	}

	price := av.Settings.PriceFor(req.DurationMinutes)
	if req.Amount != 0 && req.Amount != price {
		return nil, fmt.Errorf("%w: amount does not match coach price %d", ErrValidation, price)
	}

	// повторная проверка против текущих сессий: слот мог устареть с момента генерации
	active, err := repos.Sessions.ListActiveByCoach(ctx, req.CoachID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get coach sessions: %w", err)
	}
	if conflict := scheduling.FindConflict(start, end, active, 0); conflict != nil {
		return nil, fmt.Errorf("%w: slot no longer available", ErrSlotConflict)
	}

	token, err := s.Reserver.Reserve(ctx, req.CoachID, start, end, s.Booking.PaymentIntentTTL)
	if errors.Is(err, reservation.ErrReserved) {
		return nil, fmt.Errorf("%w: slot is being booked by someone else", ErrSlotConflict)
	}
	if err != nil {
		// удержание рекомендательное, без него бронирование всё равно безопасно
		s.Logger.Warn("Failed to reserve slot", zap.Int64("coach_id", req.CoachID), zap.Error(err))
		token = ""
	}

	booking := &model.Booking{
		Reference:        uuid.NewString(),
		CoachID:          req.CoachID,
		MenteeID:         actor.UserID,
		SlotStart:        start,
		DurationMinutes:  req.DurationMinutes,
		MenteeMessage:    req.Message,
		Amount:           price,
		Currency:         av.Settings.Currency,
		Status:           model.BookingStatusPending,
		ReservationToken: token,
		ExpiresAt:        now.Add(s.Booking.PaymentIntentTTL),
	}
	if err := repos.Bookings.Create(ctx, booking); err != nil {
		s.release(ctx, booking)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	intent, err := s.Payments.CreatePaymentIntent(ctx, payment.CreateIntentRequest{
		Amount:      price,
		Currency:    booking.Currency,
		Description: fmt.Sprintf("Coaching session %s (%d min)", start.Format("2006-01-02 15:04 MST"), req.DurationMinutes),
		Metadata: payment.Metadata{
			BookingID:       booking.ID,
			CoachID:         booking.CoachID,
			MenteeID:        booking.MenteeID,
			SlotStart:       start,
			DurationMinutes: req.DurationMinutes,
		},
		IdempotencyKey: "booking-" + booking.Reference,
		ExpiresAt:      booking.ExpiresAt,
	})
	if err != nil {
		s.release(ctx, booking)
		booking.ReservationToken = ""
		booking.FailureReason = err.Error()
		// после исчерпания повторов бронирование остаётся pending и доживает до истечения
		if payment.IsPermanent(err) {
			booking.Status = model.BookingStatusFailed
		}
		if uerr := repos.Bookings.Update(ctx, booking); uerr != nil {
			s.Logger.Error("Failed to record payment failure", zap.Int64("booking_id", booking.ID), zap.Error(uerr))
		}
		s.Logger.Warn("Payment intent creation failed",
			zap.Int64("booking_id", booking.ID),
			zap.Bool("permanent", payment.IsPermanent(err)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	booking.IntentID = intent.ID
	booking.RedirectURL = intent.RedirectURL
	if !intent.ExpiresAt.IsZero() {
		booking.ExpiresAt = intent.ExpiresAt
	}
	if err := repos.Bookings.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	s.Logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", booking.CoachID),
		zap.Int64("mentee_id", booking.MenteeID),
		zap.Time("slot_start", start),
		zap.Int64("amount", price),
		zap.String("intent_id", intent.ID),
	)

	return &PaymentSession{
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		IntentID:    booking.IntentID,
		RedirectURL: booking.RedirectURL,
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		ExpiresAt:   booking.ExpiresAt,
	}, nil
}

// GetBooking бронирование, видимое только его участникам
func (s *BookingService) GetBooking(ctx context.Context, actor model.Actor, bookingID int64) (*model.Booking, error) {
	booking, err := s.Store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if !scheduling.CanPerform(scheduling.ActionView, actor, booking.CoachID, booking.MenteeID) {
		return nil, fmt.Errorf("%w: not a participant", ErrUnauthorized)
	}
	return booking, nil
}

// GetBookingByIntent бронирование по платёжному intent, только для участников
func (s *BookingService) GetBookingByIntent(ctx context.Context, actor model.Actor, intentID string) (*model.Booking, error) {
	booking, err := s.Store.Repos().Bookings.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: no booking for intent %s", ErrNotFound, intentID)
	}
	if !scheduling.CanPerform(scheduling.ActionView, actor, booking.CoachID, booking.MenteeID) {
		return nil, fmt.Errorf("%w: not a participant", ErrUnauthorized)
	}
	return booking, nil
}

// HandlePaymentConfirmed обрабатывает уведомление процессора об оплате.
// Статус берётся у процессора, не из уведомления. Повторный вызов безопасен.
// Возвращает nil, nil пока оплата не завершена
func (s *BookingService) HandlePaymentConfirmed(ctx context.Context, intentID string) (*model.Session, error) {
	repos := s.Store.Repos()

	booking, err := repos.Bookings.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: no booking for intent %s", ErrNotFound, intentID)
	}

	switch {
	case booking.Status == model.BookingStatusPaid && booking.SessionID != nil:
		return repos.Sessions.GetByID(ctx, *booking.SessionID)
	case booking.SessionID == nil && booking.RefundRequestedAt != nil:
		// уже компенсировано возвратом
		if booking.RefundOutstanding() {
			s.issueRefund(ctx, booking.ID)
		}
		return nil, fmt.Errorf("%w: booking %d was refunded", ErrSlotConflict, booking.ID)
	}

	result, err := s.Payments.ConfirmPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("confirm payment intent: %w", err)
	}

	switch result.Status {
	case payment.IntentStatusPending:
		return nil, nil
	case payment.IntentStatusFailed:
		s.markUnpaid(ctx, booking, model.BookingStatusFailed, "payment declined")
		return nil, fmt.Errorf("%w: payment declined", ErrPaymentFailed)
	case payment.IntentStatusExpired:
		s.markUnpaid(ctx, booking, model.BookingStatusExpired, "payment intent expired")
		return nil, fmt.Errorf("%w: payment intent expired", ErrPaymentFailed)
	}

	meta, err := payment.ParseMetadata(result.Metadata)
	if err != nil {
		s.Logger.Error("Payment metadata is unreadable",
			zap.Int64("booking_id", booking.ID),
			zap.String("intent_id", intentID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: payment metadata: %v", ErrValidation, err)
	}
	if meta.BookingID != booking.ID || meta.CoachID != booking.CoachID || !meta.SlotStart.Equal(booking.SlotStart) {
		s.Logger.Error("Payment metadata does not match booking",
			zap.Int64("booking_id", booking.ID),
			zap.String("intent_id", intentID),
		)
		return nil, fmt.Errorf("%w: payment metadata mismatch", ErrValidation)
	}

	session, timezone, created, err := s.materialize(ctx, booking.ID, result.PaymentReference)
	if errors.Is(err, errConfirmConflict) {
		return s.compensate(ctx, booking.ID, result.PaymentReference)
	}
	if err != nil {
		return nil, fmt.Errorf("materialize session: %w", err)
	}
	if !created {
		// повторное уведомление, сессию создал другой обработчик
		return session, nil
	}

	s.release(ctx, booking)

	if err := s.Jobs.ScheduleReminders(ctx, session); err != nil {
		s.Logger.Warn("Failed to schedule reminders", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	s.Notifier.Emit(notify.Event{
		Type:        notify.EventBookingConfirmed,
		SessionID:   session.ID,
		BookingID:   booking.ID,
		CoachID:     session.CoachID,
		MenteeID:    session.MenteeID,
		Recipients:  []int64{session.CoachID, session.MenteeID},
		ScheduledAt: session.ScheduledAt,
		Timezone:    timezone,
	})

	s.Logger.Info("Session booked",
		zap.Int64("session_id", session.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", session.CoachID),
		zap.Time("scheduled_at", session.ScheduledAt),
	)

	return session, nil
}

// lockedBooking берёт блокировку коуча и перечитывает бронирование под ней
func lockedBooking(ctx context.Context, r repository.Repos, bookingID int64) (*model.Booking, error) {
	b, err := r.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if err := r.Locks.LockCoach(ctx, b.CoachID); err != nil {
		return nil, fmt.Errorf("lock coach: %w", err)
	}
	b, err = r.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	return b, nil
}

// materialize атомарно создаёт сессию и переводит бронирование в paid.
// Запись расписания коуча сериализуется блокировкой.
// created false, если сессия уже была создана раньше
func (s *BookingService) materialize(ctx context.Context, bookingID int64, paymentReference string) (*model.Session, string, bool, error) {
	var session *model.Session
	var timezone string
	var created bool

	err := s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		b, err := lockedBooking(ctx, r, bookingID)
		if err != nil {
			return err
		}

		// параллельное подтверждение того же intent успело раньше
		if b.Status == model.BookingStatusPaid && b.SessionID != nil {
			session, err = r.Sessions.GetByID(ctx, *b.SessionID)
			return err
		}
		if b.Status != model.BookingStatusPending {
			// оплата пришла после отказа: только возврат
			return errConfirmConflict
		}

		active, err := r.Sessions.ListActiveByCoach(ctx, b.CoachID, b.SlotStart, b.SlotEnd())
		if err != nil {
			return fmt.Errorf("get coach sessions: %w", err)
		}
		if scheduling.FindConflict(b.SlotStart, b.SlotEnd(), active, 0) != nil {
			return errConfirmConflict
		}

		count, err := r.Sessions.CountByPair(ctx, b.CoachID, b.MenteeID)
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}

		settings, err := r.Settings.Get(ctx, b.CoachID)
		if err != nil {
			return fmt.Errorf("get coach settings: %w", err)
		}
		var videoLink string
		if settings != nil {
			videoLink = settings.VideoLink
			timezone = settings.Timezone
		}

		session = &model.Session{
			CoachID:         b.CoachID,
			MenteeID:        b.MenteeID,
			BookingID:       b.ID,
			ScheduledAt:     b.SlotStart,
			DurationMinutes: b.DurationMinutes,
			Status:          model.SessionStatusScheduled,
			VideoLink:       videoLink,
			MenteeMessage:   b.MenteeMessage,
			SessionNumber:   count + 1,
		}
		err = r.Sessions.Create(ctx, session)
		if errors.Is(err, repository.ErrOverlap) {
			return errConfirmConflict
		}
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		paidAt := s.Clock.Now()
		b.Status = model.BookingStatusPaid
		b.PaidAt = &paidAt
		b.PaymentReference = paymentReference
		b.SessionID = &session.ID
		b.FailureReason = ""
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		created = true
		return nil
	})

	return session, timezone, created, err
}

// compensate фиксирует оплату без сессии и запрашивает полный возврат.
// Если сессию уже создал параллельный обработчик, возвращает её
func (s *BookingService) compensate(ctx context.Context, bookingID int64, paymentReference string) (*model.Session, error) {
	var booking *model.Booking
	var existing *model.Session
	var alreadyRefunded bool

	err := s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		b, err := lockedBooking(ctx, r, bookingID)
		if err != nil {
			return err
		}
		booking = b
		if b.SessionID != nil {
			existing, err = r.Sessions.GetByID(ctx, *b.SessionID)
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			return nil
		}
		if b.RefundRequestedAt != nil {
			alreadyRefunded = true
			return nil
		}
		if !b.Status.CanTransitionTo(model.BookingStatusPaid) {
			return fmt.Errorf("%w: booking %d is %s", ErrInvalidTransition, b.ID, b.Status)
		}

		now := s.Clock.Now()
		b.Status = model.BookingStatusPaid
		b.PaidAt = &now
		b.PaymentReference = paymentReference
		b.FailureReason = "slot conflict at confirmation"
		b.RefundPercentage = 100
		b.RefundAmount = b.Amount
		b.RefundRequestedAt = &now
		return r.Bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("compensate booking: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	if alreadyRefunded {
		return nil, fmt.Errorf("%w: booking %d was refunded", ErrSlotConflict, booking.ID)
	}

	s.Logger.Warn("Slot conflict at payment confirmation, refunding",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("coach_id", booking.CoachID),
		zap.Time("slot_start", booking.SlotStart),
	)

	s.release(ctx, booking)
	s.issueRefund(ctx, booking.ID)

	s.Notifier.Emit(notify.Event{
		Type:          notify.EventBookingFailed,
		BookingID:     booking.ID,
		CoachID:       booking.CoachID,
		MenteeID:      booking.MenteeID,
		Recipients:    []int64{booking.MenteeID},
		ScheduledAt:   booking.SlotStart,
		RefundPercent: 100,
		RefundAmount:  booking.Amount,
		Currency:      booking.Currency,
	})

	return nil, fmt.Errorf("%w: slot was taken before payment confirmation, payment refunded", ErrSlotConflict)
}

// markUnpaid закрывает pending-бронирование без оплаты.
// Оплаченное к этому моменту бронирование не трогает
func (s *BookingService) markUnpaid(ctx context.Context, booking *model.Booking, status model.BookingStatus, reason string) bool {
	closed := false
	err := s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		b, err := lockedBooking(ctx, r, booking.ID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingStatusPending || !b.Status.CanTransitionTo(status) {
			return nil
		}
		b.Status = status
		b.FailureReason = reason
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		closed = true
		return nil
	})
	if err != nil {
		s.Logger.Error("Failed to close unpaid booking", zap.Int64("booking_id", booking.ID), zap.Error(err))
		return false
	}
	if !closed {
		return false
	}

	s.release(ctx, booking)

	s.Logger.Info("Booking closed without payment",
		zap.Int64("booking_id", booking.ID),
		zap.String("status", string(status)),
	)
	return true
}

// ProcessRefund проводит запрошенный возврат. Идемпотентен по бронированию
func (s *BookingService) ProcessRefund(ctx context.Context, bookingID int64) error {
	booking, err := s.Store.Repos().Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if !booking.RefundOutstanding() {
		return nil
	}

	var refundID string
	if booking.RefundAmount > 0 {
		if booking.PaymentReference == "" {
			return fmt.Errorf("%w: booking %d has no payment reference", ErrPaymentFailed, booking.ID)
		}
		result, err := s.Payments.Refund(ctx, payment.RefundRequest{
			PaymentReference: booking.PaymentReference,
			Amount:           booking.RefundAmount,
			Percentage:       booking.RefundPercentage,
			IdempotencyKey:   fmt.Sprintf("refund-%d", booking.ID),
		})
		if err != nil {
			return fmt.Errorf("issue refund: %w", err)
		}
		if result.Status == payment.RefundStatusFailed {
			return fmt.Errorf("%w: refund %s failed", ErrPaymentFailed, result.ID)
		}
		refundID = result.ID
	}

	err = s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		b, err := r.Bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RefundedAt != nil {
			return nil
		}
		now := s.Clock.Now()
		b.RefundedAt = &now
		b.RefundReference = refundID
		if b.Status.CanTransitionTo(b.RefundStatus()) {
			b.Status = b.RefundStatus()
		}
		booking = b
		return r.Bookings.Update(ctx, b)
	})
	if err != nil {
		return fmt.Errorf("save refund: %w", err)
	}

	s.Logger.Info("Refund issued",
		zap.Int64("booking_id", booking.ID),
		zap.Int("percentage", booking.RefundPercentage),
		zap.Int64("amount", booking.RefundAmount),
		zap.String("status", string(booking.Status)),
	)

	s.Notifier.Emit(notify.Event{
		Type:          notify.EventRefundIssued,
		BookingID:     booking.ID,
		CoachID:       booking.CoachID,
		MenteeID:      booking.MenteeID,
		Recipients:    []int64{booking.MenteeID},
		ScheduledAt:   booking.SlotStart,
		RefundPercent: booking.RefundPercentage,
		RefundAmount:  booking.RefundAmount,
		Currency:      booking.Currency,
	})

	return nil
}

// issueRefund пробует вернуть деньги сразу, при ошибке ставит задачу в очередь
func (s *BookingService) issueRefund(ctx context.Context, bookingID int64) {
	err := s.ProcessRefund(ctx, bookingID)
	if err == nil {
		return
	}
	s.Logger.Warn("Refund failed, deferring to queue", zap.Int64("booking_id", bookingID), zap.Error(err))

	if err := s.Jobs.EnqueueRefund(ctx, bookingID); err != nil {
		// останется запрос возврата, его подберёт сверка
		s.Logger.Error("Failed to enqueue refund", zap.Int64("booking_id", bookingID), zap.Error(err))
	}
}

// ExpireStaleBookings сверяет просроченные pending-бронирования с процессором
func (s *BookingService) ExpireStaleBookings(ctx context.Context) (int, error) {
	stale, err := s.Store.Repos().Bookings.ListPendingExpiredBefore(ctx, s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("list stale bookings: %w", err)
	}

	expired := 0
	for _, b := range stale {
		if b.IntentID != "" {
			result, err := s.Payments.ConfirmPaymentIntent(ctx, b.IntentID)
			if err != nil {
				s.Logger.Warn("Failed to check stale intent", zap.Int64("booking_id", b.ID), zap.Error(err))
				continue
			}
			if result.Status == payment.IntentStatusSucceeded {
				// вебхук потерялся
				if _, err := s.HandlePaymentConfirmed(ctx, b.IntentID); err != nil {
					s.Logger.Warn("Late confirmation failed", zap.Int64("booking_id", b.ID), zap.Error(err))
				}
				continue
			}
			if result.Status == payment.IntentStatusFailed {
				s.markUnpaid(ctx, b, model.BookingStatusFailed, "payment declined")
				continue
			}
		}
		if s.markUnpaid(ctx, b, model.BookingStatusExpired, "payment intent expired") {
			expired++
		}
	}

	return expired, nil
}

// RetryOutstandingRefunds повторяет запрошенные, но не проведённые возвраты
func (s *BookingService) RetryOutstandingRefunds(ctx context.Context) (int, error) {
	pending, err := s.Store.Repos().Bookings.ListRefundOutstanding(ctx)
	if err != nil {
		return 0, fmt.Errorf("list outstanding refunds: %w", err)
	}

	done := 0
	for _, b := range pending {
		if err := s.ProcessRefund(ctx, b.ID); err != nil {
			s.Logger.Warn("Refund retry failed", zap.Int64("booking_id", b.ID), zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *BookingService) release(ctx context.Context, b *model.Booking) {
	if b.ReservationToken == "" {
		return
	}
	if err := s.Reserver.Release(ctx, b.CoachID, b.SlotStart, b.SlotEnd(), b.ReservationToken); err != nil {
		s.Logger.Warn("Failed to release reservation", zap.Int64("booking_id", b.ID), zap.Error(err))
	}
}
