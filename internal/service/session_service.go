package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/jobs"
	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

// SessionDetail сессия со всем, что к ней относится
type SessionDetail struct {
	*model.Session
	CoachNotesHTML string              `json:"coach_notes_html,omitempty"`
	Booking        *model.Booking      `json:"booking,omitempty"`
	ActionItems    []*model.ActionItem `json:"action_items"`
	Review         *model.Review       `json:"review"`
}

// PatchSessionRequest частичное обновление: заметки и/или статус
type PatchSessionRequest struct {
	CoachNotes *string              `json:"coach_notes"`
	Status     *model.SessionStatus `json:"status"`
	// Version если указан, должен совпасть с текущей версией сессии
	Version int `json:"version"`
}

// SessionService жизненный цикл подтверждённой сессии
type SessionService struct {
	Deps
	availability *AvailabilityService
	bookings     *BookingService
}

func NewSessionService(d Deps, availability *AvailabilityService, bookings *BookingService) *SessionService {
	return &SessionService{Deps: d, availability: availability, bookings: bookings}
}

func (s *SessionService) load(ctx context.Context, repos repository.Repos, actor model.Actor, sessionID int64, action scheduling.Action) (*model.Session, error) {
	session, err := repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, sessionID)
	}
	// пустое действие: права проверит сам переход
	if action != "" && !scheduling.CanPerform(action, actor, session.CoachID, session.MenteeID) {
		return nil, fmt.Errorf("%w: %s not allowed for %s", ErrUnauthorized, action, actor.Role)
	}
	return session, nil
}

// mutate применяет fn к свежей копии сессии в транзакции. Проигравший гонку
// перечитывает состояние и получает ErrInvalidTransition, а не перезаписывает чужое изменение
func (s *SessionService) mutate(ctx context.Context, actor model.Actor, sessionID int64, action scheduling.Action,
	fn func(ctx context.Context, r repository.Repos, session *model.Session) error,
) (*model.Session, error) {
	var out *model.Session

	err := s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		session, err := s.load(ctx, r, actor, sessionID, action)
		if err != nil {
			return err
		}
		if err := fn(ctx, r, session); err != nil {
			return err
		}
		if err := r.Sessions.Update(ctx, session); err != nil {
			return err
		}
		out = session
		return nil
	})

	switch {
	case errors.Is(err, repository.ErrStaleVersion):
		return nil, fmt.Errorf("%w: session %d was modified concurrently", ErrInvalidTransition, sessionID)
	case errors.Is(err, repository.ErrOverlap):
		return nil, fmt.Errorf("%w: coach already has a session at that time", ErrSlotConflict)
	case err != nil:
		return nil, err
	}
	return out, nil
}

// Get карточка сессии. Заметки коуча менти не видит
func (s *SessionService) Get(ctx context.Context, actor model.Actor, sessionID int64) (*SessionDetail, error) {
	repos := s.Store.Repos()

	session, err := s.load(ctx, repos, actor, sessionID, scheduling.ActionView)
	if err != nil {
		return nil, err
	}

	booking, err := repos.Bookings.GetBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	items, err := repos.ActionItems.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get action items: %w", err)
	}
	review, err := repos.Reviews.GetBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if items == nil {
		items = []*model.ActionItem{}
	}

	detail := &SessionDetail{
		Session:     visibleTo(actor, session),
		Booking:     booking,
		ActionItems: items,
		Review:      review,
	}
	if detail.CoachNotes != "" {
		html, err := renderNotes(detail.CoachNotes)
		if err != nil {
			s.Logger.Warn("Failed to render coach notes", zap.Int64("session_id", session.ID), zap.Error(err))
		}
		detail.CoachNotesHTML = html
	}

	return detail, nil
}

// List сессии пользователя, новые сверху
func (s *SessionService) List(ctx context.Context, actor model.Actor) ([]*model.Session, error) {
	if actor.Role != model.RoleCoach && actor.Role != model.RoleMentee {
		return nil, fmt.Errorf("%w: unknown role %s", ErrUnauthorized, actor.Role)
	}

	sessions, err := s.Store.Repos().Sessions.ListByParticipant(ctx, actor.UserID, actor.Role)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	for i := range sessions {
		sessions[i] = visibleTo(actor, sessions[i])
	}
	return sessions, nil
}

func visibleTo(actor model.Actor, session *model.Session) *model.Session {
	if actor.Role == model.RoleMentee {
		cp := *session
		cp.CoachNotes = ""
		return &cp
	}
	return session
}

// transition переход статуса с проверкой роли, таблицы переходов и времени
func (s *SessionService) transition(session *model.Session, actor model.Actor, to model.SessionStatus, now time.Time) error {
	var action scheduling.Action
	switch to {
	case model.SessionStatusInProgress:
		action = scheduling.ActionStart
	case model.SessionStatusCompleted:
		action = scheduling.ActionComplete
	case model.SessionStatusNoShow:
		action = scheduling.ActionNoShow
	default:
		return fmt.Errorf("%w: status %q cannot be set directly", ErrValidation, to)
	}

	if !scheduling.CanPerform(action, actor, session.CoachID, session.MenteeID) {
		return fmt.Errorf("%w: %s not allowed for %s", ErrUnauthorized, action, actor.Role)
	}
	if !scheduling.CanTransition(session.Status, to) {
		return fmt.Errorf("%w: session is %s", ErrInvalidTransition, session.Status)
	}

	switch to {
	case model.SessionStatusInProgress:
		if !scheduling.CanStart(session.ScheduledAt, now, s.Booking.StartWindow) {
			return fmt.Errorf("%w: session cannot be started yet", ErrInvalidTransition)
		}
		session.StartedAt = &now
	case model.SessionStatusCompleted:
		if !scheduling.CanComplete(session.ScheduledAt, now) {
			return fmt.Errorf("%w: session cannot be completed before it starts", ErrInvalidTransition)
		}
		session.CompletedAt = &now
	case model.SessionStatusNoShow:
		if !scheduling.CanMarkNoShow(session, now) {
			return fmt.Errorf("%w: session has not ended yet", ErrInvalidTransition)
		}
	}

	session.Status = to
	return nil
}

func (s *SessionService) changeStatus(ctx context.Context, actor model.Actor, sessionID int64, to model.SessionStatus) (*model.Session, error) {
	session, err := s.mutate(ctx, actor, sessionID, "", func(_ context.Context, _ repository.Repos, session *model.Session) error {
		return s.transition(session, actor, to, s.Clock.Now())
	})
	if err != nil {
		return nil, err
	}
	s.afterStatusChange(ctx, session)
	return session, nil
}

// Start коуч начинает сессию не раньше чем за StartWindow до начала
func (s *SessionService) Start(ctx context.Context, actor model.Actor, sessionID int64) (*model.Session, error) {
	return s.changeStatus(ctx, actor, sessionID, model.SessionStatusInProgress)
}

// Complete коуч завершает сессию после её начала. Повторное завершение запрещено
func (s *SessionService) Complete(ctx context.Context, actor model.Actor, sessionID int64) (*model.Session, error) {
	return s.changeStatus(ctx, actor, sessionID, model.SessionStatusCompleted)
}

// MarkNoShow неявка после окончания сессии. Деньги не возвращаются
func (s *SessionService) MarkNoShow(ctx context.Context, actor model.Actor, sessionID int64) (*model.Session, error) {
	return s.changeStatus(ctx, actor, sessionID, model.SessionStatusNoShow)
}

func (s *SessionService) afterStatusChange(ctx context.Context, session *model.Session) {
	s.Logger.Info("Session status changed",
		zap.Int64("session_id", session.ID),
		zap.String("status", string(session.Status)),
	)

	if session.Status == model.SessionStatusCompleted {
		s.Notifier.Emit(notify.Event{
			Type:        notify.EventSessionCompleted,
			SessionID:   session.ID,
			BookingID:   session.BookingID,
			CoachID:     session.CoachID,
			MenteeID:    session.MenteeID,
			Recipients:  []int64{session.MenteeID},
			ScheduledAt: session.ScheduledAt,
			Timezone:    s.coachTimezone(ctx, session.CoachID),
		})
	}
}

// UpdateNotes заметки коуча можно менять в любом статусе
func (s *SessionService) UpdateNotes(ctx context.Context, actor model.Actor, sessionID int64, notes string) (*model.Session, error) {
	return s.mutate(ctx, actor, sessionID, scheduling.ActionEditNotes, func(_ context.Context, _ repository.Repos, session *model.Session) error {
		session.CoachNotes = notes
		return nil
	})
}

// Patch заметки и статус одной транзакцией
func (s *SessionService) Patch(ctx context.Context, actor model.Actor, sessionID int64, req PatchSessionRequest) (*model.Session, error) {
	if req.CoachNotes == nil && req.Status == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Status != nil {
		switch *req.Status {
		case model.SessionStatusCancelled:
			return nil, fmt.Errorf("%w: use cancel to cancel a session", ErrValidation)
		case model.SessionStatusInProgress, model.SessionStatusCompleted, model.SessionStatusNoShow:
		default:
			return nil, fmt.Errorf("%w: unsupported status %q", ErrValidation, *req.Status)
		}
	}

	session, err := s.mutate(ctx, actor, sessionID, "", func(_ context.Context, _ repository.Repos, session *model.Session) error {
		if req.Version != 0 && req.Version != session.Version {
			return fmt.Errorf("%w: session version is %d", ErrInvalidTransition, session.Version)
		}
		if req.CoachNotes != nil {
			if !scheduling.CanPerform(scheduling.ActionEditNotes, actor, session.CoachID, session.MenteeID) {
				return fmt.Errorf("%w: only the coach can edit notes", ErrUnauthorized)
			}
			session.CoachNotes = *req.CoachNotes
		}
		if req.Status != nil {
			return s.transition(session, actor, *req.Status, s.Clock.Now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		s.afterStatusChange(ctx, session)
	}
	return session, nil
}

// Cancel отменяет запланированную сессию и запрашивает возврат по правилам:
// коуч всегда 100%, менти 100% не позже чем за окно до начала, иначе частично
func (s *SessionService) Cancel(ctx context.Context, actor model.Actor, sessionID int64, reason string) (*model.Session, error) {
	var booking *model.Booking
	var percentage int

	session, err := s.mutate(ctx, actor, sessionID, scheduling.ActionCancel, func(ctx context.Context, r repository.Repos, session *model.Session) error {
		if session.Status != model.SessionStatusScheduled {
			return fmt.Errorf("%w: session is %s", ErrInvalidTransition, session.Status)
		}

		now := s.Clock.Now()
		percentage = s.refundPolicy().Percentage(actor.Role, session.ScheduledAt, now)

		session.Status = model.SessionStatusCancelled
		session.CancelledAt = &now
		session.CancelledBy = actor.Role
		session.CancellationReason = reason

		b, err := r.Bookings.GetBySessionID(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil || b.Status != model.BookingStatusPaid || b.RefundRequestedAt != nil {
			return nil
		}
		b.RefundPercentage = percentage
		b.RefundAmount = scheduling.RefundAmount(b.Amount, percentage)
		b.RefundRequestedAt = &now
		booking = b
		return r.Bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Session cancelled",
		zap.Int64("session_id", session.ID),
		zap.String("cancelled_by", string(actor.Role)),
		zap.Int("refund_percentage", percentage),
	)

	event := notify.Event{
		Type:          notify.EventSessionCancelled,
		SessionID:     session.ID,
		BookingID:     session.BookingID,
		CoachID:       session.CoachID,
		MenteeID:      session.MenteeID,
		Recipients:    []int64{session.CoachID, session.MenteeID},
		ScheduledAt:   session.ScheduledAt,
		Timezone:      s.coachTimezone(ctx, session.CoachID),
		Reason:        reason,
		CancelledBy:   string(actor.Role),
		RefundPercent: percentage,
	}
	if booking != nil {
		event.RefundAmount = booking.RefundAmount
		event.Currency = booking.Currency
		s.bookings.issueRefund(ctx, booking.ID)
	}
	s.Notifier.Emit(event)

	return session, nil
}

// Reschedule переносит сессию на новое время. Та же сессия, тот же номер, артефакты сохраняются
func (s *SessionService) Reschedule(ctx context.Context, actor model.Actor, sessionID int64, newStart time.Time) (*model.Session, error) {
	newStart = newStart.UTC()
	var previous time.Time

	session, err := s.mutate(ctx, actor, sessionID, scheduling.ActionReschedule, func(ctx context.Context, r repository.Repos, session *model.Session) error {
		if session.Status != model.SessionStatusScheduled {
			return fmt.Errorf("%w: session is %s", ErrInvalidTransition, session.Status)
		}

		now := s.Clock.Now()
		if !scheduling.CanReschedule(session.ScheduledAt, now, s.Booking.RescheduleWindow) {
			return fmt.Errorf("%w: sessions can only be rescheduled more than %s in advance", ErrTooLateToModify, s.Booking.RescheduleWindow)
		}
		if newStart.Before(now.Add(s.Booking.LeadTime)) {
			return fmt.Errorf("%w: new time must be at least %s from now", ErrValidation, s.Booking.LeadTime)
		}
		if newStart.Equal(session.ScheduledAt) {
			return fmt.Errorf("%w: session is already at that time", ErrValidation)
		}

		if err := r.Locks.LockCoach(ctx, session.CoachID); err != nil {
			return fmt.Errorf("lock coach: %w", err)
		}

		// коуч может перенести куда угодно, менти только в часы доступности
		if actor.Role == model.RoleMentee {
			_, ok, err := s.availability.onGrid(ctx, r, session.CoachID, newStart, session.DurationMinutes)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: new time is outside coach availability", ErrSlotConflict)
			}
		}

		newEnd := newStart.Add(time.Duration(session.DurationMinutes) * time.Minute)
		active, err := r.Sessions.ListActiveByCoach(ctx, session.CoachID, newStart, newEnd)
		if err != nil {
			return fmt.Errorf("get coach sessions: %w", err)
		}
		if scheduling.FindConflict(newStart, newEnd, active, session.ID) != nil {
			return fmt.Errorf("%w: coach already has a session at that time", ErrSlotConflict)
		}

		previous = session.ScheduledAt
		session.ScheduledAt = newStart
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Session rescheduled",
		zap.Int64("session_id", session.ID),
		zap.Time("from", previous),
		zap.Time("to", session.ScheduledAt),
	)

	if err := s.Jobs.ScheduleReminders(ctx, session); err != nil {
		s.Logger.Warn("Failed to schedule reminders", zap.Int64("session_id", session.ID), zap.Error(err))
	}

	s.Notifier.Emit(notify.Event{
		Type:        notify.EventSessionRescheduled,
		SessionID:   session.ID,
		BookingID:   session.BookingID,
		CoachID:     session.CoachID,
		MenteeID:    session.MenteeID,
		Recipients:  []int64{session.CoachID, session.MenteeID},
		ScheduledAt: session.ScheduledAt,
		PreviousAt:  &previous,
		Timezone:    s.coachTimezone(ctx, session.CoachID),
	})

	return session, nil
}

// SendReminder срабатывает из очереди. Напоминание уходит только если
// сессия всё ещё запланирована на то же время
func (s *SessionService) SendReminder(ctx context.Context, sessionID int64, kind jobs.ReminderKind, scheduledAt time.Time) error {
	session, err := s.Store.Repos().Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.Status != model.SessionStatusScheduled || !session.ScheduledAt.Equal(scheduledAt) {
		s.Logger.Debug("Skipping stale reminder", zap.Int64("session_id", sessionID), zap.String("kind", string(kind)))
		return nil
	}

	eventType := notify.EventReminder24h
	if kind == jobs.Reminder1h {
		eventType = notify.EventReminder1h
	}

	s.Notifier.Emit(notify.Event{
		Type:        eventType,
		SessionID:   session.ID,
		BookingID:   session.BookingID,
		CoachID:     session.CoachID,
		MenteeID:    session.MenteeID,
		Recipients:  []int64{session.CoachID, session.MenteeID},
		ScheduledAt: session.ScheduledAt,
		Timezone:    s.coachTimezone(ctx, session.CoachID),
	})
	return nil
}

// AutoMarkNoShows переводит в no_show запланированные сессии, закончившиеся больше grace назад
func (s *SessionService) AutoMarkNoShows(ctx context.Context, grace time.Duration) (int, error) {
	ended, err := s.Store.Repos().Sessions.ListScheduledEndedBefore(ctx, s.Clock.Now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("list ended sessions: %w", err)
	}

	marked := 0
	for _, session := range ended {
		if _, err := s.MarkNoShow(ctx, model.SystemActor(), session.ID); err != nil {
			s.Logger.Warn("Failed to mark no-show", zap.Int64("session_id", session.ID), zap.Error(err))
			continue
		}
		marked++
	}
	return marked, nil
}

func (s *SessionService) coachTimezone(ctx context.Context, coachID int64) string {
	settings, err := s.Store.Repos().Settings.Get(ctx, coachID)
	if err != nil || settings == nil {
		return "UTC"
	}
	return settings.Timezone
}
