package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/render"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

// Availability недельное расписание коуча вместе с настройками
type Availability struct {
	Settings *model.CoachSettings     `json:"settings"`
	Rules    []model.AvailabilityRule `json:"rules"`
}

type AvailabilityService struct {
	Deps
}

func NewAvailabilityService(d Deps) *AvailabilityService {
	return &AvailabilityService{Deps: d}
}

// SetAvailability заменяет настройки и все правила коуча одной транзакцией
func (s *AvailabilityService) SetAvailability(ctx context.Context, actor model.Actor, coachID int64, settings model.CoachSettings, rules []model.AvailabilityRule) (*Availability, error) {
	if !scheduling.CanPerform(scheduling.ActionSetAvailability, actor, coachID, 0) {
		return nil, fmt.Errorf("%w: only the coach can edit their availability", ErrUnauthorized)
	}

	settings.CoachID = coachID
	if settings.Currency == "" {
		settings.Currency = s.Booking.DefaultCurrency
	}
	settings.Currency = strings.ToLower(settings.Currency)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for i := range rules {
		if rules[i].Timezone == "" {
			rules[i].Timezone = settings.Timezone
		}
	}
	if err := model.ValidateRules(rules, settings.Timezone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err := s.Store.WithTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Settings.Upsert(ctx, &settings); err != nil {
			return err
		}
		return r.Availability.ReplaceForCoach(ctx, coachID, rules)
	})
	if err != nil {
		return nil, fmt.Errorf("save availability: %w", err)
	}

	s.Logger.Info("Availability updated",
		zap.Int64("coach_id", coachID),
		zap.Int("rules", len(rules)),
		zap.String("timezone", settings.Timezone),
	)

	return &Availability{Settings: &settings, Rules: rules}, nil
}

// GetAvailability читает расписание коуча
func (s *AvailabilityService) GetAvailability(ctx context.Context, coachID int64) (*Availability, error) {
	repos := s.Store.Repos()

	settings, err := repos.Settings.Get(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("get coach settings: %w", err)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: coach %d has no availability", ErrNotFound, coachID)
	}

	rules, err := repos.Availability.ListByCoach(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("get availability rules: %w", err)
	}

	return &Availability{Settings: settings, Rules: rules}, nil
}

// ListSlots свободные слоты коуча в диапазоне дат [from, to] по календарю коуча.
// durationMinutes = 0 означает длительность по умолчанию из настроек
func (s *AvailabilityService) ListSlots(ctx context.Context, coachID int64, from, to time.Time, durationMinutes int) ([]model.Slot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before range start", ErrValidation)
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.Booking.MaxSlotRangeDays {
		return nil, fmt.Errorf("%w: range is limited to %d days", ErrValidation, s.Booking.MaxSlotRangeDays)
	}

	av, err := s.GetAvailability(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if durationMinutes == 0 {
		durationMinutes = av.Settings.SlotMinutes
	}
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}

	return s.generate(ctx, s.Store.Repos(), av, from, to, durationMinutes, true)
}

// generate запускает генератор над текущим состоянием.
// withSessions=false даёт сетку доступности без учёта занятости
func (s *AvailabilityService) generate(ctx context.Context, repos repository.Repos, av *Availability, from, to time.Time, minutes int, withSessions bool) ([]model.Slot, error) {
	var sessions []*model.Session
	if withSessions {
		// запас в сутки с каждой стороны покрывает любые часовые пояса
		var err error
		sessions, err = repos.Sessions.ListActiveByCoach(ctx, av.Settings.CoachID,
			dayStart(from).Add(-24*time.Hour), dayStart(to).Add(48*time.Hour))
		if err != nil {
			return nil, fmt.Errorf("get coach sessions: %w", err)
		}
	}

	slots, err := scheduling.GenerateSlots(scheduling.SlotQuery{
		CoachID:     av.Settings.CoachID,
		Rules:       av.Rules,
		Sessions:    sessions,
		From:        from,
		To:          to,
		SlotMinutes: minutes,
		Now:         s.Clock.Now(),
		LeadTime:    s.Booking.LeadTime,
	})
	if errors.Is(err, scheduling.ErrInvalidSlotQuery) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// onGrid проверяет что интервал совпадает со слотом доступности коуча
func (s *AvailabilityService) onGrid(ctx context.Context, repos repository.Repos, coachID int64, start time.Time, minutes int) (*Availability, bool, error) {
	settings, err := repos.Settings.Get(ctx, coachID)
	if err != nil {
		return nil, false, fmt.Errorf("get coach settings: %w", err)
	}
	if settings == nil {
		return nil, false, fmt.Errorf("%w: coach %d has no availability", ErrNotFound, coachID)
	}
	rules, err := repos.Availability.ListByCoach(ctx, coachID)
	if err != nil {
		return nil, false, fmt.Errorf("get availability rules: %w", err)
	}
	av := &Availability{Settings: settings, Rules: rules}

	loc, err := settings.Location()
	if err != nil {
		return nil, false, err
	}
	local := start.In(loc)
	slots, err := s.generate(ctx, repos, av, local, local, minutes, false)
	if err != nil {
		return nil, false, err
	}
	return av, scheduling.ContainsSlot(slots, start), nil
}

// WeekImage картинка недели коуча с днём day. Имена менти видит только сам коуч
func (s *AvailabilityService) WeekImage(ctx context.Context, actor model.Actor, coachID int64, day time.Time) ([]byte, error) {
	av, err := s.GetAvailability(ctx, coachID)
	if err != nil {
		return nil, err
	}
	loc, err := av.Settings.Location()
	if err != nil {
		return nil, err
	}

	local := day.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	monday := local.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)

	repos := s.Store.Repos()
	free, err := s.generate(ctx, repos, av, monday, sunday, av.Settings.SlotMinutes, true)
	if err != nil {
		return nil, err
	}

	week := render.Week{
		Day:      local,
		Location: loc,
		Now:      s.Clock.Now(),
		Free:     free,
	}

	if actor.Role == model.RoleCoach && actor.UserID == coachID {
		sessions, err := repos.Sessions.ListActiveByCoach(ctx, coachID,
			dayStart(monday).Add(-24*time.Hour), dayStart(sunday).Add(48*time.Hour))
		if err != nil {
			return nil, fmt.Errorf("get coach sessions: %w", err)
		}
		week.Sessions = sessions

		ids := make([]int64, 0, len(sessions))
		for _, session := range sessions {
			ids = append(ids, session.MenteeID)
		}
		users, err := repos.Users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get mentees: %w", err)
		}
		week.Names = make(map[int64]string, len(users))
		for id, u := range users {
			week.Names[id] = u.DisplayName()
		}
	}

	img, err := render.WeekImage(week)
	if err != nil {
		return nil, fmt.Errorf("render week: %w", err)
	}
	return img, nil
}

func validateDuration(minutes int) error {
	if minutes <= 0 || minutes%15 != 0 || minutes > 240 {
		return fmt.Errorf("%w: duration must be a multiple of 15 minutes between 15 and 240", ErrValidation)
	}
	return nil
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
