package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

type users struct {
	a   access
	now func() time.Time
}

func (r *users) Create(_ context.Context, user *model.User) error {
	return r.a(func(st *state) error {
		if user.TelegramID != nil {
			for _, u := range st.users {
				if u.TelegramID != nil && *u.TelegramID == *user.TelegramID {
					return fmt.Errorf("create user: %w", repository.ErrDuplicate)
				}
			}
		}
		if user.ID == 0 {
			user.ID = st.nextID()
		} else if _, ok := st.users[user.ID]; ok {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		} else if user.ID > st.seq {
			st.seq = user.ID
		}
		user.CreatedAt = r.now()
		user.UpdatedAt = user.CreatedAt
		st.users[user.ID] = *user
		return nil
	})
}

func (r *users) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.a(func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *users) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	var out *model.User
	err := r.a(func(st *state) error {
		for _, u := range st.users {
			if u.TelegramID != nil && *u.TelegramID == telegramID {
				u := u
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *users) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.User, error) {
	out := make(map[int64]*model.User, len(ids))
	err := r.a(func(st *state) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				out[id] = &u
			}
		}
		return nil
	})
	return out, err
}

func (r *users) Update(_ context.Context, user *model.User) error {
	return r.a(func(st *state) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return fmt.Errorf("update user %d: not found", user.ID)
		}
		if user.TelegramID != nil {
			for id, u := range st.users {
				if id != user.ID && u.TelegramID != nil && *u.TelegramID == *user.TelegramID {
					return fmt.Errorf("update user: %w", repository.ErrDuplicate)
				}
			}
		}
		user.Role = existing.Role
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = r.now()
		st.users[user.ID] = *user
		return nil
	})
}

type settings struct {
	a   access
	now func() time.Time
}

func (r *settings) Get(_ context.Context, coachID int64) (*model.CoachSettings, error) {
	var out *model.CoachSettings
	err := r.a(func(st *state) error {
		if s, ok := st.settings[coachID]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *settings) Upsert(_ context.Context, s *model.CoachSettings) error {
	return r.a(func(st *state) error {
		s.UpdatedAt = r.now()
		st.settings[s.CoachID] = *s
		return nil
	})
}

type availability struct {
	a   access
	now func() time.Time
}

func (r *availability) ListByCoach(_ context.Context, coachID int64) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	err := r.a(func(st *state) error {
		out = append(out, st.rules[coachID]...)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

func (r *availability) ReplaceForCoach(_ context.Context, coachID int64, rules []model.AvailabilityRule) error {
	return r.a(func(st *state) error {
		stored := make([]model.AvailabilityRule, len(rules))
		for i := range rules {
			rules[i].ID = st.nextID()
			rules[i].CoachID = coachID
			rules[i].CreatedAt = r.now()
			stored[i] = rules[i]
		}
		st.rules[coachID] = stored
		return nil
	})
}

type sessions struct {
	a   access
	now func() time.Time
}

// overlapping повторяет exclusion constraint из миграции
func overlapping(st *state, s *model.Session) bool {
	if !s.Status.IsActive() {
		return false
	}
	for id, other := range st.sessions {
		if id == s.ID || other.CoachID != s.CoachID || !other.Status.IsActive() {
			continue
		}
		if scheduling.Overlaps(s.ScheduledAt, s.EndsAt(), other.ScheduledAt, other.EndsAt()) {
			return true
		}
	}
	return false
}

func (r *sessions) Create(_ context.Context, s *model.Session) error {
	return r.a(func(st *state) error {
		if overlapping(st, s) {
			return fmt.Errorf("create session: %w", repository.ErrOverlap)
		}
		s.ID = st.nextID()
		s.Version = 1
		s.CreatedAt = r.now()
		s.UpdatedAt = s.CreatedAt
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessions) GetByID(_ context.Context, id int64) (*model.Session, error) {
	var out *model.Session
	err := r.a(func(st *state) error {
		if s, ok := st.sessions[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *sessions) filter(keep func(s *model.Session) bool) ([]*model.Session, error) {
	var out []*model.Session
	err := r.a(func(st *state) error {
		for _, s := range st.sessions {
			s := s
			if keep(&s) {
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, err
}

func (r *sessions) ListActiveByCoach(_ context.Context, coachID int64, from, to time.Time) ([]*model.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.CoachID == coachID && s.Status.IsActive() &&
			scheduling.Overlaps(s.ScheduledAt, s.EndsAt(), from, to)
	})
}

func (r *sessions) ListByParticipant(_ context.Context, userID int64, role model.Role) ([]*model.Session, error) {
	out, err := r.filter(func(s *model.Session) bool {
		if role == model.RoleCoach {
			return s.CoachID == userID
		}
		return s.MenteeID == userID
	})
	// новые сверху
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, err
}

func (r *sessions) ListScheduledEndedBefore(_ context.Context, before time.Time) ([]*model.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.Status == model.SessionStatusScheduled && !s.EndsAt().After(before)
	})
}

func (r *sessions) CountByPair(_ context.Context, coachID, menteeID int64) (int, error) {
	count := 0
	err := r.a(func(st *state) error {
		for _, s := range st.sessions {
			if s.CoachID == coachID && s.MenteeID == menteeID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *sessions) Update(_ context.Context, s *model.Session) error {
	return r.a(func(st *state) error {
		existing, ok := st.sessions[s.ID]
		if !ok || existing.Version != s.Version {
			return fmt.Errorf("update session %d: %w", s.ID, repository.ErrStaleVersion)
		}
		if overlapping(st, s) {
			return fmt.Errorf("update session %d: %w", s.ID, repository.ErrOverlap)
		}
		s.Version++
		s.UpdatedAt = r.now()
		// неизменяемые поля берём из хранилища
		s.CoachID, s.MenteeID, s.BookingID = existing.CoachID, existing.MenteeID, existing.BookingID
		s.SessionNumber, s.CreatedAt = existing.SessionNumber, existing.CreatedAt
		st.sessions[s.ID] = *s
		return nil
	})
}

type bookings struct {
	a   access
	now func() time.Time
}

func (r *bookings) Create(_ context.Context, b *model.Booking) error {
	return r.a(func(st *state) error {
		b.ID = st.nextID()
		b.Version = 1
		b.CreatedAt = r.now()
		b.UpdatedAt = b.CreatedAt
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookings) find(match func(b *model.Booking) bool) (*model.Booking, error) {
	var out *model.Booking
	err := r.a(func(st *state) error {
		for _, b := range st.bookings {
			b := b
			if match(&b) {
				out = &b
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *bookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	return r.find(func(b *model.Booking) bool { return b.ID == id })
}

func (r *bookings) GetByIntentID(_ context.Context, intentID string) (*model.Booking, error) {
	if intentID == "" {
		return nil, nil
	}
	return r.find(func(b *model.Booking) bool { return b.IntentID == intentID })
}

func (r *bookings) GetBySessionID(_ context.Context, sessionID int64) (*model.Booking, error) {
	return r.find(func(b *model.Booking) bool { return b.SessionID != nil && *b.SessionID == sessionID })
}

func (r *bookings) Update(_ context.Context, b *model.Booking) error {
	return r.a(func(st *state) error {
		existing, ok := st.bookings[b.ID]
		if !ok {
			return fmt.Errorf("update booking %d: not found", b.ID)
		}
		if existing.Version != b.Version {
			return fmt.Errorf("update booking %d: %w", b.ID, repository.ErrStaleVersion)
		}
		b.Version++
		b.UpdatedAt = r.now()
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *bookings) list(keep func(b *model.Booking) bool) ([]*model.Booking, error) {
	var out []*model.Booking
	err := r.a(func(st *state) error {
		for _, b := range st.bookings {
			b := b
			if keep(&b) {
				out = append(out, &b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *bookings) ListPendingExpiredBefore(_ context.Context, before time.Time) ([]*model.Booking, error) {
	return r.list(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusPending && !b.ExpiresAt.After(before)
	})
}

func (r *bookings) ListRefundOutstanding(_ context.Context) ([]*model.Booking, error) {
	return r.list(func(b *model.Booking) bool { return b.RefundOutstanding() })
}

type actionItems struct {
	a   access
	now func() time.Time
}

func (r *actionItems) Create(_ context.Context, item *model.ActionItem) error {
	return r.a(func(st *state) error {
		item.ID = st.nextID()
		item.CreatedAt = r.now()
		item.UpdatedAt = item.CreatedAt
		st.items[item.ID] = *item
		return nil
	})
}

func (r *actionItems) GetByID(_ context.Context, id int64) (*model.ActionItem, error) {
	var out *model.ActionItem
	err := r.a(func(st *state) error {
		if item, ok := st.items[id]; ok {
			out = &item
		}
		return nil
	})
	return out, err
}

func (r *actionItems) ListBySession(_ context.Context, sessionID int64) ([]*model.ActionItem, error) {
	var out []*model.ActionItem
	err := r.a(func(st *state) error {
		for _, item := range st.items {
			item := item
			if item.SessionID == sessionID {
				out = append(out, &item)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.ID < b.ID
	})
	return out, err
}

func (r *actionItems) Update(_ context.Context, item *model.ActionItem) error {
	return r.a(func(st *state) error {
		existing, ok := st.items[item.ID]
		if !ok {
			return fmt.Errorf("update action item %d: not found", item.ID)
		}
		item.SessionID = existing.SessionID
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = r.now()
		st.items[item.ID] = *item
		return nil
	})
}

func (r *actionItems) Delete(_ context.Context, id int64) error {
	return r.a(func(st *state) error {
		delete(st.items, id)
		return nil
	})
}

type reviews struct {
	a   access
	now func() time.Time
}

func (r *reviews) Create(_ context.Context, review *model.Review) error {
	return r.a(func(st *state) error {
		if _, ok := st.reviews[review.SessionID]; ok {
			return fmt.Errorf("create review: %w", repository.ErrDuplicate)
		}
		review.ID = st.nextID()
		review.CreatedAt = r.now()
		review.UpdatedAt = review.CreatedAt
		st.reviews[review.SessionID] = *review
		return nil
	})
}

func (r *reviews) GetBySession(_ context.Context, sessionID int64) (*model.Review, error) {
	var out *model.Review
	err := r.a(func(st *state) error {
		if review, ok := st.reviews[sessionID]; ok {
			out = &review
		}
		return nil
	})
	return out, err
}

func (r *reviews) UpdateComment(_ context.Context, review *model.Review) error {
	return r.a(func(st *state) error {
		existing, ok := st.reviews[review.SessionID]
		if !ok || existing.ID != review.ID {
			return fmt.Errorf("update review %d: not found", review.ID)
		}
		existing.Comment = review.Comment
		existing.UpdatedAt = r.now()
		st.reviews[review.SessionID] = existing
		*review = existing
		return nil
	})
}

func (r *reviews) SetCoachResponse(_ context.Context, review *model.Review) (bool, error) {
	applied := false
	err := r.a(func(st *state) error {
		existing, ok := st.reviews[review.SessionID]
		if !ok || existing.ID != review.ID {
			return fmt.Errorf("set coach response %d: not found", review.ID)
		}
		if existing.CoachResponse != nil {
			return nil
		}
		existing.CoachResponse = review.CoachResponse
		existing.RespondedAt = review.RespondedAt
		existing.UpdatedAt = r.now()
		st.reviews[review.SessionID] = existing
		*review = existing
		applied = true
		return nil
	})
	return applied, err
}
