// Package memory хранилище в памяти для разработки без Postgres и для тестов.
// Транзакции сериализуются одним мьютексом и работают на копии состояния
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
)

type state struct {
	users    map[int64]model.User
	settings map[int64]model.CoachSettings
	rules    map[int64][]model.AvailabilityRule
	sessions map[int64]model.Session
	bookings map[int64]model.Booking
	items    map[int64]model.ActionItem
	reviews  map[int64]model.Review // по session_id
	seq      int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]model.User),
		settings: make(map[int64]model.CoachSettings),
		rules:    make(map[int64][]model.AvailabilityRule),
		sessions: make(map[int64]model.Session),
		bookings: make(map[int64]model.Booking),
		items:    make(map[int64]model.ActionItem),
		reviews:  make(map[int64]model.Review),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = append([]model.AvailabilityRule(nil), v...)
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store реализация repository.Store в памяти
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// access выполняет f над состоянием
type access func(f func(st *state) error) error

func (s *Store) locked(f func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.st)
}

func (s *Store) Repos() repository.Repos {
	return s.repos(s.locked)
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.st.clone()
	direct := func(f func(st *state) error) error { return f(tx) }

	if err := fn(ctx, s.repos(direct)); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func (s *Store) repos(a access) repository.Repos {
	return repository.Repos{
		Users:        &users{a: a, now: s.now},
		Settings:     &settings{a: a, now: s.now},
		Availability: &availability{a: a, now: s.now},
		Sessions:     &sessions{a: a, now: s.now},
		Bookings:     &bookings{a: a, now: s.now},
		ActionItems:  &actionItems{a: a, now: s.now},
		Reviews:      &reviews{a: a, now: s.now},
		Locks:        noopLocker{},
	}
}

// транзакции и так сериализованы мьютексом
type noopLocker struct{}

func (noopLocker) LockCoach(context.Context, int64) error { return nil }
