package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/coach_scheduler/internal/clock"
)

type hold struct {
	token   string
	expires time.Time
}

// MemoryReserver удержания в памяти процесса
type MemoryReserver struct {
	mu    sync.Mutex
	clock clock.Clock
	holds map[int64]map[int64]hold // coach -> bucket unix -> hold
}

func NewMemoryReserver(c clock.Clock) *MemoryReserver {
	return &MemoryReserver{clock: c, holds: make(map[int64]map[int64]hold)}
}

func (m *MemoryReserver) Reserve(_ context.Context, coachID int64, start, end time.Time, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	coach := m.holds[coachID]
	if coach == nil {
		coach = make(map[int64]hold)
		m.holds[coachID] = coach
	}

	bs := buckets(start, end)
	for _, b := range bs {
		if h, ok := coach[b.Unix()]; ok && now.Before(h.expires) {
			return "", ErrReserved
		}
	}

	token := uuid.NewString()
	for _, b := range bs {
		coach[b.Unix()] = hold{token: token, expires: now.Add(ttl)}
	}
	return token, nil
}

func (m *MemoryReserver) Release(_ context.Context, coachID int64, start, end time.Time, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	coach := m.holds[coachID]
	for _, b := range buckets(start, end) {
		if h, ok := coach[b.Unix()]; ok && h.token == token {
			delete(coach, b.Unix())
		}
	}
	return nil
}
