package scheduling

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// 2025-03-10 понедельник
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func mondayMorning() []model.AvailabilityRule {
	return []model.AvailabilityRule{
		{CoachID: 1, Weekday: 1, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"},
	}
}

func starts(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartLocal)
	}
	return out
}

func TestGenerateSlots_MondayMorning(t *testing.T) {
	slots, err := GenerateSlots(SlotQuery{
		CoachID:     1,
		Rules:       mondayMorning(),
		From:        monday.AddDate(0, 0, -2),
		To:          monday.AddDate(0, 0, 3),
		SlotMinutes: 60,
		Now:         monday.AddDate(0, 0, -7),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, starts(slots))
	assert.Equal(t, "2025-03-10", slots[0].Date)
	assert.Equal(t, "10:00", slots[0].EndLocal)
	assert.Equal(t, "UTC", slots[0].Timezone)
}

func TestGenerateSlots_ExcludesActiveSessions(t *testing.T) {
	sessions := []*model.Session{
		{ID: 1, CoachID: 1, ScheduledAt: monday.Add(10 * time.Hour), DurationMinutes: 60, Status: model.SessionStatusScheduled},
		// отменённая сессия слот не занимает
		{ID: 2, CoachID: 1, ScheduledAt: monday.Add(11 * time.Hour), DurationMinutes: 60, Status: model.SessionStatusCancelled},
		// чужой коуч
		{ID: 3, CoachID: 2, ScheduledAt: monday.Add(9 * time.Hour), DurationMinutes: 60, Status: model.SessionStatusScheduled},
	}

	slots, err := GenerateSlots(SlotQuery{
		CoachID:     1,
		Rules:       mondayMorning(),
		Sessions:    sessions,
		From:        monday,
		To:          monday,
		SlotMinutes: 60,
		Now:         monday.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, starts(slots))
}

func TestGenerateSlots_PartialOverlapRemovesSlot(t *testing.T) {
	sessions := []*model.Session{
		{ID: 1, CoachID: 1, ScheduledAt: monday.Add(9*time.Hour + 30*time.Minute), DurationMinutes: 45, Status: model.SessionStatusInProgress},
	}

	slots, err := GenerateSlots(SlotQuery{
		CoachID:     1,
		Rules:       mondayMorning(),
		Sessions:    sessions,
		From:        monday,
		To:          monday,
		SlotMinutes: 60,
		Now:         monday.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00"}, starts(slots))
}

func TestGenerateSlots_LeadTime(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		leadTime time.Duration
		want     []string
	}{
		{"no lead time, before day", monday, 0, []string{"09:00", "10:00", "11:00"}},
		{"slot starting exactly now is kept", monday.Add(9 * time.Hour), 0, []string{"09:00", "10:00", "11:00"}},
		{"past slots removed", monday.Add(9*time.Hour + time.Minute), 0, []string{"10:00", "11:00"}},
		{"lead time removes near slots", monday.Add(8 * time.Hour), 2 * time.Hour, []string{"10:00", "11:00"}},
		{"everything too close", monday.Add(10 * time.Hour), 2 * time.Hour, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots, err := GenerateSlots(SlotQuery{
				CoachID:     1,
				Rules:       mondayMorning(),
				From:        monday,
				To:          monday,
				SlotMinutes: 60,
				Now:         tt.now,
				LeadTime:    tt.leadTime,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, starts(slots))
		})
	}
}

func TestGenerateSlots_TimezoneAndSorting(t *testing.T) {
	rules := []model.AvailabilityRule{
		{CoachID: 1, Weekday: 2, StartTime: "18:00", EndTime: "19:30", Timezone: "Europe/Berlin"},
		{CoachID: 1, Weekday: 1, StartTime: "14:00", EndTime: "15:00", Timezone: "Europe/Berlin"},
	}

	slots, err := GenerateSlots(SlotQuery{
		CoachID:     1,
		Rules:       rules,
		From:        monday,
		To:          monday.AddDate(0, 0, 1),
		SlotMinutes: 30,
		Now:         monday.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	require.Len(t, slots, 5)

	// Берлин в марте UTC+1
	assert.Equal(t, time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, "14:00", slots[0].StartLocal)
	assert.Equal(t, "2025-03-11", slots[2].Date)
	assert.Equal(t, "18:00", slots[2].StartLocal)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestGenerateSlots_TrailingRemainderDropped(t *testing.T) {
	rules := []model.AvailabilityRule{
		{CoachID: 1, Weekday: 1, StartTime: "09:00", EndTime: "10:45", Timezone: "UTC"},
	}
	slots, err := GenerateSlots(SlotQuery{
		CoachID: 1, Rules: rules, From: monday, To: monday, SlotMinutes: 30, Now: monday,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, starts(slots))
}

func TestGenerateSlots_EndOfDay(t *testing.T) {
	rules := []model.AvailabilityRule{
		{CoachID: 1, Weekday: 1, StartTime: "22:00", EndTime: "24:00", Timezone: "UTC"},
	}
	slots, err := GenerateSlots(SlotQuery{
		CoachID: 1, Rules: rules, From: monday, To: monday, SlotMinutes: 60, Now: monday,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"22:00", "23:00"}, starts(slots))
	assert.Equal(t, "00:00", slots[1].EndLocal)
}

func TestGenerateSlots_InvalidInput(t *testing.T) {
	_, err := GenerateSlots(SlotQuery{Rules: mondayMorning(), From: monday, To: monday, SlotMinutes: 0})
	assert.ErrorIs(t, err, ErrInvalidSlotQuery)

	_, err = GenerateSlots(SlotQuery{Rules: mondayMorning(), From: monday, To: monday.AddDate(0, 0, -1), SlotMinutes: 60})
	assert.ErrorIs(t, err, ErrInvalidSlotQuery)

	bad := []model.AvailabilityRule{{Weekday: 1, StartTime: "12:00", EndTime: "09:00", Timezone: "UTC"}}
	_, err = GenerateSlots(SlotQuery{Rules: bad, From: monday, To: monday, SlotMinutes: 60})
	assert.ErrorIs(t, err, ErrInvalidSlotQuery)
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	q := SlotQuery{
		CoachID:     1,
		Rules:       mondayMorning(),
		From:        monday.AddDate(0, 0, -14),
		To:          monday.AddDate(0, 0, 14),
		SlotMinutes: 45,
		Now:         monday.AddDate(0, 0, -20),
	}
	first, err := GenerateSlots(q)
	require.NoError(t, err)
	second, err := GenerateSlots(q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// Случайные правила и случайная последовательность бронирований:
// после каждого бронирования активные сессии не пересекаются,
// а забронированный слот больше не выдаётся генератором
func TestGenerateSlots_RandomBookingsNeverOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	durations := []int{30, 45, 60, 90}

	for round := 0; round < 50; round++ {
		var rules []model.AvailabilityRule
		for day := 0; day < 7; day++ {
			if rng.Intn(2) == 0 {
				continue
			}
			start := rng.Intn(10) * 60
			end := start + 60*(1+rng.Intn(8))
			rules = append(rules, model.AvailabilityRule{
				CoachID: 1, Weekday: day, Timezone: "UTC",
				StartTime: model.FormatClock(start), EndTime: model.FormatClock(end),
			})
		}

		var sessions []*model.Session
		for i := 0; i < 30; i++ {
			minutes := durations[rng.Intn(len(durations))]
			slots, err := GenerateSlots(SlotQuery{
				CoachID: 1, Rules: rules, Sessions: sessions,
				From: monday, To: monday.AddDate(0, 0, 6),
				SlotMinutes: minutes, Now: monday,
			})
			require.NoError(t, err)
			if len(slots) == 0 {
				continue
			}
			pick := slots[rng.Intn(len(slots))]
			require.Nil(t, FindConflict(pick.Start, pick.End, sessions, 0))

			sessions = append(sessions, &model.Session{
				ID: int64(len(sessions) + 1), CoachID: 1,
				ScheduledAt: pick.Start, DurationMinutes: minutes,
				Status: model.SessionStatusScheduled,
			})

			for a := 0; a < len(sessions); a++ {
				for b := a + 1; b < len(sessions); b++ {
					require.False(t, Overlaps(
						sessions[a].ScheduledAt, sessions[a].EndsAt(),
						sessions[b].ScheduledAt, sessions[b].EndsAt(),
					))
				}
			}

			again, err := GenerateSlots(SlotQuery{
				CoachID: 1, Rules: rules, Sessions: sessions,
				From: monday, To: monday.AddDate(0, 0, 6),
				SlotMinutes: minutes, Now: monday,
			})
			require.NoError(t, err)
			assert.False(t, ContainsSlot(again, pick.Start))
		}
	}
}
