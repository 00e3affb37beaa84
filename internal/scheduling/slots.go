package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// SlotQuery входные данные генератора слотов. Генератор не читает часы сам:
// текущее время передаётся в Now
type SlotQuery struct {
	CoachID     int64
	Rules       []model.AvailabilityRule
	Sessions    []*model.Session
	From        time.Time // первый день диапазона (берётся только дата)
	To          time.Time // последний день диапазона включительно
	SlotMinutes int
	Now         time.Time
	LeadTime    time.Duration
}

var ErrInvalidSlotQuery = errors.New("invalid slot query")

// GenerateSlots разворачивает регулярные правила в конкретные слоты,
// убирает занятые активными сессиями и начинающиеся раньше Now+LeadTime.
// Результат отсортирован по времени начала
func GenerateSlots(q SlotQuery) ([]model.Slot, error) {
	if q.SlotMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", ErrInvalidSlotQuery)
	}
	if q.To.Before(q.From) {
		return nil, fmt.Errorf("%w: range end before range start", ErrInvalidSlotQuery)
	}

	duration := time.Duration(q.SlotMinutes) * time.Minute
	earliest := q.Now.Add(q.LeadTime)

	busy := make([]*model.Session, 0, len(q.Sessions))
	for _, s := range q.Sessions {
		if s.Status.IsActive() && (q.CoachID == 0 || s.CoachID == q.CoachID) {
			busy = append(busy, s)
		}
	}

	var slots []model.Slot
	for _, rule := range q.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSlotQuery, err)
		}
		loc, _ := time.LoadLocation(rule.Timezone)
		startMin, endMin, _ := rule.Bounds()

		fy, fm, fd := q.From.Date()
		ty, tm, td := q.To.Date()
		last := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

		for day := time.Date(fy, fm, fd, 0, 0, 0, 0, loc); !day.After(last); day = day.AddDate(0, 0, 1) {
			if int(day.Weekday()) != rule.Weekday {
				continue
			}
			y, m, d := day.Date()
			windowStart := time.Date(y, m, d, startMin/60, startMin%60, 0, 0, loc)
			windowEnd := time.Date(y, m, d, endMin/60, endMin%60, 0, 0, loc)

			for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
				end := start.Add(duration)
				if start.Before(earliest) {
					continue
				}
				if overlapsAny(start, end, busy) {
					continue
				}
				slots = append(slots, model.Slot{
					CoachID:         q.CoachID,
					Start:           start.UTC(),
					End:             end.UTC(),
					Date:            start.Format("2006-01-02"),
					StartLocal:      start.Format("15:04"),
					EndLocal:        end.Format("15:04"),
					Timezone:        rule.Timezone,
					DurationMinutes: q.SlotMinutes,
				})
			}
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})

	return slots, nil
}

// ContainsSlot проверяет что среди слотов есть слот с указанным началом
func ContainsSlot(slots []model.Slot, start time.Time) bool {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return true
		}
	}
	return false
}
