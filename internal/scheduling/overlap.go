package scheduling

import (
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// Overlaps проверяет пересечение полуинтервалов [aStart, aEnd) и [bStart, bEnd)
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func overlapsAny(start, end time.Time, sessions []*model.Session) bool {
	for _, s := range sessions {
		if Overlaps(start, end, s.ScheduledAt, s.EndsAt()) {
			return true
		}
	}
	return false
}

// FindConflict возвращает первую активную сессию, пересекающую интервал.
// Сессия с идентификатором excludeID не учитывается (перенос самой себя)
func FindConflict(start, end time.Time, sessions []*model.Session, excludeID int64) *model.Session {
	for _, s := range sessions {
		if s.ID == excludeID || !s.Status.IsActive() {
			continue
		}
		if Overlaps(start, end, s.ScheduledAt, s.EndsAt()) {
			return s
		}
	}
	return nil
}
