// Package formatting тексты сообщений бота
package formatting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// StatusDisplay emoji и подпись статуса
type StatusDisplay struct {
	Emoji string
	Text  string
}

// GetSessionStatusDisplay возвращает emoji и текст для статуса сессии
func GetSessionStatusDisplay(status model.SessionStatus) StatusDisplay {
	displays := map[model.SessionStatus]StatusDisplay{
		model.SessionStatusScheduled:  {"📅", "Scheduled"},
		model.SessionStatusInProgress: {"🟢", "In progress"},
		model.SessionStatusCompleted:  {"✔️", "Completed"},
		model.SessionStatusCancelled:  {"❌", "Cancelled"},
		model.SessionStatusNoShow:     {"🚫", "No-show"},
	}

	if display, ok := displays[status]; ok {
		return display
	}

	return StatusDisplay{"❓", "Unknown"}
}

// FormatDuration форматирует длительность в минутах
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

// FormatSessionLine одна строка списка сессий
func FormatSessionLine(s *model.Session, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	status := GetSessionStatusDisplay(s.Status)
	start := s.ScheduledAt.In(loc)
	return fmt.Sprintf("%s #%d %s %s-%s (%s, %s)",
		status.Emoji,
		s.ID,
		start.Format("Mon 02.01"),
		start.Format("15:04"),
		s.EndsAt().In(loc).Format("15:04"),
		FormatDuration(s.DurationMinutes),
		loc.String(),
	)
}

// UpcomingSessions активные сессии, которые ещё не закончились, по времени начала
func UpcomingSessions(sessions []*model.Session, now time.Time, limit int) []*model.Session {
	var out []*model.Session
	for _, s := range sessions {
		if s.Status.IsActive() && s.EndsAt().After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FormatSessionList текст для /sessions
func FormatSessionList(sessions []*model.Session, zones map[int64]*time.Location) string {
	if len(sessions) == 0 {
		return "📭 No upcoming sessions."
	}

	var b strings.Builder
	b.WriteString("🗓 Upcoming sessions:\n\n")
	for _, s := range sessions {
		b.WriteString(FormatSessionLine(s, zones[s.CoachID]))
		if s.VideoLink != "" && s.Status == model.SessionStatusInProgress {
			b.WriteString("\n   🔗 " + s.VideoLink)
		}
		b.WriteString("\n")
	}
	return b.String()
}
