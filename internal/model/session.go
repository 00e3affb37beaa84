package model

import "time"

type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusNoShow     SessionStatus = "no_show"
)

// IsActive сессия занимает время коуча
func (s SessionStatus) IsActive() bool {
	return s == SessionStatusScheduled || s == SessionStatusInProgress
}

func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled || s == SessionStatusNoShow
}

type Session struct {
	ID                 int64         `json:"id"`
	CoachID            int64         `json:"coach_id"`
	MenteeID           int64         `json:"mentee_id"`
	BookingID          int64         `json:"booking_id"`
	ScheduledAt        time.Time     `json:"scheduled_at"`
	DurationMinutes    int           `json:"duration_minutes"`
	Status             SessionStatus `json:"status"`
	VideoLink          string        `json:"video_link"`
	MenteeMessage      string        `json:"mentee_message"`
	CoachNotes         string        `json:"coach_notes"`
	CancellationReason string        `json:"cancellation_reason"`
	CancelledBy        Role          `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at"`
	StartedAt          *time.Time    `json:"started_at"`
	CompletedAt        *time.Time    `json:"completed_at"`
	SessionNumber      int           `json:"session_number"` // порядковый номер в паре коуч-менти
	Version            int           `json:"version"`        // для оптимистичной блокировки
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// EndsAt время окончания сессии
func (s *Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsParty проверяет что пользователь участник сессии
func (s *Session) IsParty(userID int64) bool {
	return userID != 0 && (s.CoachID == userID || s.MenteeID == userID)
}
