package model

import "time"

type Review struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	CoachID       int64      `json:"coach_id"`
	MenteeID      int64      `json:"mentee_id"`
	Rating        int        `json:"rating"` // 1-5, не меняется после создания
	Comment       string     `json:"comment"`
	CoachResponse *string    `json:"coach_response"`
	RespondedAt   *time.Time `json:"responded_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
