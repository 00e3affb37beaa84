package model

import "time"

type ActionItemStatus string

const (
	ActionItemStatusPending   ActionItemStatus = "pending"
	ActionItemStatusCompleted ActionItemStatus = "completed"
)

type ActionItem struct {
	ID          int64            `json:"id"`
	SessionID   int64            `json:"session_id"`
	Description string           `json:"description"`
	Status      ActionItemStatus `json:"status"`
	DueDate     *time.Time       `json:"due_date"`
	CompletedAt *time.Time       `json:"completed_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
