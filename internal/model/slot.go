package model

import "time"

// Slot вычисленный кандидат на бронирование. Не хранится в БД
type Slot struct {
	CoachID         int64     `json:"coach_id"`
	Start           time.Time `json:"start"` // абсолютное время в UTC
	End             time.Time `json:"end"`
	Date            string    `json:"date"`        // "2006-01-02" в поясе коуча
	StartLocal      string    `json:"start_local"` // "15:04" в поясе коуча
	EndLocal        string    `json:"end_local"`
	Timezone        string    `json:"timezone"`
	DurationMinutes int       `json:"duration_minutes"`
}
