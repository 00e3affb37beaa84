package model

import (
	"fmt"
	"time"
)

// CoachSettings настройки коуча для бронирования
type CoachSettings struct {
	CoachID     int64     `json:"coach_id"`
	Timezone    string    `json:"timezone"`
	HourlyRate  int64     `json:"hourly_rate"` // в минимальных единицах валюты
	Currency    string    `json:"currency"`
	SlotMinutes int       `json:"slot_minutes"` // длительность слота по умолчанию
	VideoLink   string    `json:"video_link"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceFor считает стоимость сессии длительностью durationMinutes
func (s *CoachSettings) PriceFor(durationMinutes int) int64 {
	return (s.HourlyRate*int64(durationMinutes) + 30) / 60
}

func (s *CoachSettings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load coach timezone: %w", err)
	}
	return loc, nil
}

func (s *CoachSettings) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	if s.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate must not be negative")
	}
	if len(s.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter ISO code")
	}
	if s.SlotMinutes <= 0 || s.SlotMinutes%15 != 0 || s.SlotMinutes > 240 {
		return fmt.Errorf("slot_minutes must be a multiple of 15 between 15 and 240")
	}
	return nil
}
