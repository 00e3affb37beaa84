package model

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// AvailabilityRule регулярное окно доступности коуча
type AvailabilityRule struct {
	ID        int64     `json:"id"`
	CoachID   int64     `json:"coach_id"`
	Weekday   int       `json:"weekday"`    // 0 = Sunday, 6 = Saturday
	StartTime string    `json:"start_time"` // "HH:MM" в часовом поясе коуча
	EndTime   string    `json:"end_time"`   // "HH:MM", допускается "24:00"
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseClock переводит "HH:MM" в минуты от начала дня
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:])
	if errH != nil || errM != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock обратная операция к ParseClock
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Bounds возвращает начало и конец окна в минутах от полуночи
func (r AvailabilityRule) Bounds() (int, int, error) {
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(r.EndTime)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (r AvailabilityRule) Validate() error {
	if r.Weekday < 0 || r.Weekday > 6 {
		return fmt.Errorf("weekday must be between 0 and 6, got %d", r.Weekday)
	}
	start, end, err := r.Bounds()
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("start_time %s must be before end_time %s", r.StartTime, r.EndTime)
	}
	if r.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", r.Timezone)
	}
	return nil
}

// ValidateRules проверяет набор правил коуча целиком:
// каждое правило корректно и окна одного дня не пересекаются
func ValidateRules(rules []AvailabilityRule, timezone string) error {
	byDay := make(map[int][][2]int)
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if timezone != "" && r.Timezone != timezone {
			return fmt.Errorf("rule %d: timezone %s differs from coach timezone %s", i, r.Timezone, timezone)
		}
		start, end, _ := r.Bounds()
		byDay[r.Weekday] = append(byDay[r.Weekday], [2]int{start, end})
	}

	for day, ranges := range byDay {
		sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })
		for i := 1; i < len(ranges); i++ {
			if ranges[i][0] < ranges[i-1][1] {
				return fmt.Errorf("overlapping ranges on weekday %d: %s-%s and %s-%s", day,
					FormatClock(ranges[i-1][0]), FormatClock(ranges[i-1][1]),
					FormatClock(ranges[i][0]), FormatClock(ranges[i][1]))
			}
		}
	}
	return nil
}
