package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/render"
	"github.com/Freeeeeet/coach_scheduler/internal/scheduling"
)

func main() {
	tz := flag.String("tz", "Europe/Berlin", "coach timezone")
	out := flag.String("out", "week.png", "output file")
	minutes := flag.Int("slot", 60, "slot length in minutes")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Printf("Unknown timezone %q: %v\n", *tz, err)
		os.Exit(1)
	}

	now := time.Now().In(loc)
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}
	sunday := monday.AddDate(0, 0, 6)

	// Будни утром и вечером, суббота до обеда
	var rules []model.AvailabilityRule
	for wd := 1; wd <= 5; wd++ {
		rules = append(rules,
			model.AvailabilityRule{CoachID: 1, Weekday: wd, StartTime: "09:00", EndTime: "12:00", Timezone: *tz},
			model.AvailabilityRule{CoachID: 1, Weekday: wd, StartTime: "17:00", EndTime: "20:00", Timezone: *tz},
		)
	}
	rules = append(rules, model.AvailabilityRule{CoachID: 1, Weekday: 6, StartTime: "10:00", EndTime: "13:00", Timezone: *tz})

	sessions := []*model.Session{
		{ID: 1, CoachID: 1, MenteeID: 100, ScheduledAt: monday.Add(10 * time.Hour), DurationMinutes: 60, Status: model.SessionStatusScheduled},
		{ID: 2, CoachID: 1, MenteeID: 200, ScheduledAt: monday.AddDate(0, 0, 2).Add(17*time.Hour + 30*time.Minute), DurationMinutes: 90, Status: model.SessionStatusScheduled},
		{ID: 3, CoachID: 1, MenteeID: 100, ScheduledAt: monday.AddDate(0, 0, 4).Add(9 * time.Hour), DurationMinutes: 45, Status: model.SessionStatusInProgress},
	}

	free, err := scheduling.GenerateSlots(scheduling.SlotQuery{
		CoachID:     1,
		Rules:       rules,
		Sessions:    sessions,
		From:        monday,
		To:          sunday,
		SlotMinutes: *minutes,
		Now:         monday.AddDate(0, 0, -1),
	})
	if err != nil {
		fmt.Printf("Failed to generate slots: %v\n", err)
		os.Exit(1)
	}

	imageData, err := render.WeekImage(render.Week{
		Day:      monday,
		Location: loc,
		Now:      now,
		Free:     free,
		Sessions: sessions,
		Names:    map[int64]string{100: "Anna K.", 200: "Max Mustermann"},
	})
	if err != nil {
		fmt.Printf("Failed to render week: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, imageData, 0644); err != nil {
		fmt.Printf("Failed to save file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Week image saved to %s\n", *out)
	fmt.Printf("📅 Period: %s - %s (%s)\n", monday.Format("02.01.2006"), sunday.Format("02.01.2006"), loc)
	fmt.Printf("📊 Free slots: %d, sessions: %d\n", len(free), len(sessions))
}
