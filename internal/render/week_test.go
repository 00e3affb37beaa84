package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

func TestWeekOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
	}{
		{"monday", time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := weekOf(tt.date)
			assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), w.start)
			assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), w.end)
		})
	}
}

func TestCalculateHourRange(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	t.Run("empty week uses default hours", func(t *testing.T) {
		r := calculateHourRange(nil)
		assert.Equal(t, hourRange{start: defaultStartHour - 1, end: defaultEndHour + 1, total: 14}, r)
	})

	t.Run("padding around blocks", func(t *testing.T) {
		r := calculateHourRange([]block{
			{start: at(9, 0), end: at(10, 0)},
			{start: at(14, 30), end: at(15, 15)},
		})
		assert.Equal(t, 8, r.start)
		assert.Equal(t, 17, r.end)
		assert.Equal(t, 9, r.total)
	})

	t.Run("clamped to the day", func(t *testing.T) {
		r := calculateHourRange([]block{
			{start: at(0, 0), end: at(1, 0)},
			{start: at(23, 0), end: at(23, 45)},
		})
		assert.Equal(t, 0, r.start)
		assert.Equal(t, 24, r.end)
	})
}

func TestWeekImage(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	start := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	week := Week{
		Day:      time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC),
		Location: berlin,
		Now:      time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
		Free: []model.Slot{
			{Start: start, End: start.Add(time.Hour)},
			{Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)},
		},
		Sessions: []*model.Session{
			{ID: 1, MenteeID: 7, ScheduledAt: start.Add(time.Hour), DurationMinutes: 60, Status: model.SessionStatusScheduled},
			{ID: 2, MenteeID: 8, ScheduledAt: start.Add(24 * time.Hour), DurationMinutes: 45, Status: model.SessionStatusInProgress},
			{ID: 3, MenteeID: 9, ScheduledAt: start.Add(48 * time.Hour), DurationMinutes: 45, Status: model.SessionStatusCancelled},
		},
		Names: map[int64]string{7: "Anna Ivanova", 8: "A very long mentee name indeed"},
	}

	data, err := WeekImage(week)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ImageWidth, img.Bounds().Dx())
	assert.Equal(t, ImageHeight, img.Bounds().Dy())
}

func TestCollectBlocksSkipsInactive(t *testing.T) {
	start := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	blocks := collectBlocks(Week{
		Sessions: []*model.Session{
			{MenteeID: 1, ScheduledAt: start, DurationMinutes: 60, Status: model.SessionStatusCompleted},
			{MenteeID: 2, ScheduledAt: start, DurationMinutes: 60, Status: model.SessionStatusInProgress},
		},
		Names: map[int64]string{2: "Bob"},
	}, time.UTC)

	require.Len(t, blocks, 1)
	assert.Equal(t, blockInProgress, blocks[0].kind)
	assert.Equal(t, "Bob", blocks[0].label)
	assert.Equal(t, start.Add(time.Hour), blocks[0].end)
}
