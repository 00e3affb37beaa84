package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"24:00", 1440, false},
		{"24:30", 0, true},
		{"9:30", 0, true},
		{"12:60", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, FormatClock(got))
		})
	}
}

func TestValidateRules(t *testing.T) {
	ok := []AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"},
		{Weekday: 1, StartTime: "12:00", EndTime: "13:00", Timezone: "UTC"},
		{Weekday: 2, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"},
	}
	assert.NoError(t, ValidateRules(ok, "UTC"))

	overlapping := []AvailabilityRule{
		{Weekday: 1, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"},
		{Weekday: 1, StartTime: "11:00", EndTime: "13:00", Timezone: "UTC"},
	}
	assert.ErrorContains(t, ValidateRules(overlapping, "UTC"), "overlapping")

	otherZone := []AvailabilityRule{{Weekday: 1, StartTime: "09:00", EndTime: "12:00", Timezone: "Europe/Berlin"}}
	assert.ErrorContains(t, ValidateRules(otherZone, "UTC"), "differs")

	badDay := []AvailabilityRule{{Weekday: 7, StartTime: "09:00", EndTime: "12:00", Timezone: "UTC"}}
	assert.Error(t, ValidateRules(badDay, "UTC"))

	badZone := []AvailabilityRule{{Weekday: 1, StartTime: "09:00", EndTime: "12:00", Timezone: "Mars/Olympus"}}
	assert.Error(t, ValidateRules(badZone, ""))
}

func TestBookingTransitions(t *testing.T) {
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusPaid))
	assert.True(t, BookingStatusPaid.CanTransitionTo(BookingStatusPartiallyRefunded))
	assert.True(t, BookingStatusExpired.CanTransitionTo(BookingStatusPaid))
	assert.False(t, BookingStatusPaid.CanTransitionTo(BookingStatusPending))
	assert.False(t, BookingStatusRefunded.CanTransitionTo(BookingStatusPaid))
	assert.False(t, BookingStatusPartiallyRefunded.CanTransitionTo(BookingStatusRefunded))
}

func TestCoachSettingsPrice(t *testing.T) {
	s := &CoachSettings{HourlyRate: 12000}
	assert.Equal(t, int64(12000), s.PriceFor(60))
	assert.Equal(t, int64(6000), s.PriceFor(30))
	assert.Equal(t, int64(9000), s.PriceFor(45))
	assert.Equal(t, int64(18000), s.PriceFor(90))
}
