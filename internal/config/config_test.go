package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DB_DSN":     "postgres://localhost/coach",
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sandbox", cfg.PaymentProvider)
	assert.Equal(t, DefaultBookingConfig(), cfg.Booking)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.Zero(t, cfg.AutoNoShowAfter)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE":                    "memory",
		"JWT_SECRET":                 "secret",
		"BOOKING_LEAD_TIME":          "90m",
		"LATE_CANCEL_REFUND_PERCENT": "25",
		"AUTO_NO_SHOW_AFTER":         "2h",
		"REDIS_DB":                   "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Booking.LeadTime)
	assert.Equal(t, 25, cfg.Booking.LateCancelRefundPercent)
	assert.Equal(t, 2*time.Hour, cfg.AutoNoShowAfter)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"missing dsn", map[string]string{"JWT_SECRET": "s"}, "DB_DSN"},
		{"missing jwt", map[string]string{"STORAGE": "memory"}, "JWT_SECRET"},
		{"bad duration", map[string]string{"STORAGE": "memory", "JWT_SECRET": "s", "BOOKING_LEAD_TIME": "soon"}, "BOOKING_LEAD_TIME"},
		{"bad percent", map[string]string{"STORAGE": "memory", "JWT_SECRET": "s", "LATE_CANCEL_REFUND_PERCENT": "150"}, "LATE_CANCEL_REFUND_PERCENT"},
		{"stripe without keys", map[string]string{"STORAGE": "memory", "JWT_SECRET": "s", "PAYMENT_PROVIDER": "stripe"}, "STRIPE_SECRET_KEY"},
		{"unknown storage", map[string]string{"STORAGE": "mongo", "JWT_SECRET": "s"}, "STORAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
