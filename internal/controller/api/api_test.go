package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/auth"
	"github.com/Freeeeeet/coach_scheduler/internal/clock"
	"github.com/Freeeeeet/coach_scheduler/internal/config"
	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/coach_scheduler/internal/reservation"
	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

type nopJobs struct{}

func (nopJobs) EnqueueRefund(context.Context, int64) error              { return nil }
func (nopJobs) ScheduleReminders(context.Context, *model.Session) error { return nil }

type stubWebhooks struct {
	event *payment.WebhookEvent
	err   error
}

func (s stubWebhooks) ParseWebhook([]byte, string) (*payment.WebhookEvent, error) {
	return s.event, s.err
}

type apiEnv struct {
	router *gin.Engine
	tokens *auth.Tokens
	pay    *payment.Sandbox
}

func newAPIEnv(t *testing.T, opts Options) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := clock.NewManual(time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC))
	pay := payment.NewSandbox("http://localhost")
	logger := zap.NewNop()

	svc := service.New(service.Deps{
		Store:    memory.NewStore(),
		Clock:    c,
		Payments: pay,
		Reserver: reservation.NewMemoryReserver(c),
		Jobs:     nopJobs{},
		Notifier: notify.NewSyncEmitter(notify.NewLog(logger), logger),
		Logger:   logger,
		Booking:  config.DefaultBookingConfig(),
	})

	tokens := auth.NewTokens("test-secret")
	opts.Services = svc
	opts.Tokens = tokens
	opts.Logger = logger
	if opts.Sandbox == nil {
		opts.Sandbox = pay
	}

	return &apiEnv{router: NewRouter(opts), tokens: tokens, pay: pay}
}

func (e *apiEnv) do(t *testing.T, method, path string, userID int64, role model.Role, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := e.tokens.Issue(userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) setupCoach(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPut, "/api/v1/coaches/1/availability", 1, model.RoleCoach, availabilityRequest{
		Settings: model.CoachSettings{Timezone: "UTC", HourlyRate: 6000, Currency: "usd", SlotMinutes: 60},
		Rules:    []model.AvailabilityRule{{Weekday: 1, StartTime: "09:00", EndTime: "12:00"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t, Options{})
	w := env.do(t, http.MethodGet, "/health", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newAPIEnv(t, Options{})

	w := env.do(t, http.MethodGet, "/api/v1/sessions", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	env := newAPIEnv(t, Options{})
	env.setupCoach(t)

	w := env.do(t, http.MethodGet, "/api/v1/coaches/1/slots?from=2025-03-10&to=2025-03-10", 2, model.RoleMentee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots struct {
		Slots []model.Slot `json:"slots"`
	}
	decode(t, w, &slots)
	require.Len(t, slots.Slots, 3)
	assert.Equal(t, "09:00", slots.Slots[0].StartLocal)

	w = env.do(t, http.MethodPost, "/api/v1/bookings", 2, model.RoleMentee, service.CreateBookingRequest{
		CoachID:         1,
		SlotStart:       slots.Slots[0].Start,
		DurationMinutes: 60,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ps service.PaymentSession
	decode(t, w, &ps)
	assert.Equal(t, int64(6000), ps.Amount)
	assert.NotEmpty(t, ps.IntentID)

	// второй менти на тот же слот, пока первый платит
	w = env.do(t, http.MethodPost, "/api/v1/bookings", 3, model.RoleMentee, service.CreateBookingRequest{
		CoachID:         1,
		SlotStart:       slots.Slots[0].Start,
		DurationMinutes: 60,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slot_conflict", errorKind(t, w))

	// чужой intent подтвердить нельзя
	w = env.do(t, http.MethodPost, "/api/v1/payments/"+ps.IntentID+"/confirm", 3, model.RoleMentee, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/payments/"+ps.IntentID+"/confirm", 2, model.RoleMentee, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed struct {
		Session model.Session `json:"session"`
	}
	decode(t, w, &confirmed)
	assert.Equal(t, model.SessionStatusScheduled, confirmed.Session.Status)
	assert.True(t, confirmed.Session.ScheduledAt.Equal(slots.Slots[0].Start))

	w = env.do(t, http.MethodGet, "/api/v1/sessions", 1, model.RoleCoach, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []model.Session `json:"sessions"`
	}
	decode(t, w, &list)
	require.Len(t, list.Sessions, 1)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", ps.BookingID), 2, model.RoleMentee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var booking model.Booking
	decode(t, w, &booking)
	assert.Equal(t, model.BookingStatusPaid, booking.Status)

	// слот больше не предлагается
	w = env.do(t, http.MethodGet, "/api/v1/coaches/1/slots?from=2025-03-10&to=2025-03-10", 3, model.RoleMentee, nil)
	decode(t, w, &slots)
	assert.Len(t, slots.Slots, 2)

	sessionPath := fmt.Sprintf("/api/v1/sessions/%d", confirmed.Session.ID)

	w = env.do(t, http.MethodGet, sessionPath, 3, model.RoleMentee, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, sessionPath+"/review", 2, model.RoleMentee, service.CreateReviewRequest{Rating: 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", errorKind(t, w))

	w = env.do(t, http.MethodPost, sessionPath+"/cancel", 2, model.RoleMentee, cancelRequest{Reason: "plans changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled model.Session
	decode(t, w, &cancelled)
	assert.Equal(t, model.SessionStatusCancelled, cancelled.Status)
	assert.Len(t, env.pay.Refunds(), 1)
}

func TestSetAvailabilityErrors(t *testing.T) {
	env := newAPIEnv(t, Options{})

	w := env.do(t, http.MethodPut, "/api/v1/coaches/5/availability", 1, model.RoleCoach, availabilityRequest{
		Settings: model.CoachSettings{Timezone: "UTC", Currency: "usd", SlotMinutes: 60},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/coaches/1/availability", 1, model.RoleCoach, availabilityRequest{
		Settings: model.CoachSettings{Timezone: "Mars/Olympus", Currency: "usd", SlotMinutes: 60},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorKind(t, w))

	w = env.do(t, http.MethodGet, "/api/v1/coaches/1/availability", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/coaches/abc/availability", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotsQueryValidation(t *testing.T) {
	env := newAPIEnv(t, Options{})
	env.setupCoach(t)

	w := env.do(t, http.MethodGet, "/api/v1/coaches/1/slots?from=10.03.2025", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/coaches/1/slots?from=2025-03-10&to=2025-03-10&duration=50", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/coaches/1/slots?from=2025-03-01&to=2025-06-01", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeekImageRoute(t *testing.T) {
	env := newAPIEnv(t, Options{})
	env.setupCoach(t)

	w := env.do(t, http.MethodGet, "/api/v1/coaches/1/week.png?date=2025-03-12", 1, model.RoleCoach, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestPaymentWebhook(t *testing.T) {
	webhooks := &stubWebhooks{}
	env := newAPIEnv(t, Options{Webhooks: webhooks})
	env.setupCoach(t)

	w := env.do(t, http.MethodPost, "/api/v1/bookings", 2, model.RoleMentee, service.CreateBookingRequest{
		CoachID:         1,
		SlotStart:       time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ps service.PaymentSession
	decode(t, w, &ps)
	require.NoError(t, env.pay.Succeed(ps.IntentID))

	webhooks.event = &payment.WebhookEvent{Type: "checkout.session.completed", IntentID: ps.IntentID}

	// дважды: повторная доставка не создаёт вторую сессию
	for i := 0; i < 2; i++ {
		w = env.do(t, http.MethodPost, "/api/v1/payments/webhook", 0, "", map[string]string{"id": "evt_1"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/sessions", 2, model.RoleMentee, nil)
	var list struct {
		Sessions []model.Session `json:"sessions"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Sessions, 1)

	webhooks.event = nil
	webhooks.err = payment.ErrInvalidRequest
	w = env.do(t, http.MethodPost, "/api/v1/payments/webhook", 0, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	webhooks.err = nil
	webhooks.event = &payment.WebhookEvent{Type: "checkout.session.completed", IntentID: "cs_unknown"}
	w = env.do(t, http.MethodPost, "/api/v1/payments/webhook", 0, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	env := newAPIEnv(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodGet, "/api/v1/sessions", 2, model.RoleMentee, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/v1/sessions", 2, model.RoleMentee, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// другой пользователь со своим лимитом
	w = env.do(t, http.MethodGet, "/api/v1/sessions", 3, model.RoleMentee, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: x", service.ErrValidation), http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrSlotConflict, http.StatusConflict},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrTooLateToModify, http.StatusConflict},
		{service.ErrDuplicateReview, http.StatusConflict},
		{service.ErrPaymentFailed, http.StatusPaymentRequired},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, statusFor(tt.err), tt.err.Error())
	}
}

func TestTelegramLink(t *testing.T) {
	env := newAPIEnv(t, Options{})

	w := env.do(t, http.MethodPost, "/api/v1/me/telegram-link", 2, model.RoleMentee, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	decode(t, w, &body)

	userID, err := env.tokens.ParseLinkToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(2), userID)
}

func TestLimiterStore_EvictsIdleKeys(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store := newLimiterStore(60)
	store.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		store.get(fmt.Sprintf("ip:10.0.0.%d", i))
	}
	assert.Equal(t, 100, len(store.limiters))

	now = now.Add(5 * time.Minute)
	active := store.get("user:1")
	assert.Equal(t, 101, len(store.limiters))

	now = now.Add(limiterIdleTTL)
	// user:1 виден 10 минут назад, ещё не старше TTL
	assert.Same(t, active, store.get("user:1"))
	assert.Equal(t, 1, len(store.limiters))

	now = now.Add(limiterIdleTTL + time.Second)
	store.get("ip:10.0.0.1")
	assert.Equal(t, 1, len(store.limiters))
}
