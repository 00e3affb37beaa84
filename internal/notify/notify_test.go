package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	return &models.Message{}, args.Error(0)
}

type staticUsers map[int64]*model.User

func (s staticUsers) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.User, error) {
	out := make(map[int64]*model.User)
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type recordingEmail struct {
	to      []string
	subject string
	body    string
}

func (r *recordingEmail) Send(_ context.Context, to []string, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return nil
}

var when = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func TestText_Cancelled(t *testing.T) {
	text := Text(Event{
		Type: EventSessionCancelled, SessionID: 5, ScheduledAt: when, Timezone: "UTC",
		CancelledBy: "mentee", Reason: "sick", RefundPercent: 50, RefundAmount: 5000, Currency: "usd",
	})
	assert.Contains(t, text, "Session cancelled")
	assert.Contains(t, text, "cancelled by the mentee")
	assert.Contains(t, text, "Reason: sick")
	assert.Contains(t, text, "Refund: 50% (50.00 USD)")
}

func TestText_Rescheduled(t *testing.T) {
	prev := when.Add(-48 * time.Hour)
	text := Text(Event{Type: EventSessionRescheduled, SessionID: 5, ScheduledAt: when, PreviousAt: &prev})
	assert.Contains(t, text, "Sat, 08 Mar 2025 10:00 UTC")
	assert.Contains(t, text, "Mon, 10 Mar 2025 10:00 UTC")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "12.05 EUR", FormatMoney(1205, "eur"))
	assert.Equal(t, "0.50 USD", FormatMoney(50, "usd"))
}

func TestTelegram_SkipsUnlinkedUsers(t *testing.T) {
	tg := int64(777)
	users := staticUsers{
		1: {ID: 1, TelegramID: &tg},
		2: {ID: 2},
	}
	sender := new(mockSender)
	sender.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(777)
	})).Return(nil).Once()

	n := NewTelegram(sender, users)
	err := n.Notify(context.Background(), Event{Type: EventReminder1h, SessionID: 9, ScheduledAt: when, Recipients: []int64{1, 2}})

	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestEmail_SendsToRecipientsWithAddress(t *testing.T) {
	users := staticUsers{
		1: {ID: 1, Email: "coach@example.com"},
		2: {ID: 2},
	}
	rec := &recordingEmail{}
	n := NewEmail(rec, users)

	err := n.Notify(context.Background(), Event{Type: EventReviewReceived, SessionID: 3, Rating: 4, Recipients: []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"coach@example.com"}, rec.to)
	assert.Equal(t, "New review", rec.subject)
	assert.Contains(t, rec.body, "4-star")
}

type failing struct{}

func (failing) Notify(context.Context, Event) error { return errors.New("down") }

func TestMulti_JoinsErrors(t *testing.T) {
	m := Multi{NewLog(zap.NewNop()), failing{}}
	assert.Error(t, m.Notify(context.Background(), Event{Type: EventBookingConfirmed}))

	// Emitter глотает ошибку
	NewSyncEmitter(m, zap.NewNop()).Emit(Event{Type: EventBookingConfirmed})
}
