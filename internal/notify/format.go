package notify

import (
	"fmt"
	"strings"
	"time"
)

// FormatMoney сумма в минимальных единицах в строку вида "12.50 USD"
func FormatMoney(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, strings.ToUpper(currency))
}

func formatWhen(t time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	return t.In(loc).Format("Mon, 02 Jan 2006 15:04 MST")
}

// Subject короткий заголовок события
func Subject(e Event) string {
	switch e.Type {
	case EventBookingConfirmed:
		return "Session booked"
	case EventBookingFailed:
		return "Booking could not be completed"
	case EventSessionCancelled:
		return "Session cancelled"
	case EventSessionRescheduled:
		return "Session rescheduled"
	case EventReminder24h:
		return "Your session is tomorrow"
	case EventReminder1h:
		return "Your session starts in one hour"
	case EventReviewReceived:
		return "New review"
	case EventSessionCompleted:
		return "Session completed"
	case EventRefundIssued:
		return "Refund issued"
	}
	return "Session update"
}

// Text текст уведомления
func Text(e Event) string {
	when := formatWhen(e.ScheduledAt, e.Timezone)

	var b strings.Builder
	b.WriteString(Subject(e))
	b.WriteString("\n\n")

	switch e.Type {
	case EventBookingConfirmed:
		fmt.Fprintf(&b, "Session #%d is confirmed for %s.", e.SessionID, when)
	case EventBookingFailed:
		b.WriteString("The selected time was taken before your payment completed. ")
		b.WriteString("A full refund has been requested.")
	case EventSessionCancelled:
		fmt.Fprintf(&b, "Session #%d on %s was cancelled by the %s.", e.SessionID, when, e.CancelledBy)
		if e.Reason != "" {
			fmt.Fprintf(&b, "\nReason: %s", e.Reason)
		}
		if e.RefundPercent > 0 {
			fmt.Fprintf(&b, "\nRefund: %d%% (%s)", e.RefundPercent, FormatMoney(e.RefundAmount, e.Currency))
		}
	case EventSessionRescheduled:
		if e.PreviousAt != nil {
			fmt.Fprintf(&b, "Session #%d moved from %s to %s.", e.SessionID, formatWhen(*e.PreviousAt, e.Timezone), when)
		} else {
			fmt.Fprintf(&b, "Session #%d moved to %s.", e.SessionID, when)
		}
	case EventReminder24h, EventReminder1h:
		fmt.Fprintf(&b, "Session #%d starts at %s.", e.SessionID, when)
	case EventReviewReceived:
		fmt.Fprintf(&b, "Session #%d received a %d-star review.", e.SessionID, e.Rating)
	case EventSessionCompleted:
		fmt.Fprintf(&b, "Session #%d is marked as completed.", e.SessionID)
	case EventRefundIssued:
		fmt.Fprintf(&b, "%s has been refunded for booking #%d.", FormatMoney(e.RefundAmount, e.Currency), e.BookingID)
	}
	return b.String()
}
