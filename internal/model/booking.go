package model

import "time"

type BookingStatus string

const (
	BookingStatusPending           BookingStatus = "pending"            // создан платёжный intent
	BookingStatusPaid              BookingStatus = "paid"               // оплачено
	BookingStatusRefunded          BookingStatus = "refunded"           // возвращено 100%
	BookingStatusPartiallyRefunded BookingStatus = "partially_refunded" // частичный возврат
	BookingStatusFailed            BookingStatus = "failed"             // платёж отклонён
	BookingStatusExpired           BookingStatus = "expired"            // intent истёк без оплаты
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {BookingStatusPaid, BookingStatusFailed, BookingStatusExpired},
	BookingStatusPaid:    {BookingStatusRefunded, BookingStatusPartiallyRefunded},
	// оплата пришла после того, как мы сдались: только с полным возвратом
	BookingStatusFailed:  {BookingStatusPaid},
	BookingStatusExpired: {BookingStatusPaid},
}

// CanTransitionTo проверяет что переход статуса допустим. Назад переходов нет
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                int64         `json:"id"`
	Reference         string        `json:"reference"` // uuid, ключ идемпотентности для процессора
	CoachID           int64         `json:"coach_id"`
	MenteeID          int64         `json:"mentee_id"`
	SessionID         *int64        `json:"session_id"`
	SlotStart         time.Time     `json:"slot_start"`
	DurationMinutes   int           `json:"duration_minutes"`
	MenteeMessage     string        `json:"mentee_message"`
	Amount            int64         `json:"amount"` // в минимальных единицах валюты
	Currency          string        `json:"currency"`
	Status            BookingStatus `json:"status"`
	IntentID          string        `json:"intent_id"`
	RedirectURL       string        `json:"redirect_url"`
	PaymentReference  string        `json:"payment_reference"`
	ReservationToken  string        `json:"-"`
	ExpiresAt         time.Time     `json:"expires_at"`
	PaidAt            *time.Time    `json:"paid_at"`
	FailureReason     string        `json:"failure_reason,omitempty"`
	RefundPercentage  int           `json:"refund_percentage"`
	RefundAmount      int64         `json:"refund_amount"`
	RefundRequestedAt *time.Time    `json:"refund_requested_at"`
	RefundedAt        *time.Time    `json:"refunded_at"`
	RefundReference   string        `json:"refund_reference,omitempty"`
	Version           int           `json:"version"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SlotEnd конец запрошенного интервала
func (b *Booking) SlotEnd() time.Time {
	return b.SlotStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// RefundOutstanding возврат запрошен, но ещё не проведён
func (b *Booking) RefundOutstanding() bool {
	return b.RefundRequestedAt != nil && b.RefundedAt == nil
}

// RefundStatus статус после проведения возврата
func (b *Booking) RefundStatus() BookingStatus {
	if b.RefundPercentage >= 100 {
		return BookingStatusRefunded
	}
	return BookingStatusPartiallyRefunded
}
