// Package payment контракт платёжного процессора, который нужен движку бронирований
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed" // отклонён или отменён плательщиком
	IntentStatusExpired   IntentStatus = "expired"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

var (
	// ErrDeclined процессор окончательно отказал, повтор не поможет
	ErrDeclined = errors.New("payment declined")
	// ErrInvalidRequest запрос некорректен, повтор не поможет
	ErrInvalidRequest = errors.New("invalid payment request")
)

// IsPermanent ошибку нельзя исправить повтором
func IsPermanent(err error) bool {
	return errors.Is(err, ErrDeclined) || errors.Is(err, ErrInvalidRequest)
}

// Metadata всё что нужно для восстановления сессии без доверия клиенту
type Metadata struct {
	BookingID       int64
	CoachID         int64
	MenteeID        int64
	SlotStart       time.Time
	DurationMinutes int
}

func (m Metadata) ToMap() map[string]string {
	return map[string]string{
		"booking_id":       strconv.FormatInt(m.BookingID, 10),
		"coach_id":         strconv.FormatInt(m.CoachID, 10),
		"mentee_id":        strconv.FormatInt(m.MenteeID, 10),
		"slot_start":       m.SlotStart.UTC().Format(time.RFC3339),
		"duration_minutes": strconv.Itoa(m.DurationMinutes),
	}
}

func ParseMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata
	var err error
	if m.BookingID, err = strconv.ParseInt(raw["booking_id"], 10, 64); err != nil {
		return m, fmt.Errorf("parse booking_id: %w", err)
	}
	if m.CoachID, err = strconv.ParseInt(raw["coach_id"], 10, 64); err != nil {
		return m, fmt.Errorf("parse coach_id: %w", err)
	}
	if m.MenteeID, err = strconv.ParseInt(raw["mentee_id"], 10, 64); err != nil {
		return m, fmt.Errorf("parse mentee_id: %w", err)
	}
	if m.SlotStart, err = time.Parse(time.RFC3339, raw["slot_start"]); err != nil {
		return m, fmt.Errorf("parse slot_start: %w", err)
	}
	if m.DurationMinutes, err = strconv.Atoi(raw["duration_minutes"]); err != nil {
		return m, fmt.Errorf("parse duration_minutes: %w", err)
	}
	return m, nil
}

type CreateIntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       Metadata
	IdempotencyKey string
	ExpiresAt      time.Time
}

// PaymentIntent созданная сессия оплаты
type PaymentIntent struct {
	ID          string
	RedirectURL string
	ExpiresAt   time.Time
}

// IntentResult авторитетный статус intent у процессора
type IntentResult struct {
	ID               string
	Status           IntentStatus
	PaymentReference string // идентификатор платежа для возврата
	Metadata         map[string]string
}

type RefundRequest struct {
	PaymentReference string
	Amount           int64
	Percentage       int
	IdempotencyKey   string
}

type RefundResult struct {
	ID     string
	Status RefundStatus
}

// Processor платёжный процессор. Все методы могут падать и повторяемы
type Processor interface {
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID string) (*IntentResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
