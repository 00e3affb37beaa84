package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

const bookingColumns = `
	id, reference, coach_id, mentee_id, session_id, slot_start, duration_minutes, mentee_message,
	amount, currency, status, intent_id, redirect_url, payment_reference, reservation_token,
	expires_at, paid_at, failure_reason, refund_percentage, refund_amount,
	refund_requested_at, refunded_at, refund_reference, version, created_at, updated_at`

type PgBookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db base.DBTX) *PgBookingRepository {
	return &PgBookingRepository{Repository: base.NewRepository(db)}
}

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.Reference,
		&b.CoachID,
		&b.MenteeID,
		&b.SessionID,
		&b.SlotStart,
		&b.DurationMinutes,
		&b.MenteeMessage,
		&b.Amount,
		&b.Currency,
		&b.Status,
		&b.IntentID,
		&b.RedirectURL,
		&b.PaymentReference,
		&b.ReservationToken,
		&b.ExpiresAt,
		&b.PaidAt,
		&b.FailureReason,
		&b.RefundPercentage,
		&b.RefundAmount,
		&b.RefundRequestedAt,
		&b.RefundedAt,
		&b.RefundReference,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PgBookingRepository) get(ctx context.Context, op, where string, arg any) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where

	b, err := scanBooking(r.QueryRow(ctx, query, arg))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

func (r *PgBookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bookings, nil
}

// Create создаёт pending бронирование
func (r *PgBookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (
			reference, coach_id, mentee_id, slot_start, duration_minutes, mentee_message,
			amount, currency, status, reservation_token, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		b.Reference,
		b.CoachID,
		b.MenteeID,
		b.SlotStart,
		b.DurationMinutes,
		b.MenteeMessage,
		b.Amount,
		b.Currency,
		b.Status,
		b.ReservationToken,
		b.ExpiresAt,
	).Scan(&b.ID, &b.Version, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByID получает бронирование по ID
func (r *PgBookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.get(ctx, "get booking by id", "id = $1", id)
}

// GetByIntentID получает бронирование по идентификатору платёжного intent
func (r *PgBookingRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Booking, error) {
	return r.get(ctx, "get booking by intent", "intent_id = $1", intentID)
}

func (r *PgBookingRepository) GetBySessionID(ctx context.Context, sessionID int64) (*model.Booking, error) {
	return r.get(ctx, "get booking by session", "session_id = $1", sessionID)
}

// Update обновляет изменяемые поля бронирования, если версия не изменилась
func (r *PgBookingRepository) Update(ctx context.Context, b *model.Booking) error {
	query := `
		UPDATE bookings
		SET session_id = $2,
		    status = $3,
		    intent_id = $4,
		    redirect_url = $5,
		    payment_reference = $6,
		    expires_at = $7,
		    paid_at = $8,
		    failure_reason = $9,
		    refund_percentage = $10,
		    refund_amount = $11,
		    refund_requested_at = $12,
		    refunded_at = $13,
		    refund_reference = $14,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $15
		RETURNING version, updated_at
	`

	err := r.QueryRow(ctx, query,
		b.ID,
		b.SessionID,
		b.Status,
		b.IntentID,
		b.RedirectURL,
		b.PaymentReference,
		b.ExpiresAt,
		b.PaidAt,
		b.FailureReason,
		b.RefundPercentage,
		b.RefundAmount,
		b.RefundRequestedAt,
		b.RefundedAt,
		b.RefundReference,
		b.Version,
	).Scan(&b.Version, &b.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update booking %d: %w", b.ID, ErrStaleVersion)
		}
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	return nil
}

// ListPendingExpiredBefore pending бронирования с истёкшим intent
func (r *PgBookingRepository) ListPendingExpiredBefore(ctx context.Context, before time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at
	`
	return r.list(ctx, "get expired pending bookings", query, before)
}

// ListRefundOutstanding бронирования с запрошенным, но не проведённым возвратом
func (r *PgBookingRepository) ListRefundOutstanding(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE refund_requested_at IS NOT NULL AND refunded_at IS NULL
		ORDER BY refund_requested_at
	`
	return r.list(ctx, "get outstanding refunds", query)
}
