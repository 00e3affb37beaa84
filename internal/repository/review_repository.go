package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

type PgReviewRepository struct {
	*base.Repository
}

func NewReviewRepository(db base.DBTX) *PgReviewRepository {
	return &PgReviewRepository{Repository: base.NewRepository(db)}
}

// Create создаёт отзыв. Уникальный индекс по session_id гарантирует один отзыв на сессию
func (r *PgReviewRepository) Create(ctx context.Context, review *model.Review) error {
	query := `
		INSERT INTO reviews (session_id, coach_id, mentee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.QueryRow(ctx, query,
		review.SessionID,
		review.CoachID,
		review.MenteeID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create review: %w", ErrDuplicate)
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

const reviewColumns = `
	id, session_id, coach_id, mentee_id, rating, comment, coach_response, responded_at, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }, review *model.Review) error {
	return row.Scan(
		&review.ID,
		&review.SessionID,
		&review.CoachID,
		&review.MenteeID,
		&review.Rating,
		&review.Comment,
		&review.CoachResponse,
		&review.RespondedAt,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
}

func (r *PgReviewRepository) GetBySession(ctx context.Context, sessionID int64) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE session_id = $1`

	var review model.Review
	if err := scanReview(r.QueryRow(ctx, query, sessionID), &review); err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return &review, nil
}

// UpdateComment меняет только комментарий, остальные поля перечитываются из строки
func (r *PgReviewRepository) UpdateComment(ctx context.Context, review *model.Review) error {
	query := `
		UPDATE reviews
		SET comment = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + reviewColumns

	if err := scanReview(r.QueryRow(ctx, query, review.ID, review.Comment), review); err != nil {
		return fmt.Errorf("update review comment: %w", err)
	}
	return nil
}

// SetCoachResponse пишет ответ коуча, только пока его нет.
// false если ответ уже записан
func (r *PgReviewRepository) SetCoachResponse(ctx context.Context, review *model.Review) (bool, error) {
	query := `
		UPDATE reviews
		SET coach_response = $2, responded_at = $3, updated_at = now()
		WHERE id = $1 AND coach_response IS NULL
		RETURNING ` + reviewColumns

	var updated model.Review
	err := scanReview(r.QueryRow(ctx, query, review.ID, review.CoachResponse, review.RespondedAt), &updated)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("set coach response: %w", err)
	}
	*review = updated
	return true, nil
}
