package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

const sessionColumns = `
	id, coach_id, mentee_id, booking_id, scheduled_at, duration_minutes, status,
	video_link, mentee_message, coach_notes, cancellation_reason, cancelled_by,
	cancelled_at, started_at, completed_at, session_number, version, created_at, updated_at`

type PgSessionRepository struct {
	*base.Repository
}

func NewSessionRepository(db base.DBTX) *PgSessionRepository {
	return &PgSessionRepository{Repository: base.NewRepository(db)}
}

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.CoachID,
		&s.MenteeID,
		&s.BookingID,
		&s.ScheduledAt,
		&s.DurationMinutes,
		&s.Status,
		&s.VideoLink,
		&s.MenteeMessage,
		&s.CoachNotes,
		&s.CancellationReason,
		&s.CancelledBy,
		&s.CancelledAt,
		&s.StartedAt,
		&s.CompletedAt,
		&s.SessionNumber,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgSessionRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Session, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// Create создаёт сессию. Пересечение с активной сессией коуча
// ловится exclusion constraint и возвращается как ErrOverlap
func (r *PgSessionRepository) Create(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (
			coach_id, mentee_id, booking_id, scheduled_at, ends_at, duration_minutes, status,
			video_link, mentee_message, coach_notes, session_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, version, created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		s.CoachID,
		s.MenteeID,
		s.BookingID,
		s.ScheduledAt,
		s.EndsAt(),
		s.DurationMinutes,
		s.Status,
		s.VideoLink,
		s.MenteeMessage,
		s.CoachNotes,
		s.SessionNumber,
	).Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if base.IsExclusionViolation(err) {
			return fmt.Errorf("create session: %w", ErrOverlap)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByID получает сессию по ID
func (r *PgSessionRepository) GetByID(ctx context.Context, id int64) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return s, nil
}

// ListActiveByCoach получает активные сессии коуча в диапазоне
func (r *PgSessionRepository) ListActiveByCoach(ctx context.Context, coachID int64, from, to time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE coach_id = $1
		  AND status IN ('scheduled', 'in_progress')
		  AND scheduled_at < $3
		  AND ends_at > $2
		ORDER BY scheduled_at
	`
	return r.list(ctx, "get active sessions by coach", query, coachID, from, to)
}

// ListByParticipant получает все сессии пользователя с его стороны
func (r *PgSessionRepository) ListByParticipant(ctx context.Context, userID int64, role model.Role) ([]*model.Session, error) {
	column := "mentee_id"
	if role == model.RoleCoach {
		column = "coach_id"
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE ` + column + ` = $1
		ORDER BY scheduled_at DESC
	`
	return r.list(ctx, "get sessions by participant", query, userID)
}

// ListScheduledEndedBefore кандидаты на автоматическую неявку
func (r *PgSessionRepository) ListScheduledEndedBefore(ctx context.Context, before time.Time) ([]*model.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'scheduled' AND ends_at <= $1
		ORDER BY scheduled_at
	`
	return r.list(ctx, "get ended scheduled sessions", query, before)
}

// CountByPair количество сессий между коучем и менти
func (r *PgSessionRepository) CountByPair(ctx context.Context, coachID, menteeID int64) (int, error) {
	var count int
	err := r.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE coach_id = $1 AND mentee_id = $2`,
		coachID, menteeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// Update обновляет сессию с проверкой версии
func (r *PgSessionRepository) Update(ctx context.Context, s *model.Session) error {
	query := `
		UPDATE sessions
		SET scheduled_at = $3,
		    ends_at = $4,
		    duration_minutes = $5,
		    status = $6,
		    video_link = $7,
		    coach_notes = $8,
		    cancellation_reason = $9,
		    cancelled_by = $10,
		    cancelled_at = $11,
		    started_at = $12,
		    completed_at = $13,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	err := r.QueryRow(ctx, query,
		s.ID,
		s.Version,
		s.ScheduledAt,
		s.EndsAt(),
		s.DurationMinutes,
		s.Status,
		s.VideoLink,
		s.CoachNotes,
		s.CancellationReason,
		s.CancelledBy,
		s.CancelledAt,
		s.StartedAt,
		s.CompletedAt,
	).Scan(&s.Version, &s.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update session %d: %w", s.ID, ErrStaleVersion)
		}
		if base.IsExclusionViolation(err) {
			return fmt.Errorf("update session %d: %w", s.ID, ErrOverlap)
		}
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
