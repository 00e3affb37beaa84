package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

type PgCoachSettingsRepository struct {
	*base.Repository
}

func NewCoachSettingsRepository(db base.DBTX) *PgCoachSettingsRepository {
	return &PgCoachSettingsRepository{Repository: base.NewRepository(db)}
}

// Get получает настройки коуча
func (r *PgCoachSettingsRepository) Get(ctx context.Context, coachID int64) (*model.CoachSettings, error) {
	query := `
		SELECT coach_id, timezone, hourly_rate, currency, slot_minutes, video_link, updated_at
		FROM coach_settings
		WHERE coach_id = $1
	`

	var s model.CoachSettings
	err := r.QueryRow(ctx, query, coachID).Scan(
		&s.CoachID,
		&s.Timezone,
		&s.HourlyRate,
		&s.Currency,
		&s.SlotMinutes,
		&s.VideoLink,
		&s.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coach settings: %w", err)
	}
	return &s, nil
}

// Upsert создаёт или обновляет настройки
func (r *PgCoachSettingsRepository) Upsert(ctx context.Context, s *model.CoachSettings) error {
	query := `
		INSERT INTO coach_settings (coach_id, timezone, hourly_rate, currency, slot_minutes, video_link)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (coach_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
		    hourly_rate = EXCLUDED.hourly_rate,
		    currency = EXCLUDED.currency,
		    slot_minutes = EXCLUDED.slot_minutes,
		    video_link = EXCLUDED.video_link,
		    updated_at = now()
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query,
		s.CoachID,
		s.Timezone,
		s.HourlyRate,
		s.Currency,
		s.SlotMinutes,
		s.VideoLink,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert coach settings: %w", err)
	}
	return nil
}
