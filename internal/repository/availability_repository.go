package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

type PgAvailabilityRepository struct {
	*base.Repository
}

func NewAvailabilityRepository(db base.DBTX) *PgAvailabilityRepository {
	return &PgAvailabilityRepository{Repository: base.NewRepository(db)}
}

// ListByCoach получает правила коуча, отсортированные по дню и времени
func (r *PgAvailabilityRepository) ListByCoach(ctx context.Context, coachID int64) ([]model.AvailabilityRule, error) {
	query := `
		SELECT id, coach_id, weekday, start_time, end_time, timezone, created_at
		FROM availability_rules
		WHERE coach_id = $1
		ORDER BY weekday, start_time
	`

	rows, err := r.Query(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("get availability rules: %w", err)
	}
	defer rows.Close()

	var rules []model.AvailabilityRule
	for rows.Next() {
		var rule model.AvailabilityRule
		err := rows.Scan(
			&rule.ID,
			&rule.CoachID,
			&rule.Weekday,
			&rule.StartTime,
			&rule.EndTime,
			&rule.Timezone,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability rules: %w", err)
	}

	return rules, nil
}

// ReplaceForCoach удаляет старые правила и вставляет новые.
// Вызывается внутри транзакции
func (r *PgAvailabilityRepository) ReplaceForCoach(ctx context.Context, coachID int64, rules []model.AvailabilityRule) error {
	if _, err := r.DB().Exec(ctx, `DELETE FROM availability_rules WHERE coach_id = $1`, coachID); err != nil {
		return fmt.Errorf("delete availability rules: %w", err)
	}

	query := `
		INSERT INTO availability_rules (coach_id, weekday, start_time, end_time, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	for i := range rules {
		rules[i].CoachID = coachID
		err := r.QueryRow(ctx, query,
			coachID,
			rules[i].Weekday,
			rules[i].StartTime,
			rules[i].EndTime,
			rules[i].Timezone,
		).Scan(&rules[i].ID, &rules[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("create availability rule: %w", err)
		}
	}

	return nil
}
