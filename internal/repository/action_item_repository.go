package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

const actionItemColumns = `id, session_id, description, status, due_date, completed_at, created_at, updated_at`

type PgActionItemRepository struct {
	*base.Repository
}

func NewActionItemRepository(db base.DBTX) *PgActionItemRepository {
	return &PgActionItemRepository{Repository: base.NewRepository(db)}
}

func scanActionItem(row interface{ Scan(...any) error }) (*model.ActionItem, error) {
	var item model.ActionItem
	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.Description,
		&item.Status,
		&item.DueDate,
		&item.CompletedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PgActionItemRepository) Create(ctx context.Context, item *model.ActionItem) error {
	query := `
		INSERT INTO action_items (session_id, description, status, due_date, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.QueryRow(ctx, query,
		item.SessionID,
		item.Description,
		item.Status,
		item.DueDate,
		item.CompletedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create action item: %w", err)
	}
	return nil
}

func (r *PgActionItemRepository) GetByID(ctx context.Context, id int64) (*model.ActionItem, error) {
	query := `SELECT ` + actionItemColumns + ` FROM action_items WHERE id = $1`

	item, err := scanActionItem(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get action item: %w", err)
	}
	return item, nil
}

// ListBySession пункты сессии: сначала с дедлайном по возрастанию, затем по порядку создания
func (r *PgActionItemRepository) ListBySession(ctx context.Context, sessionID int64) ([]*model.ActionItem, error) {
	query := `
		SELECT ` + actionItemColumns + `
		FROM action_items
		WHERE session_id = $1
		ORDER BY due_date NULLS LAST, id
	`

	rows, err := r.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get action items: %w", err)
	}
	defer rows.Close()

	var items []*model.ActionItem
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action items: %w", err)
	}
	return items, nil
}

func (r *PgActionItemRepository) Update(ctx context.Context, item *model.ActionItem) error {
	query := `
		UPDATE action_items
		SET description = $2, status = $3, due_date = $4, completed_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.QueryRow(ctx, query,
		item.ID,
		item.Description,
		item.Status,
		item.DueDate,
		item.CompletedAt,
	).Scan(&item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update action item: %w", err)
	}
	return nil
}

func (r *PgActionItemRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM action_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}
	return nil
}
