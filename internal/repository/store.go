package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Freeeeeet/coach_scheduler/internal/repository/base"
)

// PostgresStore реализация Store поверх pgxpool
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Repos() Repos {
	return newRepos(s.pool)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	// Начинаем транзакцию
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, newRepos(tx)); err != nil {
		return err
	}

	// Коммитим транзакцию
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func newRepos(db base.DBTX) Repos {
	return Repos{
		Users:        NewUserRepository(db),
		Settings:     NewCoachSettingsRepository(db),
		Availability: NewAvailabilityRepository(db),
		Sessions:     NewSessionRepository(db),
		Bookings:     NewBookingRepository(db),
		ActionItems:  NewActionItemRepository(db),
		Reviews:      NewReviewRepository(db),
		Locks:        NewAdvisoryLocker(db),
	}
}

// AdvisoryLocker блокировка коуча через pg_advisory_xact_lock.
// Снимается автоматически при завершении транзакции
type AdvisoryLocker struct {
	*base.Repository
}

func NewAdvisoryLocker(db base.DBTX) *AdvisoryLocker {
	return &AdvisoryLocker{Repository: base.NewRepository(db)}
}

func (l *AdvisoryLocker) LockCoach(ctx context.Context, coachID int64) error {
	if _, err := l.DB().Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, coachID); err != nil {
		return fmt.Errorf("lock coach schedule: %w", err)
	}
	return nil
}
