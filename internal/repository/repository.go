package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

var (
	// ErrStaleVersion запись изменилась после чтения (оптимистичная блокировка)
	ErrStaleVersion = errors.New("stale record version")
	// ErrDuplicate нарушение уникальности
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap активные сессии коуча пересеклись бы по времени
	ErrOverlap = errors.New("overlapping session")
)

// Get-методы возвращают nil, nil если запись не найдена

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

type CoachSettingsRepository interface {
	Get(ctx context.Context, coachID int64) (*model.CoachSettings, error)
	Upsert(ctx context.Context, settings *model.CoachSettings) error
}

type AvailabilityRepository interface {
	ListByCoach(ctx context.Context, coachID int64) ([]model.AvailabilityRule, error)
	// ReplaceForCoach заменяет весь недельный набор правил коуча
	ReplaceForCoach(ctx context.Context, coachID int64, rules []model.AvailabilityRule) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id int64) (*model.Session, error)
	// ListActiveByCoach активные сессии коуча, пересекающие [from, to)
	ListActiveByCoach(ctx context.Context, coachID int64, from, to time.Time) ([]*model.Session, error)
	ListByParticipant(ctx context.Context, userID int64, role model.Role) ([]*model.Session, error)
	// ListScheduledEndedBefore запланированные сессии, закончившиеся до before
	ListScheduledEndedBefore(ctx context.Context, before time.Time) ([]*model.Session, error)
	CountByPair(ctx context.Context, coachID, menteeID int64) (int, error)
	// Update пишет сессию если версия не изменилась, иначе ErrStaleVersion.
	// При успехе увеличивает session.Version
	Update(ctx context.Context, session *model.Session) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByIntentID(ctx context.Context, intentID string) (*model.Booking, error)
	GetBySessionID(ctx context.Context, sessionID int64) (*model.Booking, error)
	// Update пишет бронирование если версия не изменилась, иначе ErrStaleVersion
	Update(ctx context.Context, booking *model.Booking) error
	ListPendingExpiredBefore(ctx context.Context, before time.Time) ([]*model.Booking, error)
	ListRefundOutstanding(ctx context.Context) ([]*model.Booking, error)
}

type ActionItemRepository interface {
	Create(ctx context.Context, item *model.ActionItem) error
	GetByID(ctx context.Context, id int64) (*model.ActionItem, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*model.ActionItem, error)
	Update(ctx context.Context, item *model.ActionItem) error
	Delete(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	// Create возвращает ErrDuplicate если у сессии уже есть отзыв
	Create(ctx context.Context, review *model.Review) error
	GetBySession(ctx context.Context, sessionID int64) (*model.Review, error)
	// UpdateComment меняет только комментарий и заполняет review текущей строкой
	UpdateComment(ctx context.Context, review *model.Review) error
	// SetCoachResponse записывает ответ коуча, если его ещё нет.
	// Возвращает false, если ответ уже был
	SetCoachResponse(ctx context.Context, review *model.Review) (bool, error)
}

// CoachLocker сериализует запись расписания одного коуча внутри транзакции
type CoachLocker interface {
	LockCoach(ctx context.Context, coachID int64) error
}

// Repos набор репозиториев, привязанных к одному соединению или транзакции
type Repos struct {
	Users        UserRepository
	Settings     CoachSettingsRepository
	Availability AvailabilityRepository
	Sessions     SessionRepository
	Bookings     BookingRepository
	ActionItems  ActionItemRepository
	Reviews      ReviewRepository
	Locks        CoachLocker
}

// Store хранилище с транзакциями
type Store interface {
	Repos() Repos
	// WithTx выполняет fn в одной транзакции. Ошибка fn откатывает всё
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
