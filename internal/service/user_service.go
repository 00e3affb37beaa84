package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
)

// UserService локальная копия пользователей сервиса аккаунтов:
// роль, контакты и привязка Telegram для уведомлений
type UserService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Profile данные пользователя из токена сервиса аккаунтов
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// EnsureUser создаёт запись пользователя при первом запросе
func (s *UserService) EnsureUser(ctx context.Context, actor model.Actor, profile Profile) (*model.User, error) {
	if actor.UserID == 0 || (actor.Role != model.RoleCoach && actor.Role != model.RoleMentee) {
		return nil, fmt.Errorf("%w: unknown actor", ErrUnauthorized)
	}

	// Проверяем существует ли пользователь
	existing, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	if existing != nil {
		if existing.Role != actor.Role {
			return nil, fmt.Errorf("%w: role mismatch for user %d", ErrUnauthorized, actor.UserID)
		}
		if profile.Email != "" && (profile.Email != existing.Email || profile.FirstName != existing.FirstName || profile.LastName != existing.LastName) {
			existing.Email = profile.Email
			existing.FirstName = profile.FirstName
			existing.LastName = profile.LastName
			if err := s.userRepo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return existing, nil
	}

	user := &model.User{
		ID:        actor.UserID,
		Role:      actor.Role,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}
	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// параллельный первый запрос того же пользователя
		return s.userRepo.GetByID(ctx, actor.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// TelegramAccount данные Telegram-аккаунта
type TelegramAccount struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

// LinkTelegram привязывает Telegram-чат к пользователю
func (s *UserService) LinkTelegram(ctx context.Context, userID int64, account TelegramAccount) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}

	// чат уже привязан к другому пользователю
	other, err := s.userRepo.GetByTelegramID(ctx, account.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("check telegram link: %w", err)
	}
	if other != nil && other.ID != user.ID {
		other.TelegramID = nil
		if err := s.userRepo.Update(ctx, other); err != nil {
			return nil, fmt.Errorf("unlink previous user: %w", err)
		}
	}

	telegramID := account.TelegramID
	user.TelegramID = &telegramID
	user.Username = account.Username
	if user.FirstName == "" {
		user.FirstName = account.FirstName
		user.LastName = account.LastName
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("Telegram linked",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", account.TelegramID),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
