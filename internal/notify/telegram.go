package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// MessageSender часть API бота, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// UserDirectory источник Telegram ID получателей
type UserDirectory interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

type Telegram struct {
	sender MessageSender
	users  UserDirectory
}

func NewTelegram(sender MessageSender, users UserDirectory) *Telegram {
	return &Telegram{sender: sender, users: users}
}

func (t *Telegram) Notify(ctx context.Context, event Event) error {
	users, err := t.users.GetByIDs(ctx, event.Recipients)
	if err != nil {
		return fmt.Errorf("get recipients: %w", err)
	}

	text := Text(event)
	var errs []error
	for _, id := range event.Recipients {
		u := users[id]
		// пользователь не привязал Telegram
		if u == nil || u.TelegramID == nil {
			continue
		}
		_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: *u.TelegramID,
			Text:   text,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send telegram message to user %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
