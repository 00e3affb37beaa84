package controller

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/auth"
	"github.com/Freeeeeet/coach_scheduler/internal/clock"
	"github.com/Freeeeeet/coach_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/coach_scheduler/internal/model"
	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

const maxListedSessions = 10

type BotController struct {
	bot      *bot.Bot
	services *service.Services
	tokens   *auth.Tokens
	clock    clock.Clock
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	services *service.Services,
	tokens *auth.Tokens,
	clk clock.Clock,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		services: services,
		tokens:   tokens,
		clock:    clk,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypeExact, c.handleSessions)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypePrefix, c.handleWeek)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Link your account"},
		{Command: "sessions", Description: "📅 Upcoming sessions"},
		{Command: "week", Description: "🗓 Week schedule"},
		{Command: "help", Description: "❓ Help"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота, блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// linkedUser пользователь, привязанный к чату. nil если привязки нет
func (c *BotController) linkedUser(ctx context.Context, b *bot.Bot, msg *models.Message) *model.User {
	user, err := c.services.Users.GetByTelegramID(ctx, msg.From.ID)
	if err != nil {
		c.logger.Error("Failed to get user by telegram id", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		c.reply(ctx, b, msg.Chat.ID, "❌ Something went wrong. Please try again later.")
		return nil
	}
	if user == nil {
		c.reply(ctx, b, msg.Chat.ID, "🔗 Your account is not linked yet. Open the link from your profile page to connect this chat.")
		return nil
	}
	return user
}

// handleStart /start <token> привязывает чат к пользователю
func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	token := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start"))
	if token == "" {
		c.handleHelp(ctx, b, update)
		return
	}

	userID, err := c.tokens.ParseLinkToken(token)
	if err != nil {
		c.logger.Info("Rejected link token", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		c.reply(ctx, b, msg.Chat.ID, "❌ This link is invalid or expired. Request a new one from your profile page.")
		return
	}

	user, err := c.services.Users.LinkTelegram(ctx, userID, service.TelegramAccount{
		TelegramID: msg.From.ID,
		Username:   msg.From.Username,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
	})
	if err != nil {
		c.logger.Error("Failed to link telegram", zap.Int64("user_id", userID), zap.Error(err))
		c.reply(ctx, b, msg.Chat.ID, "❌ Could not link your account. Please try again later.")
		return
	}

	c.reply(ctx, b, msg.Chat.ID, "👋 Hi, "+user.DisplayName()+"!\n\n"+
		"This chat is now linked. You will receive booking confirmations, reminders and changes here.\n\n"+
		"/sessions - Upcoming sessions\n"+
		"/week - Week schedule")
}

// handleHelp обрабатывает команду /help
func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.reply(ctx, b, update.Message.Chat.ID, "📚 Commands:\n\n"+
		"/start <code> - Link this chat to your account\n"+
		"/sessions - Upcoming sessions\n"+
		"/week - Your week (coaches)\n"+
		"/week <coach id> - Free slots of a coach\n"+
		"/help - Show this help")
}

// handleSessions ближайшие сессии пользователя
func (c *BotController) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	user := c.linkedUser(ctx, b, update.Message)
	if user == nil {
		return
	}

	actor := model.Actor{UserID: user.ID, Role: user.Role}
	sessions, err := c.services.Sessions.List(ctx, actor)
	if err != nil {
		c.logger.Error("Failed to list sessions", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, update.Message.Chat.ID, "❌ Could not load sessions.")
		return
	}

	upcoming := formatting.UpcomingSessions(sessions, c.clock.Now(), maxListedSessions)
	zones := make(map[int64]*time.Location)
	for _, s := range upcoming {
		if _, ok := zones[s.CoachID]; ok {
			continue
		}
		zones[s.CoachID] = time.UTC
		if av, err := c.services.Availability.GetAvailability(ctx, s.CoachID); err == nil {
			if loc, err := av.Settings.Location(); err == nil {
				zones[s.CoachID] = loc
			}
		}
	}

	c.reply(ctx, b, update.Message.Chat.ID, formatting.FormatSessionList(upcoming, zones))
}

// handleWeek картинка недели: своя для коуча, /week <id> для чужого коуча
func (c *BotController) handleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	user := c.linkedUser(ctx, b, msg)
	if user == nil {
		return
	}

	coachID := user.ID
	if arg := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/week")); arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			c.reply(ctx, b, msg.Chat.ID, "❌ Usage: /week <coach id>")
			return
		}
		coachID = id
	} else if user.Role != model.RoleCoach {
		c.reply(ctx, b, msg.Chat.ID, "❌ Usage: /week <coach id>")
		return
	}

	actor := model.Actor{UserID: user.ID, Role: user.Role}
	img, err := c.services.Availability.WeekImage(ctx, actor, coachID, c.clock.Now())
	if errors.Is(err, service.ErrNotFound) {
		c.reply(ctx, b, msg.Chat.ID, "📭 This coach has not published availability yet.")
		return
	}
	if err != nil {
		c.logger.Error("Failed to render week", zap.Int64("coach_id", coachID), zap.Error(err))
		c.reply(ctx, b, msg.Chat.ID, "❌ Could not render the schedule.")
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  msg.Chat.ID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(img)},
		Caption: "🗓 Week schedule",
	})
	if err != nil {
		c.logger.Warn("Failed to send week image", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}
