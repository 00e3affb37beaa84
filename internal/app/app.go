package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/auth"
	"github.com/Freeeeeet/coach_scheduler/internal/clock"
	"github.com/Freeeeeet/coach_scheduler/internal/config"
	"github.com/Freeeeeet/coach_scheduler/internal/controller"
	"github.com/Freeeeeet/coach_scheduler/internal/controller/api"
	"github.com/Freeeeeet/coach_scheduler/internal/jobs"
	"github.com/Freeeeeet/coach_scheduler/internal/notify"
	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/repository"
	"github.com/Freeeeeet/coach_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/coach_scheduler/internal/reservation"
	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

const shutdownTimeout = 15 * time.Second

// App собранное приложение: HTTP, бот, воркер очереди и reconciler
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool   *pgxpool.Pool
	rdb    *redis.Client
	client *asynq.Client

	server     *http.Server
	worker     *jobs.Worker
	reconciler *Reconciler
	bot        *controller.BotController
}

// New подключает хранилища и собирает сервисы по конфигу
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}
	clk := clock.System()

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var reserver reservation.Reserver = reservation.NewMemoryReserver(clk)
	var queue service.JobQueue
	inline := jobs.NewInline(clk, logger)
	queue = inline

	if cfg.RedisAddr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("✅ Connected to Redis", zap.String("addr", cfg.RedisAddr))

		reserver = reservation.NewRedisReserver(a.rdb, logger)
		a.client = asynq.NewClient(a.redisOpt())
		queue = jobs.NewAsynqQueue(a.client, clk, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process reservations and jobs")
	}

	processor, webhooks, sandbox := a.payments()

	var tgBot *bot.Bot
	if cfg.TelegramToken != "" {
		tgBot, err = bot.New(cfg.TelegramToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
	}

	notifiers := notify.Multi{notify.NewLog(logger)}
	users := store.Repos().Users
	if tgBot != nil {
		notifiers = append(notifiers, notify.NewTelegram(tgBot, users))
	}
	if cfg.ResendAPIKey != "" {
		notifiers = append(notifiers, notify.NewEmail(notify.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom), users))
	}

	svc := service.New(service.Deps{
		Store:    store,
		Clock:    clk,
		Payments: processor,
		Reserver: reserver,
		Jobs:     queue,
		Notifier: notify.NewEmitter(notifiers, logger),
		Logger:   logger,
		Booking:  cfg.Booking,
	})
	inline.Bind(svc.Bookings, svc.Sessions)

	if a.client != nil {
		a.worker = jobs.NewWorker(a.redisOpt(), svc.Bookings, svc.Sessions, logger)
	}
	a.reconciler = NewReconciler(svc.Bookings, svc.Sessions, cfg.ReconcileInterval, cfg.AutoNoShowAfter, logger)

	tokens := auth.NewTokens(cfg.JWTSecret)
	if tgBot != nil {
		a.bot = controller.NewBotController(tgBot, svc, tokens, clk, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Options{
		Services:           svc,
		Tokens:             tokens,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Webhooks:           webhooks,
		Sandbox:            sandbox,
	})
	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Storage == "memory" {
		a.logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	a.pool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.logger.Info("✅ Connected to database")

	migrator, err := NewMigrator(pool, a.cfg.MigrationsPath, a.logger)
	if err != nil {
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		return nil, err
	}

	return repository.NewPostgresStore(pool), nil
}

func (a *App) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}
}

// payments процессор с ретраями, парсер вебхуков для stripe и песочница для dev
func (a *App) payments() (payment.Processor, api.WebhookParser, api.SandboxPayments) {
	cfg := a.cfg
	if cfg.PaymentProvider == "stripe" {
		sp := payment.NewStripeProcessor(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.CheckoutSuccessURL,
			CancelURL:     cfg.CheckoutCancelURL,
		})
		return payment.NewRetrying(sp, uint64(cfg.PaymentMaxRetries), 200*time.Millisecond, a.logger), sp, nil
	}

	a.logger.Warn("Using sandbox payments")
	sb := payment.NewSandbox(cfg.PublicBaseURL)
	return payment.NewRetrying(sb, uint64(cfg.PaymentMaxRetries), 200*time.Millisecond, a.logger), nil, sb
}

// Run запускает все компоненты и блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			return err
		}
		defer a.worker.Stop()
	}

	a.reconciler.Start(ctx)
	defer a.reconciler.Stop()

	if a.bot != nil {
		if err := a.bot.RegisterHandlers(ctx); err != nil {
			a.logger.Warn("Bot commands not registered", zap.Error(err))
		}
		go a.bot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.logger.Info("HTTP server stopped")
	return nil
}

// Close освобождает подключения
func (a *App) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
