package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	Port           string
	LogLevel       string
	Storage        string // postgres | memory
	DBDSN          string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret          string
	RateLimitPerMinute int

	PaymentProvider     string // sandbox | stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	PaymentMaxRetries   int
	PublicBaseURL       string

	TelegramToken string
	ResendAPIKey  string
	EmailFrom     string

	Booking BookingConfig

	ReconcileInterval time.Duration
	AutoNoShowAfter   time.Duration // 0 = выключено
}

// BookingConfig временные правила бронирования
type BookingConfig struct {
	LeadTime                time.Duration
	PaymentIntentTTL        time.Duration
	RescheduleWindow        time.Duration
	FullRefundWindow        time.Duration
	LateCancelRefundPercent int
	MaxSlotRangeDays        int
	StartWindow             time.Duration
	DefaultCurrency         string // если коуч не указал валюту
}

// DefaultBookingConfig значения по умолчанию
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		LeadTime:                2 * time.Hour,
		PaymentIntentTTL:        30 * time.Minute,
		RescheduleWindow:        24 * time.Hour,
		FullRefundWindow:        24 * time.Hour,
		LateCancelRefundPercent: 50,
		MaxSlotRangeDays:        62,
		StartWindow:             15 * time.Minute,
		DefaultCurrency:         "usd",
	}
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	r := &reader{getenv: getenv}
	defaults := DefaultBookingConfig()

	cfg := &Config{
		Environment:    r.str("ENV", "development"),
		Port:           r.str("PORT", "8080"),
		LogLevel:       r.str("LOG_LEVEL", "info"),
		Storage:        r.str("STORAGE", "postgres"),
		DBDSN:          getenv("DB_DSN"),
		MigrationsPath: r.str("MIGRATIONS_PATH", "migrations"),

		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       r.integer("REDIS_DB", 0),

		JWTSecret:          getenv("JWT_SECRET"),
		RateLimitPerMinute: r.integer("RATE_LIMIT_PER_MINUTE", 120),

		PaymentProvider:     r.str("PAYMENT_PROVIDER", "sandbox"),
		StripeSecretKey:     getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:  getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:   getenv("CHECKOUT_CANCEL_URL"),
		PaymentMaxRetries:   r.integer("PAYMENT_MAX_RETRIES", 3),
		PublicBaseURL:       r.str("PUBLIC_BASE_URL", "http://localhost:8080"),

		TelegramToken: getenv("TELEGRAM_TOKEN"),
		ResendAPIKey:  getenv("RESEND_API_KEY"),
		EmailFrom:     getenv("EMAIL_FROM"),

		Booking: BookingConfig{
			LeadTime:                r.duration("BOOKING_LEAD_TIME", defaults.LeadTime),
			PaymentIntentTTL:        r.duration("PAYMENT_INTENT_TTL", defaults.PaymentIntentTTL),
			RescheduleWindow:        r.duration("RESCHEDULE_WINDOW", defaults.RescheduleWindow),
			FullRefundWindow:        r.duration("FULL_REFUND_WINDOW", defaults.FullRefundWindow),
			LateCancelRefundPercent: r.integer("LATE_CANCEL_REFUND_PERCENT", defaults.LateCancelRefundPercent),
			MaxSlotRangeDays:        r.integer("MAX_SLOT_RANGE_DAYS", defaults.MaxSlotRangeDays),
			StartWindow:             r.duration("START_WINDOW", defaults.StartWindow),
			DefaultCurrency:         r.str("CURRENCY", defaults.DefaultCurrency),
		},

		ReconcileInterval: r.duration("RECONCILE_INTERVAL", time.Minute),
		AutoNoShowAfter:   r.duration("AUTO_NO_SHOW_AFTER", 0),
	}

	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Дебаг: показываем что загружено (без секретов)
	log.Printf("Config loaded: env=%s storage=%s payments=%s\n", cfg.Environment, cfg.Storage, cfg.PaymentProvider)

	return cfg, nil
}

func (c *Config) validate() error {
	// Проверяем обязательные поля
	switch c.Storage {
	case "postgres":
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE must be postgres or memory, got %q", c.Storage)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}

	switch c.PaymentProvider {
	case "sandbox":
	case "stripe":
		if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required for stripe payments")
		}
		if c.CheckoutSuccessURL == "" || c.CheckoutCancelURL == "" {
			return fmt.Errorf("CHECKOUT_SUCCESS_URL and CHECKOUT_CANCEL_URL are required for stripe payments")
		}
	default:
		return fmt.Errorf("PAYMENT_PROVIDER must be sandbox or stripe, got %q", c.PaymentProvider)
	}

	if c.ResendAPIKey != "" && c.EmailFrom == "" {
		return fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
	}

	b := c.Booking
	if b.LateCancelRefundPercent < 0 || b.LateCancelRefundPercent > 100 {
		return fmt.Errorf("LATE_CANCEL_REFUND_PERCENT must be between 0 and 100")
	}
	if b.MaxSlotRangeDays <= 0 {
		return fmt.Errorf("MAX_SLOT_RANGE_DAYS must be positive")
	}
	if b.PaymentIntentTTL < 30*time.Minute && c.PaymentProvider == "stripe" {
		// Stripe не принимает expires_at раньше чем через 30 минут
		return fmt.Errorf("PAYMENT_INTENT_TTL must be at least 30m for stripe")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d
}
