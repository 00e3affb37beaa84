// Package api HTTP-интерфейс движка бронирования
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/auth"
	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

// WebhookParser проверяет подпись и разбирает уведомление процессора
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// SandboxPayments ручное подтверждение оплаты в dev-окружении
type SandboxPayments interface {
	Succeed(intentID string) error
	Decline(intentID string) error
}

type Options struct {
	Services           *service.Services
	Tokens             *auth.Tokens
	Logger             *zap.Logger
	RateLimitPerMinute int
	AllowOrigins       []string
	Webhooks           WebhookParser   // nil - маршрут вебхука не регистрируется
	Sandbox            SandboxPayments // nil - ручное подтверждение выключено
}

type Handler struct {
	svc      *service.Services
	tokens   *auth.Tokens
	logger   *zap.Logger
	webhooks WebhookParser
	sandbox  SandboxPayments
}

// NewRouter собирает gin.Engine со всеми маршрутами /api/v1
func NewRouter(opts Options) *gin.Engine {
	h := &Handler{
		svc:      opts.Services,
		tokens:   opts.Tokens,
		logger:   opts.Logger,
		webhooks: opts.Webhooks,
		sandbox:  opts.Sandbox,
	}

	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limited := func(g *gin.RouterGroup) {}
	if opts.RateLimitPerMinute > 0 {
		store := newLimiterStore(opts.RateLimitPerMinute)
		limited = func(g *gin.RouterGroup) { g.Use(rateLimit(store, opts.Logger)) }
	}

	v1 := r.Group("/api/v1")

	// Вебхук без JWT, подлинность проверяется подписью
	if h.webhooks != nil {
		v1.POST("/payments/webhook", h.paymentWebhook)
	}

	protected := v1.Group("")
	protected.Use(authRequired(opts.Tokens, opts.Services.Users, opts.Logger))
	limited(protected)
	{
		protected.POST("/me/telegram-link", h.telegramLink)

		protected.GET("/coaches/:coachId/availability", h.getAvailability)
		protected.PUT("/coaches/:coachId/availability", h.setAvailability)
		protected.GET("/coaches/:coachId/slots", h.listSlots)
		protected.GET("/coaches/:coachId/week.png", h.weekImage)

		protected.POST("/bookings", h.createBooking)
		protected.GET("/bookings/:bookingId", h.getBooking)
		protected.POST("/payments/:intentId/confirm", h.confirmPayment)

		protected.GET("/sessions", h.listSessions)
		protected.GET("/sessions/:sessionId", h.getSession)
		protected.PATCH("/sessions/:sessionId", h.patchSession)
		protected.POST("/sessions/:sessionId/cancel", h.cancelSession)
		protected.POST("/sessions/:sessionId/reschedule", h.rescheduleSession)

		protected.GET("/sessions/:sessionId/action-items", h.listActionItems)
		protected.POST("/sessions/:sessionId/action-items", h.createActionItem)
		protected.PATCH("/sessions/:sessionId/action-items/:itemId", h.updateActionItem)
		protected.DELETE("/sessions/:sessionId/action-items/:itemId", h.deleteActionItem)

		protected.POST("/sessions/:sessionId/review", h.createReview)
		protected.PATCH("/sessions/:sessionId/review", h.updateReview)
	}

	return r
}
