package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/payment"
	"github.com/Freeeeeet/coach_scheduler/internal/service"
)

const maxWebhookBody = 64 << 10

// POST /bookings
func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ps, err := h.svc.Bookings.CreateBooking(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ps)
}

// GET /bookings/:bookingId
func (h *Handler) getBooking(c *gin.Context) {
	id, err := idParam(c, "bookingId")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.svc.Bookings.GetBooking(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type confirmPaymentRequest struct {
	// Decline имитирует отказ банка
	Decline bool `json:"decline"`
}

// POST /payments/:intentId/confirm - оплата в песочнице
func (h *Handler) confirmPayment(c *gin.Context) {
	if h.sandbox == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "manual confirmation is disabled"})
		return
	}

	intentID := c.Param("intentId")
	actor := actorFrom(c)
	booking, err := h.svc.Bookings.GetBookingByIntent(c.Request.Context(), actor, intentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if booking.MenteeID != actor.UserID {
		respondError(c, h.logger, service.ErrUnauthorized)
		return
	}

	var req confirmPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	if req.Decline {
		err = h.sandbox.Decline(intentID)
	} else {
		err = h.sandbox.Succeed(intentID)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.svc.Bookings.HandlePaymentConfirmed(c.Request.Context(), intentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// POST /payments/webhook
func (h *Handler) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "cannot read body")
		return
	}

	event, err := h.webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("Rejected payment webhook", zap.Error(err))
		badRequest(c, "invalid webhook")
		return
	}
	if event == nil {
		c.Status(http.StatusOK)
		return
	}

	session, err := h.svc.Bookings.HandlePaymentConfirmed(c.Request.Context(), event.IntentID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, service.ErrSlotConflict),
		errors.Is(err, service.ErrNotFound):
		// исход окончательный, повтор от процессора ничего не изменит
		h.logger.Info("Payment webhook settled without session",
			zap.String("event", event.Type),
			zap.String("intent_id", event.IntentID),
			zap.String("outcome", service.Kind(err)),
		)
		c.Status(http.StatusOK)
		return
	default:
		respondError(c, h.logger, err)
		return
	}

	var sessionID int64
	if session != nil {
		sessionID = session.ID
	}
	h.logger.Info("Payment webhook processed",
		zap.String("event", event.Type),
		zap.String("intent_id", event.IntentID),
		zap.Int64("session_id", sessionID),
		zap.Bool("settled", event.Result != nil && event.Result.Status != payment.IntentStatusPending),
	)
	c.JSON(http.StatusOK, gin.H{"session": session})
}
