package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig настройки Stripe Checkout
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// StripeProcessor реализация Processor через Stripe Checkout Sessions.
// Идентификатор intent это id checkout session, ссылка на платёж это id payment intent
type StripeProcessor struct {
	api *client.API
	cfg StripeConfig
}

func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeProcessor{api: sc, cfg: cfg}
}

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	metadata := req.Metadata.ToMap()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.cfg.SuccessURL),
		CancelURL:  stripe.String(p.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		ClientReferenceID: stripe.String(metadata["booking_id"]),
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	cs, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", classifyStripeError(err))
	}

	return &PaymentIntent{
		ID:          cs.ID,
		RedirectURL: cs.URL,
		ExpiresAt:   time.Unix(cs.ExpiresAt, 0).UTC(),
	}, nil
}

func (p *StripeProcessor) ConfirmPaymentIntent(ctx context.Context, intentID string) (*IntentResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	cs, err := p.api.CheckoutSessions.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", classifyStripeError(err))
	}
	return checkoutResult(cs), nil
}

func checkoutResult(cs *stripe.CheckoutSession) *IntentResult {
	result := &IntentResult{ID: cs.ID, Status: IntentStatusPending, Metadata: cs.Metadata}
	if cs.PaymentIntent != nil {
		result.PaymentReference = cs.PaymentIntent.ID
	}

	switch {
	case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		result.Status = IntentStatusSucceeded
	case cs.Status == stripe.CheckoutSessionStatusExpired:
		result.Status = IntentStatusExpired
	case cs.PaymentIntent != nil && cs.PaymentIntent.Status == stripe.PaymentIntentStatusCanceled:
		result.Status = IntentStatusFailed
	}
	return result
}

func (p *StripeProcessor) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentReference),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	params.AddMetadata("refund_percentage", fmt.Sprintf("%d", req.Percentage))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", classifyStripeError(err))
	}

	status := RefundStatusPending
	switch r.Status {
	case stripe.RefundStatusSucceeded:
		status = RefundStatusSucceeded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		status = RefundStatusFailed
	}
	return &RefundResult{ID: r.ID, Status: status}, nil
}

// WebhookEvent событие Stripe, которое важно движку
type WebhookEvent struct {
	Type     string
	IntentID string
	Result   *IntentResult
}

// ParseWebhook проверяет подпись и разбирает событие checkout.session.*.
// Для остальных событий возвращает nil без ошибки
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: verify webhook signature: %v", ErrInvalidRequest, err)
	}

	switch string(event.Type) {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
	default:
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: decode checkout session: %v", ErrInvalidRequest, err)
	}

	return &WebhookEvent{Type: string(event.Type), IntentID: cs.ID, Result: checkoutResult(&cs)}, nil
}

func classifyStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", ErrDeclined, se.Msg)
	case se.HTTPStatusCode == http.StatusBadRequest || se.HTTPStatusCode == http.StatusNotFound ||
		se.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, se.Msg)
	}
	return err
}
