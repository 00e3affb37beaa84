package payment

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Retrying повторяет временные ошибки процессора с экспоненциальной задержкой.
// Повторы безопасны: каждый запрос несёт ключ идемпотентности
type Retrying struct {
	next       Processor
	maxRetries uint64
	base       time.Duration
	logger     *zap.Logger
}

func NewRetrying(next Processor, maxRetries uint64, base time.Duration, logger *zap.Logger) *Retrying {
	return &Retrying{next: next, maxRetries: maxRetries, base: base, logger: logger}
}

func (r *Retrying) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		r.logger.Warn("Payment processor call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
}

func (r *Retrying) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	var out *PaymentIntent
	err := r.do(ctx, "create_intent", func(ctx context.Context) error {
		var err error
		out, err = r.next.CreatePaymentIntent(ctx, req)
		return err
	})
	return out, err
}

func (r *Retrying) ConfirmPaymentIntent(ctx context.Context, intentID string) (*IntentResult, error) {
	var out *IntentResult
	err := r.do(ctx, "confirm_intent", func(ctx context.Context) error {
		var err error
		out, err = r.next.ConfirmPaymentIntent(ctx, intentID)
		return err
	})
	return out, err
}

func (r *Retrying) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	var out *RefundResult
	err := r.do(ctx, "refund", func(ctx context.Context) error {
		var err error
		out, err = r.next.Refund(ctx, req)
		return err
	})
	return out, err
}
