package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type sandboxIntent struct {
	req       CreateIntentRequest
	id        string
	status    IntentStatus
	reference string
}

// Sandbox процессор в памяти для разработки и тестов.
// Оплату подтверждают вручную через Succeed
type Sandbox struct {
	mu       sync.Mutex
	baseURL  string
	intents  map[string]*sandboxIntent
	byKey    map[string]string
	refunds  map[string]RefundRequest // по ключу идемпотентности
	failures map[string]int           // сколько раз подряд упасть для операции
	failErr  map[string]error
}

func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{
		baseURL:  baseURL,
		intents:  make(map[string]*sandboxIntent),
		byKey:    make(map[string]string),
		refunds:  make(map[string]RefundRequest),
		failures: make(map[string]int),
		failErr:  make(map[string]error),
	}
}

// FailNext заставляет следующие n вызовов операции ("create", "confirm", "refund") вернуть err
func (s *Sandbox) FailNext(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = n
	s.failErr[op] = err
}

func (s *Sandbox) injected(op string) error {
	if s.failures[op] > 0 {
		s.failures[op]--
		return s.failErr[op]
	}
	return nil
}

func (s *Sandbox) CreatePaymentIntent(_ context.Context, req CreateIntentRequest) (*PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("create"); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidRequest)
	}
	if id, ok := s.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		in := s.intents[id]
		return &PaymentIntent{ID: id, RedirectURL: s.url(id), ExpiresAt: in.req.ExpiresAt}, nil
	}

	id := "sbx_cs_" + uuid.NewString()
	s.intents[id] = &sandboxIntent{req: req, id: id, status: IntentStatusPending}
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = id
	}
	return &PaymentIntent{ID: id, RedirectURL: s.url(id), ExpiresAt: req.ExpiresAt}, nil
}

func (s *Sandbox) url(id string) string {
	return s.baseURL + "/sandbox/checkout/" + id
}

func (s *Sandbox) ConfirmPaymentIntent(_ context.Context, intentID string) (*IntentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("confirm"); err != nil {
		return nil, err
	}
	in, ok := s.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %s", ErrInvalidRequest, intentID)
	}
	return &IntentResult{
		ID:               in.id,
		Status:           in.status,
		PaymentReference: in.reference,
		Metadata:         in.req.Metadata.ToMap(),
	}, nil
}

func (s *Sandbox) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected("refund"); err != nil {
		return nil, err
	}
	if req.PaymentReference == "" {
		return nil, fmt.Errorf("%w: missing payment reference", ErrInvalidRequest)
	}
	if _, ok := s.refunds[req.IdempotencyKey]; !ok || req.IdempotencyKey == "" {
		s.refunds[req.IdempotencyKey] = req
	}
	return &RefundResult{ID: "sbx_re_" + req.IdempotencyKey, Status: RefundStatusSucceeded}, nil
}

// Succeed отмечает intent оплаченным
func (s *Sandbox) Succeed(intentID string) error {
	return s.setStatus(intentID, IntentStatusSucceeded)
}

// Decline отмечает intent отклонённым
func (s *Sandbox) Decline(intentID string) error {
	return s.setStatus(intentID, IntentStatusFailed)
}

func (s *Sandbox) setStatus(intentID string, status IntentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[intentID]
	if !ok {
		return fmt.Errorf("unknown intent %s", intentID)
	}
	in.status = status
	if status == IntentStatusSucceeded && in.reference == "" {
		in.reference = "sbx_pi_" + uuid.NewString()
	}
	return nil
}

// Refunds проведённые возвраты, по одному на ключ идемпотентности
func (s *Sandbox) Refunds() []RefundRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RefundRequest, 0, len(s.refunds))
	for _, r := range s.refunds {
		out = append(out, r)
	}
	return out
}

// Expire переводит просроченные intent в expired
func (s *Sandbox) Expire(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range s.intents {
		if in.status == IntentStatusPending && !in.req.ExpiresAt.IsZero() && !now.Before(in.req.ExpiresAt) {
			in.status = IntentStatusExpired
		}
	}
}
