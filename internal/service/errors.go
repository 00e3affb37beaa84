package service

import "errors"

// Таксономия ошибок движка. Места вызова оборачивают их с деталями:
// fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
var (
	ErrValidation        = errors.New("validation error")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrTooLateToModify   = errors.New("too late to modify")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrDuplicateReview   = errors.New("duplicate review")
	ErrNotFound          = errors.New("not found")
)

// Kind машиночитаемое имя ошибки для ответов API
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrTooLateToModify):
		return "too_late_to_modify"
	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, ErrDuplicateReview):
		return "duplicate_review"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "internal_error"
}
