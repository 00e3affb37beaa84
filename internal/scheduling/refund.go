package scheduling

import (
	"time"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

// RefundPolicy правила возврата при отмене
type RefundPolicy struct {
	FullRefundWindow  time.Duration
	LateCancelPercent int
}

func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FullRefundWindow:  24 * time.Hour,
		LateCancelPercent: 50,
	}
}

// Percentage процент возврата. Коуч и система возвращают 100% всегда,
// менти получает 100% если до начала осталось не меньше окна, иначе LateCancelPercent
func (p RefundPolicy) Percentage(canceller model.Role, scheduledAt, now time.Time) int {
	if canceller != model.RoleMentee {
		return 100
	}
	if scheduledAt.Sub(now) >= p.FullRefundWindow {
		return 100
	}
	return p.LateCancelPercent
}

// RefundAmount сумма возврата в минимальных единицах, округление вниз
func RefundAmount(amount int64, percentage int) int64 {
	return amount * int64(percentage) / 100
}

// CanReschedule перенос разрешён только если до текущего начала больше window
func CanReschedule(scheduledAt, now time.Time, window time.Duration) bool {
	return scheduledAt.Sub(now) > window
}

// CanComplete нельзя завершить сессию заранее
func CanComplete(scheduledAt, now time.Time) bool {
	return !now.Before(scheduledAt)
}

// CanStart сессию можно начать за startWindow до начала
func CanStart(scheduledAt, now time.Time, startWindow time.Duration) bool {
	return !now.Before(scheduledAt.Add(-startWindow))
}

// CanMarkNoShow неявку можно отметить только после окончания
func CanMarkNoShow(session *model.Session, now time.Time) bool {
	return !now.Before(session.EndsAt())
}
