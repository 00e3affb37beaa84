// Package reservation мягкое удержание слота на время жизни платёжного intent.
// Удержание только рекомендательное: окончательная проверка пересечений делается при подтверждении оплаты
package reservation

import (
	"context"
	"errors"
	"time"
)

// ErrReserved интервал уже удерживается другим бронированием
var ErrReserved = errors.New("slot is reserved by another booking")

// Granularity шаг сетки, на которую раскладывается интервал
const Granularity = 15 * time.Minute

type Reserver interface {
	// Reserve удерживает [start, end) коуча на ttl и возвращает токен удержания
	Reserve(ctx context.Context, coachID int64, start, end time.Time, ttl time.Duration) (string, error)
	// Release снимает удержание, если оно всё ещё принадлежит токену
	Release(ctx context.Context, coachID int64, start, end time.Time, token string) error
}

// buckets начала 15-минутных ячеек, покрывающих [start, end)
func buckets(start, end time.Time) []time.Time {
	var out []time.Time
	for b := start.UTC().Truncate(Granularity); b.Before(end); b = b.Add(Granularity) {
		out = append(out, b)
	}
	return out
}
