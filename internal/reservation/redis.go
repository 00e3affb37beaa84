package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript удаляет ключи только если они принадлежат токену
var releaseScript = redis.NewScript(`
local released = 0
for i, key in ipairs(KEYS) do
	if redis.call("GET", key) == ARGV[1] then
		redis.call("DEL", key)
		released = released + 1
	end
end
return released
`)

type RedisReserver struct {
	rdb    redis.Cmdable
	logger *zap.Logger
}

func NewRedisReserver(rdb redis.Cmdable, logger *zap.Logger) *RedisReserver {
	return &RedisReserver{rdb: rdb, logger: logger}
}

func bucketKey(coachID int64, bucket time.Time) string {
	return fmt.Sprintf("reservation:%d:%d", coachID, bucket.Unix())
}

func keys(coachID int64, start, end time.Time) []string {
	bs := buckets(start, end)
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, bucketKey(coachID, b))
	}
	return out
}

func (r *RedisReserver) Reserve(ctx context.Context, coachID int64, start, end time.Time, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ks := keys(coachID, start, end)

	for i, key := range ks {
		ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil || !ok {
			// откатываем уже занятые ячейки
			if i > 0 {
				if relErr := releaseScript.Run(ctx, r.rdb, ks[:i], token).Err(); relErr != nil {
					r.logger.Warn("Failed to roll back partial reservation",
						zap.Int64("coach_id", coachID),
						zap.Error(relErr),
					)
				}
			}
			if err != nil {
				return "", fmt.Errorf("reserve slot: %w", err)
			}
			return "", ErrReserved
		}
	}

	return token, nil
}

func (r *RedisReserver) Release(ctx context.Context, coachID int64, start, end time.Time, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, r.rdb, keys(coachID, start, end), token).Err(); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}
