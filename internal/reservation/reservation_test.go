package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/coach_scheduler/internal/clock"
)

var start = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func TestBuckets(t *testing.T) {
	assert.Len(t, buckets(start, start.Add(time.Hour)), 4)
	assert.Len(t, buckets(start.Add(10*time.Minute), start.Add(20*time.Minute)), 2)
	assert.Empty(t, buckets(start, start))
}

func TestMemoryReserver(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(start.Add(-24 * time.Hour))
	r := NewMemoryReserver(c)

	token, err := r.Reserve(ctx, 1, start, start.Add(time.Hour), 30*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// пересечение
	_, err = r.Reserve(ctx, 1, start.Add(45*time.Minute), start.Add(105*time.Minute), 30*time.Minute)
	assert.ErrorIs(t, err, ErrReserved)

	// соседний интервал и другой коуч свободны
	_, err = r.Reserve(ctx, 1, start.Add(time.Hour), start.Add(2*time.Hour), 30*time.Minute)
	assert.NoError(t, err)
	_, err = r.Reserve(ctx, 2, start, start.Add(time.Hour), 30*time.Minute)
	assert.NoError(t, err)

	// чужой токен не снимает удержание
	require.NoError(t, r.Release(ctx, 1, start, start.Add(time.Hour), "other"))
	_, err = r.Reserve(ctx, 1, start, start.Add(time.Hour), 30*time.Minute)
	assert.ErrorIs(t, err, ErrReserved)

	require.NoError(t, r.Release(ctx, 1, start, start.Add(time.Hour), token))
	_, err = r.Reserve(ctx, 1, start, start.Add(time.Hour), 30*time.Minute)
	assert.NoError(t, err)
}

func TestMemoryReserver_Expiry(t *testing.T) {
	ctx := context.Background()
	c := clock.NewManual(start.Add(-24 * time.Hour))
	r := NewMemoryReserver(c)

	_, err := r.Reserve(ctx, 1, start, start.Add(time.Hour), 30*time.Minute)
	require.NoError(t, err)

	c.Advance(30 * time.Minute)
	_, err = r.Reserve(ctx, 1, start, start.Add(time.Hour), 30*time.Minute)
	assert.NoError(t, err)
}

func TestRedisReserver_ReserveAndConflict(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	r := NewRedisReserver(db, zap.NewNop())

	ks := keys(1, start, start.Add(30*time.Minute))
	require.Len(t, ks, 2)

	mock.Regexp().ExpectSetNX(ks[0], `.+`, 30*time.Minute).SetVal(true)
	mock.Regexp().ExpectSetNX(ks[1], `.+`, 30*time.Minute).SetVal(false)
	mock.Regexp().ExpectEvalSha(releaseScript.Hash(), ks[:1], `.+`).SetVal(int64(1))

	_, err := r.Reserve(ctx, 1, start, start.Add(30*time.Minute), 30*time.Minute)
	assert.ErrorIs(t, err, ErrReserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReserver_RedisError(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	r := NewRedisReserver(db, zap.NewNop())

	ks := keys(1, start, start.Add(15*time.Minute))
	mock.Regexp().ExpectSetNX(ks[0], `.+`, time.Minute).SetErr(errors.New("connection refused"))

	_, err := r.Reserve(ctx, 1, start, start.Add(15*time.Minute), time.Minute)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrReserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisReserver_Release(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	r := NewRedisReserver(db, zap.NewNop())

	ks := keys(3, start, start.Add(time.Hour))
	mock.ExpectEvalSha(releaseScript.Hash(), ks, "tok").SetVal(int64(4))

	require.NoError(t, r.Release(ctx, 3, start, start.Add(time.Hour), "tok"))
	assert.NoError(t, mock.ExpectationsWereMet())

	// пустой токен ничего не делает
	require.NoError(t, r.Release(ctx, 3, start, start.Add(time.Hour), ""))
}
