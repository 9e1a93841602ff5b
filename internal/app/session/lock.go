package session

import (
	"context"
	"fmt"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker serialises finalisation of one (user, test) pair across processes.
type Locker interface {
	// Acquire returns common.ErrSubmissionInFlight when another holder owns
	// the key.
	Acquire(ctx context.Context, key Key, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

type RedisLocker struct {
	rdb redis.Cmdable
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb redis.Cmdable) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func lockKey(key Key) string {
	return "submit_lock:" + key.UserID + ":" + key.TestID
}

func (l *RedisLocker) Acquire(ctx context.Context, key Key, ttl time.Duration) (func(), error) {
	redisKey := lockKey(key)
	value := uuid.NewString()
	acquired, err := l.rdb.SetNX(ctx, redisKey, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !acquired {
		return nil, common.ErrSubmissionInFlight
	}

	release := func() {
		// The caller's context may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(rctx, l.rdb, []string{redisKey}, value).Int64()
		if err != nil {
			logger.Error(ctx, "failed to release submit lock", zap.String("key", redisKey), zap.Error(err))
			return
		}
		if deleted == 0 {
			logger.Warn(ctx, "submit lock expired before release", zap.String("key", redisKey))
		}
	}
	return release, nil
}
