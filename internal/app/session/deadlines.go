package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const deadlinesKey = "session:deadlines"

type Key struct {
	UserID string
	TestID string
}

func (k Key) String() string { return k.UserID + "|" + k.TestID }

func parseKey(member string) (Key, bool) {
	userID, testID, ok := strings.Cut(member, "|")
	if !ok || userID == "" || testID == "" {
		return Key{}, false
	}
	return Key{UserID: userID, TestID: testID}, true
}

// DeadlineIndex lets the expiry worker find sessions whose time ran out while
// no request was being served for them.
type DeadlineIndex interface {
	Schedule(ctx context.Context, key Key, deadline time.Time) error
	Due(ctx context.Context, now time.Time, limit int) ([]Key, error)
	Remove(ctx context.Context, key Key) error
}

type RedisDeadlineIndex struct {
	rdb redis.Cmdable
}

var _ DeadlineIndex = (*RedisDeadlineIndex)(nil)

func NewRedisDeadlineIndex(rdb redis.Cmdable) *RedisDeadlineIndex {
	return &RedisDeadlineIndex{rdb: rdb}
}

func (d *RedisDeadlineIndex) Schedule(ctx context.Context, key Key, deadline time.Time) error {
	err := d.rdb.ZAdd(ctx, deadlinesKey, redis.Z{Score: float64(deadline.UnixMilli()), Member: key.String()}).Err()
	if err != nil {
		return fmt.Errorf("schedule session deadline: %w", err)
	}
	return nil
}

func (d *RedisDeadlineIndex) Due(ctx context.Context, now time.Time, limit int) ([]Key, error) {
	members, err := d.rdb.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list due sessions: %w", err)
	}
	keys := make([]Key, 0, len(members))
	for _, m := range members {
		if k, ok := parseKey(m); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (d *RedisDeadlineIndex) Remove(ctx context.Context, key Key) error {
	if err := d.rdb.ZRem(ctx, deadlinesKey, key.String()).Err(); err != nil {
		return fmt.Errorf("remove session deadline: %w", err)
	}
	return nil
}
