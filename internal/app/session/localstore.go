package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	json "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// LocalStore keeps reload-resilient candidate state: the session start time
// and per-challenge code buffers. It is a cache, never the authority on
// whether a test was already submitted.
type LocalStore interface {
	// EnsureStart records now as the start time unless one is already
	// stored, and returns the stored value.
	EnsureStart(ctx context.Context, userID, testID string, now time.Time) (time.Time, error)
	// LoadStart reports the stored start time without creating one.
	LoadStart(ctx context.Context, userID, testID string) (time.Time, bool, error)
	SaveCode(ctx context.Context, userID, testID, challengeID string, buf model.CodeBuffer) error
	LoadCode(ctx context.Context, userID, testID string) (map[string]model.CodeBuffer, error)
	Clear(ctx context.Context, userID, testID string) error
}

// RedisLocalStore uses the keys start_<test> and code_<test>_<challenge>,
// namespaced per user.
type RedisLocalStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ LocalStore = (*RedisLocalStore)(nil)

func NewRedisLocalStore(rdb redis.Cmdable, ttl time.Duration) *RedisLocalStore {
	return &RedisLocalStore{rdb: rdb, ttl: ttl}
}

func userPrefix(userID string) string {
	return "local:" + userID + ":"
}

func startKey(userID, testID string) string {
	return userPrefix(userID) + "start_" + testID
}

func codePrefix(userID, testID string) string {
	return userPrefix(userID) + "code_" + testID + "_"
}

func codeKey(userID, testID, challengeID string) string {
	return codePrefix(userID, testID) + challengeID
}

func (s *RedisLocalStore) EnsureStart(ctx context.Context, userID, testID string, now time.Time) (time.Time, error) {
	key := startKey(userID, testID)
	if err := s.rdb.SetNX(ctx, key, now.UnixMilli(), s.ttl).Err(); err != nil {
		return time.Time{}, fmt.Errorf("record session start: %w", err)
	}
	start, ok, err := s.LoadStart(ctx, userID, testID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, fmt.Errorf("session start for %s vanished after write", key)
	}
	return start, nil
}

func (s *RedisLocalStore) LoadStart(ctx context.Context, userID, testID string) (time.Time, bool, error) {
	raw, err := s.rdb.Get(ctx, startKey(userID, testID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("read session start: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt session start %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (s *RedisLocalStore) SaveCode(ctx context.Context, userID, testID, challengeID string, buf model.CodeBuffer) error {
	data, err := json.Marshal(buf)
	if err != nil {
		return fmt.Errorf("encode code buffer: %w", err)
	}
	if err := s.rdb.Set(ctx, codeKey(userID, testID, challengeID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save code buffer: %w", err)
	}
	return nil
}

func (s *RedisLocalStore) LoadCode(ctx context.Context, userID, testID string) (map[string]model.CodeBuffer, error) {
	keys, err := s.codeKeys(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	prefix := codePrefix(userID, testID)
	buffers := make(map[string]model.CodeBuffer, len(keys))
	for _, key := range keys {
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("load code buffer: %w", err)
		}
		var buf model.CodeBuffer
		if err := json.Unmarshal(raw, &buf); err != nil {
			return nil, fmt.Errorf("decode code buffer %s: %w", key, err)
		}
		buffers[strings.TrimPrefix(key, prefix)] = buf
	}
	return buffers, nil
}

func (s *RedisLocalStore) Clear(ctx context.Context, userID, testID string) error {
	keys, err := s.codeKeys(ctx, userID, testID)
	if err != nil {
		return err
	}
	keys = append(keys, startKey(userID, testID))
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear local session state: %w", err)
	}
	return nil
}

func (s *RedisLocalStore) codeKeys(ctx context.Context, userID, testID string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := codePrefix(userID, testID) + "*"
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan code buffers: %w", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
