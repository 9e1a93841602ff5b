package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	json "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Service serves the ranked projection, caching it in Redis until the next
// submission for the same test or the TTL runs out.
type Service struct {
	tests       repository.TestRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	rdb         redis.Cmdable
	ttl         time.Duration
}

func NewService(tests repository.TestRepository, submissions repository.SubmissionRepository,
	users repository.UserRepository, rdb redis.Cmdable, ttl time.Duration) *Service {
	return &Service{
		tests:       tests,
		submissions: submissions,
		users:       users,
		rdb:         rdb,
		ttl:         ttl,
	}
}

func cacheKey(testID string) string {
	return "leaderboard:" + testID
}

// Leaderboard returns at most limit entries; limit <= 0 returns all.
func (s *Service) Leaderboard(ctx context.Context, testID string, limit int) ([]model.LeaderboardEntry, error) {
	if _, err := s.tests.FindTestByID(ctx, testID); err != nil {
		return nil, err
	}

	entries, err := s.cached(ctx, testID)
	if err != nil {
		logger.Warn(ctx, "leaderboard cache read failed", zap.String("test_id", testID), zap.Error(err))
	}
	if entries == nil {
		cacheMissesTotal.Inc()
		entries, err = s.compute(ctx, testID)
		if err != nil {
			return nil, err
		}
		s.store(ctx, testID, entries)
	} else {
		cacheHitsTotal.Inc()
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Service) compute(ctx context.Context, testID string) ([]model.LeaderboardEntry, error) {
	records, err := s.submissions.ListSubmissionsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if !seen[rec.UserID] {
			seen[rec.UserID] = true
			ids = append(ids, rec.UserID)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load display names: %w", err)
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return Rank(records, names), nil
}

func (s *Service) cached(ctx context.Context, testID string) ([]model.LeaderboardEntry, error) {
	if s.rdb == nil {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, cacheKey(testID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	entries := []model.LeaderboardEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) store(ctx context.Context, testID string, entries []model.LeaderboardEntry) {
	if s.rdb == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		logger.Warn(ctx, "leaderboard encode failed", zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(testID), data, s.ttl).Err(); err != nil {
		logger.Warn(ctx, "leaderboard cache write failed", zap.String("test_id", testID), zap.Error(err))
	}
}

func (s *Service) Invalidate(ctx context.Context, testID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKey(testID)).Err(); err != nil {
		logger.Warn(ctx, "leaderboard cache invalidation failed", zap.String("test_id", testID), zap.Error(err))
	}
}

// SubmissionRecorded drops the cached projection for rec's test.
func (s *Service) SubmissionRecorded(ctx context.Context, rec *model.SubmissionRecord) {
	s.Invalidate(ctx, rec.TestID)
}
