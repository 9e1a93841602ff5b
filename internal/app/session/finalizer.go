package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/evaluator"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SubmissionListener is told about every newly persisted record.
type SubmissionListener interface {
	SubmissionRecorded(ctx context.Context, rec *model.SubmissionRecord)
}

// Result of a finalization. AlreadySubmitted means an earlier record was
// found and returned instead of writing a new one.
type Result struct {
	Record           *model.SubmissionRecord `json:"submission"`
	AlreadySubmitted bool                    `json:"already_submitted"`
}

// Finalizer writes at most one SubmissionRecord per (user, test). Concurrent
// calls in one process share a single run; across processes a Redis lock
// and the unique index on submissions keep the write single.
type Finalizer struct {
	submissions repository.SubmissionRepository
	eval        Evaluator
	store       LocalStore
	deadlines   DeadlineIndex
	locker      Locker
	lockTTL     time.Duration
	listeners   []SubmissionListener
	now         func() time.Time

	group singleflight.Group
}

func NewFinalizer(submissions repository.SubmissionRepository, eval Evaluator, store LocalStore,
	deadlines DeadlineIndex, locker Locker, lockTTL time.Duration, listeners ...SubmissionListener) *Finalizer {
	return &Finalizer{
		submissions: submissions,
		eval:        eval,
		store:       store,
		deadlines:   deadlines,
		locker:      locker,
		lockTTL:     lockTTL,
		listeners:   listeners,
		now:         time.Now,
	}
}

// Submit finalizes state for test. A failed call leaves local state intact
// so that it can be retried.
func (f *Finalizer) Submit(ctx context.Context, test *model.TestDefinition, state model.SessionState, trigger model.SubmissionTrigger) (Result, error) {
	key := Key{UserID: state.UserID, TestID: state.TestID}
	// A candidate closing the connection must not abort a half-done write.
	runCtx := context.WithoutCancel(ctx)

	v, err, _ := f.group.Do(key.String(), func() (interface{}, error) {
		return f.submit(runCtx, test, state, trigger)
	})
	outcome := "created"
	switch {
	case errors.Is(err, common.ErrThrottled):
		outcome = "throttled"
	case errors.Is(err, common.ErrSubmissionInFlight):
		outcome = "in_flight"
	case err != nil:
		outcome = "failed"
	case v.(Result).AlreadySubmitted:
		outcome = "already_submitted"
	}
	submissionsTotal.WithLabelValues(string(trigger), outcome).Inc()
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (f *Finalizer) submit(ctx context.Context, test *model.TestDefinition, state model.SessionState, trigger model.SubmissionTrigger) (Result, error) {
	key := Key{UserID: state.UserID, TestID: state.TestID}

	release, err := f.locker.Acquire(ctx, key, f.lockTTL)
	if err != nil {
		return Result{}, err
	}
	defer release()

	existing, err := f.submissions.FindSubmissionByUserAndTest(ctx, key.UserID, key.TestID)
	if err == nil {
		logger.Info(ctx, "submission already exists, returning it",
			zap.String("test_id", key.TestID), zap.String("submission_id", existing.ID))
		f.clearLocal(ctx, key)
		return Result{Record: existing, AlreadySubmitted: true}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return Result{}, fmt.Errorf("check existing submission: %w", err)
	}

	started := time.Now()
	rec, err := f.score(ctx, test, state)
	if err != nil {
		return Result{}, err
	}
	finalizationDurationSeconds.Observe(time.Since(started).Seconds())

	rec.ID = uuid.NewString()
	rec.Trigger = trigger
	rec.CreatedAt = f.now().UTC()
	rec.EndedAt = rec.CreatedAt

	if err := f.submissions.CreateSubmission(ctx, rec); err != nil {
		if errors.Is(err, common.ErrConflict) {
			winner, findErr := f.submissions.FindSubmissionByUserAndTest(ctx, key.UserID, key.TestID)
			if findErr == nil {
				f.clearLocal(ctx, key)
				return Result{Record: winner, AlreadySubmitted: true}, nil
			}
		}
		logger.Error(ctx, "failed to persist submission, keeping local state",
			zap.String("test_id", key.TestID), zap.Error(err))
		return Result{}, fmt.Errorf("persist submission: %w", err)
	}

	logger.Info(ctx, "submission recorded",
		zap.String("test_id", key.TestID),
		zap.String("user_id", key.UserID),
		zap.String("trigger", string(trigger)),
		zap.Int("earned_points", rec.EarnedPoints),
		zap.Int("total_points", rec.TotalPoints),
		zap.Int("attempted", rec.AttemptedCount))

	f.clearLocal(ctx, key)
	for _, l := range f.listeners {
		l.SubmissionRecorded(ctx, rec)
	}
	return Result{Record: rec}, nil
}

// score re-runs every attempted challenge; cached verdicts are ignored
// because the code may have changed since they were produced.
func (f *Finalizer) score(ctx context.Context, test *model.TestDefinition, state model.SessionState) (*model.SubmissionRecord, error) {
	rec := &model.SubmissionRecord{
		UserID:          state.UserID,
		TestID:          state.TestID,
		StartedAt:       state.StartedAt,
		DurationMinutes: test.DurationMinutes,
		TotalPoints:     test.TotalPoints(),
		Challenges:      make([]model.ChallengeResult, 0, len(test.Challenges)),
	}

	for _, ch := range test.Challenges {
		result := model.ChallengeResult{
			ChallengeID: ch.ID,
			Title:       ch.Title,
			Score:       ch.Score,
			TestCases:   ch.TestCases,
		}
		buf := state.Code[ch.ID]
		if strings.TrimSpace(buf.Source) != "" {
			result.Attempted = true
			result.Language = buf.Language
			result.Source = buf.Source
			result.Verdicts = f.eval.Evaluate(ctx, buf.Source, buf.Language, ch.TestCases)
			if evaluator.AnyThrottled(result.Verdicts) {
				logger.Warn(ctx, "code runner still throttled, refusing to score",
					zap.String("test_id", state.TestID), zap.String("challenge_id", ch.ID))
				return nil, common.ErrThrottled
			}
			result.FullyPassed = evaluator.FullyPassed(result.Verdicts)
		}

		if result.Attempted {
			rec.AttemptedCount++
		}
		if result.FullyPassed {
			rec.EarnedPoints += ch.Score
		}
		rec.Challenges = append(rec.Challenges, result)
	}
	return rec, nil
}

// clearLocal runs only after the record is durable. Failures are logged;
// a leftover cache entry is harmless because the record is authoritative.
func (f *Finalizer) clearLocal(ctx context.Context, key Key) {
	if err := f.store.Clear(ctx, key.UserID, key.TestID); err != nil {
		logger.Warn(ctx, "failed to clear local session state", zap.String("test_id", key.TestID), zap.Error(err))
	}
	if err := f.deadlines.Remove(ctx, key); err != nil {
		logger.Warn(ctx, "failed to remove session deadline", zap.String("test_id", key.TestID), zap.Error(err))
	}
}
