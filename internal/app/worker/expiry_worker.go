package worker

import (
	"context"
	"errors"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/session"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"go.uber.org/zap"
)

// Submitter is satisfied by *session.Manager.
type Submitter interface {
	Submit(ctx context.Context, userID, testID string, trigger model.SubmissionTrigger) (session.Result, error)
}

// ExpiryWorker finalizes sessions whose deadline passed without any live
// timer firing for them: the candidate left, or the process that served
// them restarted.
type ExpiryWorker struct {
	deadlines session.DeadlineIndex
	submitter Submitter
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewExpiryWorker(deadlines session.DeadlineIndex, submitter Submitter, interval time.Duration, batchSize int) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpiryWorker{
		deadlines: deadlines,
		submitter: submitter,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	logger.Info(ctx, "expiry worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "expiry worker stopping")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep submits one batch of overdue sessions and returns how many were
// finalized. Entries that failed for a retryable reason stay in the index
// for the next sweep.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	due, err := w.deadlines.Due(ctx, w.now(), w.batchSize)
	if err != nil {
		logger.Error(ctx, "failed to list overdue sessions", zap.Error(err))
		return 0
	}

	finalized := 0
	for _, key := range due {
		if ctx.Err() != nil {
			return finalized
		}
		res, err := w.submitter.Submit(ctx, key.UserID, key.TestID, model.TriggerExpiry)
		switch {
		case err == nil:
			finalized++
			logger.Info(ctx, "expired session finalized",
				zap.String("user_id", key.UserID),
				zap.String("test_id", key.TestID),
				zap.Bool("already_submitted", res.AlreadySubmitted))
			// Normally done by the finalizer; repeated here for records that
			// were already present.
			w.remove(ctx, key)
		case errors.Is(err, common.ErrTestNotFound):
			logger.Warn(ctx, "dropping deadline of deleted test", zap.String("test_id", key.TestID))
			w.remove(ctx, key)
		case errors.Is(err, common.ErrThrottled), errors.Is(err, common.ErrSubmissionInFlight):
			logger.Info(ctx, "expired session deferred", zap.String("test_id", key.TestID), zap.Error(err))
		default:
			logger.Error(ctx, "failed to finalize expired session",
				zap.String("user_id", key.UserID),
				zap.String("test_id", key.TestID),
				zap.Error(err))
		}
	}
	return finalized
}

func (w *ExpiryWorker) remove(ctx context.Context, key session.Key) {
	if err := w.deadlines.Remove(ctx, key); err != nil {
		logger.Warn(ctx, "failed to remove session deadline", zap.String("test_id", key.TestID), zap.Error(err))
	}
}
