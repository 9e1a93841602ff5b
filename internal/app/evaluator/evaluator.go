package evaluator

import (
	"context"
	"strings"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/executor"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"go.uber.org/zap"
)

// Evaluator runs a candidate program against test cases one at a time, in
// order. A runner failure fails that case only; the run continues.
type Evaluator struct {
	client          executor.Client
	throttleRetries int
	retryDelay      time.Duration
}

type Option func(*Evaluator)

// WithThrottleRetries re-runs a throttled case up to n more times, waiting
// delay, 2*delay, ... between attempts.
func WithThrottleRetries(n int, delay time.Duration) Option {
	return func(e *Evaluator) {
		if n >= 0 {
			e.throttleRetries = n
		}
		e.retryDelay = delay
	}
}

func New(client executor.Client, opts ...Option) *Evaluator {
	e := &Evaluator{client: client, throttleRetries: 3, retryDelay: time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns exactly one verdict per test case, in input order.
func (e *Evaluator) Evaluate(ctx context.Context, source, languageID string, cases []model.TestCase) []model.Verdict {
	started := time.Now()
	verdicts := make([]model.Verdict, len(cases))
	for i, tc := range cases {
		res := e.executeWithRetry(ctx, source, languageID, tc.Input)
		verdicts[i] = Judge(tc, res)
		executionsTotal.WithLabelValues(string(verdicts[i].Status), languageID).Inc()
	}
	evaluationDurationSeconds.WithLabelValues(languageID).Observe(time.Since(started).Seconds())
	return verdicts
}

func (e *Evaluator) executeWithRetry(ctx context.Context, source, languageID, stdin string) model.ExecutionResult {
	res := e.client.Execute(ctx, source, languageID, stdin)
	for attempt := 1; res.Throttled && attempt <= e.throttleRetries; attempt++ {
		logger.Warn(ctx, "code runner throttled, retrying",
			zap.Int("attempt", attempt),
			zap.String("language", languageID))
		if !sleep(ctx, time.Duration(attempt)*e.retryDelay) {
			return res
		}
		res = e.client.Execute(ctx, source, languageID, stdin)
	}
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Judge compares trimmed stdout with the trimmed expected output. Leading and
// trailing whitespace is ignored; inner whitespace is significant.
func Judge(tc model.TestCase, res model.ExecutionResult) model.Verdict {
	v := model.Verdict{
		TestCaseID:     tc.ID,
		ActualOutput:   res.Stdout,
		ExpectedOutput: tc.ExpectedOutput,
		Stderr:         res.Stderr,
		IsHidden:       tc.IsHidden,
	}

	switch {
	case res.Throttled:
		v.Status = model.VerdictThrottled
		v.Error = res.Error
	case res.Error != "":
		v.Status = model.VerdictExecutionError
		v.Error = res.Error
	case strings.TrimSpace(res.Stdout) == strings.TrimSpace(tc.ExpectedOutput):
		v.Status = model.VerdictPassed
		v.Passed = true
	case res.ExitCode != 0 || res.CompileOutput != "":
		v.Status = model.VerdictRuntimeError
		if res.CompileOutput != "" {
			v.Stderr = res.CompileOutput
		}
	default:
		v.Status = model.VerdictWrongAnswer
	}
	return v
}

// FullyPassed is the only criterion for awarding a challenge's score.
func FullyPassed(verdicts []model.Verdict) bool {
	if len(verdicts) == 0 {
		return false
	}
	for _, v := range verdicts {
		if !v.Passed {
			return false
		}
	}
	return true
}

func AnyThrottled(verdicts []model.Verdict) bool {
	for _, v := range verdicts {
		if v.Status == model.VerdictThrottled {
			return true
		}
	}
	return false
}
