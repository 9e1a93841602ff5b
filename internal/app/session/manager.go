package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/executor"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"go.uber.org/zap"
)

// Manager owns the live Machines of this process. Open, resume and both
// submit paths (candidate action and timer expiry) go through it, and every
// submit ends in Finalizer.Submit.
type Manager struct {
	tests       repository.TestRepository
	submissions repository.SubmissionRepository
	store       LocalStore
	deadlines   DeadlineIndex
	finalizer   *Finalizer
	eval        Evaluator
	runner      executor.Client
	now         func() time.Time

	mu       sync.Mutex
	machines map[Key]*Machine

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ManagerOption func(*Manager)

// WithClock replaces time.Now for the manager, its timers and its finalizer.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(tests repository.TestRepository, submissions repository.SubmissionRepository,
	store LocalStore, deadlines DeadlineIndex, finalizer *Finalizer, eval Evaluator, runner executor.Client,
	opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		tests:       tests,
		submissions: submissions,
		store:       store,
		deadlines:   deadlines,
		finalizer:   finalizer,
		eval:        eval,
		runner:      runner,
		now:         time.Now,
		machines:    make(map[Key]*Machine),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	finalizer.now = m.now
	return m
}

// Open starts the session on first entry and resumes it afterwards. The
// start time is kept in the local store, so re-opening never extends the
// deadline. A test already submitted opens straight into Submitted; one
// whose deadline passed while away is submitted before returning.
func (m *Manager) Open(ctx context.Context, userID, testID string) (model.SessionView, error) {
	test, err := m.tests.FindTestByID(ctx, testID)
	if err != nil {
		return model.SessionView{}, err
	}
	key := Key{UserID: userID, TestID: testID}

	rec, err := m.findRecord(ctx, key)
	if err != nil {
		return model.SessionView{}, err
	}
	mc := m.lookup(key)
	if rec != nil {
		if mc != nil {
			m.retire(ctx, mc, rec)
		}
		return submittedView(rec), nil
	}
	if mc != nil {
		return m.viewOrExpire(ctx, mc), nil
	}

	start, err := m.store.EnsureStart(ctx, userID, testID, m.now().UTC())
	if err != nil {
		return model.SessionView{}, fmt.Errorf("open session: %w", err)
	}
	mc, err = m.install(ctx, test, userID, start)
	if err != nil {
		return model.SessionView{}, err
	}
	return m.viewOrExpire(ctx, mc), nil
}

// View reports the session without starting it.
func (m *Manager) View(ctx context.Context, userID, testID string) (model.SessionView, error) {
	test, err := m.tests.FindTestByID(ctx, testID)
	if err != nil {
		return model.SessionView{}, err
	}
	mc, rec, err := m.resume(ctx, test, userID)
	if errors.Is(err, common.ErrSessionNotStarted) {
		return notStartedView(test), nil
	}
	if err != nil {
		return model.SessionView{}, err
	}
	if rec != nil {
		return submittedView(rec), nil
	}
	return mc.View(), nil
}

// Session returns the live machine for candidate operations.
func (m *Manager) Session(ctx context.Context, userID, testID string) (*Machine, error) {
	test, err := m.tests.FindTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	mc, rec, err := m.resume(ctx, test, userID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return nil, common.ErrAlreadySubmitted
	}
	return mc, nil
}

// Submit finalizes the session. Expiry submits of a session whose local
// state is gone still produce a record, with no code attempted.
func (m *Manager) Submit(ctx context.Context, userID, testID string, trigger model.SubmissionTrigger) (Result, error) {
	test, err := m.tests.FindTestByID(ctx, testID)
	if err != nil {
		return Result{}, err
	}
	key := Key{UserID: userID, TestID: testID}

	mc, rec, err := m.resume(ctx, test, userID)
	if errors.Is(err, common.ErrSessionNotStarted) && trigger == model.TriggerExpiry {
		mc, err = m.install(ctx, test, userID, m.now().UTC().Add(-test.Duration()))
	}
	if err != nil {
		return Result{}, err
	}
	if rec != nil {
		return Result{Record: rec, AlreadySubmitted: true}, nil
	}

	state, done := mc.beginSubmit()
	if done != nil {
		return Result{Record: done, AlreadySubmitted: true}, nil
	}
	res, err := m.finalizer.Submit(ctx, test, state, trigger)
	if err != nil {
		mc.abortSubmit()
		return Result{}, err
	}
	mc.finishSubmit(res.Record)
	m.forget(key, mc)
	return res, nil
}

// Close stops all session timers.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) lookup(key Key) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machines[key]
}

func (m *Manager) findRecord(ctx context.Context, key Key) (*model.SubmissionRecord, error) {
	rec, err := m.submissions.FindSubmissionByUserAndTest(ctx, key.UserID, key.TestID)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("check existing submission: %w", err)
}

// resume returns the live machine, rebuilding it from the local store after
// a restart. The durable record is checked first, even for a machine held in
// memory, since another process may have submitted the session: in that case
// the record is returned and the machine is retired. Sessions that were never
// opened yield ErrSessionNotStarted.
func (m *Manager) resume(ctx context.Context, test *model.TestDefinition, userID string) (*Machine, *model.SubmissionRecord, error) {
	key := Key{UserID: userID, TestID: test.ID}
	rec, err := m.findRecord(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	mc := m.lookup(key)
	if rec != nil {
		if mc != nil {
			m.retire(ctx, mc, rec)
		}
		return nil, rec, nil
	}
	if mc != nil {
		return mc, nil, nil
	}

	start, ok, err := m.store.LoadStart(ctx, userID, test.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("resume session: %w", err)
	}
	if !ok {
		return nil, nil, common.ErrSessionNotStarted
	}
	mc, err = m.install(ctx, test, userID, start)
	return mc, nil, err
}

// retire closes a live machine whose record was written elsewhere and drops
// whatever local state it recreated since.
func (m *Manager) retire(ctx context.Context, mc *Machine, rec *model.SubmissionRecord) {
	key := mc.Key()
	mc.finishSubmit(rec)
	m.forget(key, mc)
	if err := m.store.Clear(ctx, key.UserID, key.TestID); err != nil {
		logger.Warn(ctx, "failed to clear local state of submitted session",
			zap.String("test_id", key.TestID), zap.Error(err))
	}
	if err := m.deadlines.Remove(ctx, key); err != nil {
		logger.Warn(ctx, "failed to remove deadline of submitted session",
			zap.String("test_id", key.TestID), zap.Error(err))
	}
}

// install registers a machine for (userID, test) unless another goroutine
// won the race, in which case that machine is returned.
func (m *Manager) install(ctx context.Context, test *model.TestDefinition, userID string, start time.Time) (*Machine, error) {
	code, err := m.store.LoadCode(ctx, userID, test.ID)
	if err != nil {
		return nil, fmt.Errorf("load buffered code: %w", err)
	}
	mc := newMachine(test, userID, start, code, m.store, m.eval, m.runner, m.now)
	key := mc.Key()

	m.mu.Lock()
	if existing, ok := m.machines[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.machines[key] = mc
	timerCtx, stop := context.WithCancel(m.ctx)
	mc.stopTimer = stop
	m.mu.Unlock()
	activeSessions.Inc()

	if err := m.deadlines.Schedule(ctx, key, mc.Timer().Deadline()); err != nil {
		logger.Warn(ctx, "failed to schedule session deadline", zap.String("test_id", test.ID), zap.Error(err))
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		mc.Timer().Run(timerCtx, func() {
			if _, err := m.Submit(timerCtx, userID, test.ID, model.TriggerExpiry); err != nil {
				logger.Warn(timerCtx, "expiry submit failed, left to the sweeper",
					zap.String("user_id", userID), zap.String("test_id", test.ID), zap.Error(err))
			}
		})
	}()
	return mc, nil
}

// viewOrExpire submits right away when the deadline has already passed,
// instead of waiting for a timer tick.
func (m *Manager) viewOrExpire(ctx context.Context, mc *Machine) model.SessionView {
	if mc.Status() != model.SessionSubmitted && mc.Timer().Expired(m.now()) {
		key := mc.Key()
		if _, err := m.Submit(ctx, key.UserID, key.TestID, model.TriggerExpiry); err != nil {
			logger.Warn(ctx, "immediate expiry submit failed",
				zap.String("test_id", key.TestID), zap.Error(err))
		}
	}
	return mc.View()
}

func (m *Manager) forget(key Key, mc *Machine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.machines[key] == mc {
		delete(m.machines, key)
		activeSessions.Dec()
	}
}
