package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/evaluator"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/executor"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
)

// Evaluator is satisfied by *evaluator.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, source, languageID string, cases []model.TestCase) []model.Verdict
}

// Machine owns the SessionState of one candidate in one test and moves it
// through NotStarted -> InProgress -> Submitting -> Submitted.
type Machine struct {
	mu     sync.Mutex
	test   *model.TestDefinition
	state  model.SessionState
	status model.SessionStatus
	timer  *Timer
	record *model.SubmissionRecord

	store  LocalStore
	eval   Evaluator
	runner executor.Client
	now    func() time.Time

	stopTimer context.CancelFunc
}

func newMachine(test *model.TestDefinition, userID string, start time.Time, code map[string]model.CodeBuffer,
	store LocalStore, eval Evaluator, runner executor.Client, now func() time.Time) *Machine {
	if code == nil {
		code = make(map[string]model.CodeBuffer)
	}
	selected := ""
	if len(test.Challenges) > 0 {
		selected = test.Challenges[0].ID
	}
	return &Machine{
		test: test,
		state: model.SessionState{
			TestID:            test.ID,
			UserID:            userID,
			StartedAt:         start,
			SelectedChallenge: selected,
			Code:              code,
			Verdicts:          make(map[string][]model.Verdict),
		},
		status: model.SessionInProgress,
		timer:  NewTimer(start, test.Duration(), now),
		store:  store,
		eval:   eval,
		runner: runner,
		now:    now,
	}
}

func (m *Machine) Key() Key {
	return Key{UserID: m.state.UserID, TestID: m.state.TestID}
}

func (m *Machine) Timer() *Timer { return m.timer }

func (m *Machine) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// editableLocked must be called with m.mu held.
func (m *Machine) editableLocked() error {
	switch m.status {
	case model.SessionSubmitted:
		return common.ErrAlreadySubmitted
	case model.SessionSubmitting:
		return common.ErrSubmissionInFlight
	}
	if m.timer.Expired(m.now()) {
		return common.ErrSessionClosed
	}
	return nil
}

func (m *Machine) challenge(id string) (*model.Challenge, error) {
	ch, ok := m.test.Challenge(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, common.ErrChallengeNotFound)
	}
	return ch, nil
}

// SelectChallenge switches the active challenge. Buffered code of other
// challenges is untouched.
func (m *Machine) SelectChallenge(challengeID string) error {
	if _, err := m.challenge(challengeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editableLocked(); err != nil {
		return err
	}
	m.state.SelectedChallenge = challengeID
	return nil
}

// UpdateCode buffers source for a challenge and writes it through to the
// local store so a reload does not lose it.
func (m *Machine) UpdateCode(ctx context.Context, challengeID string, buf model.CodeBuffer) error {
	if _, err := m.challenge(challengeID); err != nil {
		return err
	}
	if _, ok := model.LookupLanguage(buf.Language); !ok {
		return fmt.Errorf("unsupported language %q: %w", buf.Language, common.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editableLocked(); err != nil {
		return err
	}
	if err := m.store.SaveCode(ctx, m.state.UserID, m.state.TestID, challengeID, buf); err != nil {
		return err
	}
	m.state.Code[challengeID] = buf
	return nil
}

func (m *Machine) bufferedCode(challengeID string) (model.CodeBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.editableLocked(); err != nil {
		return model.CodeBuffer{}, err
	}
	buf, ok := m.state.Code[challengeID]
	if !ok || strings.TrimSpace(buf.Source) == "" {
		return model.CodeBuffer{}, fmt.Errorf("no code saved for challenge %s: %w", challengeID, common.ErrValidation)
	}
	return buf, nil
}

// RunSample executes the buffered code once with candidate-supplied stdin.
// It never affects scoring.
func (m *Machine) RunSample(ctx context.Context, challengeID, stdin string) (model.ExecutionResult, error) {
	if _, err := m.challenge(challengeID); err != nil {
		return model.ExecutionResult{}, err
	}
	buf, err := m.bufferedCode(challengeID)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	return m.runner.Execute(ctx, buf.Source, buf.Language, stdin), nil
}

// RunAllTests evaluates the buffered code against every case of the
// challenge and records the verdicts. Hidden case contents are masked in
// the returned slice.
func (m *Machine) RunAllTests(ctx context.Context, challengeID string) ([]model.Verdict, error) {
	ch, err := m.challenge(challengeID)
	if err != nil {
		return nil, err
	}
	buf, err := m.bufferedCode(challengeID)
	if err != nil {
		return nil, err
	}

	// Evaluation can take seconds; the lock is not held while it runs.
	verdicts := m.eval.Evaluate(ctx, buf.Source, buf.Language, ch.TestCases)

	m.mu.Lock()
	if m.status == model.SessionInProgress {
		m.state.Verdicts[challengeID] = verdicts
	}
	m.mu.Unlock()
	return model.MaskVerdicts(verdicts), nil
}

// snapshotLocked returns a deep copy of the working state. m.mu must be held.
func (m *Machine) snapshotLocked() model.SessionState {
	st := m.state
	st.Code = make(map[string]model.CodeBuffer, len(m.state.Code))
	for k, v := range m.state.Code {
		st.Code[k] = v
	}
	st.Verdicts = make(map[string][]model.Verdict, len(m.state.Verdicts))
	for k, v := range m.state.Verdicts {
		st.Verdicts[k] = append([]model.Verdict(nil), v...)
	}
	return st
}

// beginSubmit moves the machine to Submitting and returns the state to
// finalize. A Submitted machine returns its record instead.
func (m *Machine) beginSubmit() (model.SessionState, *model.SubmissionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == model.SessionSubmitted {
		return model.SessionState{}, m.record
	}
	m.status = model.SessionSubmitting
	return m.snapshotLocked(), nil
}

// abortSubmit returns to InProgress after a failed finalization so the
// candidate can retry.
func (m *Machine) abortSubmit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == model.SessionSubmitting {
		m.status = model.SessionInProgress
	}
}

func (m *Machine) finishSubmit(rec *model.SubmissionRecord) {
	m.mu.Lock()
	m.status = model.SessionSubmitted
	m.record = rec
	stop := m.stopTimer
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (m *Machine) View() model.SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == model.SessionSubmitted && m.record != nil {
		return submittedView(m.record)
	}

	start := m.timer.Start()
	deadline := m.timer.Deadline()
	view := model.SessionView{
		TestID:            m.state.TestID,
		Status:            m.status,
		StartedAt:         &start,
		Deadline:          &deadline,
		RemainingSeconds:  m.timer.Remaining(m.now()),
		SelectedChallenge: m.state.SelectedChallenge,
		Code:              make(map[string]model.CodeBuffer, len(m.state.Code)),
		Verdicts:          make(map[string][]model.Verdict, len(m.state.Verdicts)),
	}
	for k, v := range m.state.Code {
		view.Code[k] = v
	}
	for k, v := range m.state.Verdicts {
		view.Verdicts[k] = model.MaskVerdicts(v)
	}
	for _, ch := range m.test.Challenges {
		if evaluator.FullyPassed(m.state.Verdicts[ch.ID]) {
			view.Completed = append(view.Completed, ch.ID)
		}
	}
	return view
}

func submittedView(rec *model.SubmissionRecord) model.SessionView {
	view := rec.CandidateView()
	start := rec.StartedAt
	deadline := start.Add(time.Duration(rec.DurationMinutes) * time.Minute)
	return model.SessionView{
		TestID:     rec.TestID,
		Status:     model.SessionSubmitted,
		StartedAt:  &start,
		Deadline:   &deadline,
		Submission: &view,
	}
}

func notStartedView(test *model.TestDefinition) model.SessionView {
	return model.SessionView{
		TestID:           test.ID,
		Status:           model.SessionNotStarted,
		RemainingSeconds: int(test.Duration() / time.Second),
	}
}
