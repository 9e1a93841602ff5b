package session

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
)

type fakeTestRepo struct {
	tests map[string]*model.TestDefinition
}

func newFakeTestRepo(tests ...*model.TestDefinition) *fakeTestRepo {
	r := &fakeTestRepo{tests: make(map[string]*model.TestDefinition)}
	for _, tt := range tests {
		r.tests[tt.ID] = tt
	}
	return r
}

func (r *fakeTestRepo) CreateTest(ctx context.Context, tx *sql.Tx, test *model.TestDefinition) error {
	r.tests[test.ID] = test
	return nil
}

func (r *fakeTestRepo) FindTestByID(ctx context.Context, id string) (*model.TestDefinition, error) {
	tt, ok := r.tests[id]
	if !ok {
		return nil, common.ErrTestNotFound
	}
	return tt, nil
}

func (r *fakeTestRepo) FindTestBySlug(ctx context.Context, slug string) (*model.TestDefinition, error) {
	for _, tt := range r.tests {
		if tt.Slug == slug {
			return tt, nil
		}
	}
	return nil, common.ErrTestNotFound
}

func (r *fakeTestRepo) ListTests(ctx context.Context, limit, offset int) ([]model.TestDefinition, int, error) {
	var out []model.TestDefinition
	for _, tt := range r.tests {
		out = append(out, *tt)
	}
	return out, len(out), nil
}

// fakeSubmissionRepo enforces the (user, test) unique index.
type fakeSubmissionRepo struct {
	mu        sync.Mutex
	records   map[string]*model.SubmissionRecord
	creates   int
	createErr error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{records: make(map[string]*model.SubmissionRecord)}
}

func (r *fakeSubmissionRepo) CreateSubmission(ctx context.Context, rec *model.SubmissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	key := rec.UserID + "|" + rec.TestID
	if _, ok := r.records[key]; ok {
		return fmt.Errorf("submission exists: %w", common.ErrConflict)
	}
	cp := *rec
	r.records[key] = &cp
	r.creates++
	return nil
}

func (r *fakeSubmissionRepo) FindSubmissionByUserAndTest(ctx context.Context, userID, testID string) (*model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[userID+"|"+testID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeSubmissionRepo) ListSubmissionsByTest(ctx context.Context, testID string) ([]model.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SubmissionRecord
	for _, rec := range r.records {
		if rec.TestID == testID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *fakeSubmissionRepo) setCreateErr(err error) {
	r.mu.Lock()
	r.createErr = err
	r.mu.Unlock()
}

// sumRunner understands three "programs": "add" prints the sum of the
// integers on stdin, "zero" prints 0 and "throttled" is always rate limited.
type sumRunner struct {
	calls int32
	delay time.Duration
}

func (r *sumRunner) Execute(ctx context.Context, source, languageID, stdin string) model.ExecutionResult {
	atomic.AddInt32(&r.calls, 1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	switch strings.TrimSpace(source) {
	case "add":
		sum := 0
		for _, f := range strings.Fields(stdin) {
			n, _ := strconv.Atoi(f)
			sum += n
		}
		return model.ExecutionResult{Stdout: strconv.Itoa(sum) + "\n"}
	case "zero":
		return model.ExecutionResult{Stdout: "0\n"}
	case "throttled":
		return model.ExecutionResult{Error: "too many requests", Throttled: true}
	}
	return model.ExecutionResult{Stderr: "SyntaxError", ExitCode: 1}
}

func (r *sumRunner) Calls() int { return int(atomic.LoadInt32(&r.calls)) }

type recordingListener struct {
	mu   sync.Mutex
	recs []*model.SubmissionRecord
}

func (l *recordingListener) SubmissionRecorded(ctx context.Context, rec *model.SubmissionRecord) {
	l.mu.Lock()
	l.recs = append(l.recs, rec)
	l.mu.Unlock()
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recs)
}

// lateWinnerRepo hides existing records from the first lookups, as when
// another process inserts between the existence check and the write.
type lateWinnerRepo struct {
	*fakeSubmissionRepo
	hidden atomic.Int32
}

func (r *lateWinnerRepo) FindSubmissionByUserAndTest(ctx context.Context, userID, testID string) (*model.SubmissionRecord, error) {
	if r.hidden.Add(-1) >= 0 {
		return nil, common.ErrNotFound
	}
	return r.fakeSubmissionRepo.FindSubmissionByUserAndTest(ctx, userID, testID)
}
