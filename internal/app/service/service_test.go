package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common/security"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
)

type memTestRepo struct {
	tests map[string]*model.TestDefinition
}

func newMemTestRepo() *memTestRepo {
	return &memTestRepo{tests: make(map[string]*model.TestDefinition)}
}

func (r *memTestRepo) CreateTest(ctx context.Context, tx *sql.Tx, t *model.TestDefinition) error {
	for _, existing := range r.tests {
		if existing.Slug == t.Slug {
			return common.ErrConflict
		}
	}
	t.CreatedAt = time.Now()
	r.tests[t.ID] = t
	return nil
}

func (r *memTestRepo) FindTestByID(ctx context.Context, id string) (*model.TestDefinition, error) {
	if t, ok := r.tests[id]; ok {
		return t, nil
	}
	return nil, common.ErrTestNotFound
}

func (r *memTestRepo) FindTestBySlug(ctx context.Context, slug string) (*model.TestDefinition, error) {
	for _, t := range r.tests {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, common.ErrTestNotFound
}

func (r *memTestRepo) ListTests(ctx context.Context, limit, offset int) ([]model.TestDefinition, int, error) {
	var out []model.TestDefinition
	for _, t := range r.tests {
		out = append(out, *t)
	}
	return out, len(out), nil
}

type memUserRepo struct {
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return common.ErrConflict
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username })
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id })
}

func (r *memUserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *memUserRepo) UpdateRole(ctx context.Context, id, role string) error {
	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Role = role
	return nil
}

func validTestRequest() CreateTestRequest {
	return CreateTestRequest{
		Title:           "Warm Up Round",
		DurationMinutes: 30,
		Challenges: []ChallengeRequest{
			{
				Title: "Sum",
				Score: 10,
				TestCases: []TestCaseRequest{
					{Input: "2 3", ExpectedOutput: "5"},
					{Input: "10 20", ExpectedOutput: "30", IsHidden: true},
				},
			},
			{
				ID:        "ch_custom",
				Title:     "Echo",
				Score:     5,
				TestCases: []TestCaseRequest{{Input: "hi", ExpectedOutput: "hi"}},
			},
		},
	}
}

func TestCreateTestAssignsStableIDsAndSlug(t *testing.T) {
	repo := newMemTestRepo()
	svc := NewTestService(repo)

	test, err := svc.CreateTest(context.Background(), "admin-1", validTestRequest())
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}
	if test.Slug != "warm-up-round" {
		t.Errorf("slug = %q", test.Slug)
	}
	if !strings.HasPrefix(test.Challenges[0].ID, "ch_") || test.Challenges[1].ID != "ch_custom" {
		t.Errorf("challenge ids = %q, %q", test.Challenges[0].ID, test.Challenges[1].ID)
	}
	for _, tc := range test.Challenges[0].TestCases {
		if tc.ID == "" {
			t.Error("test case without id")
		}
	}
	if test.TotalPoints() != 15 || *test.CreatedByID != "admin-1" {
		t.Errorf("test = %+v", test)
	}

	second, err := svc.CreateTest(context.Background(), "admin-1", validTestRequest())
	if err != nil {
		t.Fatalf("CreateTest with same title: %v", err)
	}
	if second.Slug == test.Slug || !strings.HasPrefix(second.Slug, "warm-up-round-") {
		t.Errorf("second slug = %q", second.Slug)
	}
}

func TestCreateTestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateTestRequest)
	}{
		{"missing title", func(r *CreateTestRequest) { r.Title = "" }},
		{"zero duration", func(r *CreateTestRequest) { r.DurationMinutes = 0 }},
		{"no challenges", func(r *CreateTestRequest) { r.Challenges = nil }},
		{"challenge without cases", func(r *CreateTestRequest) { r.Challenges[0].TestCases = nil }},
		{"negative score", func(r *CreateTestRequest) { r.Challenges[1].Score = -1 }},
		{"duplicate challenge id", func(r *CreateTestRequest) { r.Challenges[0].ID = "ch_custom" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validTestRequest()
			tt.mutate(&req)
			_, err := NewTestService(newMemTestRepo()).CreateTest(context.Background(), "admin-1", req)
			if !errors.Is(err, common.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetTestMasksHiddenCasesForCandidates(t *testing.T) {
	repo := newMemTestRepo()
	svc := NewTestService(repo)
	created, err := svc.CreateTest(context.Background(), "admin-1", validTestRequest())
	if err != nil {
		t.Fatalf("CreateTest: %v", err)
	}

	candidate, err := svc.GetTest(context.Background(), created.Slug, model.RoleQuizUser)
	if err != nil {
		t.Fatalf("GetTest by slug: %v", err)
	}
	hidden := candidate.Challenges[0].TestCases[1]
	if hidden.Input != "" || hidden.ExpectedOutput != "" || !hidden.IsHidden {
		t.Errorf("hidden case exposed: %+v", hidden)
	}
	if candidate.Challenges[0].TestCases[0].ExpectedOutput != "5" {
		t.Errorf("visible case masked")
	}

	admin, err := svc.GetTest(context.Background(), created.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("GetTest as admin: %v", err)
	}
	if admin.Challenges[0].TestCases[1].ExpectedOutput != "30" {
		t.Errorf("admin view masked hidden case")
	}
	if repo.tests[created.ID].Challenges[0].TestCases[1].ExpectedOutput != "30" {
		t.Errorf("candidate view mutated the stored test")
	}

	if _, err := svc.GetTest(context.Background(), "missing", model.RoleQuizUser); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing test err = %v", err)
	}
}

func TestAuthSignupAndLogin(t *testing.T) {
	security.InitJWTWithKey([]byte("test-secret"), time.Hour)
	users := newMemUserRepo()
	svc := NewAuthService(users)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if resp.User.Role != model.RoleQuizUser || resp.Token == "" || resp.User.HashedPassword != "" {
		t.Fatalf("signup response = %+v", resp)
	}

	if _, err := svc.Signup(ctx, SignupRequest{Username: "al", Email: "not-an-email", Password: "short"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("invalid signup err = %v", err)
	}
	if _, err := svc.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate signup err = %v", err)
	}

	for _, field := range []string{"alice", "alice@example.com"} {
		if _, err := svc.Login(ctx, LoginRequest{LoginField: field, Password: "correct-horse"}); err != nil {
			t.Errorf("Login(%s): %v", field, err)
		}
	}
	if _, err := svc.Login(ctx, LoginRequest{LoginField: "alice", Password: "wrong-password"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{LoginField: "nobody", Password: "whatever"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestUpdateRole(t *testing.T) {
	users := newMemUserRepo()
	users.users["root"] = &model.User{ID: "root", Role: model.RoleSuperAdmin}
	users.users["bob"] = &model.User{ID: "bob", Role: model.RoleQuizUser}
	svc := NewUserService(users)
	ctx := context.Background()

	u, err := svc.UpdateRole(ctx, "root", "bob", UpdateRoleRequest{Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("role = %q", u.Role)
	}

	if _, err := svc.UpdateRole(ctx, "root", "root", UpdateRoleRequest{Role: model.RoleQuizUser}); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("self demotion err = %v", err)
	}
	if _, err := svc.UpdateRole(ctx, "root", "bob", UpdateRoleRequest{Role: "owner"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("bad role err = %v", err)
	}
	if _, err := svc.UpdateRole(ctx, "root", "ghost", UpdateRoleRequest{Role: model.RoleAdmin}); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}
