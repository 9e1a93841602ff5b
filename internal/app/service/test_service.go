package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type TestService struct {
	testRepo repository.TestRepository
}

func NewTestService(testRepo repository.TestRepository) *TestService {
	return &TestService{testRepo: testRepo}
}

type TestCaseRequest struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
	Description    string `json:"description"`
	IsHidden       bool   `json:"is_hidden"`
}

type ChallengeRequest struct {
	ID          string            `json:"id,omitempty" validate:"omitempty,max=64"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Score       int               `json:"score" validate:"gte=0"`
	TestCases   []TestCaseRequest `json:"test_cases" validate:"required,min=1,dive"`
}

type CreateTestRequest struct {
	Title           string             `json:"title" validate:"required,max=200"`
	Description     string             `json:"description"`
	DurationMinutes int                `json:"duration_minutes" validate:"required,gte=1,lte=1440"`
	Challenges      []ChallengeRequest `json:"challenges" validate:"required,min=1,dive"`
}

// CreateTest publishes a test. Challenge ids are fixed here, so candidate
// state never depends on challenge order.
func (s *TestService) CreateTest(ctx context.Context, userID string, req CreateTestRequest) (*model.TestDefinition, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	test := &model.TestDefinition{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Challenges:      make([]model.Challenge, 0, len(req.Challenges)),
	}
	if userID != "" {
		test.CreatedByID = &userID
	}

	seen := make(map[string]bool, len(req.Challenges))
	for _, ch := range req.Challenges {
		id := ch.ID
		if id == "" {
			id = "ch_" + uuid.NewString()
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate challenge id %q: %w", id, common.ErrValidation)
		}
		seen[id] = true

		challenge := model.Challenge{
			ID:          id,
			Title:       ch.Title,
			Description: ch.Description,
			Score:       ch.Score,
			TestCases:   make([]model.TestCase, len(ch.TestCases)),
		}
		for i, tc := range ch.TestCases {
			challenge.TestCases[i] = model.TestCase{
				ID:             uuid.NewString(),
				Input:          tc.Input,
				ExpectedOutput: tc.ExpectedOutput,
				Description:    tc.Description,
				IsHidden:       tc.IsHidden,
			}
		}
		test.Challenges = append(test.Challenges, challenge)
	}

	test.Slug = slug.Make(req.Title)
	if _, err := s.testRepo.FindTestBySlug(ctx, test.Slug); err == nil {
		test.Slug = test.Slug + "-" + test.ID[:8]
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Errorf("failed to check slug: %w", err)
	}

	if err := s.testRepo.CreateTest(ctx, nil, test); err != nil {
		return nil, common.Errorf("failed to create test: %w", err)
	}
	logger.Info(ctx, "test published",
		zap.String("test_id", test.ID),
		zap.String("slug", test.Slug),
		zap.Int("challenges", len(test.Challenges)))
	return test, nil
}

// GetTest accepts an id or a slug. Candidates get hidden cases masked.
func (s *TestService) GetTest(ctx context.Context, idOrSlug, role string) (*model.TestDefinition, error) {
	test, err := s.testRepo.FindTestByID(ctx, idOrSlug)
	if errors.Is(err, common.ErrNotFound) {
		test, err = s.testRepo.FindTestBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}
	if role == model.RoleAdmin || role == model.RoleSuperAdmin {
		return test, nil
	}
	view := test.CandidateView()
	return &view, nil
}

func (s *TestService) ListTests(ctx context.Context, page, pageSize int) ([]model.TestSummary, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	tests, total, err := s.testRepo.ListTests(ctx, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]model.TestSummary, len(tests))
	for i := range tests {
		summaries[i] = tests[i].Summary()
	}
	return summaries, total, nil
}
