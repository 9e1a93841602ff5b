package service

import (
	"context"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
)

// SubmissionService is the read side of submission records. Writes happen
// only through the session finalizer.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	testRepo       repository.TestRepository
}

func NewSubmissionService(subRepo repository.SubmissionRepository, testRepo repository.TestRepository) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		testRepo:       testRepo,
	}
}

// GetMine returns the caller's record with hidden case contents removed.
func (s *SubmissionService) GetMine(ctx context.Context, userID, testID string) (*model.SubmissionRecord, error) {
	rec, err := s.submissionRepo.FindSubmissionByUserAndTest(ctx, userID, testID)
	if err != nil {
		return nil, err
	}
	view := rec.CandidateView()
	return &view, nil
}

func (s *SubmissionService) ListByTest(ctx context.Context, testID string) ([]model.SubmissionRecord, error) {
	if _, err := s.testRepo.FindTestByID(ctx, testID); err != nil {
		return nil, err
	}
	return s.submissionRepo.ListSubmissionsByTest(ctx, testID)
}
