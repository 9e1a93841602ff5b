package service

import (
	"context"
	"fmt"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/repository"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/platform/logger"

	"go.uber.org/zap"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=super_admin admin quiz_user"`
}

// UpdateRole changes another user's role. A super admin cannot change their
// own role, so the system always keeps at least the one it has.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID string, req UpdateRoleRequest) (*model.User, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if actorID == targetID {
		return nil, fmt.Errorf("cannot change your own role: %w", common.ErrForbidden)
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, req.Role); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "user role changed", zap.String("target_id", targetID), zap.String("role", req.Role))
	user.HashedPassword = ""
	return user, nil
}
