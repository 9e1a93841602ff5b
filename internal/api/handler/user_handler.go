package handler

import (
	"net/http"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/service"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(us *service.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.With(middleware.RequireRole(model.RoleSuperAdmin)).Patch("/{userID}/role", h.updateRole)
}

func (h *UserHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.UpdateRoleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	user, err := h.userService.UpdateRole(r.Context(), actorID, chi.URLParam(r, "userID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
