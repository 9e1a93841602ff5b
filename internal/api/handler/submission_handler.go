package handler

import (
	"net/http"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/service"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterRoutes mounts routes under /tests/{testID}.
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/submission", h.getMine)
	r.With(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)).Get("/submissions", h.listByTest)
}

func (h *SubmissionHandler) getMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	rec, err := h.submissionService.GetMine(r.Context(), userID, chi.URLParam(r, "testID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rec)
}

func (h *SubmissionHandler) listByTest(w http.ResponseWriter, r *http.Request) {
	recs, err := h.submissionService.ListByTest(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []model.SubmissionRecord{}
	}
	common.RespondWithJSON(w, http.StatusOK, recs)
}
