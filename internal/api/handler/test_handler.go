package handler

import (
	"net/http"
	"strconv"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/service"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type TestHandler struct {
	testService *service.TestService
}

func NewTestHandler(ts *service.TestService) *TestHandler {
	return &TestHandler{testService: ts}
}

// RegisterRoutes mounts the collection routes under /tests.
func (h *TestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTests)
	r.With(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)).Post("/", h.createTest)
}

// RegisterItemRoutes mounts routes under /tests/{testID}.
func (h *TestHandler) RegisterItemRoutes(r chi.Router) {
	r.Get("/", h.getTest)
}

type listTestsResponse struct {
	Tests    []model.TestSummary `json:"tests"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

func (h *TestHandler) listTests(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	tests, total, err := h.testService.ListTests(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, listTestsResponse{Tests: tests, Total: total, Page: page, PageSize: pageSize})
}

func (h *TestHandler) getTest(w http.ResponseWriter, r *http.Request) {
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	test, err := h.testService.GetTest(r.Context(), chi.URLParam(r, "testID"), role)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, test)
}

func (h *TestHandler) createTest(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.CreateTestRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	test, err := h.testService.CreateTest(r.Context(), userID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, test)
}
