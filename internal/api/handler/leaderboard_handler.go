package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/leaderboard"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	boards    *leaderboard.Service
	exporters map[string]leaderboard.Exporter
}

func NewLeaderboardHandler(boards *leaderboard.Service) *LeaderboardHandler {
	return &LeaderboardHandler{
		boards: boards,
		exporters: map[string]leaderboard.Exporter{
			"csv":  leaderboard.NewCSVExporter(boards),
			"xlsx": leaderboard.NewXLSXExporter(boards),
		},
	}
}

// RegisterRoutes mounts routes under /tests/{testID}.
func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard", h.getLeaderboard)
	r.With(middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)).Get("/leaderboard/export", h.export)
}

func (h *LeaderboardHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			common.RespondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.boards.Leaderboard(r.Context(), chi.URLParam(r, "testID"), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *LeaderboardHandler) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	exp, ok := h.exporters[format]
	if !ok {
		common.RespondWithError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	// Buffered so that an export error can still become a JSON error response.
	testID := chi.URLParam(r, "testID")
	var buf bytes.Buffer
	if err := exp.Export(r.Context(), testID, &buf); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leaderboard-%s.%s"`, testID, exp.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
