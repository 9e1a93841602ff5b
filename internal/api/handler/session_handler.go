package handler

import (
	"net/http"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/evaluator"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/session"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes mounts routes under /tests/{testID}.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.open)
		r.Get("/", h.view)
		r.Post("/submit", h.submit)
		r.Route("/challenges/{challengeID}", func(r chi.Router) {
			r.Put("/code", h.updateCode)
			r.Post("/select", h.selectChallenge)
			r.Post("/run", h.runSample)
			r.Post("/tests", h.runAllTests)
		})
	})
}

func callerAndTest(r *http.Request) (string, string) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	return userID, chi.URLParam(r, "testID")
}

func (h *SessionHandler) open(w http.ResponseWriter, r *http.Request) {
	userID, testID := callerAndTest(r)
	view, err := h.sessions.Open(r.Context(), userID, testID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) view(w http.ResponseWriter, r *http.Request) {
	userID, testID := callerAndTest(r)
	view, err := h.sessions.View(r.Context(), userID, testID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

// machine resolves the live session or writes the error response.
func (h *SessionHandler) machine(w http.ResponseWriter, r *http.Request) (*session.Machine, bool) {
	userID, testID := callerAndTest(r)
	mc, err := h.sessions.Session(r.Context(), userID, testID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return nil, false
	}
	return mc, true
}

func (h *SessionHandler) updateCode(w http.ResponseWriter, r *http.Request) {
	var buf model.CodeBuffer
	if err := common.DecodeJSON(r, &buf); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	mc, ok := h.machine(w, r)
	if !ok {
		return
	}
	if err := mc.UpdateCode(r.Context(), chi.URLParam(r, "challengeID"), buf); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) selectChallenge(w http.ResponseWriter, r *http.Request) {
	mc, ok := h.machine(w, r)
	if !ok {
		return
	}
	if err := mc.SelectChallenge(chi.URLParam(r, "challengeID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type runSampleRequest struct {
	Stdin string `json:"stdin"`
}

func (h *SessionHandler) runSample(w http.ResponseWriter, r *http.Request) {
	var req runSampleRequest
	if r.ContentLength != 0 {
		if err := common.DecodeJSON(r, &req); err != nil {
			common.RespondWithDomainError(w, err)
			return
		}
	}
	mc, ok := h.machine(w, r)
	if !ok {
		return
	}
	res, err := mc.RunSample(r.Context(), chi.URLParam(r, "challengeID"), req.Stdin)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

type runAllTestsResponse struct {
	ChallengeID string          `json:"challenge_id"`
	FullyPassed bool            `json:"fully_passed"`
	Verdicts    []model.Verdict `json:"verdicts"`
}

func (h *SessionHandler) runAllTests(w http.ResponseWriter, r *http.Request) {
	mc, ok := h.machine(w, r)
	if !ok {
		return
	}
	challengeID := chi.URLParam(r, "challengeID")
	verdicts, err := mc.RunAllTests(r.Context(), challengeID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, runAllTestsResponse{
		ChallengeID: challengeID,
		FullyPassed: evaluator.FullyPassed(verdicts),
		Verdicts:    verdicts,
	})
}

func (h *SessionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, testID := callerAndTest(r)
	res, err := h.sessions.Submit(r.Context(), userID, testID, model.TriggerManual)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	view := res.Record.CandidateView()
	res.Record = &view
	status := http.StatusCreated
	if res.AlreadySubmitted {
		status = http.StatusOK
	}
	common.RespondWithJSON(w, status, res)
}
