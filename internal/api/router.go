package api

import (
	"net/http"
	"time"

	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/handler"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/api/middleware"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/leaderboard"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/service"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/app/session"
	"github.com/AryanShukla12173/quiz-app-sub000/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	testService *service.TestService,
	submissionService *service.SubmissionService,
	sessions *session.Manager,
	boards *leaderboard.Service,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	// Final submission re-runs every attempted challenge against a rate
	// limited runner, which can take a while.
	r.Use(chiMiddleware.Timeout(120 * time.Second))

	// Verifies "Authorization: Bearer T" when present; Authenticator enforces it.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", userHandler.RegisterRoutes)

		testHandler := handler.NewTestHandler(testService)
		sessionHandler := handler.NewSessionHandler(sessions)
		submissionHandler := handler.NewSubmissionHandler(submissionService)
		leaderboardHandler := handler.NewLeaderboardHandler(boards)

		v1.Route("/tests", func(tests chi.Router) {
			tests.Use(middleware.Authenticator)
			testHandler.RegisterRoutes(tests)

			tests.Route("/{testID}", func(one chi.Router) {
				testHandler.RegisterItemRoutes(one)
				sessionHandler.RegisterRoutes(one)
				submissionHandler.RegisterRoutes(one)
				leaderboardHandler.RegisterRoutes(one)
			})
		})
	})

	return r
}
