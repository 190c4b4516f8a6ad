package httpapi

import (
	"net/http"
	"time"

	config "github.com/avvvet/marketday/configs"
	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/authtoken"
	"github.com/avvvet/marketday/internal/models"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/jwtauth"
)

// Routes assembles the chi.Mux exactly the way the teacher's
// handlers.SetRoutes does: a /v1 (here /api) group, a public subtree,
// and a jwtauth.Verifier/Authenticator-guarded subtree, plus the
// unauthenticated /ws upgrade endpoint that decodes its own token at
// handshake time (spec §6).
func (a *App) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(config.CORS().Handler)
	r.Use(httprate.LimitByIP(100, time.Minute))

	r.Get("/health", a.handleHealth)
	r.Get("/ws", a.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", a.handleRegister)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(a.auth.Auth()))
			r.Use(jwtauth.Authenticator)

			r.Get("/auth/me", a.handleMe)
			r.Patch("/auth/avatar", a.handleUpdateAvatar)
			r.Patch("/auth/account", a.handleUpdateAccount)

			r.Route("/admin", func(r chi.Router) {
				r.Use(a.requireAdmin)

				r.Post("/game/start", a.handleGameStart)
				r.Post("/game/stop", a.handleGameStop)
				r.Post("/game/resume", a.handleGameResume)
				r.Post("/game/restart", a.handleGameRestart)
				r.Post("/game/reset", a.handleGameReset)

				r.Get("/params", a.handleGetParams)
				r.Put("/params", a.handlePutParams)

				r.Get("/users", a.handleListUsers)
				r.Put("/users/{id}", a.handleUpdateUser)
				r.Delete("/users/{id}", a.handleDeleteUser)
				r.Post("/users/{id}/kick", a.handleKickUser)

				r.Get("/monitor/history", a.handleMonitorHistory)

				r.Get("/events", a.handleListEvents)
				r.Put("/events/{id}", a.handleUpsertEvent)
				r.Delete("/events/{id}", a.handleDeleteEvent)

				r.Post("/script/generate", a.handleGenerateScript)
				r.Get("/script", a.handleListScriptDays)

				r.Get("/questions/quiz", a.handleListQuizQuestions)
				r.Put("/questions/quiz/{id}", a.handleUpsertQuizQuestion)
				r.Delete("/questions/quiz/{id}", a.handleDeleteQuizQuestion)

				r.Get("/questions/minority", a.handleListMinorityQuestions)
				r.Put("/questions/minority/{id}", a.handleUpsertMinorityQuestion)
				r.Delete("/questions/minority/{id}", a.handleDeleteMinorityQuestion)

				r.Get("/red-envelope", a.handleListRedEnvelopeItems)
				r.Put("/red-envelope/{id}", a.handleUpsertRedEnvelopeItem)
				r.Delete("/red-envelope/{id}", a.handleDeleteRedEnvelopeItem)

				r.Post("/news/clear", a.handleClearNews)
			})
		})
	})

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "marketday engine is running", nil)
}

// requireAdmin enforces the ADMIN role on top of jwtauth's already-
// verified token, mirroring spec §6 "(admin role required, ignored
// otherwise)".
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := authtoken.FromContext(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if claims.Role != models.RoleAdmin {
			writeError(w, apperr.New(apperr.KindPermission, "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
