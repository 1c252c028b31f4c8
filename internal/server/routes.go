package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/soobo/sleeptype/internal/config"
)

func addRoutes(r chi.Router, cfg *config.Config, logger *slog.Logger, deps Deps) {
	errs := errorWriter{msgs: deps.Messages, logger: logger}
	rl := cfg.RateLimit

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Sleep Type API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, deps.Checks))

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(deps.Limiter, "general", rl.Window, rl.Max, errs))

		r.Get("/types", handleListTypes(deps.Sessions.Table()))

		r.Route("/sessions", func(r chi.Router) {
			r.With(rateLimit(deps.Limiter, "session", rl.SessionWindow, rl.SessionMax, errs)).
				Post("/", handleStartSession(deps.Sessions, errs))
			r.Get("/{sessionId}", handleGetSession(deps.Sessions, errs))
			r.Put("/{sessionId}/answers", handleSubmitAnswers(deps.Sessions, cfg.MaxBodyBytes, errs))
			r.Post("/{sessionId}/complete", handleCompleteSession(deps.Sessions, deps.Broker, cfg.MaxBodyBytes, errs))
		})

		r.Route("/data", func(r chi.Router) {
			r.Use(rateLimit(deps.Limiter, "data", rl.DataWindow, rl.DataMax, errs))
			r.Use(adminAuthMiddleware(cfg.AdminPasswordHash, errs))

			r.Get("/stats", handleStats(deps.Data, errs))
			r.Get("/sessions", handleListSessions(deps.Data, errs))
			r.Get("/answers/analysis", handleAnswerAnalysis(deps.Data, errs))
			r.Get("/events", handleEvents(deps.Broker, errs))
		})
	})

	if cfg.SPADir != "" {
		if info, err := os.Stat(cfg.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", cfg.SPADir)
			r.NotFound(handleSPA(cfg.SPADir))
		}
	}
}
