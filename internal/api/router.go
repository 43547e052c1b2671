package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nikhilbhutani/voiceassistant/internal/api/handlers"
	"github.com/nikhilbhutani/voiceassistant/internal/api/middleware"
	"github.com/nikhilbhutani/voiceassistant/internal/assistant"
	"github.com/nikhilbhutani/voiceassistant/internal/auth"
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/feedback"
	"github.com/nikhilbhutani/voiceassistant/internal/llm"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

// Deps are the services behind the HTTP surface. DB, Cache, LLM, Trainer
// and Runs may be nil when the backing infrastructure is not configured; leave
// them unset rather than storing typed nil pointers.
type Deps struct {
	Config    *config.Config
	DB        handlers.Pinger
	Cache     handlers.Pinger
	Registry  *intent.Registry
	Assistant *assistant.Service
	Feedback  *feedback.Service
	LLM       llm.Gateway
	Trainer   handlers.TrainEnqueuer
	Runs      handlers.RunLister
	Issuer    *auth.Issuer
}

type Router struct {
	mux   *chi.Mux
	deps  Deps
	admin *auth.AdminKeyMiddleware
}

func NewRouter(deps Deps) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		deps:  deps,
		admin: auth.NewAdminKeyMiddleware(deps.Config.Auth.AdminHeader, deps.Config.Auth.AdminAPIKey),
	}
}

// Setup wires the routes. ctx bounds background work owned by the
// middleware.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux
	cfg := rt.deps.Config

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins, cfg.Auth.AdminHeader))

	if cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		r.Use(rl.Limit)
	}

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.DB, rt.deps.Cache, rt.deps.Registry)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	adminH := handlers.NewAdminHandler(rt.deps.Registry)
	r.With(rt.admin.Authenticate).Post("/admin/reload-model", adminH.ReloadModel)

	r.Route("/api/v1", func(r chi.Router) {
		authH := handlers.NewAuthHandler(rt.deps.Issuer)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authH.Login)
			r.Get("/validate", authH.Validate)
		})

		assistantH := handlers.NewAssistantHandler(rt.deps.Assistant)
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/process", assistantH.Process)
			r.Post("/upload", assistantH.Upload)
		})

		intentH := handlers.NewIntentHandler(rt.deps.Registry, rt.deps.Trainer, rt.deps.Runs)
		r.Route("/intent", func(r chi.Router) {
			r.Post("/predict", intentH.Predict)
			r.Post("/predict/batch", intentH.PredictBatch)
			r.Get("/info", intentH.Info)

			r.Group(func(r chi.Router) {
				r.Use(rt.deps.Issuer.Authenticate)
				r.Post("/train", intentH.Train)
				r.Get("/runs", intentH.Runs)
			})
		})

		feedbackH := handlers.NewFeedbackHandler(rt.deps.Feedback)
		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", feedbackH.Submit)

			r.Group(func(r chi.Router) {
				r.Use(rt.deps.Issuer.Authenticate)
				r.Get("/", feedbackH.List)
				r.Get("/summary", feedbackH.Summary)
				r.Get("/export", feedbackH.Export)
			})
		})

		if rt.deps.LLM != nil {
			llmH := handlers.NewLLMHandler(rt.deps.LLM, cfg.LLM)
			r.Route("/llm", func(r chi.Router) {
				r.Use(rt.deps.Issuer.Authenticate)
				r.Post("/chat", llmH.Chat)
				r.Get("/models", llmH.Models)
			})
		}
	})

	return r
}
