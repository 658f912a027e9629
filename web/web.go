// Package web provides the HTTP API for the usage accounting engine.
package web

import (
	"net/http"
	"time"

	"github.com/artpar/voxmeter/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handler provides the HTTP API endpoints.
type Handler struct {
	meter    *app.MeterService
	accounts *app.AccountService
	assist   *app.AssistService
	logger   zerolog.Logger
	started  time.Time
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Meter    *app.MeterService
	Accounts *app.AccountService
	Assist   *app.AssistService
	Logger   zerolog.Logger
}

// New creates a new web handler.
func New(deps Deps) *Handler {
	return &Handler{
		meter:    deps.Meter,
		accounts: deps.Accounts,
		assist:   deps.Assist,
		logger:   deps.Logger,
		started:  time.Now(),
	}
}

// Routes builds the router. metricsPath is empty when metrics are
// disabled.
func (h *Handler) Routes(metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", h.handleHealth)
	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", h.handleRegister)
		r.Post("/users/{userID}/subscription", h.handleSubscribe)
		r.Get("/users/{userID}/eligibility", h.handleEligibility)
		r.Get("/users/{userID}/usage", h.handleUsageSummary)
		r.Post("/usage", h.handleRecordUsage)
		r.Post("/speak", h.handleSpeak)
		r.Post("/transcribe", h.handleTranscribe)
	})

	return r
}

// logRequests logs completed requests with status and duration.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
