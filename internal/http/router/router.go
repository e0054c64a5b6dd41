package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-master-dispatch/internal/http/handlers"
	obs "service-master-dispatch/internal/http/middleware"
	"service-master-dispatch/internal/http/middleware/ratelimit"
	"service-master-dispatch/internal/logx"
)

// Deps lists everything the router mounts.
type Deps struct {
	Logger      logx.Logger
	Base        *handlers.Handlers
	Dispatch    *handlers.DispatchHandler
	Assignments *handlers.AssignmentHandler
	Routes      *handlers.RouteHandler
	Masters     *handlers.MasterHandler
	// RateLimit guards the mutating endpoints; nil disables it.
	RateLimit *ratelimit.Middleware
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = logx.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.Observability(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler())
		}

		r.Post("/jobs", d.Dispatch.Submit)
		r.Post("/jobs/{id}/dispatch", d.Dispatch.Dispatch)
		r.Post("/jobs/{id}/cancel", d.Dispatch.Cancel)
		r.Post("/jobs/{id}/start", d.Dispatch.Start)
		r.Post("/jobs/{id}/complete", d.Dispatch.Complete)
		r.Post("/assignments/{id}/accept", d.Assignments.Accept)
		r.Post("/assignments/{id}/reject", d.Assignments.Reject)
		r.Post("/routes/optimize", d.Routes.Optimize)
		r.Patch("/masters/{id}/shift", d.Masters.SetShift)
	})

	r.Get("/jobs/{id}/assignments", d.Dispatch.History)
	r.Get("/masters/{id}", d.Masters.GetByID)
	r.Get("/masters/{id}/route", d.Routes.ForMaster)

	return r
}
