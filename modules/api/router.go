package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/publora/publora/pkg/clientip"
	"github.com/publora/publora/pkg/idempotency"
	"github.com/publora/publora/pkg/ratelimit"
	"github.com/publora/publora/pkg/requestid"
)

// RouterOptions wires the services and guards into the HTTP surface.
// Schedules and Auth are required; guards are optional and their routes
// run unguarded when absent.
type RouterOptions struct {
	Schedules *ScheduleService
	Auth      *AuthService

	// IdempotencyStore backs the dedup guard on mutating schedule calls.
	IdempotencyStore   idempotency.Store
	IdempotencyOptions []idempotency.MiddlewareOption

	// LoginGuard throttles login per client IP. The per-identifier
	// budget lives inside AuthService.
	LoginGuard *ratelimit.Guard

	// DeadLetters serves the triage listing; the route is absent when nil.
	DeadLetters *DLQService

	// Healthchecks run on GET /healthz; any failure reports 503.
	Healthchecks []func(context.Context) error
}

// Router assembles the API routes.
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)

	r.Route("/schedules", func(schedules chi.Router) {
		if opts.IdempotencyStore != nil {
			schedules.Use(idempotency.Middleware(opts.IdempotencyStore, opts.IdempotencyOptions...))
		}
		schedules.Post("/", opts.Schedules.handleCreate)
		schedules.Post("/{id}/cancel", opts.Schedules.handleCancel)
		// Read-only, bypasses the idempotency guard by method.
		schedules.Get("/{id}", opts.Schedules.handleGet)
	})

	r.Route("/auth", func(auth chi.Router) {
		if opts.LoginGuard != nil {
			auth.Use(ratelimit.Middleware(opts.LoginGuard, ratelimit.ByClientIP()))
		}
		auth.Post("/login", opts.Auth.handleLogin)
	})

	if opts.DeadLetters != nil {
		r.Get("/dlq", opts.DeadLetters.handleList)
	}

	r.Get("/healthz", healthzHandler(opts.Healthchecks))

	return r
}

func healthzHandler(checks []func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
