// Package router sets up all HTTP routes and middleware chains for the
// SiteForge API. Routes are grouped by auth requirements: the health
// check and view beacon are public, everything else needs a session.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"siteforge/internal/handlers"
	"siteforge/internal/middleware"
	"siteforge/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. The rate limiter guards the AI and
// deployment routes, which fan out to slow, billable upstream calls.
func New(sessionStore *session.Store, api *handlers.API) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check — no auth.
	r.Get("/health", healthHandler)

	// View beacon — called from deployed sites, so no auth either.
	r.Post("/api/sites/{id}/view", api.SiteView)

	// Authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		// Sites
		r.Route("/api/sites", func(r chi.Router) {
			r.Get("/", api.SitesList)
			r.Get("/{id}", api.SiteGet)
			r.Put("/{id}", api.SiteUpdate)
			r.Get("/{id}/versions", api.SiteVersions)
			r.Post("/{id}/versions/{n}/restore", api.SiteRestore)
			r.Post("/{id}/archive", api.SiteArchive)
		})

		// AI generation — rate limited per IP.
		r.Route("/api/ai", func(r chi.Router) {
			limiter := middleware.NewRateLimiter(10, 1*time.Minute)
			r.Use(limiter.Middleware)
			r.Post("/generate", api.Generate)
			r.Post("/content", api.GenerateContent)
			r.Get("/status", api.AIStatus)
		})

		// Deployments — rate limited per IP.
		r.Route("/api/vercel", func(r chi.Router) {
			limiter := middleware.NewRateLimiter(20, 1*time.Minute)
			r.Use(limiter.Middleware)
			r.Post("/deploy/{siteID}", api.Deploy)
			r.Post("/redeploy/{siteID}", api.Redeploy)
			r.Post("/cancel/{siteID}", api.CancelDeployment)
			r.Post("/domain/{siteID}", api.AttachDomain)
			r.Get("/deployment/{deploymentID}/status", api.DeploymentStatus)
			r.Delete("/deployment/{deploymentID}", api.DeploymentDelete)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
