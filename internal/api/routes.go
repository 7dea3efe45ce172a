package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/lead-finder/internal/auth"
)

// SetupRoutes configures all routes. Everything under /api requires a
// caller identity; the health endpoints do not.
func SetupRoutes(h *Handlers, hc *HealthChecker, authn *auth.Authenticator, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Identity", "lead-finder-v1.0")
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks (no auth required)
	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(authn.Middleware)

		// Single search
		r.Post("/find-email", h.FindEmail)
		r.Get("/list-single-results", h.ListSingleResults)
		r.Get("/single-result/{id}", h.GetSingleResult)

		// Bulk search
		r.Post("/bulk-find-email", h.BulkFindEmail)
		r.Get("/list-bulk-results", h.ListBulkResults)
		r.Post("/bulk-result", h.SaveBulkResult)
		r.Route("/bulk-result/{id}", func(r chi.Router) {
			r.Get("/", h.GetBulkResult)
			r.Post("/retry/{index}", h.RetryRecord)
			r.Post("/retry-all", h.RetryAll)
		})

		// Verification
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/verify-emails", h.VerifyEmails)
	})

	return r
}
