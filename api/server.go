/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. SlogLogger: One structured log line per request
  4. Metrics:    Request counters by route pattern (when enabled)
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/health              Liveness
  /api/crew/{id}/*         Rosters, settings and calculation of one crew member
  /api/calculate           Stateless calculation
  /api/rates/*             Rate table lookups
  /api/airports/*          Airport table lookups
  /api/scenarios/*         Demo rosters
  /metrics                 Prometheus (when enabled)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logging and metrics middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty disables the CORS handler.
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewSlogLogger(h.Logger))
	if h.Metrics != nil {
		r.Use(NewMetricsRecorder(h.Metrics))
	}
	r.Use(chimiddleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
		}))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Crew member routes
		r.Route("/crew/{id}", func(r chi.Router) {
			r.Get("/rosters", h.ListRosters)
			r.Post("/rosters", h.CreateRoster)
			r.Get("/rosters/{rosterID}", h.GetRoster)
			r.Delete("/rosters/{rosterID}", h.DeleteRoster)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.PutSettings)

			r.Get("/calculation", h.GetCalculation)
		})

		r.Post("/calculate", h.Calculate)

		// Reference data
		r.Get("/rates/{year}/{country}", h.GetRate)
		r.Get("/airports/{code}", h.GetAirport)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	return r
}
