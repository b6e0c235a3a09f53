// Package router wires every HTTP surface of the service onto one chi router.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/salonkit/bookflow/internal/http/handlers"
	httpmiddleware "github.com/salonkit/bookflow/internal/http/middleware"
	"github.com/salonkit/bookflow/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	FlowHandler        *handlers.FlowHandler
	CatalogHandler     *handlers.CatalogHandler
	RecordsHandler     *handlers.RecordsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/companies/{companyID}", func(r chi.Router) {
			r.Get("/catalog", cfg.CatalogHandler.Catalog)
			r.Get("/professionals", cfg.CatalogHandler.Professionals)
			if cfg.RecordsHandler != nil {
				r.Get("/bookings", cfg.RecordsHandler.List)
			}
		})

		r.Route("/flows", func(r chi.Router) {
			r.Post("/", cfg.FlowHandler.Create)
			r.Route("/{flowID}", func(r chi.Router) {
				r.Get("/", cfg.FlowHandler.Get)
				r.Post("/services", cfg.FlowHandler.AddService)
				r.Delete("/services/{serviceID}", cfg.FlowHandler.RemoveService)
				r.Post("/advance", cfg.FlowHandler.Advance)
				r.Post("/retreat", cfg.FlowHandler.Retreat)
				r.Put("/professional", cfg.FlowHandler.SelectProfessional)
				r.Put("/date", cfg.FlowHandler.SelectDate)
				r.Get("/slots", cfg.FlowHandler.Slots)
				r.Put("/time", cfg.FlowHandler.SelectTime)
				r.Post("/submit", cfg.FlowHandler.Submit)
			})
		})
	})

	return r
}
