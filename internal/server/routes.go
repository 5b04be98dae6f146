package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/pcrwatch/pcrwatch/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(pcr *handlers.PCRHandlers, health *handlers.HealthManager) {
	if health != nil {
		s.router.Get("/health", health.HealthHandler)
	}

	s.router.Get("/version", handlers.VersionHandler)

	if pcr != nil {
		s.router.Route("/api", func(r chi.Router) {
			r.Get("/pcr/{symbol}", pcr.LatestHandler)
			r.Get("/pcr/{symbol}/history", pcr.HistoryHandler)
			r.Post("/refresh/{symbol}", pcr.RefreshHandler)
		})
	}
}
