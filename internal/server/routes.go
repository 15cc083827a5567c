package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/adsmirror/adsmirror/internal/observability"
	"github.com/adsmirror/adsmirror/internal/server/handlers"
	servermw "github.com/adsmirror/adsmirror/internal/server/middleware"
)

func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler(s.opts.GraphVersion))
	s.router.Get("/metrics", MetricsHandler)

	if s.opts.Pprof {
		s.router.Mount("/debug", middleware.Profiler())
	}

	s.registerAPI()
	s.registerAdminEndpoint()
}

func (s *Server) registerAPI() {
	if s.opts.Auth != nil {
		authHandlers := &handlers.AuthHandlers{Auth: s.opts.Auth}
		s.router.Post("/api/register", authHandlers.Register)
		s.router.Post("/api/login", authHandlers.Login)
	}

	if s.opts.Mirror == nil || s.opts.Tokens == nil {
		return
	}

	campaigns := handlers.Campaigns(s.opts.Mirror)
	adGroups := handlers.AdGroups(s.opts.Mirror)
	ads := handlers.Ads(s.opts.Mirror)
	creatives := handlers.Creatives(s.opts.Mirror)

	s.router.Group(func(r chi.Router) {
		r.Use(servermw.RequireAuth(s.opts.Tokens))

		r.Route("/api/campaigns", campaigns.Mount)
		r.Route("/api/ad-groups", adGroups.Mount)
		r.Get("/api/ad-sets", adGroups.HandleList)
		r.Route("/api/ads", ads.Mount)
		r.Route("/api/ad-creatives", creatives.Mount)

		// Paths used by the bundled frontend.
		r.Post("/api/create-ad", ads.HandleCreate)
		r.Get("/api/ad/{id}", ads.HandleGet)
		r.Put("/api/edit-ad/{id}", ads.HandleUpdate)
		r.Delete("/api/delete-ad/{id}", ads.HandleDelete)
	})
}

// registerAdminEndpoint exposes gofulmen's signal handler when an admin
// token is configured.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no server.admin_token set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
