// Package server wires the platform routes, health, and metrics endpoints
// onto a chi router.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/config"
	"github.com/imlucaa/dashboard-api/internal/platform/discord"
	"github.com/imlucaa/dashboard-api/internal/platform/kovaaks"
	"github.com/imlucaa/dashboard-api/internal/platform/lastfm"
	"github.com/imlucaa/dashboard-api/internal/platform/osu"
	"github.com/imlucaa/dashboard-api/internal/platform/steam"
	"github.com/imlucaa/dashboard-api/internal/platform/twitter"
	"github.com/imlucaa/dashboard-api/internal/platform/valorant"
	"github.com/imlucaa/dashboard-api/internal/platform/weather"
	"github.com/imlucaa/dashboard-api/internal/proxy"
	"github.com/imlucaa/dashboard-api/pkg/cache"
	"github.com/imlucaa/dashboard-api/pkg/metrics"
)

// Clients bundles the upstream adapters the routes dispatch to.
type Clients struct {
	Discord  *discord.Client
	Steam    *steam.Client
	Osu      *osu.Client
	Valorant *valorant.Client
	Kovaaks  *kovaaks.Client
	Lastfm   *lastfm.Client
	Twitter  *twitter.Client
	Weather  *weather.Client
}

// Server owns the HTTP surface. Everything it depends on is injected.
type Server struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pipeline *proxy.Pipeline
	store    *cache.Store
	clients  Clients
}

// New creates a Server.
func New(cfg *config.Config, logger zerolog.Logger, pipeline *proxy.Pipeline, store *cache.Store, clients Clients) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
		store:    store,
		clients:  clients,
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(s.requestLogger)
	router.Use(s.recoverer)

	router.Route("/api", func(api chi.Router) {
		api.Get("/discord", s.handleDiscord)
		api.Get("/steam", s.handleSteam)
		api.Get("/osu", s.handleOsu)
		api.Get("/valorant", s.handleValorant)
		api.Get("/kovaaks", s.handleKovaaks)
		api.Get("/lastfm", s.handleLastfm)
		api.Get("/twitter", s.handleTwitter)
		api.Get("/weather", s.handleWeather)
	})

	router.Get("/healthz", s.handleHealthz)
	router.Method("GET", "/metrics", promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{}))

	return router
}
