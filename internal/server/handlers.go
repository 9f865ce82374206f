package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/imlucaa/dashboard-api/internal/platform/weather"
	"github.com/imlucaa/dashboard-api/internal/proxy"
	"github.com/imlucaa/dashboard-api/pkg/cache"
)

// Freshness windows per platform. Presence and scrobbles move fast; benchmark
// progress barely moves between sessions.
const (
	discordFresh = 30 * time.Second
	discordStale = 5 * time.Minute

	steamFresh = 5 * time.Minute
	steamStale = 30 * time.Minute

	osuFresh = 5 * time.Minute
	osuStale = 30 * time.Minute

	valorantFresh = 10 * time.Minute
	valorantStale = time.Hour

	kovaaksFresh = 30 * time.Minute
	kovaaksStale = 6 * time.Hour

	lastfmFresh = 30 * time.Second
	lastfmStale = 5 * time.Minute

	twitterFresh = 15 * time.Minute
	twitterStale = 2 * time.Hour

	weatherFresh = 10 * time.Minute
	weatherStale = time.Hour
)

// param reads a query parameter, falling back to the configured default.
func param(r *http.Request, name, fallback string) string {
	if value := r.URL.Query().Get(name); value != "" {
		return value
	}
	return fallback
}

func (s *Server) handleDiscord(w http.ResponseWriter, r *http.Request) {
	userID := param(r, "id", s.cfg.DiscordUserID)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "discord",
		Key:      cache.Key("discord", userID),
		Fresh:    discordFresh,
		Stale:    discordStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Discord.Fetch(ctx, userID)
		},
	})
}

func (s *Server) handleSteam(w http.ResponseWriter, r *http.Request) {
	steamID := param(r, "id", s.cfg.SteamID)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "steam",
		Key:      cache.Key("steam", steamID),
		Fresh:    steamFresh,
		Stale:    steamStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Steam.Fetch(ctx, steamID)
		},
	})
}

func (s *Server) handleOsu(w http.ResponseWriter, r *http.Request) {
	username := param(r, "user", s.cfg.OsuUsername)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "osu",
		Key:      cache.Key("osu", username),
		Fresh:    osuFresh,
		Stale:    osuStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Osu.Fetch(ctx, username)
		},
	})
}

func (s *Server) handleValorant(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name", s.cfg.ValorantName)
	tag := param(r, "tag", s.cfg.ValorantTag)
	riotID := name + "#" + tag
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "valorant",
		Key:      cache.Key("valorant", name, tag),
		Fresh:    valorantFresh,
		Stale:    valorantStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Valorant.Fetch(ctx, riotID)
		},
	})
}

func (s *Server) handleKovaaks(w http.ResponseWriter, r *http.Request) {
	username := param(r, "user", s.cfg.KovaaksUsername)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "kovaaks",
		Key:      cache.Key("kovaaks", username),
		Fresh:    kovaaksFresh,
		Stale:    kovaaksStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Kovaaks.Fetch(ctx, username)
		},
	})
}

func (s *Server) handleLastfm(w http.ResponseWriter, r *http.Request) {
	user := param(r, "user", s.cfg.LastfmUser)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "lastfm",
		Key:      cache.Key("lastfm", user),
		Fresh:    lastfmFresh,
		Stale:    lastfmStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Lastfm.Fetch(ctx, user)
		},
	})
}

func (s *Server) handleTwitter(w http.ResponseWriter, r *http.Request) {
	username := param(r, "user", s.cfg.TwitterUsername)
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "twitter",
		Key:      cache.Key("twitter", username),
		Fresh:    twitterFresh,
		Stale:    twitterStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Twitter.Fetch(ctx, username)
		},
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	location := weather.Location{
		City:      param(r, "city", s.cfg.WeatherCity),
		Latitude:  s.cfg.WeatherLat,
		Longitude: s.cfg.WeatherLon,
	}
	if lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64); err == nil {
		location.Latitude = lat
		location.City = ""
	}
	if lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64); err == nil {
		location.Longitude = lon
	}

	key := location.City
	if key == "" {
		key = fmt.Sprintf("%.4f,%.4f", location.Latitude, location.Longitude)
	}
	s.pipeline.Serve(w, r, proxy.Resource{
		Platform: "weather",
		Key:      cache.Key("weather", key),
		Fresh:    weatherFresh,
		Stale:    weatherStale,
		Fetch: func(ctx context.Context) (any, error) {
			return s.clients.Weather.Fetch(ctx, location)
		},
	})
}
