package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/config"
	"github.com/imlucaa/dashboard-api/internal/platform"
	"github.com/imlucaa/dashboard-api/internal/platform/discord"
	"github.com/imlucaa/dashboard-api/internal/platform/kovaaks"
	"github.com/imlucaa/dashboard-api/internal/platform/lastfm"
	"github.com/imlucaa/dashboard-api/internal/platform/osu"
	"github.com/imlucaa/dashboard-api/internal/platform/steam"
	"github.com/imlucaa/dashboard-api/internal/platform/twitter"
	"github.com/imlucaa/dashboard-api/internal/platform/valorant"
	"github.com/imlucaa/dashboard-api/internal/platform/weather"
	"github.com/imlucaa/dashboard-api/internal/proxy"
	"github.com/imlucaa/dashboard-api/internal/server"
	"github.com/imlucaa/dashboard-api/pkg/cache"
	"github.com/imlucaa/dashboard-api/pkg/coalesce"
	"github.com/imlucaa/dashboard-api/pkg/logging"
	"github.com/imlucaa/dashboard-api/pkg/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Best-effort: a missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		mainLogger := logging.NewLogger("main")
		mainLogger.Fatal().Err(err).Msg("Configuration is invalid")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	store := buildStore(cfg, logger)
	upstreamTimeout := time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second
	doer := platform.NewDoer(upstreamTimeout, logging.NewLogger("upstream"))

	pipeline := proxy.New(
		store,
		coalesce.NewGroup(),
		ratelimit.NewLimiter(),
		logging.NewLogger("proxy"),
		cfg.RateLimit,
		time.Duration(cfg.RateWindowSeconds)*time.Second,
	)

	clients := server.Clients{
		Discord:  discord.NewClient(doer),
		Steam:    steam.NewClient(doer, cfg.SteamAPIKey),
		Osu:      osu.NewClient(doer, cfg.OsuClientID, cfg.OsuClientSecret),
		Valorant: valorant.NewClient(doer, cfg.HenrikdevAPIKey),
		Kovaaks:  kovaaks.NewClient(doer),
		Lastfm:   lastfm.NewClient(doer, cfg.LastfmAPIKey),
		Twitter:  twitter.NewClient(doer, cfg.TwitterBearerToken),
		Weather:  weather.NewClient(doer),
	}

	srv := server.New(cfg, logging.NewLogger("server"), pipeline, store, clients)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("Starting dashboard API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// buildStore selects the remote cache tier from configuration: Redis when a
// Redis URL is set, the REST key-value service when its URL and token are
// set, otherwise memory-only. A failing remote never blocks startup; the
// store degrades silently at request time.
func buildStore(cfg *config.Config, logger zerolog.Logger) *cache.Store {
	opts := []cache.Option{cache.WithLogger(logging.NewLogger("cache"))}

	switch {
	case cfg.RedisURL != "":
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Invalid Redis URL, caching in memory only")
			break
		}
		client := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable at startup, requests will retry")
		}
		cancel()
		opts = append(opts, cache.WithRemote(cache.NewRedisRemote(client)))
		logger.Info().Msg("Remote cache tier: redis")
	case cfg.KVRestURL != "" && cfg.KVRestToken != "":
		opts = append(opts, cache.WithRemote(cache.NewRESTRemote(cfg.KVRestURL, cfg.KVRestToken)))
		logger.Info().Msg("Remote cache tier: rest")
	default:
		logger.Info().Msg("Remote cache tier: disabled")
	}

	return cache.NewStore(opts...)
}
