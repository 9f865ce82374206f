// Package config loads service configuration from the environment with
// koanf, layered over hardcoded demo defaults so the service runs locally
// with no setup.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds the full service configuration. Every credential and identity
// is optional; adapters raise CONFIG_ERROR at request time when a credential
// they need is missing.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogPretty enables human-readable console logs.
	LogPretty bool `koanf:"log_pretty"`

	// UpstreamTimeoutSeconds bounds every upstream platform call.
	UpstreamTimeoutSeconds int `koanf:"upstream_timeout_seconds"`

	// RateLimit and RateWindowSeconds configure the per-client local
	// limiter applied to every platform namespace.
	RateLimit         int `koanf:"rate_limit"`
	RateWindowSeconds int `koanf:"rate_window_seconds"`

	// Remote cache tier. RedisURL wins when both are set; with neither the
	// cache is memory-only.
	RedisURL    string `koanf:"redis_url"`
	KVRestURL   string `koanf:"kv_rest_api_url"`
	KVRestToken string `koanf:"kv_rest_api_token"`

	// Default identities used when a request passes no explicit one.
	DiscordUserID   string  `koanf:"discord_user_id"`
	SteamID         string  `koanf:"steam_id"`
	OsuUsername     string  `koanf:"osu_username"`
	ValorantName    string  `koanf:"valorant_name"`
	ValorantTag     string  `koanf:"valorant_tag"`
	KovaaksUsername string  `koanf:"kovaaks_username"`
	LastfmUser      string  `koanf:"lastfm_user"`
	TwitterUsername string  `koanf:"twitter_username"`
	WeatherLat      float64 `koanf:"weather_lat"`
	WeatherLon      float64 `koanf:"weather_lon"`
	WeatherCity     string  `koanf:"weather_city"`

	// Upstream credentials.
	SteamAPIKey        string `koanf:"steam_api_key"`
	OsuClientID        string `koanf:"osu_client_id"`
	OsuClientSecret    string `koanf:"osu_client_secret"`
	LastfmAPIKey       string `koanf:"lastfm_api_key"`
	TwitterBearerToken string `koanf:"twitter_bearer_token"`
	HenrikdevAPIKey    string `koanf:"henrikdev_api_key"`
}

// New returns the demo defaults.
func New() *Config {
	return &Config{
		Addr:                   ":8080",
		LogLevel:               "info",
		UpstreamTimeoutSeconds: 15,
		RateLimit:              30,
		RateWindowSeconds:      60,
		DiscordUserID:          "356882606879408668",
		OsuUsername:            "imlucaa",
		KovaaksUsername:        "lucaa",
		LastfmUser:             "imlucaa",
		TwitterUsername:        "imlucaa_",
		WeatherLat:             51.5072,
		WeatherLon:             -0.1276,
	}
}

// Load builds a Config from defaults plus DASH_-prefixed environment
// variables (DASH_ADDR, DASH_STEAM_API_KEY, ...). The remote-cache variables
// from the original deployment (REDIS_URL, KV_REST_API_URL,
// KV_REST_API_TOKEN) are also honored unprefixed.
func Load() (*Config, error) {
	k := koanf.New(".")

	envProvider := env.Provider("DASH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DASH_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	// Unprefixed aliases, only when the prefixed form did not set them.
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	if cfg.KVRestURL == "" {
		cfg.KVRestURL = os.Getenv("KV_REST_API_URL")
	}
	if cfg.KVRestToken == "" {
		cfg.KVRestToken = os.Getenv("KV_REST_API_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime
// misbehavior.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.UpstreamTimeoutSeconds <= 0 {
		return errors.New("upstream_timeout_seconds must be positive")
	}
	if c.RateLimit <= 0 {
		return errors.New("rate_limit must be positive")
	}
	if c.RateWindowSeconds <= 0 {
		return errors.New("rate_window_seconds must be positive")
	}
	return nil
}
