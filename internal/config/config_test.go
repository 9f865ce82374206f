package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.RateLimit != 30 {
		t.Errorf("RateLimit = %d, want 30", cfg.RateLimit)
	}
	if cfg.UpstreamTimeoutSeconds != 15 {
		t.Errorf("UpstreamTimeoutSeconds = %d, want 15", cfg.UpstreamTimeoutSeconds)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DASH_ADDR", ":9999")
	t.Setenv("DASH_STEAM_API_KEY", "key123")
	t.Setenv("DASH_RATE_LIMIT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.SteamAPIKey != "key123" {
		t.Errorf("SteamAPIKey = %q, want key123", cfg.SteamAPIKey)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d, want 5", cfg.RateLimit)
	}
}

func TestLoad_LegacyAliases(t *testing.T) {
	t.Setenv("KV_REST_API_URL", "https://kv.example.com")
	t.Setenv("KV_REST_API_TOKEN", "token123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.KVRestURL != "https://kv.example.com" {
		t.Errorf("KVRestURL = %q, want alias value", cfg.KVRestURL)
	}
	if cfg.KVRestToken != "token123" {
		t.Errorf("KVRestToken = %q, want alias value", cfg.KVRestToken)
	}
}

func TestLoad_PrefixedWinsOverAlias(t *testing.T) {
	t.Setenv("DASH_REDIS_URL", "prefixed:6379")
	t.Setenv("REDIS_URL", "alias:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "prefixed:6379" {
		t.Errorf("RedisURL = %q, want prefixed form to win", cfg.RedisURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*Config) {}, wantErr: false},
		{name: "empty addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.UpstreamTimeoutSeconds = 0 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit = 0 }, wantErr: true},
		{name: "zero window", mutate: func(c *Config) { c.RateWindowSeconds = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
