package osu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const userFixture = `{
	"id": 12345,
	"username": "imlucaa",
	"avatar_url": "https://a.ppy.sh/12345",
	"country_code": "GB",
	"statistics": {
		"global_rank": 54321,
		"country_rank": 2100,
		"pp": 6543.2,
		"hit_accuracy": 98.76,
		"play_count": 40000,
		"level": {"current": 100, "progress": 42}
	}
}`

const scoreFixture = `[{
	"pp": 312.5,
	"accuracy": 0.9931,
	"rank": "S",
	"mods": ["HD", "DT"],
	"ended_at": "2026-08-29T20:00:00Z",
	"beatmap": {"version": "Extreme"},
	"beatmapset": {"title": "Title", "artist": "Artist"}
}]`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(platform.NewDoer(5*time.Second, zerolog.Nop()), "id", "secret")
	client.SetBaseURL(server.URL)
	return client
}

func fullHandler(t *testing.T, tokenCalls *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			if tokenCalls != nil {
				tokenCalls.Add(1)
			}
			if got := r.FormValue("grant_type"); got != "client_credentials" {
				t.Errorf("grant_type = %q", got)
			}
			w.Write([]byte(`{"access_token": "tok", "expires_in": 86400}`))
		case "/users/imlucaa/osu":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q", got)
			}
			w.Write([]byte(userFixture))
		case "/users/12345/scores/recent", "/users/12345/scores/best":
			w.Write([]byte(scoreFixture))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestClient_Fetch(t *testing.T) {
	client := newTestClient(t, fullHandler(t, nil))

	player, err := client.Fetch(context.Background(), "imlucaa")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if player.Username != "imlucaa" {
		t.Errorf("Username = %q", player.Username)
	}
	if player.GlobalRank != 54321 {
		t.Errorf("GlobalRank = %d", player.GlobalRank)
	}
	if player.Level != 100.42 {
		t.Errorf("Level = %v, want 100.42", player.Level)
	}
	if player.RecentScore == nil || player.TopScore == nil {
		t.Fatal("expected both score blocks")
	}
	if player.RecentScore.Title != "Title" || player.RecentScore.PP != 312.5 {
		t.Errorf("RecentScore = %+v", player.RecentScore)
	}
	if len(player.TopScore.Mods) != 2 {
		t.Errorf("Mods = %v", player.TopScore.Mods)
	}
}

func TestClient_Fetch_TokenReused(t *testing.T) {
	var tokenCalls atomic.Int64
	client := newTestClient(t, fullHandler(t, &tokenCalls))

	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), "imlucaa"); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Errorf("token grants = %d, want 1", got)
	}
}

func TestClient_Fetch_TokenRefreshedNearExpiry(t *testing.T) {
	var tokenCalls atomic.Int64
	client := newTestClient(t, fullHandler(t, &tokenCalls))

	now := time.Now()
	client.now = func() time.Time { return now }

	if _, err := client.Fetch(context.Background(), "imlucaa"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// 30s before expiry is inside the refresh margin.
	now = now.Add(86400*time.Second - 30*time.Second)
	if _, err := client.Fetch(context.Background(), "imlucaa"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := tokenCalls.Load(); got != 2 {
		t.Errorf("token grants = %d, want 2", got)
	}
}

func TestClient_Fetch_ScoreFailureDegrades(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/token":
			w.Write([]byte(`{"access_token": "tok", "expires_in": 86400}`))
		case "/users/imlucaa/osu":
			w.Write([]byte(userFixture))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	player, err := client.Fetch(context.Background(), "imlucaa")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if player.RecentScore != nil || player.TopScore != nil {
		t.Errorf("scores = %+v / %+v, want nil", player.RecentScore, player.TopScore)
	}
}

func TestClient_Fetch_MissingCredentials(t *testing.T) {
	client := NewClient(platform.NewDoer(5*time.Second, zerolog.Nop()), "", "")

	_, err := client.Fetch(context.Background(), "imlucaa")
	var platformErr *platform.Error
	if !errors.As(err, &platformErr) || platformErr.Code != platform.CodeConfig {
		t.Fatalf("err = %v, want CONFIG_ERROR", err)
	}
}
