package valorant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const accountFixture = `{"data": {
	"name": "imlucaa",
	"tag": "0000",
	"region": "eu",
	"account_level": 212,
	"card": {"small": "https://media.valorant-api.com/card/small.png"}
}}`

const mmrFixture = `{"data": {
	"current_data": {
		"currenttierpatched": "Immortal 1",
		"ranking_in_tier": 34,
		"mmr_change_to_last_game": 17,
		"elo": 2134,
		"images": {"small": "https://media.valorant-api.com/tier/24.png"}
	},
	"highest_rank": {"patched_tier": "Immortal 2"}
}}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(platform.NewDoer(5*time.Second, zerolog.Nop()), "HDEV-key")
	client.SetBaseURL(server.URL)
	return client
}

func TestClient_Fetch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "HDEV-key" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/v1/account/imlucaa/0000":
			w.Write([]byte(accountFixture))
		case "/v2/mmr/eu/imlucaa/0000":
			w.Write([]byte(mmrFixture))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	profile, err := client.Fetch(context.Background(), "imlucaa#0000")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if profile.CurrentTier != "Immortal 1" {
		t.Errorf("CurrentTier = %q", profile.CurrentTier)
	}
	if profile.Elo != 2134 || profile.MMRChange != 17 {
		t.Errorf("Elo = %d, MMRChange = %d", profile.Elo, profile.MMRChange)
	}
	if profile.HighestTier != "Immortal 2" {
		t.Errorf("HighestTier = %q", profile.HighestTier)
	}
	if profile.AccountLevel != 212 {
		t.Errorf("AccountLevel = %d", profile.AccountLevel)
	}
}

func TestClient_Fetch_UnratedDefault(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/account/imlucaa/0000":
			w.Write([]byte(accountFixture))
		default:
			w.Write([]byte(`{"data": {"current_data": {}, "highest_rank": {}}}`))
		}
	}))

	profile, err := client.Fetch(context.Background(), "imlucaa#0000")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if profile.CurrentTier != "Unrated" {
		t.Errorf("CurrentTier = %q, want Unrated", profile.CurrentTier)
	}
}

func TestClient_Fetch_AccountNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Fetch(context.Background(), "ghost#0000")
	var platformErr *platform.Error
	if !errors.As(err, &platformErr) || platformErr.Code != platform.CodeNotFound {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestSplitRiotID(t *testing.T) {
	tests := []struct {
		riotID   string
		wantName string
		wantTag  string
		wantOK   bool
	}{
		{"imlucaa#0000", "imlucaa", "0000", true},
		{"name#with#hash", "name#with", "hash", true},
		{"notag", "", "", false},
		{"#0000", "", "", false},
		{"name#", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		name, tag, ok := splitRiotID(tt.riotID)
		if name != tt.wantName || tag != tt.wantTag || ok != tt.wantOK {
			t.Errorf("splitRiotID(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.riotID, name, tag, ok, tt.wantName, tt.wantTag, tt.wantOK)
		}
	}
}

func TestClient_Fetch_BadRiotID(t *testing.T) {
	client := NewClient(platform.NewDoer(5*time.Second, zerolog.Nop()), "HDEV-key")

	_, err := client.Fetch(context.Background(), "justaname")
	var platformErr *platform.Error
	if !errors.As(err, &platformErr) || platformErr.Code != platform.CodeConfig {
		t.Fatalf("err = %v, want CONFIG_ERROR", err)
	}
}
