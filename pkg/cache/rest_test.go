package cache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestRESTRemote_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		switch r.URL.Path {
		case "/get/dash:steam:abc":
			_ = json.NewEncoder(w).Encode(map[string]any{"result": `{"value":{},"cachedAt":"2024-01-01T00:00:00Z"}`})
		case "/get/dash:steam:missing":
			_ = json.NewEncoder(w).Encode(map[string]any{"result": nil})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	remote := NewRESTRemote(server.URL, "test-token")
	ctx := context.Background()

	data, err := remote.Get(ctx, "dash:steam:abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(string(data), "cachedAt") {
		t.Errorf("Get returned %q, want envelope JSON", data)
	}

	if _, err := remote.Get(ctx, "dash:steam:missing"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get missing key = %v, want ErrMiss", err)
	}
}

func TestRESTRemote_Set(t *testing.T) {
	var gotPath, gotEX string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		gotPath = r.URL.Path
		gotEX = r.URL.Query().Get("EX")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "OK"})
	}))
	defer server.Close()

	remote := NewRESTRemote(server.URL, "test-token")

	tests := []struct {
		name       string
		ttl        time.Duration
		expectedEX string
	}{
		{name: "whole seconds", ttl: 90 * time.Second, expectedEX: "90"},
		{name: "fractional seconds round up", ttl: 1500 * time.Millisecond, expectedEX: "2"},
		{name: "sub-second clamps to 1", ttl: 200 * time.Millisecond, expectedEX: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := remote.Set(context.Background(), "dash:osu:k", []byte(`{"a":1}`), tt.ttl); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if gotEX != tt.expectedEX {
				t.Errorf("EX = %q, want %q", gotEX, tt.expectedEX)
			}
			if !strings.HasPrefix(gotPath, "/set/dash:osu:k/") {
				t.Errorf("path = %q, want /set/dash:osu:k/<value>", gotPath)
			}
			// Value segment must be URL-escaped JSON.
			segment := strings.TrimPrefix(gotPath, "/set/dash:osu:k/")
			decoded, err := url.PathUnescape(segment)
			if err != nil {
				t.Fatalf("unescape value segment: %v", err)
			}
			if decoded != `{"a":1}` {
				t.Errorf("value segment = %q, want %q", decoded, `{"a":1}`)
			}
		})
	}
}

func TestRESTRemote_ErrorResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	remote := NewRESTRemote(server.URL, "wrong-token")
	if _, err := remote.Get(context.Background(), "dash:x"); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("Get against failing store = %v, want transport error", err)
	}
}
