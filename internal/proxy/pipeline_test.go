package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/platform"
	"github.com/imlucaa/dashboard-api/pkg/cache"
	"github.com/imlucaa/dashboard-api/pkg/coalesce"
	"github.com/imlucaa/dashboard-api/pkg/ratelimit"
)

func newTestPipeline(limit int) *Pipeline {
	return New(
		cache.NewStore(),
		coalesce.NewGroup(),
		ratelimit.NewLimiter(),
		zerolog.Nop(),
		limit,
		time.Minute,
	)
}

func serve(t *testing.T, p *Pipeline, res Resource, clientIP string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/"+res.Platform, nil)
	if clientIP != "" {
		r.Header.Set("X-Forwarded-For", clientIP)
	}
	w := httptest.NewRecorder()
	p.Serve(w, r, res)
	return w
}

func TestPipeline_MissThenHit(t *testing.T) {
	p := newTestPipeline(100)

	var fetches atomic.Int64
	res := Resource{
		Platform: "steam",
		Key:      cache.Key("steam", "user1"),
		Fresh:    time.Minute,
		Stale:    time.Minute,
		Fetch: func(context.Context) (any, error) {
			fetches.Add(1)
			return map[string]any{"name": "player"}, nil
		},
	}

	w := serve(t, p, res, "1.2.3.4")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Steam-Cache"); got != "MISS" {
		t.Errorf("X-Steam-Cache = %q, want MISS", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "s-maxage=60, stale-while-revalidate=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	if strings.Contains(w.Body.String(), `"stale"`) {
		t.Error("fresh response must not carry a stale flag")
	}

	w = serve(t, p, res, "1.2.3.4")
	if got := w.Header().Get("X-Steam-Cache"); got != "HIT" {
		t.Errorf("second request X-Steam-Cache = %q, want HIT", got)
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestPipeline_ConcurrentRequestsCoalesce(t *testing.T) {
	p := newTestPipeline(100)

	var fetches atomic.Int64
	release := make(chan struct{})
	res := Resource{
		Platform: "osu",
		Key:      cache.Key("osu", "user2"),
		Fresh:    time.Minute,
		Stale:    time.Minute,
		Fetch: func(context.Context) (any, error) {
			fetches.Add(1)
			<-release
			return map[string]any{"rank": 1234}, nil
		},
	}

	const callers = 8
	var started, wg sync.WaitGroup
	recorders := make([]*httptest.ResponseRecorder, callers)

	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			recorders[i] = serve(t, p, res, "1.2.3.4")
		}(i)
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want exactly 1", got)
	}
	for i, w := range recorders {
		if w.Code != http.StatusOK {
			t.Errorf("caller %d status = %d, want 200", i, w.Code)
		}
		if !strings.Contains(w.Body.String(), "1234") {
			t.Errorf("caller %d body = %q, want shared payload", i, w.Body.String())
		}
	}
}

func TestPipeline_StaleFallbackOnUpstreamFailure(t *testing.T) {
	p := newTestPipeline(100)

	healthy := true
	res := Resource{
		Platform: "lastfm",
		Key:      cache.Key("lastfm", "user3"),
		// Tiny windows so the seeded entry expires past fresh+stale quickly.
		Fresh: 5 * time.Millisecond,
		Stale: 5 * time.Millisecond,
		Fetch: func(context.Context) (any, error) {
			if healthy {
				return map[string]any{"track": "song"}, nil
			}
			return nil, platform.NewError(platform.CodeUpstream, http.StatusBadGateway, "lastfm down")
		},
	}

	// Seed the cache, let the entry expire, then break the upstream.
	if w := serve(t, p, res, "1.2.3.4"); w.Code != http.StatusOK {
		t.Fatalf("seed status = %d", w.Code)
	}
	time.Sleep(30 * time.Millisecond)
	healthy = false

	w := serve(t, p, res, "1.2.3.4")
	if w.Code != http.StatusOK {
		t.Fatalf("fallback status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Lastfm-Cache"); got != "STALE" {
		t.Errorf("X-Lastfm-Cache = %q, want STALE", got)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["stale"] != true {
		t.Error("fallback body must carry stale: true")
	}
	if body["track"] != "song" {
		t.Errorf("fallback body = %v, want seeded payload", body)
	}
}

func TestPipeline_StaleWindowServesAndRefreshes(t *testing.T) {
	p := newTestPipeline(100)

	var fetches atomic.Int64
	res := Resource{
		Platform: "weather",
		Key:      cache.Key("weather", "51.5", "-0.12"),
		Fresh:    5 * time.Millisecond,
		Stale:    10 * time.Second,
		Fetch: func(context.Context) (any, error) {
			fetches.Add(1)
			return map[string]any{"temp": 21}, nil
		},
	}

	if w := serve(t, p, res, "1.2.3.4"); w.Code != http.StatusOK {
		t.Fatalf("seed status = %d", w.Code)
	}

	// Past fresh but inside the stale window: served stale immediately.
	time.Sleep(30 * time.Millisecond)
	w := serve(t, p, res, "1.2.3.4")
	if got := w.Header().Get("X-Weather-Cache"); got != "STALE" {
		t.Errorf("X-Weather-Cache = %q, want STALE", got)
	}
	if !strings.Contains(w.Body.String(), `"stale":true`) {
		t.Errorf("body = %q, want stale flag", w.Body.String())
	}

	// The background refresh eventually re-fetches.
	deadline := time.Now().Add(2 * time.Second)
	for fetches.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := fetches.Load(); got < 2 {
		t.Errorf("fetches = %d, want background refresh to run", got)
	}
}

func TestPipeline_TypedErrorWithoutFallback(t *testing.T) {
	p := newTestPipeline(100)

	res := Resource{
		Platform: "valorant",
		Key:      cache.Key("valorant", "user4"),
		Fresh:    time.Minute,
		Stale:    time.Minute,
		Fetch: func(context.Context) (any, error) {
			return nil, &platform.Error{
				Code:       platform.CodeRateLimited,
				Status:     http.StatusTooManyRequests,
				Message:    "valorant rate limit exceeded",
				RetryAfter: 45,
			}
		},
	}

	w := serve(t, p, res, "1.2.3.4")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", body.Code)
	}
	if body.RetryAfter != 45 {
		t.Errorf("retryAfter = %d, want 45", body.RetryAfter)
	}
}

func TestPipeline_LocalRateLimit(t *testing.T) {
	p := newTestPipeline(3)

	res := Resource{
		Platform: "discord",
		Key:      cache.Key("discord", "user5"),
		Fresh:    time.Minute,
		Stale:    time.Minute,
		Fetch: func(context.Context) (any, error) {
			return map[string]any{"status": "online"}, nil
		},
	}

	for i := 0; i < 3; i++ {
		if w := serve(t, p, res, "9.9.9.9"); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := serve(t, p, res, "9.9.9.9")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Code != "RATE_LIMITED_LOCAL" {
		t.Errorf("code = %q, want RATE_LIMITED_LOCAL", body.Code)
	}
	if body.RetryAfter <= 0 {
		t.Errorf("retryAfter = %d, want positive", body.RetryAfter)
	}

	// A different client still gets through.
	if w := serve(t, p, res, "8.8.8.8"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}

func TestCacheHeaderName(t *testing.T) {
	tests := []struct {
		platform string
		expected string
	}{
		{"steam", "X-Steam-Cache"},
		{"kovaaks", "X-Kovaaks-Cache"},
		{"", "X-Cache"},
	}
	for _, tt := range tests {
		if got := cacheHeaderName(tt.platform); got != tt.expected {
			t.Errorf("cacheHeaderName(%q) = %q, want %q", tt.platform, got, tt.expected)
		}
	}
}
