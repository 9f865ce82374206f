// Package proxy implements the per-platform request pipeline: local rate
// limit gate, two-tier cache read, coalesced upstream fetch with
// write-through, and stale fallback when the upstream fails.
package proxy

import (
	"context"
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/imlucaa/dashboard-api/internal/platform"
	"github.com/imlucaa/dashboard-api/pkg/cache"
	"github.com/imlucaa/dashboard-api/pkg/coalesce"
	"github.com/imlucaa/dashboard-api/pkg/ratelimit"
)

// Source labels where a response was served from, surfaced in the
// X-<Platform>-Cache header.
type Source string

const (
	// SourceHit is a fresh memory-tier hit.
	SourceHit Source = "HIT"

	// SourceHitKV is a fresh remote-tier hit.
	SourceHitKV Source = "HIT_KV"

	// SourceMiss is a fetch this request started.
	SourceMiss Source = "MISS"

	// SourceShared is a fetch this request joined mid-flight.
	SourceShared Source = "SHARED"

	// SourceStale is a stale entry served either inside the
	// stale-while-revalidate window or as fallback after an upstream
	// failure.
	SourceStale Source = "STALE"
)

var pipelineRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_pipeline_requests_total",
	Help: "Total pipeline requests by platform and source",
}, []string{"platform", "source"})

// FetchFunc performs one upstream fetch and returns the normalized payload.
type FetchFunc func(ctx context.Context) (any, error)

// Pipeline owns the shared pieces every platform route flows through. It is
// constructed once at startup and injected into handlers; none of its state
// is ambient.
type Pipeline struct {
	store   *cache.Store
	group   *coalesce.Group
	limiter *ratelimit.Limiter
	logger  zerolog.Logger

	limit  int
	window time.Duration
}

// New creates a Pipeline.
func New(store *cache.Store, group *coalesce.Group, limiter *ratelimit.Limiter, logger zerolog.Logger, limit int, window time.Duration) *Pipeline {
	return &Pipeline{
		store:   store,
		group:   group,
		limiter: limiter,
		logger:  logger,
		limit:   limit,
		window:  window,
	}
}

// Resource is one platform route's cache policy.
type Resource struct {
	// Platform names the route: rate-limit namespace, metric label, and
	// X-<Platform>-Cache header.
	Platform string

	// Key is the cache key for the resolved identity.
	Key string

	// Fresh and Stale are the freshness and stale-while-revalidate windows.
	Fresh time.Duration
	Stale time.Duration

	// Fetch performs the upstream fetch on a miss.
	Fetch FetchFunc
}

// Serve runs the pipeline for one request and writes the response.
func (p *Pipeline) Serve(w http.ResponseWriter, r *http.Request, res Resource) {
	ctx := r.Context()

	decision := p.limiter.Check(ratelimit.ClientIP(r), res.Platform, p.limit, p.window)
	if !decision.Allowed {
		p.logger.Warn().
			Str("platform", res.Platform).
			Int("retry_after", decision.RetryAfter).
			Msg("Local rate limit rejection")
		writeLocalRateLimited(w, decision.RetryAfter)
		return
	}

	if result, err := p.store.Get(ctx, res.Key, res.Fresh, res.Stale); err == nil {
		if !result.Stale {
			source := SourceHit
			if result.Tier == cache.TierRemote {
				source = SourceHitKV
			}
			p.respond(w, res, result.Value, source, false)
			return
		}

		// Stale-but-usable: serve it and refresh in the background. The
		// coalescer keeps concurrent stale hits from stampeding upstream.
		p.refreshAsync(res)
		p.respond(w, res, result.Value, SourceStale, true)
		return
	}

	payload, shared, err := p.fetchThrough(ctx, res)
	if err == nil {
		source := SourceMiss
		if shared {
			source = SourceShared
		}
		p.respond(w, res, payload, source, false)
		return
	}

	// Upstream failed: fall back to the freshest stale entry at any tier
	// before surfacing the typed error.
	if result, staleErr := p.store.GetStale(ctx, res.Key); staleErr == nil {
		p.logger.Warn().
			Err(err).
			Str("platform", res.Platform).
			Dur("age", result.Age).
			Msg("Upstream failed, serving stale fallback")
		p.respond(w, res, result.Value, SourceStale, true)
		return
	}

	platformErr := platform.AsError(err)
	p.logger.Error().
		Err(err).
		Str("platform", res.Platform).
		Str("code", string(platformErr.Code)).
		Msg("Upstream failed with no stale fallback")
	writeError(w, platformErr)
}

// fetchThrough runs the coalesced upstream fetch and writes the result
// through the cache. The flight returns serialized payload bytes so every
// waiter shares one marshalled copy.
func (p *Pipeline) fetchThrough(ctx context.Context, res Resource) (json.RawMessage, bool, error) {
	value, shared, err := p.group.Do(ctx, res.Key, func(flightCtx context.Context) (any, error) {
		payload, fetchErr := res.Fetch(flightCtx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, marshalErr
		}
		if setErr := p.store.Set(flightCtx, res.Key, payload, res.Fresh+res.Stale); setErr != nil {
			p.logger.Warn().Err(setErr).Str("platform", res.Platform).Msg("Cache write failed")
		}
		return json.RawMessage(raw), nil
	})
	if err != nil {
		return nil, shared, err
	}
	raw, ok := value.(json.RawMessage)
	if !ok {
		return nil, shared, errors.New("unexpected flight payload type")
	}
	return raw, shared, nil
}

// refreshAsync starts a background refresh for a stale-served key. Errors
// only get logged: the client already has a usable response.
func (p *Pipeline) refreshAsync(res Resource) {
	go func() {
		_, _, err := p.fetchThrough(context.Background(), res)
		if err != nil {
			p.logger.Debug().
				Err(err).
				Str("platform", res.Platform).
				Msg("Background refresh failed")
		}
	}()
}

func (p *Pipeline) respond(w http.ResponseWriter, res Resource, payload json.RawMessage, source Source, stale bool) {
	pipelineRequestsTotal.WithLabelValues(res.Platform, string(source)).Inc()
	p.logger.Debug().
		Str("platform", res.Platform).
		Str("cache_source", string(source)).
		Msg("Serving platform payload")
	writePayload(w, res, payload, source, stale)
}
