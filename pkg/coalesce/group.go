// Package coalesce deduplicates concurrent upstream fetches per cache key.
// The first caller for a key runs the fetch; concurrent callers for the same
// key wait for that result instead of starting their own. The in-flight entry
// is removed once the fetch settles, success or failure, so the next request
// after completion starts fresh.
package coalesce

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	coalesceFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_coalesce_fetches_total",
		Help: "Total upstream fetches started by the coalescer",
	})

	coalesceSharedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_coalesce_shared_total",
		Help: "Total calls that joined an already in-flight fetch",
	})
)

// Group coalesces concurrent calls per key.
type Group struct {
	flight singleflight.Group
}

// NewGroup creates a coalescing group.
func NewGroup() *Group {
	return &Group{}
}

// Do executes fn for key, sharing one in-flight execution among concurrent
// callers. Shared reports whether this caller joined a fetch started by
// another. The fetch runs with its own context: a single caller disconnecting
// must not cancel the flight for the other waiters, so fn receives a context
// detached from any one request.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (value any, shared bool, err error) {
	value, err, shared = g.flight.Do(key, func() (any, error) {
		coalesceFetchesTotal.Inc()
		return fn(context.WithoutCancel(ctx))
	})
	if shared {
		coalesceSharedTotal.Inc()
	}
	return value, shared, err
}
