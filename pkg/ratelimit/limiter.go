// Package ratelimit implements a fixed-window per-client request limiter.
// Buckets are keyed by namespace and client identity; a bucket counts
// requests until its window expires, then resets. The fixed window allows
// burst doubling at window boundaries, which is acceptable for this
// non-adversarial use and kept for parity with the original behavior.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	limiterAllowedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_ratelimit_allowed_total",
		Help: "Total requests allowed by the local rate limiter",
	}, []string{"namespace"})

	limiterRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_ratelimit_rejected_total",
		Help: "Total requests rejected by the local rate limiter",
	}, []string{"namespace"})
)

// sweepThreshold triggers removal of expired buckets when the table grows
// past it.
const sweepThreshold = 4096

// bucket is one fixed window of requests for a namespace:identity pair.
// Count increases monotonically within a window, including past the limit.
type bucket struct {
	count   int
	resetAt time.Time
}

// Decision is the limiter's answer for one request. Check never fails;
// every call yields a Decision.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is how many requests are left in the window, clamped at 0.
	Remaining int

	// RetryAfter is the whole seconds until the window resets.
	RetryAfter int

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// Limiter tracks fixed-window buckets per namespace and client identity.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLimiter creates a Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// NewLimiterWithClock creates a Limiter with a custom time source (for tests).
func NewLimiterWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

// Check records one request against the identity's bucket in the given
// namespace and decides whether it may proceed. The count increments even
// when the request ends up over the limit, so Remaining is clamped rather
// than allowed to go negative.
func (l *Limiter) Check(identity, namespace string, limit int, window time.Duration) Decision {
	key := namespace + ":" + identity
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(window)}
		l.buckets[key] = b
		l.sweepLocked(now)
	}

	b.count++

	remaining := limit - b.count
	if remaining < 0 {
		remaining = 0
	}

	retryAfter := int(b.resetAt.Sub(now) / time.Second)
	if b.resetAt.Sub(now)%time.Second != 0 {
		retryAfter++
	}
	if retryAfter < 0 {
		retryAfter = 0
	}

	decision := Decision{
		Allowed:    b.count <= limit,
		Remaining:  remaining,
		RetryAfter: retryAfter,
		ResetAt:    b.resetAt,
	}

	if decision.Allowed {
		limiterAllowedTotal.WithLabelValues(namespace).Inc()
	} else {
		limiterRejectedTotal.WithLabelValues(namespace).Inc()
	}

	return decision
}

// sweepLocked drops expired buckets once the table exceeds sweepThreshold.
// Caller must hold mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if len(l.buckets) <= sweepThreshold {
		return
	}
	for key, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked buckets (for tests and metrics).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
