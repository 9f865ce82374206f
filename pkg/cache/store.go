package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

var (
	// ErrMiss indicates the requested key was not found in any tier.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEnvelope indicates the cached data could not be decoded.
	ErrInvalidEnvelope = errors.New("invalid cache envelope")
)

// Store is the two-tier cache. Reads check the memory tier first and fall
// back to the remote tier; remote hits are written through to memory so
// repeat reads within the process avoid the round trip. A nil remote tier
// degrades the store to memory-only.
type Store struct {
	memory *memoryTier
	remote Remote
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRemote attaches a remote tier. Without it the store is memory-only.
func WithRemote(remote Remote) Option {
	return func(s *Store) { s.remote = remote }
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxEntries sets the memory-tier sweep threshold.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.memory = newMemoryTier(n) }
}

// NewStore creates a two-tier cache store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		memory: newMemoryTier(defaultMaxEntries),
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRemote reports whether a remote tier is configured.
func (s *Store) HasRemote() bool {
	return s.remote != nil
}

// Ping checks remote-tier reachability. A memory-only store is always healthy.
func (s *Store) Ping(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Ping(ctx)
}

// Get reads a key, trying memory first and then the remote tier. An entry
// older than fresh is returned with Stale=true; older than fresh+stale it is
// treated as absent. Remote errors are swallowed: the read degrades to
// whatever the memory tier held.
func (s *Store) Get(ctx context.Context, key string, fresh, stale time.Duration) (*Result, error) {
	now := s.now()
	maxAge := fresh + stale

	if data, ok := s.memory.get(key, now, false); ok {
		result, err := s.decode(data, now, fresh, maxAge)
		if err == nil {
			result.Tier = TierMemory
			CacheHits.WithLabelValues(string(TierMemory)).Inc()
			return result, nil
		}
		if errors.Is(err, ErrInvalidEnvelope) {
			s.memory.delete(key)
		}
	}

	if s.remote != nil {
		data, err := s.remote.Get(ctx, key)
		switch {
		case err == nil:
			result, decodeErr := s.decode(data, now, fresh, maxAge)
			if decodeErr == nil {
				// Populate memory so the next read skips the round trip.
				s.memory.set(key, data, now.Add(maxAge-result.Age), now)
				result.Tier = TierRemote
				CacheHits.WithLabelValues(string(TierRemote)).Inc()
				return result, nil
			}
		case errors.Is(err, ErrMiss):
			// fall through
		default:
			CacheErrors.WithLabelValues("get").Inc()
			s.logger.Debug().Err(err).Str("key", key).Msg("Remote cache read failed")
		}
	}

	CacheMisses.Inc()
	return nil, ErrMiss
}

// GetStale reads the freshest envelope still physically present in either
// tier, ignoring freshness windows. It is the fallback path after an
// upstream failure: the remote tier is consulted first (it may hold a
// fresher entry written by another instance), then process memory.
func (s *Store) GetStale(ctx context.Context, key string) (*Result, error) {
	now := s.now()

	if s.remote != nil {
		if data, err := s.remote.Get(ctx, key); err == nil {
			if result, decodeErr := s.decode(data, now, 0, 0); decodeErr == nil {
				result.Stale = true
				result.Tier = TierRemote
				return result, nil
			}
		}
	}

	if data, ok := s.memory.get(key, now, true); ok {
		if result, err := s.decode(data, now, 0, 0); err == nil {
			result.Stale = true
			result.Tier = TierMemory
			return result, nil
		}
	}

	return nil, ErrMiss
}

// Set writes a value through both tiers. The memory write always succeeds;
// the remote write is best-effort and failures are swallowed.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache value: %w", err)
	}

	now := s.now()
	envelope := Envelope{Value: raw, CachedAt: now}
	data, err := json.Marshal(&envelope)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache envelope: %w", err)
	}

	s.memory.set(key, data, now.Add(ttl), now)
	CacheSize.WithLabelValues(string(TierMemory)).Set(float64(s.memory.len()))

	if s.remote != nil {
		if err := s.remote.Set(ctx, key, data, ttl); err != nil {
			CacheErrors.WithLabelValues("set").Inc()
			s.logger.Debug().Err(err).Str("key", key).Msg("Remote cache write failed")
		}
	}

	return nil
}

// decode unmarshals an envelope and applies the age cap. A maxAge of 0
// disables the cap.
func (s *Store) decode(data []byte, now time.Time, fresh, maxAge time.Duration) (*Result, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	age := envelope.Age(now)
	if maxAge > 0 && age > maxAge {
		return nil, ErrMiss
	}

	return &Result{
		Value: envelope.Value,
		Age:   age,
		Stale: age > fresh,
	}, nil
}
