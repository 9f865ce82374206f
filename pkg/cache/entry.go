// Package cache implements the two-tier response cache: an in-process memory
// map in front of an optional remote key-value store. Entries are timestamped
// envelopes read back as fresh, stale-but-usable, or absent.
package cache

import (
	"time"

	json "github.com/goccy/go-json"
)

// Envelope wraps a cached value with its write timestamp.
// CachedAt is set once at write time and never mutated.
type Envelope struct {
	// Value is the serialized platform payload.
	Value json.RawMessage `json:"value"`

	// CachedAt is when the envelope was written.
	CachedAt time.Time `json:"cachedAt"`
}

// Age returns how long ago the envelope was written.
func (e *Envelope) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Tier identifies which cache tier served a read.
type Tier string

const (
	// TierMemory is the in-process map.
	TierMemory Tier = "memory"

	// TierRemote is the shared key-value store.
	TierRemote Tier = "remote"
)

// Result is a successful cache read.
type Result struct {
	// Value is the cached payload.
	Value json.RawMessage

	// Age is how long ago the value was written.
	Age time.Duration

	// Stale reports whether the value is past its freshness window but
	// still inside the stale-while-revalidate window.
	Stale bool

	// Tier is where the value was found.
	Tier Tier
}
