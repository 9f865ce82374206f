package cache

import (
	"sync"
	"time"
)

// defaultMaxEntries triggers an opportunistic sweep of expired entries when
// the memory map grows past it.
const defaultMaxEntries = 1024

// memoryEntry holds a serialized envelope plus its absolute expiry.
// Expired entries stay in the map until a sweep so that the stale-fallback
// path can still read them after an upstream failure.
type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryTier is the in-process cache map. All access is mutex-guarded:
// unlike the single-threaded runtime this design originated on, Go handlers
// run on parallel goroutines.
type memoryTier struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
}

func newMemoryTier(maxEntries int) *memoryTier {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &memoryTier{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
	}
}

// get returns the serialized envelope for key. When includeExpired is false,
// entries past their expiry are treated as absent.
func (m *memoryTier) get(key string, now time.Time, includeExpired bool) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !includeExpired && now.After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// set stores a serialized envelope and sweeps expired entries when the map
// has grown past maxEntries.
func (m *memoryTier) set(key string, data []byte, expiresAt time.Time, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{data: data, expiresAt: expiresAt}

	if len(m.entries) > m.maxEntries {
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
