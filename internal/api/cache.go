package api

import (
	"context"
	"sync"
	"time"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/timeutil"
)

// SessionCache stores loaded maps by session id. Implementations must be
// safe for concurrent use. The Redis-backed implementation lives in the SLAM
// bridge package; Get reports absence with found=false rather than an error
// so callers can distinguish "expired" from "backend down".
type SessionCache interface {
	Put(ctx context.Context, id string, m *objmap.Map) error
	Get(ctx context.Context, id string) (m *objmap.Map, found bool, err error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	m        *objmap.Map
	deadline time.Time // zero means no expiry
}

// MemorySessionCache is the in-process SessionCache used when no Redis is
// configured. Expiry is lazy: expired entries are dropped on access.
type MemorySessionCache struct {
	mu      sync.Mutex
	clock   timeutil.Clock
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemorySessionCache creates a cache; ttl zero disables expiry.
func NewMemorySessionCache(clock timeutil.Clock, ttl time.Duration) *MemorySessionCache {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &MemorySessionCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Put stores m under id, resetting its expiry.
func (c *MemorySessionCache) Put(_ context.Context, id string, m *objmap.Map) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{m: m}
	if c.ttl > 0 {
		entry.deadline = c.clock.Now().Add(c.ttl)
	}
	c.entries[id] = entry
	return nil
}

// Get returns the map stored under id, expiring it first if its TTL passed.
func (c *MemorySessionCache) Get(_ context.Context, id string) (*objmap.Map, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !entry.deadline.IsZero() && c.clock.Now().After(entry.deadline) {
		delete(c.entries, id)
		return nil, false, nil
	}
	return entry.m, true, nil
}

// Delete removes a session; deleting an absent id is a no-op.
func (c *MemorySessionCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// Len reports live (possibly expired but not yet evicted) sessions.
func (c *MemorySessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
