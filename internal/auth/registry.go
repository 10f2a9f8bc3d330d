package auth

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// StoreFactory returns the store for one device namespace.
type StoreFactory func(deviceID string) Store

// Default registry limits.
const (
	DefaultMaxControllers = 1000
	DefaultIdleTTL        = 30 * time.Minute
)

// Registry lazily creates one controller per device, mirroring one browser profile each.
// Controllers that are neither processing nor streaming events are evicted once
// they sit idle past the TTL or the registry is full. Evicted devices reload
// their persisted profile and log on the next request.
type Registry struct {
	stores     StoreFactory
	recognizer Recognizer
	policy     Policy
	opts       []Option

	maxControllers int
	idleTTL        time.Duration
	now            func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
}

func (e *registryEntry) idle() bool {
	return !e.controller.IsProcessing() && e.controller.ListenerCount() == 0
}

func NewRegistry(stores StoreFactory, recognizer Recognizer, policy Policy, opts ...Option) *Registry {
	return &Registry{
		stores:         stores,
		recognizer:     recognizer,
		policy:         policy,
		opts:           opts,
		maxControllers: DefaultMaxControllers,
		idleTTL:        DefaultIdleTTL,
		now:            time.Now,
		entries:        make(map[string]*registryEntry),
	}
}

// SetLimits changes the eviction limits. Non-positive values keep the current setting.
func (r *Registry) SetLimits(maxControllers int, idleTTL time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if maxControllers > 0 {
		r.maxControllers = maxControllers
	}
	if idleTTL > 0 {
		r.idleTTL = idleTTL
	}
}

// Get returns the controller for deviceID, loading persisted state on first use.
// The store is read outside the registry lock.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Controller, error) {
	if c, ok := r.lookup(deviceID); ok {
		return c, nil
	}

	c := NewController(r.stores(deviceID), r.recognizer, r.policy, r.opts...)
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("load state for device %s: %w", deviceID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[deviceID]; ok {
		e.lastUsed = now
		return e.controller, nil
	}
	if len(r.entries) >= r.maxControllers {
		r.evictLocked(now)
	}
	r.entries[deviceID] = &registryEntry{controller: c, lastUsed: now}
	return c, nil
}

func (r *Registry) lookup(deviceID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[deviceID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.controller, true
}

// evictLocked drops expired idle controllers, then the least recently used idle
// ones until there is room for one more. Busy controllers are never evicted.
func (r *Registry) evictLocked(now time.Time) {
	r.sweepLocked(now)
	for len(r.entries) >= r.maxControllers {
		var oldestID string
		var oldest *registryEntry
		for id, e := range r.entries {
			if e.idle() && (oldest == nil || e.lastUsed.Before(oldest.lastUsed)) {
				oldestID, oldest = id, e
			}
		}
		if oldest == nil {
			return
		}
		delete(r.entries, oldestID)
	}
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range r.entries {
		if e.idle() && now.Sub(e.lastUsed) > r.idleTTL {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Sweep drops idle controllers not used within the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

// Run sweeps idle controllers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("Evicted %d idle device controllers", n)
			}
		}
	}
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
