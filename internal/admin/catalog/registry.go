package catalog

import (
	"strings"
	"sync"
)

// DefaultRegistryLimit bounds how many listings a Registry keeps in memory.
const DefaultRegistryLimit = 512

// Registry keeps one Listing per view key. Keys built with ListingKey are
// scoped to a staff member so their listings can be dropped on logout. When
// the limit is reached the least recently used listing is evicted.
type Registry struct {
	mu       sync.Mutex
	factory  func() *Listing
	limit    int
	tick     uint64
	listings map[string]*registryEntry
}

type registryEntry struct {
	listing  *Listing
	lastUsed uint64
}

// NewRegistry returns a Registry creating listings with factory.
func NewRegistry(factory func() *Listing) *Registry {
	if factory == nil {
		panic("catalog: listing factory is required")
	}
	return &Registry{
		factory:  factory,
		limit:    DefaultRegistryLimit,
		listings: make(map[string]*registryEntry),
	}
}

// ListingKey scopes a store's listing to the staff member viewing it.
func ListingKey(owner, storeID string) string {
	return owner + "/" + storeID
}

// Get returns the listing for key, creating it on first use.
func (r *Registry) Get(key string) *Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tick++
	if e, ok := r.listings[key]; ok {
		e.lastUsed = r.tick
		return e.listing
	}
	if r.limit > 0 && len(r.listings) >= r.limit {
		r.evictOldestLocked()
	}
	e := &registryEntry{listing: r.factory(), lastUsed: r.tick}
	r.listings[key] = e
	return e.listing
}

// Forget drops the listing for key.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listings, key)
}

// ForgetOwner drops every listing keyed to owner and returns how many were
// removed.
func (r *Registry) ForgetOwner(owner string) int {
	if owner == "" {
		return 0
	}
	prefix := ListingKey(owner, "")
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key := range r.listings {
		if strings.HasPrefix(key, prefix) {
			delete(r.listings, key)
			removed++
		}
	}
	return removed
}

// Len reports how many listings are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listings)
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestKey string
		oldest    uint64
		found     bool
	)
	for key, e := range r.listings {
		if !found || e.lastUsed < oldest {
			oldestKey, oldest, found = key, e.lastUsed, true
		}
	}
	if found {
		delete(r.listings, oldestKey)
	}
}
