package location

import (
	"sort"
	"sync"
)

// NewRegistry creates a registry of strategies with a given default strategy.
// If def is nil, a NewKeyDir strategy with the default root is used.
func NewRegistry(def Strategy) *Registry {
	if def == nil {
		def = NewKeyDir("")
	}
	return &Registry{
		def:   def,
		byKey: make(map[string]Strategy),
	}
}

// Registry maps location keys to strategies.
//
// Strategies are expected to be registered during the process setup,
// before the registry is used for resolution.
type Registry struct {
	mu    sync.RWMutex
	def   Strategy
	byKey map[string]Strategy
}

// Register associates a strategy with a location key. The last registration wins.
// Registering an empty key replaces the default strategy.
// A nil strategy removes the key; the default strategy cannot be removed.
func (r *Registry) Register(key string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s == nil {
		delete(r.byKey, key)
		return
	}
	if key == "" {
		r.def = s
		return
	}
	r.byKey[key] = s
}

// Get returns a strategy for a location key, or the default strategy if none was registered.
func (r *Registry) Get(key string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byKey[key]; ok {
		return s
	}
	return r.def
}

// Default returns the default strategy.
func (r *Registry) Default() Strategy {
	return r.Get("")
}

// Keys returns all registered location keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
