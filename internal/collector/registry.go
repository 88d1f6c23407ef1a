package collector

import (
	"sort"
	"sync"

	"github.com/newthinker/frontier/internal/core"
)

// Registry holds the collectors the application was wired with and whether
// each one is enabled by configuration.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
	disabled   map[string]bool
}

// NewRegistry creates a new collector registry
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
		disabled:   make(map[string]bool),
	}
}

// Register adds c, enabled, replacing any collector of the same name.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[c.Name()] = c
	delete(r.disabled, c.Name())
}

// SetEnabled toggles a registered collector. Unknown names are ignored.
func (r *Registry) SetEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collectors[name]; !ok {
		return
	}
	if enabled {
		delete(r.disabled, name)
	} else {
		r.disabled[name] = true
	}
}

// Get retrieves a collector by name regardless of its enabled state.
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

// Resolve returns the named collector, or the first enabled one by name when
// name is empty. Disabled collectors are never returned.
func (r *Registry) Resolve(name string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		c, ok := r.collectors[name]
		if !ok {
			return nil, core.Errorf(core.ErrConfigMissing, "collector %q not registered", name)
		}
		if r.disabled[name] {
			return nil, core.Errorf(core.ErrConfigMissing, "collector %q is disabled", name)
		}
		return c, nil
	}
	for _, n := range r.namesLocked() {
		if !r.disabled[n] {
			return r.collectors[n], nil
		}
	}
	return nil, core.Errorf(core.ErrConfigMissing, "no collector available")
}

// Names lists registered collectors sorted by name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// GetAll returns all registered collectors sorted by name
func (r *Registry) GetAll() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.namesLocked()
	result := make([]Collector, 0, len(names))
	for _, n := range names {
		result = append(result, r.collectors[n])
	}
	return result
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.collectors))
	for n := range r.collectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
