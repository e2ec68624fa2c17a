// Package capability defines the named information-retrieval capabilities
// agents may invoke during a turn, and the registry that resolves
// invocations.
//
// Capabilities are synchronous from the adapter's perspective and always
// produce plain text. Failures — including unknown capability names — are
// converted into an explanatory result string rather than propagated, so one
// failed lookup never aborts a turn.
package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gobwas/glob"
)

// Capability is a named, externally-implemented lookup.
type Capability interface {
	// Name is the identifier agents use to request the capability.
	Name() string
	// Describe returns a one-line description offered to the reasoning
	// engine alongside the name.
	Describe() string
	// Invoke executes the lookup with loosely-typed arguments and returns a
	// plain-text result.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// Registry holds the capabilities available in this process and resolves
// invocations by name. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

// NewBuiltinRegistry creates a registry with all builtin capabilities
// registered.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CalendarLookup{})
	r.Register(&EmailSearch{})
	r.Register(&PlaceSearch{})
	r.Register(&WebSearch{})
	r.Register(&DateInfo{})
	return r
}

// Register adds a capability, replacing any prior registration under the
// same name.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Name()] = c
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	return c, ok
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description for a registered capability name, or the
// empty string.
func (r *Registry) Describe(name string) string {
	c, ok := r.Get(name)
	if !ok {
		return ""
	}
	return c.Describe()
}

// Invoke resolves and executes the named capability. The returned string is
// always usable as a tool result: capability errors and unknown names come
// back as explanatory text.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	c, ok := r.Get(name)
	if !ok {
		return fmt.Sprintf("error: capability %q is not available", name)
	}
	result, err := c.Invoke(ctx, args)
	if err != nil {
		return fmt.Sprintf("error: %s lookup failed: %v", name, err)
	}
	return result
}

// Enabled filters the registered capability names through glob patterns
// (e.g. "*", "calendar*", "web_search"). Invalid patterns are skipped. The
// result is sorted and deduplicated.
func (r *Registry) Enabled(patterns []string) []string {
	names := r.Names()
	if len(patterns) == 0 {
		return nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}

	var out []string
	for _, name := range names {
		for _, g := range globs {
			if g.Match(name) {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
