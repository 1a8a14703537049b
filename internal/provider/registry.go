// Package provider holds the registry of vector-database adapters under
// benchmark. Each vendor lives in its own subpackage and implements
// domain.Provider against the vendor's default configuration.
package provider

import (
	"fmt"
	"sort"

	"vecbench/internal/domain"
)

// Registry holds the providers selected for a run, keyed by name.
type Registry struct {
	providers map[string]domain.Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.Provider)}
}

// Register adds a provider. Registering the same name twice is a
// configuration error.
func (r *Registry) Register(p domain.Provider) error {
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: provider %q registered twice", domain.ErrInvalidConfig, name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (domain.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidConfig, name)
	}
	return p, nil
}

// Names lists registered providers in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
