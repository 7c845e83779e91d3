// Package registry holds the in-memory view of configured services and
// environments and resolves identifiers to service sets (spec.md §4.8).
package registry

import (
	"sort"

	"github.com/logcraftio/logcraft-cli/internal/domain"
)

// Registry resolves an identifier to the service(s) it names.
type Registry struct {
	services     map[string]domain.Service   // identifier -> service
	environments map[string][]string         // environment -> service identifiers, insertion order
}

// New builds a Registry from the configured services, detecting identifier
// ambiguity eagerly (spec.md §4.8/§8 invariant 9: "if resolution of an
// identifier is ambiguous, operations fail closed").
func New(services []domain.Service) (*Registry, error) {
	r := &Registry{
		services:     make(map[string]domain.Service, len(services)),
		environments: make(map[string][]string),
	}

	for _, svc := range services {
		if !domain.ValidIdentifier(svc.ID) {
			return nil, &domain.ConfigError{Path: svc.ID, Reason: "invalid service identifier"}
		}
		if _, exists := r.services[svc.ID]; exists {
			return nil, &domain.ConfigError{Path: svc.ID, Reason: "duplicate service identifier"}
		}
		r.services[svc.ID] = svc
		if svc.Environment != "" {
			r.environments[svc.Environment] = append(r.environments[svc.Environment], svc.ID)
		}
	}

	for env := range r.environments {
		if _, clash := r.services[env]; clash {
			return nil, &domain.AmbiguousIdentifierError{Identifier: env}
		}
	}

	return r, nil
}

// Resolve returns the services named by identifier: itself if it is a
// service ID, the set sharing it as an environment label, or every
// configured service if identifier is empty (spec.md §4.8 rule 3). Unknown
// identifiers fail closed with domain.UnknownIdentifierError.
func (r *Registry) Resolve(identifier string) ([]domain.Service, error) {
	if identifier == "" {
		return r.All(), nil
	}
	if svc, ok := r.services[identifier]; ok {
		return []domain.Service{svc}, nil
	}
	if ids, ok := r.environments[identifier]; ok {
		services := make([]domain.Service, 0, len(ids))
		for _, id := range ids {
			services = append(services, r.services[id])
		}
		return services, nil
	}
	return nil, &domain.UnknownIdentifierError{Identifier: identifier}
}

// All returns every configured service, sorted by identifier.
func (r *Registry) All() []domain.Service {
	out := make([]domain.Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a single service by identifier.
func (r *Registry) Get(id string) (domain.Service, bool) {
	svc, ok := r.services[id]
	return svc, ok
}
