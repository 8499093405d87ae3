// Package source defines the contract a provider-specific import adapter
// implements, plus the registry the orchestrator dispatches through.
package source

import (
	"context"
	"fmt"

	"github.com/belugamedia/beluga/internal/importer/domain"
	"github.com/belugamedia/beluga/pkg/errors"
)

// Adapter fetches a user's raw history from one external provider and
// normalizes it into a canonical result. The returned result carries empty
// FailedItems except for entries the adapter itself could not normalize.
type Adapter interface {
	// Source returns the provider this adapter serves.
	Source() domain.ImportSource

	// Import fetches and normalizes the user's history.
	Import(ctx context.Context, input domain.DeployImportInput) (*domain.ImportResult, error)
}

// Registry maps each import source to its adapter.
type Registry struct {
	adapters map[domain.ImportSource]Adapter
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[domain.ImportSource]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Source()] = a
	}
	return &Registry{adapters: m}
}

// Resolve returns the adapter for a source.
func (r *Registry) Resolve(s domain.ImportSource) (Adapter, error) {
	adapter, ok := r.adapters[s]
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("no adapter registered for source %q", s))
	}
	return adapter, nil
}
