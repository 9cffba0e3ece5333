package plugin

import (
	"sync"

	"github.com/mellivora/etl-engine/internal/apperr"
)

// Registry holds three disjoint name → constructor tables, one per
// capability kind, per spec.md §4.4. Registration is bulk at startup;
// lookup is by exact name.
type Registry struct {
	mu         sync.RWMutex
	extract    map[string]ExtractFactory
	transform  map[string]TransformFactory
	load       map[string]LoadFactory
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		extract:   map[string]ExtractFactory{},
		transform: map[string]TransformFactory{},
		load:      map[string]LoadFactory{},
	}
}

// RegisterExtract adds an extract plugin constructor under name.
func (r *Registry) RegisterExtract(name string, f ExtractFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extract[name] = f
}

// RegisterTransform adds a transform plugin constructor under name.
func (r *Registry) RegisterTransform(name string, f TransformFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transform[name] = f
}

// RegisterLoad adds a load plugin constructor under name.
func (r *Registry) RegisterLoad(name string, f LoadFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load[name] = f
}

// NewExtract constructs the named extract plugin with cfg.
func (r *Registry) NewExtract(name string, cfg Config) (Extract, error) {
	r.mu.RLock()
	f, ok := r.extract[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.UnknownPlugin, name)
	}
	return f(cfg)
}

// NewTransform constructs the named transform plugin with cfg.
func (r *Registry) NewTransform(name string, cfg Config) (Transform, error) {
	r.mu.RLock()
	f, ok := r.transform[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.UnknownPlugin, name)
	}
	return f(cfg)
}

// NewLoad constructs the named load plugin with cfg.
func (r *Registry) NewLoad(name string, cfg Config) (Load, error) {
	r.mu.RLock()
	f, ok := r.load[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.UnknownPlugin, name)
	}
	return f(cfg)
}

// List returns the registered plugin names by kind, for the management
// surface's "list plugins" operation (spec.md §6).
func (r *Registry) List() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := map[string][]string{
		"extract":   namesOf(r.extract),
		"transform": namesOf(r.transform),
		"load":      namesOf(r.load),
	}
	return result
}

func namesOf[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
