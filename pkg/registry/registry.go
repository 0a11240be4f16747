package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/surface/pkg/domain"
)

// ErrRendererNotFound is returned when no renderer or loader knows a component type.
var ErrRendererNotFound = errors.New("renderer not found")

// Loader resolves a renderer the first time a component type is needed,
// typically by fetching the module named by componentUrl.
type Loader func(componentType, componentURL string) (domain.RenderFunc, error)

// Registry maps component types to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]domain.RenderFunc
	loader    Loader
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]domain.RenderFunc),
	}
}

// Register adds a renderer to the registry.
// If a renderer with the same type exists, it is overwritten.
func (r *Registry) Register(componentType string, fn domain.RenderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[componentType] = fn
}

// SetLoader installs the fallback used for types that were never registered.
func (r *Registry) SetLoader(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loader = l
}

// Has reports whether a renderer is already bound for componentType.
func (r *Registry) Has(componentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.renderers[componentType]
	return ok
}

// Resolve returns the renderer for componentType, loading and caching it on first use.
func (r *Registry) Resolve(componentType, componentURL string) (domain.RenderFunc, error) {
	r.mu.RLock()
	fn, ok := r.renderers[componentType]
	loader := r.loader
	r.mu.RUnlock()
	if ok {
		return fn, nil
	}
	if loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrRendererNotFound, componentType)
	}

	fn, err := loader(componentType, componentURL)
	if err != nil {
		return nil, fmt.Errorf("load renderer %s: %w", componentType, err)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrRendererNotFound, componentType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.renderers[componentType]; ok {
		return existing, nil
	}
	r.renderers[componentType] = fn
	return fn, nil
}

// Render draws props with the renderer for componentType.
func (r *Registry) Render(componentType string, props map[string]any) (string, error) {
	fn, err := r.Resolve(componentType, "")
	if err != nil {
		return "", err
	}
	return fn(props)
}
