package sandbox

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/opencrust/opencrust/errors"
)

// Registry holds every plugin manifest discovered on disk, keyed by name.
// Unlike a live-process plugin registry, entries here are inert descriptors;
// the Runtime instantiates a module fresh for each call.
type Registry struct {
	mu        sync.RWMutex
	manifests map[string]*Manifest
}

// NewRegistry returns an empty manifest registry.
func NewRegistry() *Registry {
	return &Registry{manifests: make(map[string]*Manifest)}
}

// Register adds a manifest to the registry. Returns an error if a plugin
// with the same name is already registered.
func (r *Registry) Register(m *Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.manifests[m.Name]; exists {
		return errors.NewKind(errors.KindPlugin, "plugin already registered: "+m.Name)
	}
	r.manifests[m.Name] = m
	return nil
}

// Get retrieves a manifest by name.
func (r *Registry) Get(name string) (*Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[name]
	return m, ok
}

// List returns every registered plugin name in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.manifests))
	for name := range r.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns a snapshot of every registered manifest.
func (r *Registry) GetAll() map[string]*Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Manifest, len(r.manifests))
	for name, m := range r.manifests {
		result[name] = m
	}
	return result
}

// LoadDir parses the manifest at <dir>/<manifestFilename>, registers it, and
// returns it.
func (r *Registry) LoadDir(dir, manifestFilename string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFilename)
	m, err := ParseFile(path, dir)
	if err != nil {
		return nil, err
	}
	if err := r.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}
