package sandbox

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/opencrust/opencrust/errors"
)

// Manager owns one Runtime per registered plugin, recreating it whenever a
// call times out (see Runtime.Execute) or hasn't been built yet.
type Manager struct {
	registry *Registry
	log      *zap.SugaredLogger

	mu       sync.Mutex
	runtimes map[string]*Runtime
}

// NewManager returns a Manager backed by registry.
func NewManager(registry *Registry, log *zap.SugaredLogger) *Manager {
	return &Manager{registry: registry, log: log, runtimes: make(map[string]*Runtime)}
}

// Run executes the named plugin's module once, building (or rebuilding) its
// Runtime as needed.
func (m *Manager) Run(ctx context.Context, name string, input Input) (Result, ResultKind, error) {
	manifest, ok := m.registry.Get(name)
	if !ok {
		return Result{}, ResultError, errors.NewKind(errors.KindNotFound, "plugin not registered: "+name)
	}

	rt, err := m.runtimeFor(ctx, manifest)
	if err != nil {
		return Result{}, ResultError, err
	}

	result, kind, err := rt.Execute(ctx, input)
	if kind == ResultTimeout {
		m.discard(name)
	}
	return result, kind, err
}

func (m *Manager) runtimeFor(ctx context.Context, manifest *Manifest) (*Runtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.runtimes[manifest.Name]; ok {
		return rt, nil
	}

	wasmPath := manifest.Root + "/plugin.wasm"
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindPlugin, "read plugin module")
	}

	rt, err := NewRuntime(ctx, manifest, wasmBytes, m.log)
	if err != nil {
		return nil, err
	}
	m.runtimes[manifest.Name] = rt
	return rt, nil
}

func (m *Manager) discard(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rt, ok := m.runtimes[name]; ok {
		rt.Close(context.Background())
		delete(m.runtimes, name)
	}
}

// Close tears down every live Runtime.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, rt := range m.runtimes {
		if err := rt.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.runtimes, name)
	}
	return firstErr
}
