// Package channel defines the small capability interface message
// transports implement (connect, disconnect, send_message, status) and a
// concurrent registry that holds whichever channels are configured. The
// gateway registers itself here under the name "websocket"; other
// transports (iMessage, etc.) are out of scope but would register the same
// way.
package channel

import (
	"context"
	"sort"
	"sync"

	"github.com/opencrust/opencrust/errors"
)

// Status summarizes a channel's current health for the status surface.
type Status struct {
	Connected bool
	Detail    string
}

// Channel is a polymorphic message transport. Implementations must be safe
// for concurrent use, since the registry makes no attempt to serialize
// calls to a single channel.
type Channel interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	SendMessage(ctx context.Context, sessionID, content string) error
	Status() Status
}

// Registry holds every registered channel, keyed by name, the way the
// plugin manifest registry holds plugins: a RWMutex-guarded map, no
// lifecycle management beyond register/lookup/list.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry returns an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds ch under its own Name(). Returns an error if a channel
// with that name is already registered.
func (r *Registry) Register(ch Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ch.Name()
	if _, exists := r.channels[name]; exists {
		return errors.NewKind(errors.KindChannel, "channel already registered: "+name)
	}
	r.channels[name] = ch
	return nil
}

// Get retrieves a channel by name.
func (r *Registry) Get(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// List returns every registered channel name in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StatusAll returns a snapshot of every registered channel's current
// Status, keyed by name.
func (r *Registry) StatusAll() map[string]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Status, len(r.channels))
	for name, ch := range r.channels {
		result[name] = ch.Status()
	}
	return result
}
