package gateway

import (
	"sync"

	"github.com/gorilla/websocket"
)

// session is one live WebSocket connection's in-process state. Durable
// identity lives in the session store; this struct only tracks what's
// needed to route outbound frames to the right socket while it's open.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// sessionRegistry is the in-process concurrent map of live sessions,
// separate from the durable record in the session store: a session can
// exist in the store (resumable) without being live here, and disappears
// from here the instant its connection drops.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
