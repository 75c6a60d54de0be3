// Package gateway implements OpenCrust's WebSocket session lifecycle:
// connection acceptance, the welcome/resume protocol, oversized-message
// rejection, and prompt-injection screening at the boundary, following the
// teacher's readPump/writePump goroutine-pair-per-connection pattern on
// gorilla/websocket.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/opencrust/opencrust/internal/store"
	"github.com/opencrust/opencrust/internal/validator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Gateway owns the HTTP upgrade endpoint and every live session.
type Gateway struct {
	store     *store.Store
	responder Responder
	log       *zap.SugaredLogger

	upgrader websocket.Upgrader
	sessions *sessionRegistry
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

// WithCheckOrigin overrides the upgrader's origin check. Defaults to
// accepting every origin, matching a gateway meant for local/LAN use.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) { g.upgrader.CheckOrigin = fn }
}

// New builds a Gateway backed by s for durable persistence and responder
// for agent replies.
func New(s *store.Store, responder Responder, log *zap.SugaredLogger, opts ...Option) *Gateway {
	g := &Gateway{
		store:     s,
		responder: responder,
		log:       log,
		sessions:  newSessionRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  FrameSizeLimit,
			WriteBufferSize: FrameSizeLimit,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterRoutes wires /ws, /health, and /api/status onto mux.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/status", g.handleStatus)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "running",
		"sessions": g.sessions.count(),
	})
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if g.log != nil {
			g.log.Warnw("websocket upgrade failed", "error", err)
		}
		return
	}

	sessionID := uuid.NewString()
	sess := &session{id: sessionID, conn: conn, send: make(chan []byte, 16)}
	g.sessions.add(sess)

	if g.store != nil {
		if err := g.store.CreateSession(sessionID, "", "websocket"); err != nil && g.log != nil {
			g.log.Warnw("failed to persist new session", "session_id", sessionID, "error", err)
		}
	}

	go g.writePump(sess)
	g.sendFrame(sess, connectedFrame(sessionID))

	g.readPump(sess)
}

// readPump owns the connection's reads and is the only goroutine that ever
// calls conn.ReadMessage; writes are serialized exclusively through
// writePump via sess.send, so the two never race on the socket.
func (g *Gateway) readPump(sess *session) {
	// Closing sess.send (rather than the connection directly) lets
	// writePump flush any frame already queued — e.g. the
	// message_too_large error sent just before this loop returns — before
	// it sends a close frame and closes the socket itself.
	defer func() {
		g.sessions.remove(sess.id)
		close(sess.send)
	}()

	sess.conn.SetReadLimit(MessageSizeLimit)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		sess.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if len(data) > TextPayloadLimit {
			g.sendFrame(sess, messageTooLargeFrame())
			return
		}

		if !g.handleTextFrame(sess, data) {
			return
		}
	}
}

// handleTextFrame processes one validated text frame. Returns false when
// the connection should be terminated.
func (g *Gateway) handleTextFrame(sess *session, data []byte) bool {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.sendFrame(sess, errorFrame("invalid_frame"))
		return true
	}

	if frame.Type == "resume" {
		g.handleResume(sess, frame.SessionID)
		return true
	}

	if validator.IsPromptInjection(frame.Content) {
		g.sendFrame(sess, promptInjectionFrame())
		return true
	}

	g.handleMessage(sess, frame.Content)
	return true
}

func (g *Gateway) handleResume(sess *session, requestedID string) {
	if _, live := g.sessions.get(requestedID); live {
		g.sendFrame(sess, resumedFrame(requestedID))
		return
	}
	if g.store != nil {
		if s, err := g.store.GetSession(requestedID); err == nil && s != nil {
			g.sendFrame(sess, resumedFrame(requestedID))
			return
		}
	}
	g.sendFrame(sess, unknownSessionFrame())
}

func (g *Gateway) handleMessage(sess *session, content string) {
	if g.store != nil {
		if _, err := g.store.AppendMessage(sess.id, "user", content); err != nil && g.log != nil {
			g.log.Warnw("failed to persist inbound message", "session_id", sess.id, "error", err)
		}
	}

	reply, err := g.responder.Respond(context.Background(), sess.id, content)
	if err != nil {
		if g.log != nil {
			g.log.Warnw("agent responder failed", "session_id", sess.id, "error", err)
		}
		return
	}

	if g.store != nil {
		if _, err := g.store.AppendMessage(sess.id, "assistant", reply); err != nil && g.log != nil {
			g.log.Warnw("failed to persist outbound message", "session_id", sess.id, "error", err)
		}
	}

	g.sendFrame(sess, messageFrame(sess.id, reply))
}

// Notify pushes a message frame to sessionID's live connection, if it has
// one. Used by the heartbeat dispatcher to deliver a fired task's reply
// without waiting on the client to send anything first. Reports whether
// a live connection was found.
func (g *Gateway) Notify(sessionID, content string) bool {
	sess, ok := g.sessions.get(sessionID)
	if !ok {
		return false
	}
	g.sendFrame(sess, messageFrame(sessionID, content))
	return true
}

func (g *Gateway) sendFrame(sess *session, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case sess.send <- data:
	default:
	}
}

// writePump owns the connection's writes: every outbound frame and every
// keepalive ping flows through sess.send so there is exactly one writer.
func (g *Gateway) writePump(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
