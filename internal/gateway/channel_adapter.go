package gateway

import (
	"context"
	"strconv"

	"github.com/opencrust/opencrust/internal/channel"
)

// WebSocketChannel adapts a Gateway to the channel.Channel contract, so
// the WebSocket transport is just one more entry in the Channel Registry
// rather than a special case the registry's caller has to know about.
type WebSocketChannel struct {
	gw *Gateway
}

// NewWebSocketChannel wraps gw as a named channel.
func NewWebSocketChannel(gw *Gateway) *WebSocketChannel {
	return &WebSocketChannel{gw: gw}
}

func (c *WebSocketChannel) Name() string { return "websocket" }

// Connect is a no-op: the gateway's HTTP upgrade endpoint is already
// listening once the server starts, independent of registration here.
func (c *WebSocketChannel) Connect(ctx context.Context) error { return nil }

// Disconnect is a no-op for the same reason Connect is: the gateway's
// lifecycle is tied to the HTTP server, not to this registry entry.
func (c *WebSocketChannel) Disconnect(ctx context.Context) error { return nil }

// SendMessage delivers content to sessionID's live connection, if any.
func (c *WebSocketChannel) SendMessage(ctx context.Context, sessionID, content string) error {
	c.gw.Notify(sessionID, content)
	return nil
}

// Status reports how many connections are currently live.
func (c *WebSocketChannel) Status() channel.Status {
	return channel.Status{Connected: true, Detail: "sessions: " + strconv.Itoa(c.gw.sessions.count())}
}
