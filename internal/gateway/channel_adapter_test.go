package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketChannelName(t *testing.T) {
	g, _ := newTestGateway(t)
	ch := NewWebSocketChannel(g)
	assert.Equal(t, "websocket", ch.Name())
}

func TestWebSocketChannelSendMessageToUnknownSessionIsNotAnError(t *testing.T) {
	g, _ := newTestGateway(t)
	ch := NewWebSocketChannel(g)
	require.NoError(t, ch.SendMessage(context.Background(), "does-not-exist", "hello"))
}

func TestWebSocketChannelStatusReportsSessionCount(t *testing.T) {
	g, srv := newTestGateway(t)
	conn := dial(t, srv)
	_ = readFrame(t, conn)

	ch := NewWebSocketChannel(g)
	status := ch.Status()
	assert.True(t, status.Connected)
	assert.Contains(t, status.Detail, "1")
}
