package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithSessionID(ctx, "session-9")
	ctx = WithUser(ctx, "user-9")
	ctx = WithHeartbeat(ctx, true)

	assert.Equal(t, "session-9", sessionIDFromContext(ctx))
	assert.Equal(t, "user-9", userFromContext(ctx))
	assert.True(t, isHeartbeatFromContext(ctx))
}

func TestContextHelpersDefaultToZeroValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", sessionIDFromContext(ctx))
	assert.Equal(t, "", userFromContext(ctx))
	assert.False(t, isHeartbeatFromContext(ctx))
}
