package scheduler

import "context"

// Context keys carrying the caller identity and heartbeat-recursion flag
// that the schedule_heartbeat tool schema itself has no room for — mcp-go's
// CallToolRequest only carries the declared {delay_seconds, reason}
// arguments, so the agent runtime threads session/user/is_heartbeat through
// ctx before invoking the tool handler.
type contextKey string

const (
	sessionIDKey   contextKey = "scheduler_session_id"
	userKey        contextKey = "scheduler_user"
	isHeartbeatKey contextKey = "scheduler_is_heartbeat"
)

// WithSessionID attaches the calling session's id to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithUser attaches the calling user's id to ctx.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithHeartbeat marks ctx as running inside a heartbeat re-entry, so a
// nested schedule_heartbeat call can be refused.
func WithHeartbeat(ctx context.Context, isHeartbeat bool) context.Context {
	return context.WithValue(ctx, isHeartbeatKey, isHeartbeat)
}

func sessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

func userFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

func isHeartbeatFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(isHeartbeatKey).(bool)
	return v
}
