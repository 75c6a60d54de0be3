package scheduler

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool declares the schedule_heartbeat argument schema so the same
// definition can be hosted both as an in-process agent tool and over an MCP
// server transport for external agent frameworks.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Schedule a future re-entry of the agent for this session."),
		mcp.WithNumber("delay_seconds",
			mcp.Required(),
			mcp.Description("Seconds from now to fire, between 1 and 2592000 (30 days)."),
		),
		mcp.WithString("reason",
			mcp.Required(),
			mcp.Description("Free-text reason recorded with the scheduled wake-up."),
		),
	)
}

// Handler adapts Scheduler.Schedule to an mcp-go tool call: it reads
// delay_seconds/reason from the declared arguments and session/user/
// is_heartbeat from ctx (see WithSessionID, WithUser, WithHeartbeat).
func (sch *Scheduler) Handler() func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		delaySeconds, err := request.RequireInt("delay_seconds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		reason, err := request.RequireString("reason")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req := Request{
			SessionID:    sessionIDFromContext(ctx),
			User:         userFromContext(ctx),
			IsHeartbeat:  isHeartbeatFromContext(ctx),
			DelaySeconds: delaySeconds,
			Reason:       reason,
		}

		text, err := sch.Schedule(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
