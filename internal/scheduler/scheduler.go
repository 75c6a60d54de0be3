// Package scheduler implements the schedule_heartbeat tool: bounded,
// per-session scheduling of future agent wake-ups, persisted through
// internal/store and exposed to the agent through an mcp-go tool schema so
// the same schema can also be hosted over an MCP transport.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/opencrust/opencrust/errors"
	"github.com/opencrust/opencrust/internal/store"
)

// MaxDelaySeconds is the largest delay a heartbeat may be scheduled for (30
// days), per spec invariant "a scheduled task's delay is in (0, 30 days]".
const MaxDelaySeconds = 30 * 24 * 60 * 60

// ToolName is the name the tool is registered under on both the in-process
// agent tool surface and any MCP transport.
const ToolName = "schedule_heartbeat"

// Request is the fully-resolved input to Schedule: the declared tool
// arguments plus the caller-identity fields threaded through ctx.
type Request struct {
	SessionID    string
	User         string
	IsHeartbeat  bool
	DelaySeconds int
	Reason       string
}

// Scheduler persists heartbeat tasks through a session store.
type Scheduler struct {
	store      *store.Store
	maxPending int
}

// New returns a Scheduler backed by s, capping each session at maxPending
// simultaneous pending tasks. A non-positive maxPending falls back to
// store.MaxPendingTasksPerSession.
func New(s *store.Store, maxPending int) *Scheduler {
	if maxPending <= 0 {
		maxPending = store.MaxPendingTasksPerSession
	}
	return &Scheduler{store: s, maxPending: maxPending}
}

// Schedule validates req and, if it passes every guard, persists a new
// pending task and returns the success text the tool reports back to the
// agent.
func (sch *Scheduler) Schedule(ctx context.Context, req Request) (string, error) {
	if req.IsHeartbeat {
		return "", errors.NewKind(errors.KindAgent, "cannot schedule a heartbeat from within a heartbeat execution")
	}

	if req.DelaySeconds < 1 || req.DelaySeconds > MaxDelaySeconds {
		return "", errors.NewKind(errors.KindAgent, fmt.Sprintf(
			"delay_seconds must be between 1 and %d, got %d", MaxDelaySeconds, req.DelaySeconds))
	}

	if req.Reason == "" {
		return "", errors.NewKind(errors.KindAgent, "reason is required")
	}

	if req.SessionID == "" {
		return "", errors.NewKind(errors.KindAgent, "no session associated with this call")
	}

	pending, err := sch.store.CountPendingTasksForSession(req.SessionID)
	if err != nil {
		return "", err
	}
	if pending >= sch.maxPending {
		return "", errors.NewKind(errors.KindAgent, fmt.Sprintf(
			"too many pending heartbeats for this session: %d of %d pending heartbeats already scheduled",
			pending, sch.maxPending))
	}

	now := time.Now().UTC()
	fireAt := now.Add(time.Duration(req.DelaySeconds) * time.Second)

	taskID, err := sch.store.ScheduleTask(req.SessionID, req.User, fireAt, req.Reason)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Heartbeat scheduled for %s (in %d seconds). Task ID: %d",
		fireAt.Format(time.RFC3339), req.DelaySeconds, taskID,
	), nil
}
