package config

import (
	"fmt"

	"github.com/opencrust/opencrust/errors"
)

// Validate checks that the configuration's values are internally
// consistent. It does not check filesystem reachability of configured
// paths; callers that depend on a path existing surface that error
// themselves when they open it.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewKind(errors.KindConfig, fmt.Sprintf(
			"server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Scheduler.MaxPendingTasksPerSession <= 0 {
		return errors.NewKind(errors.KindConfig, fmt.Sprintf(
			"scheduler.max_pending_tasks_per_session must be > 0, got %d",
			c.Scheduler.MaxPendingTasksPerSession))
	}

	if c.Scheduler.PollIntervalSeconds <= 0 {
		return errors.NewKind(errors.KindConfig, fmt.Sprintf(
			"scheduler.poll_interval_seconds must be > 0, got %d",
			c.Scheduler.PollIntervalSeconds))
	}

	return nil
}
