package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis options.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: asynq.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported maintenance job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, retentionDays int) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskActivityPrune:
		task, err := jobs.NewActivityPruneTask(retentionDays)
		if err != nil {
			return nil, err
		}
		return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueues reports metrics for every queue the worker serves.
func (c *JobsCLI) InspectQueues(ctx context.Context) ([]QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	var out []QueueStats
	for _, queue := range []string{jobs.QueueDefault, jobs.QueueImports} {
		stats := QueueStats{Queue: queue}
		info, err := c.inspector.GetQueueInfo(queue)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			out = append(out, stats)
			continue
		}
		if err != nil {
			return nil, err
		}
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
		out = append(out, stats)
	}
	return out, nil
}

// ListArchived returns failed tasks of a queue, most useful for bulk
// actions and imports that are never retried automatically.
func (c *JobsCLI) ListArchived(ctx context.Context, queue string, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListArchivedTasks(queue, asynq.PageSize(size), asynq.Page(1))
}
