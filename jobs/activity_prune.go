package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

const defaultRetentionDays = 90

// ActivityPruner deletes old activity runs.
type ActivityPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// ActivityPruneJob trims the activity log on a schedule.
type ActivityPruneJob struct {
	Repo    ActivityPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewActivityPruneJob constructs the handler.
func NewActivityPruneJob(repo ActivityPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityPruneJob {
	return &ActivityPruneJob{Repo: repo, Logger: logger, Metrics: metrics}
}

// Handle satisfies asynq.HandlerFunc.
func (j *ActivityPruneJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.Metrics.Track(TaskActivityPrune)
	payload := ActivityPrunePayload{RetentionDays: defaultRetentionDays}
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return tracker.End(fmt.Errorf("decode prune payload: %v: %w", err, asynq.SkipRetry))
		}
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultRetentionDays
	}
	removed, err := j.Repo.Prune(ctx, time.Duration(payload.RetentionDays)*24*time.Hour)
	if err != nil {
		return tracker.End(err)
	}
	if j.Logger != nil {
		j.Logger.Info("activity pruned", slog.Int64("removed", removed), slog.Int("retention_days", payload.RetentionDays))
	}
	return tracker.End(nil)
}
