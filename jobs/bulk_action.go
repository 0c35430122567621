package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
	"github.com/odyssey-erp/odyssey-wms/internal/orders"
)

// BulkProcessor runs a queued bulk job.
type BulkProcessor interface {
	ProcessBulk(ctx context.Context, job orders.BulkJob) (bulk.Result, error)
}

// BulkActionJob executes queued bulk actions.
type BulkActionJob struct {
	Service BulkProcessor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewBulkActionJob constructs the handler.
func NewBulkActionJob(service BulkProcessor, logger *slog.Logger, metrics *jobmetrics.Metrics) *BulkActionJob {
	return &BulkActionJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle satisfies asynq.HandlerFunc.
func (j *BulkActionJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.Metrics.Track(TaskBulkAction)
	var job orders.BulkJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return tracker.End(fmt.Errorf("decode bulk payload: %v: %w", err, asynq.SkipRetry))
	}
	if len(job.IDs) == 0 {
		return tracker.End(fmt.Errorf("bulk job %s has no ids: %w", job.RunID, asynq.SkipRetry))
	}
	result, err := j.Service.ProcessBulk(ctx, job)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddUnits(TaskBulkAction, result.SucceededCount(), result.FailedCount())
	if j.Logger != nil {
		j.Logger.Info("bulk job completed",
			slog.String("run_id", job.RunID.String()),
			slog.String("action", string(job.Action)),
			slog.String("summary", result.Summary()))
	}
	return tracker.End(nil)
}
