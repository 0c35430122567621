package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/internal/imports"
	jobmetrics "github.com/odyssey-erp/odyssey-wms/internal/jobs"
)

// ImportProcessor consumes a queued import batch.
type ImportProcessor interface {
	Process(ctx context.Context, batch imports.Batch) (imports.Outcome, error)
}

// ImportRowsJob executes queued imports.
type ImportRowsJob struct {
	Service ImportProcessor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewImportRowsJob constructs the handler.
func NewImportRowsJob(service ImportProcessor, logger *slog.Logger, metrics *jobmetrics.Metrics) *ImportRowsJob {
	return &ImportRowsJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle satisfies asynq.HandlerFunc. Consumer errors are not retried
// because rows already written would be written twice.
func (j *ImportRowsJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.Metrics.Track(TaskImportRows)
	var batch imports.Batch
	if err := json.Unmarshal(task.Payload(), &batch); err != nil {
		return tracker.End(fmt.Errorf("decode import payload: %v: %w", err, asynq.SkipRetry))
	}
	out, err := j.Service.Process(ctx, batch)
	if err != nil {
		return tracker.End(fmt.Errorf("import %s: %v: %w", batch.RunID, err, asynq.SkipRetry))
	}
	j.Metrics.AddUnits(TaskImportRows, out.Result.SucceededCount(), out.Result.FailedCount())
	if j.Logger != nil {
		j.Logger.Info("import job completed",
			slog.String("run_id", batch.RunID.String()),
			slog.String("schema", batch.Schema),
			slog.String("summary", out.Summary))
	}
	return tracker.End(nil)
}
