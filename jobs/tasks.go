package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/internal/imports"
	"github.com/odyssey-erp/odyssey-wms/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueImports holds spreadsheet imports so large files do not starve bulk actions.
	QueueImports = "imports"

	// TaskBulkAction applies one bulk action to a set of documents.
	TaskBulkAction = "documents:bulk_transition"
	// TaskImportRows consumes the rows of a validated upload.
	TaskImportRows = "imports:rows"
	// TaskActivityPrune removes old activity runs.
	TaskActivityPrune = "activity:prune"
)

// ActivityPrunePayload configures how long runs are kept.
type ActivityPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewBulkActionTask wraps a bulk job. The run id doubles as task id so a
// resubmitted job is rejected by the queue.
func NewBulkActionTask(job orders.BulkJob) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBulkAction, data,
		asynq.Queue(QueueDefault),
		asynq.TaskID(job.RunID.String()),
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Minute),
	), nil
}

// NewImportRowsTask wraps a validated import batch.
func NewImportRowsTask(batch imports.Batch) (*asynq.Task, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImportRows, data,
		asynq.Queue(QueueImports),
		asynq.TaskID(batch.RunID.String()),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
	), nil
}

// NewActivityPruneTask constructs the scheduled prune task.
func NewActivityPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ActivityPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPrune, data, asynq.Queue(QueueDefault)), nil
}
