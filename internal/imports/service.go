package imports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
)

var (
	// ErrUnknownSchema is returned for an import kind with no registered consumer.
	ErrUnknownSchema = errors.New("unknown import type")
	// ErrTooLarge is returned when the upload exceeds the configured cap.
	ErrTooLarge = errors.New("the file is too large")
)

// RowsHandler consumes the rows of one validated file. remove asks the
// caller to discard the uploaded file; meta is the context the upload was
// made with (target document, user, ...).
type RowsHandler func(ctx context.Context, rows []Row, remove func(), meta map[string]any) (bulk.Result, error)

// Batch is a validated file waiting to be consumed.
type Batch struct {
	RunID  uuid.UUID      `json:"runId"`
	Schema string         `json:"schema"`
	Rows   []Row          `json:"rows"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Enqueuer hands a batch to the background worker.
type Enqueuer interface {
	EnqueueImport(ctx context.Context, batch Batch) error
}

// Recorder persists the outcome of a run.
type Recorder interface {
	Record(ctx context.Context, run activity.Run) error
}

// Outcome is returned to the uploader.
type Outcome struct {
	RunID   uuid.UUID   `json:"runId"`
	Schema  string      `json:"schema"`
	Rows    int         `json:"rows"`
	Queued  bool        `json:"queued"`
	Removed bool        `json:"removed"`
	Result  bulk.Result `json:"result"`
	Summary string      `json:"summary,omitempty"`
}

// Config tunes the import service.
type Config struct {
	MaxBytes int64
	Async    bool
}

type registration struct {
	schema  Schema
	handler RowsHandler
}

// Service parses, validates and dispatches uploads.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	enqueuer Enqueuer

	mu       sync.RWMutex
	handlers map[string]registration
}

// NewService constructs the import service. recorder and enqueuer may be nil.
func NewService(cfg Config, logger *slog.Logger, recorder Recorder, enqueuer Enqueuer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		enqueuer: enqueuer,
		handlers: make(map[string]registration),
	}
}

// Register binds a schema to the consumer of its rows.
func (s *Service) Register(schema Schema, handler RowsHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[schema.Name] = registration{schema: schema, handler: handler}
}

func (s *Service) lookup(name string) (registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.handlers[name]
	if !ok {
		return registration{}, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return reg, nil
}

// Load parses and validates an upload, then consumes it in-line or queues
// it when async mode is on.
func (s *Service) Load(ctx context.Context, schemaName, filename string, data []byte, meta map[string]any) (Outcome, error) {
	reg, err := s.lookup(schemaName)
	if err != nil {
		return Outcome{}, err
	}
	if s.cfg.MaxBytes > 0 && int64(len(data)) > s.cfg.MaxBytes {
		return Outcome{}, ErrTooLarge
	}
	rows, err := Parse(filename, data)
	if err != nil {
		return Outcome{}, err
	}
	if err := Validate(rows, reg.schema.Requirements); err != nil {
		return Outcome{}, err
	}

	batch := Batch{RunID: uuid.New(), Schema: schemaName, Rows: rows, Meta: meta}
	if s.cfg.Async && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueImport(ctx, batch); err != nil {
			return Outcome{}, fmt.Errorf("enqueue import: %w", err)
		}
		s.logger.Info("import queued", slog.String("run_id", batch.RunID.String()), slog.String("schema", schemaName), slog.Int("rows", len(rows)))
		return Outcome{RunID: batch.RunID, Schema: schemaName, Rows: len(rows), Queued: true}, nil
	}
	return s.Process(ctx, batch)
}

// Process hands a validated batch to its consumer and records the run.
func (s *Service) Process(ctx context.Context, batch Batch) (Outcome, error) {
	reg, err := s.lookup(batch.Schema)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{RunID: batch.RunID, Schema: batch.Schema, Rows: len(batch.Rows)}
	result, err := reg.handler(ctx, batch.Rows, func() { out.Removed = true }, batch.Meta)
	if err != nil {
		s.logger.Error("import failed", slog.String("run_id", batch.RunID.String()), slog.String("schema", batch.Schema), slog.Any("error", err))
		return Outcome{}, err
	}
	out.Result = result
	out.Summary = result.Summary()

	if s.recorder != nil {
		run := activity.Run{
			ID:        batch.RunID,
			Kind:      activity.KindImport,
			Subject:   batch.Schema,
			Actor:     cast.ToString(batch.Meta["actor"]),
			Succeeded: result.SucceededCount(),
			Failed:    result.FailedCount(),
			Failures:  result.Failures,
		}
		if err := s.recorder.Record(ctx, run); err != nil {
			s.logger.Warn("record import run", slog.String("run_id", batch.RunID.String()), slog.Any("error", err))
		}
	}
	s.logger.Info("import processed", slog.String("run_id", batch.RunID.String()), slog.String("schema", batch.Schema), slog.String("summary", out.Summary))
	return out, nil
}
