package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/invoice"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

// Recorder persists the outcome of bulk runs.
type Recorder interface {
	Record(ctx context.Context, run activity.Run) error
}

// BulkJob is a bulk action handed to the background worker.
type BulkJob struct {
	RunID  uuid.UUID            `json:"runId"`
	Action documents.BulkAction `json:"action"`
	IDs    []int64              `json:"ids"`
	Actor  string               `json:"actor,omitempty"`
}

// BulkEnqueuer queues bulk jobs.
type BulkEnqueuer interface {
	EnqueueBulk(ctx context.Context, job BulkJob) error
}

// BulkOutcome is returned to the caller of a bulk action.
type BulkOutcome struct {
	RunID   uuid.UUID   `json:"runId"`
	Queued  bool        `json:"queued"`
	Result  bulk.Result `json:"result"`
	Summary string      `json:"summary,omitempty"`
}

// Config tunes the service.
type Config struct {
	Taxes []invoice.Tax
	// AsyncBulkThreshold queues bulk actions with at least this many ids
	// when an enqueuer is set. Zero keeps every bulk action in-line.
	AsyncBulkThreshold int
}

// Service provides business logic for warehouse documents.
type Service struct {
	repo     Repository
	cache    *Cache
	cfg      Config
	logger   *slog.Logger
	runner   bulk.Runner
	recorder Recorder
	enqueuer BulkEnqueuer
}

// NewService creates a new service. cache may be nil.
func NewService(repo Repository, cache *Cache, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Taxes) == 0 {
		cfg.Taxes = invoice.DefaultTaxes()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		runner: bulk.Runner{Message: userMessage},
	}
}

// SetRecorder enables activity logging of bulk runs.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetEnqueuer enables background processing of large bulk actions.
func (s *Service) SetEnqueuer(e BulkEnqueuer) {
	s.enqueuer = e
}

// ListItem is one row of the documents table.
type ListItem struct {
	ID             int64                `json:"id"`
	Code           string               `json:"code"`
	Type           documents.Type       `json:"type"`
	State          documents.State      `json:"state"`
	Customer       *documents.Reference `json:"customer,omitempty"`
	Supplier       *documents.Reference `json:"supplier,omitempty"`
	Lines          int                  `json:"lines"`
	Totals         documents.Quantity   `json:"totals"`
	PackingPercent float64              `json:"packingPercent"`
	ReadOnly       bool                 `json:"readOnly"`
}

// LineView is an order line with its state-dependent figures.
type LineView struct {
	documents.OrderProduct
	Current documents.Quantity    `json:"current"`
	Packing documents.PackingLine `json:"packing"`
}

// Detail is everything the document page shows, recomputed per call.
type Detail struct {
	Document documents.Document        `json:"document"`
	ReadOnly bool                      `json:"readOnly"`
	Lines    []LineView                `json:"lines"`
	Totals   documents.Quantity        `json:"totals"`
	Packing  documents.PackingProgress `json:"packing"`
	Invoice  invoice.Summary           `json:"invoice"`
}

// List returns one page of documents with their derived totals.
func (s *Service) List(ctx context.Context, filter documents.ListFilter) ([]ListItem, Page, error) {
	docs, page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	items := make([]ListItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, ListItem{
			ID:             doc.ID,
			Code:           doc.Code,
			Type:           doc.Type,
			State:          doc.State,
			Customer:       doc.Customer,
			Supplier:       doc.Supplier,
			Lines:          len(doc.OrderProducts),
			Totals:         documents.SumQuantities(doc),
			PackingPercent: documents.ComputePackingProgress(doc).DisplayPercent,
			ReadOnly:       doc.ReadOnly(),
		})
	}
	return items, page, nil
}

// Get returns the populated document, from cache when possible.
func (s *Service) Get(ctx context.Context, id int64) (*documents.Document, error) {
	var doc documents.Document
	err := s.cache.FetchJSON(ctx, id, &doc, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Detail derives quantities, packing progress and the invoice.
func (s *Service) Detail(ctx context.Context, id int64) (*Detail, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildDetail(*doc, s.cfg.Taxes), nil
}

// BuildDetail is the pure part of Detail.
func BuildDetail(doc documents.Document, taxes []invoice.Tax) *Detail {
	detail := &Detail{
		Document: doc,
		ReadOnly: doc.ReadOnly(),
		Lines:    make([]LineView, 0, len(doc.OrderProducts)),
		Totals:   documents.SumQuantities(doc),
		Packing:  documents.ComputePackingProgress(doc),
		Invoice:  invoice.Compute(doc.OrderProducts, taxes),
	}
	for _, op := range doc.OrderProducts {
		detail.Lines = append(detail.Lines, LineView{
			OrderProduct: op,
			Current:      documents.SelectQuantity(doc.State, op),
			Packing:      documents.SummarizePackingLine(op),
		})
	}
	return detail
}

// Update changes header fields of an editable document.
func (s *Service) Update(ctx context.Context, id int64, req documents.UpdateRequest) (*documents.Document, error) {
	doc, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if req.Code != nil {
		fields["code"] = *req.Code
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if len(fields) == 0 {
		return doc, nil
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("update document %d: %w", id, err)
	}
	return s.refresh(ctx, id)
}

// UpdateLine changes price or quantity fields of one line.
func (s *Service) UpdateLine(ctx context.Context, id, lineID int64, req documents.UpdateLineRequest) (*documents.Document, error) {
	doc, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if findLine(doc, lineID) == nil {
		return nil, fmt.Errorf("%w: %d", ErrLineNotFound, lineID)
	}
	fields := make(map[string]any)
	setFloat := func(key string, v *float64) {
		if v != nil {
			fields[key] = *v
		}
	}
	setFloat("price", req.Price)
	setFloat("invoicePercentage", req.InvoicePercentage)
	setFloat("requestedQuantity", req.RequestedQuantity)
	setFloat("requestedPackages", req.RequestedPackages)
	setFloat("confirmedQuantity", req.ConfirmedQuantity)
	setFloat("confirmedPackages", req.ConfirmedPackages)
	setFloat("deliveredQuantity", req.DeliveredQuantity)
	setFloat("deliveredPackages", req.DeliveredPackages)
	if req.IVAIncluded != nil {
		fields["ivaIncluded"] = *req.IVAIncluded
	}
	for key, v := range fields {
		if f, ok := v.(float64); ok && f < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, key)
		}
	}
	if len(fields) == 0 {
		return doc, nil
	}
	if err := s.repo.UpdateLine(ctx, lineID, fields); err != nil {
		return nil, fmt.Errorf("update line %d: %w", lineID, err)
	}
	return s.refresh(ctx, id)
}

// Transition moves a document along draft → confirmed → completed, or to
// canceled.
func (s *Service) Transition(ctx context.Context, id int64, target documents.State) (*documents.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.State.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, doc.State, target)
	}
	if err := s.repo.Update(ctx, id, map[string]any{"state": target}); err != nil {
		return nil, fmt.Errorf("transition document %d: %w", id, err)
	}
	return s.refresh(ctx, id)
}

// Delete removes a draft or confirmed document.
func (s *Service) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !doc.State.CanDelete() {
		return fmt.Errorf("%w: %s", ErrCannotDelete, doc.State)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	s.invalidate(ctx, id)
	return nil
}

// AddItem records a packing-list item on a line.
func (s *Service) AddItem(ctx context.Context, id int64, req documents.AddItemRequest) (*documents.Document, error) {
	doc, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if findLine(doc, req.OrderProductID) == nil {
		return nil, fmt.Errorf("%w: %d", ErrLineNotFound, req.OrderProductID)
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	item := documents.Item{
		Quantity:        req.Quantity,
		CurrentQuantity: req.Quantity,
		LotNumber:       req.LotNumber,
		ItemNumber:      req.ItemNumber,
	}
	if req.WarehouseID > 0 {
		item.Warehouse = &documents.Reference{ID: req.WarehouseID}
	}
	if req.ParentItemID > 0 {
		item.ParentItem = &documents.Item{ID: req.ParentItemID}
	}
	if _, err := s.repo.CreateItem(ctx, req.OrderProductID, item); err != nil {
		return nil, err
	}
	return s.refresh(ctx, id)
}

// DeleteItem removes a packing-list item.
func (s *Service) DeleteItem(ctx context.Context, id, itemID int64) (*documents.Document, error) {
	doc, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, item := doc.FindItem(itemID); item == nil {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.refresh(ctx, id)
}

// Stats counts every document matching the filter per state and type.
func (s *Service) Stats(ctx context.Context, filter documents.ListFilter) (documents.Stats, error) {
	filter.State = nil
	filter.PageSize = statsPageSize
	var all []documents.Document
	for page := 1; ; page++ {
		filter.Page = page
		docs, meta, err := s.repo.List(ctx, filter)
		if err != nil {
			return documents.Stats{}, err
		}
		all = append(all, docs...)
		if page >= meta.PageCount || len(docs) == 0 {
			break
		}
	}
	return documents.ComputeStats(all), nil
}

// Bulk applies one action to many documents. Large batches are queued when
// an enqueuer is configured; otherwise every id is processed concurrently
// and failures are reported per id.
func (s *Service) Bulk(ctx context.Context, req documents.BulkRequest, actor string) (BulkOutcome, error) {
	if _, ok := req.Action.TargetState(); !ok && req.Action != documents.BulkDelete {
		return BulkOutcome{}, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
	job := BulkJob{RunID: uuid.New(), Action: req.Action, IDs: req.IDs, Actor: actor}
	if s.enqueuer != nil && s.cfg.AsyncBulkThreshold > 0 && len(req.IDs) >= s.cfg.AsyncBulkThreshold {
		if err := s.enqueuer.EnqueueBulk(ctx, job); err != nil {
			return BulkOutcome{}, fmt.Errorf("enqueue bulk: %w", err)
		}
		return BulkOutcome{RunID: job.RunID, Queued: true}, nil
	}
	result, err := s.ProcessBulk(ctx, job)
	if err != nil {
		return BulkOutcome{}, err
	}
	return BulkOutcome{RunID: job.RunID, Result: result, Summary: result.Summary()}, nil
}

// ProcessBulk runs a bulk job and records its outcome.
func (s *Service) ProcessBulk(ctx context.Context, job BulkJob) (bulk.Result, error) {
	target, isTransition := job.Action.TargetState()
	if !isTransition && job.Action != documents.BulkDelete {
		return bulk.Result{}, fmt.Errorf("%w: %s", ErrUnknownAction, job.Action)
	}
	result, err := s.runner.Run(ctx, job.IDs, func(ctx context.Context, id int64) error {
		if isTransition {
			_, err := s.Transition(ctx, id, target)
			return err
		}
		return s.Delete(ctx, id)
	})
	if err != nil {
		return bulk.Result{}, err
	}

	s.logger.Info("bulk action processed",
		slog.String("run_id", job.RunID.String()),
		slog.String("action", string(job.Action)),
		slog.Int("succeeded", result.SucceededCount()),
		slog.Int("failed", result.FailedCount()))

	if s.recorder != nil {
		run := activity.Run{
			ID:        job.RunID,
			Kind:      activity.KindBulkAction,
			Subject:   "documents:" + string(job.Action),
			Actor:     job.Actor,
			Succeeded: result.SucceededCount(),
			Failed:    result.FailedCount(),
			Failures:  result.Failures,
		}
		if err := s.recorder.Record(ctx, run); err != nil {
			s.logger.Warn("record bulk run", slog.String("run_id", job.RunID.String()), slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Service) editable(ctx context.Context, id int64) (*documents.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ReadOnly() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, doc.State)
	}
	return doc, nil
}

func (s *Service) refresh(ctx context.Context, id int64) (*documents.Document, error) {
	s.invalidate(ctx, id)
	return s.Get(ctx, id)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Bump(ctx, id); err != nil {
		s.logger.Warn("document cache bump", slog.Int64("id", id), slog.Any("error", err))
	}
}

func findLine(doc *documents.Document, lineID int64) *documents.OrderProduct {
	for i := range doc.OrderProducts {
		if doc.OrderProducts[i].ID == lineID {
			return &doc.OrderProducts[i]
		}
	}
	return nil
}

func userMessage(err error) string {
	return strapi.Message(err, err.Error())
}
