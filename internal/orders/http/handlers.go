package ordershttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/orders"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/returns"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DocumentService is the contract the handler needs from orders.Service.
type DocumentService interface {
	List(ctx context.Context, filter documents.ListFilter) ([]orders.ListItem, orders.Page, error)
	Stats(ctx context.Context, filter documents.ListFilter) (documents.Stats, error)
	Detail(ctx context.Context, id int64) (*orders.Detail, error)
	Update(ctx context.Context, id int64, req documents.UpdateRequest) (*documents.Document, error)
	UpdateLine(ctx context.Context, id, lineID int64, req documents.UpdateLineRequest) (*documents.Document, error)
	Transition(ctx context.Context, id int64, target documents.State) (*documents.Document, error)
	Delete(ctx context.Context, id int64) error
	AddItem(ctx context.Context, id int64, req documents.AddItemRequest) (*documents.Document, error)
	DeleteItem(ctx context.Context, id, itemID int64) (*documents.Document, error)
	Bulk(ctx context.Context, req documents.BulkRequest, actor string) (orders.BulkOutcome, error)
	PreviewReturn(ctx context.Context, sourceID int64, req orders.ReturnRequest) (*orders.ReturnPreview, error)
	CreateReturn(ctx context.Context, sourceID int64, req orders.ReturnRequest) (*documents.Document, error)
	Export(ctx context.Context, id int64) ([]byte, string, error)
}

// Handler serves the warehouse documents API.
type Handler struct {
	logger   *slog.Logger
	service  DocumentService
	validate *validator.Validate
}

// NewHandler constructs the documents HTTP handler.
func NewHandler(logger *slog.Logger, service DocumentService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	items, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OKWithMeta(w, items, map[string]any{"pagination": page})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := h.service.Stats(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, stats)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.service.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req documents.UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, doc)
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}
	var req documents.UpdateLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.UpdateLine(r.Context(), id, lineID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, doc)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req documents.TransitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.Transition(r.Context(), id, req.State)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, doc)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req documents.AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.AddItem(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, doc)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}
	doc, err := h.service.DeleteItem(r.Context(), id, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, doc)
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req documents.BulkRequest
	if !h.decode(w, r, &req) {
		return
	}
	outcome, err := h.service.Bulk(r.Context(), req, auth.Actor(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if outcome.Queued {
		status = http.StatusAccepted
	}
	httpx.OK(w, status, outcome)
}

func (h *Handler) handlePreviewReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orders.ReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	preview, err := h.service.PreviewReturn(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, preview)
}

func (h *Handler) handleCreateReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req orders.ReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	doc, err := h.service.CreateReturn(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, doc)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, filename, err := h.service.Export(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.ValidationMessage(err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("documents request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Fail(w, status, http.StatusText(status))
		return
	}
	httpx.Fail(w, status, strapi.Message(err, err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrLineNotFound),
		errors.Is(err, orders.ErrItemNotFound),
		errors.Is(err, returns.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrReadOnly),
		errors.Is(err, orders.ErrCannotDelete),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, returns.ErrSourceNotReturnable):
		return http.StatusConflict
	case errors.Is(err, orders.ErrUnknownAction),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, returns.ErrEmptyReturn),
		errors.Is(err, returns.ErrNotSelected),
		errors.Is(err, strapi.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, strapi.ErrNotFound):
		return http.StatusNotFound
	}
	var apiErr *strapi.Error
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid "+strings.TrimSuffix(name, "ID")+" id")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (documents.ListFilter, error) {
	q := r.URL.Query()
	filter := documents.ListFilter{
		Search: strings.TrimSpace(q.Get("q")),
		Sort:   strings.TrimSpace(q.Get("sort")),
	}
	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		t := documents.Type(raw)
		if !t.IsValid() {
			return filter, errors.New("invalid document type")
		}
		filter.Type = &t
	}
	if raw := strings.TrimSpace(q.Get("state")); raw != "" {
		s := documents.State(raw)
		if !s.IsValid() {
			return filter, errors.New("invalid document state")
		}
		filter.State = &s
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, errors.New("invalid page")
		}
		filter.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > 100 {
			return filter, errors.New("pageSize must be between 1 and 100")
		}
		filter.PageSize = size
	}
	return filter, nil
}
