package activity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// Store is what the handler reads runs from.
type Store interface {
	List(ctx context.Context, kind Kind, limit int) ([]Run, error)
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
}

// Handler exposes the activity log.
type Handler struct {
	logger *slog.Logger
	store  Store
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, store Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.store.List(r.Context(), Kind(r.URL.Query().Get("kind")), limit)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	httpx.OK(w, http.StatusOK, runs)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid run id")
		return
	}
	run, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Fail(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("get activity", slog.String("id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, run)
}
