package entities

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

// Handler serves generic CRUD for products, warehouses and partners.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the entities handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers entity endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAny(auth.PermEntitiesView))
		gr.Get("/", h.handleNames)
		gr.Get("/{name}/config", h.handleConfig)
		gr.Get("/{name}", h.handleList)
		gr.Get("/{name}/{id}", h.handleGet)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAny(auth.PermEntitiesEdit))
		gr.Post("/{name}", h.handleCreate)
		gr.Patch("/{name}/{id}", h.handleUpdate)
		gr.Delete("/{name}/{id}", h.handleDelete)
	})
}

func (h *Handler) handleNames(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, h.service.registry.Names())
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Config(chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, cfg)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListParams{
		Search: strings.TrimSpace(q.Get("q")),
		Sort:   strings.TrimSpace(q.Get("sort")),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("pageSize"))
	records, page, err := h.service.List(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []Record{}
	}
	httpx.OKWithMeta(w, records, map[string]any{"pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "name"), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, rec)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.service.Create(r.Context(), chi.URLParam(r, "name"), rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var rec Record
	if err := httpx.DecodeJSON(r, &rec); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "name"), id, rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "name"), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *FieldError
	switch {
	case errors.Is(err, ErrUnknownEntity), errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.As(err, &fieldErr):
		httpx.Fail(w, http.StatusBadRequest, fieldErr.Message)
	case errors.Is(err, strapi.ErrInvalidRequest):
		httpx.Fail(w, http.StatusBadRequest, strapi.Message(err, "the record could not be saved"))
	default:
		h.logger.Error("entities request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, http.StatusText(http.StatusBadGateway))
	}
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}
