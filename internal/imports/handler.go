package imports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/orders"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

const maxMultipartMemory = 8 << 20

// Loader is the contract the upload handler needs from Service.
type Loader interface {
	Load(ctx context.Context, schemaName, filename string, data []byte, meta map[string]any) (Outcome, error)
}

// Handler accepts spreadsheet uploads.
type Handler struct {
	logger *slog.Logger
	loader Loader
}

// NewHandler constructs the upload handler.
func NewHandler(logger *slog.Logger, loader Loader) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, loader: loader}
}

// MountRoutes registers import endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(auth.RequireAny(auth.PermImportsRun))
	r.Get("/", h.handleSchemas)
	r.Post("/{schema}", h.handleUpload)
}

type schemaView struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

func (h *Handler) handleSchemas(w http.ResponseWriter, r *http.Request) {
	views := make([]schemaView, 0, len(Schemas))
	for name, schema := range Schemas {
		view := schemaView{Name: name}
		for _, req := range schema.Requirements {
			view.Columns = append(view.Columns, req.Name)
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	httpx.OK(w, http.StatusOK, views)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "could not read the file")
		return
	}

	meta := make(map[string]any, len(r.MultipartForm.Value)+1)
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			meta[key] = strings.TrimSpace(values[0])
		}
	}
	if actor := auth.Actor(r.Context()); actor != "" {
		meta["actor"] = actor
	}

	outcome, err := h.loader.Load(r.Context(), chi.URLParam(r, "schema"), header.Filename, data, meta)
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

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var missing *MissingColumnError
	switch {
	case errors.Is(err, ErrUnknownSchema), errors.Is(err, orders.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTooLarge):
		httpx.Fail(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrDocumentLocked):
		httpx.Fail(w, http.StatusConflict, err.Error())
	case errors.As(err, &missing),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrMissingDocument):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("import failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, strapi.Message(err, http.StatusText(http.StatusInternalServerError)))
	}
}
