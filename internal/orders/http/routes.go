package ordershttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// MountRoutes registers document endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAny(auth.PermDocumentsView))
		gr.Get("/", h.handleList)
		gr.Get("/stats", h.handleStats)
		gr.Get("/{id}", h.handleDetail)
		gr.With(limiter).Get("/{id}/export.xlsx", h.handleExport)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAny(auth.PermDocumentsEdit))
		gr.Patch("/{id}", h.handleUpdate)
		gr.Patch("/{id}/lines/{lineID}", h.handleUpdateLine)
		gr.Post("/{id}/transition", h.handleTransition)
		gr.Delete("/{id}", h.handleDelete)
		gr.Post("/{id}/items", h.handleAddItem)
		gr.Delete("/{id}/items/{itemID}", h.handleDeleteItem)
	})
	r.With(auth.RequireAny(auth.PermDocumentsBulk)).Post("/bulk", h.handleBulk)
	r.Group(func(gr chi.Router) {
		gr.Use(auth.RequireAny(auth.PermDocumentsReturn))
		gr.Post("/{id}/returns/preview", h.handlePreviewReturn)
		gr.Post("/{id}/returns", h.handleCreateReturn)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := auth.Actor(r.Context()); actor != "" {
		return "user:" + actor, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
