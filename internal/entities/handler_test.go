package entities

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

func newEntitiesRouter(cmsURL, role string) http.Handler {
	svc := NewService(strapi.NewClient(cmsURL, "", time.Second), nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			p := &auth.Principal{Subject: "1", Role: role, Permissions: auth.RolePermissions(role)}
			next.ServeHTTP(w, req.WithContext(auth.ContextWithPrincipal(req.Context(), p)))
		})
	})
	r.Route("/entities", NewHandler(nil, svc).MountRoutes)
	return r
}

func TestHandlerConfigAndNames(t *testing.T) {
	router := newEntitiesRouter("http://127.0.0.1:1", auth.RoleViewer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/products/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collection":"products"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"warehouses"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/trucks/config", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCreateValidationError(t *testing.T) {
	router := newEntitiesRouter("http://127.0.0.1:1", auth.RoleAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/entities/products", strings.NewReader(`{"name":"Tornillo"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "is required")
}

func TestHandlerViewerCannotCreate(t *testing.T) {
	router := newEntitiesRouter("http://127.0.0.1:1", auth.RoleViewer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/entities/products", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerListAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/warehouses":
			_, _ = io.WriteString(w, `{"data":[{"id":1,"name":"Central"}],"meta":{"pagination":{"page":1,"pageSize":25,"pageCount":1,"total":1}}}`)
		case "/api/warehouses/1":
			_, _ = io.WriteString(w, `{"data":{"id":1,"name":"Central"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	router := newEntitiesRouter(srv.URL, auth.RoleViewer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/warehouses?q=cen", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/warehouses/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Central"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entities/warehouses/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
