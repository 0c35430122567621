package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-wms/internal/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newRouter(t *testing.T, apiKeyHash string) http.Handler {
	t.Helper()
	h := auth.NewHandler(nil, auth.NewAuthenticator(testSecret, apiKeyHash))
	r := chi.NewRouter()
	r.Use(h.Middleware)
	r.Route("/auth", h.MountRoutes)
	r.With(auth.RequireAny(auth.PermActivityView)).Get("/activity", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(auth.RequireAll(auth.PermDocumentsView, auth.PermDocumentsEdit)).Get("/edit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsCMSToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"id": 42, "exp": time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newRouter(t, "").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data auth.Principal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "42", body.Data.Subject)
	assert.Equal(t, auth.RoleOperator, body.Data.Role)
	assert.Equal(t, "jwt", body.Data.Method)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(-time.Minute).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newRouter(t, "").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermissions(t *testing.T) {
	viewer := signToken(t, jwt.MapClaims{"sub": "v", "role": auth.RoleViewer, "exp": time.Now().Add(time.Hour).Unix()})
	operator := signToken(t, jwt.MapClaims{"sub": "o", "exp": time.Now().Add(time.Hour).Unix()})
	admin := signToken(t, jwt.MapClaims{"sub": "a", "role": auth.RoleAdmin, "exp": time.Now().Add(time.Hour).Unix()})

	cases := []struct {
		token string
		path  string
		want  int
	}{
		{viewer, "/edit", http.StatusForbidden},
		{operator, "/edit", http.StatusNoContent},
		{operator, "/activity", http.StatusForbidden},
		{admin, "/activity", http.StatusNoContent},
	}
	router := newRouter(t, "")
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.path)
	}
}

func TestAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("service-key"), bcrypt.MinCost)
	require.NoError(t, err)
	router := newRouter(t, string(hash))

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	req.Header.Set("X-API-Key", "service-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/activity", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDisabledAuthenticatorRunsAsAdmin(t *testing.T) {
	h := auth.NewHandler(nil, auth.NewAuthenticator("", ""))
	r := chi.NewRouter()
	r.Use(h.Middleware)
	r.With(auth.RequireAll(auth.PermActivityView)).Get("/activity", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anonymous", auth.Actor(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
