package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
)

// Handler exposes authentication middleware and the identity endpoint.
type Handler struct {
	logger *slog.Logger
	auth   *Authenticator
}

// NewHandler constructs the auth handler.
func NewHandler(logger *slog.Logger, authenticator *Authenticator) *Handler {
	return &Handler{logger: logger, auth: authenticator}
}

// MountRoutes registers auth endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

// Middleware rejects requests without valid credentials. When no
// credential type is configured every request runs as an admin.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.auth.Enabled() {
			p := &Principal{Subject: "anonymous", Role: RoleAdmin, Method: "none", Permissions: AllPermissions()}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
			return
		}
		p, err := h.auth.Authenticate(r.Header.Get("Authorization"), r.Header.Get("X-API-Key"))
		if err != nil {
			if h.logger != nil && !errors.Is(err, ErrMissingCredentials) {
				h.logger.Warn("auth rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAny ensures the principal has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p := PrincipalFromContext(r.Context())
			if p == nil {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, perm := range normalized {
				if p.Has(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Fail(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		})
	}
}

// RequireAll ensures the principal has every permission.
func RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if len(normalized) > 0 && p == nil {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, perm := range normalized {
				if !p.Has(perm) {
					httpx.Fail(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httpx.OK(w, http.StatusOK, p)
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
