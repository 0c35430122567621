package auth

import (
	"context"
	"errors"
	"strings"
)

// Errors returned by the authenticator.
var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Permissions guarding the API.
const (
	PermDocumentsView   = "documents.view"
	PermDocumentsEdit   = "documents.edit"
	PermDocumentsBulk   = "documents.bulk"
	PermDocumentsReturn = "documents.return"
	PermImportsRun      = "imports.run"
	PermEntitiesView    = "entities.view"
	PermEntitiesEdit    = "entities.edit"
	PermActivityView    = "activity.view"
)

// Roles known to the API. Tokens without a role claim are operators.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
	RoleService  = "service"
)

// AllPermissions lists every permission.
func AllPermissions() []string {
	return []string{
		PermDocumentsView,
		PermDocumentsEdit,
		PermDocumentsBulk,
		PermDocumentsReturn,
		PermImportsRun,
		PermEntitiesView,
		PermEntitiesEdit,
		PermActivityView,
	}
}

// RolePermissions maps a role onto its permissions.
func RolePermissions(role string) []string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, RoleService:
		return AllPermissions()
	case RoleViewer:
		return []string{PermDocumentsView, PermEntitiesView}
	case RoleOperator, "", "authenticated":
		return []string{
			PermDocumentsView,
			PermDocumentsEdit,
			PermDocumentsBulk,
			PermDocumentsReturn,
			PermImportsRun,
			PermEntitiesView,
		}
	default:
		return nil
	}
}

// Principal is the authenticated caller.
type Principal struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role"`
	Method      string   `json:"method"`
	Permissions []string `json:"permissions"`
}

// Has reports whether the principal holds perm.
func (p *Principal) Has(perm string) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// Actor names the caller for activity records.
func Actor(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Subject
	}
	return ""
}
