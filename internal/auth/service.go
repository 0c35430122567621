package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator verifies CMS-issued JWTs and the service API key.
type Authenticator struct {
	jwtSecret  []byte
	apiKeyHash []byte
}

// NewAuthenticator constructs an Authenticator. An empty secret disables
// JWT auth; an empty hash disables API keys.
func NewAuthenticator(jwtSecret, apiKeyHash string) *Authenticator {
	return &Authenticator{jwtSecret: []byte(jwtSecret), apiKeyHash: []byte(apiKeyHash)}
}

// Enabled reports whether any credential type is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.jwtSecret) > 0 || len(a.apiKeyHash) > 0
}

type claims struct {
	ID   json64 `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and builds the principal. The CMS
// puts the user id in "id"; "sub" is used when present.
func (a *Authenticator) ParseToken(raw string) (*Principal, error) {
	if len(a.jwtSecret) == 0 {
		return nil, ErrInvalidCredentials
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (any, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	subject := c.Subject
	if subject == "" && c.ID != 0 {
		subject = strconv.FormatInt(int64(c.ID), 10)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredentials)
	}
	perms := RolePermissions(c.Role)
	if perms == nil {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidCredentials, c.Role)
	}
	role := c.Role
	if role == "" {
		role = RoleOperator
	}
	return &Principal{Subject: subject, Role: role, Method: "jwt", Permissions: perms}, nil
}

// CheckAPIKey compares the key with the configured bcrypt hash.
func (a *Authenticator) CheckAPIKey(key string) (*Principal, error) {
	if len(a.apiKeyHash) == 0 || key == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.apiKeyHash, []byte(key)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Subject: "api-key", Role: RoleService, Method: "api_key", Permissions: RolePermissions(RoleService)}, nil
}

// Authenticate resolves the principal from header values.
func (a *Authenticator) Authenticate(authorization, apiKey string) (*Principal, error) {
	if apiKey != "" {
		return a.CheckAPIKey(apiKey)
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, ErrMissingCredentials
	}
	p, err := a.ParseToken(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// json64 accepts the id claim as a number or a numeric string.
type json64 int64

func (n *json64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("id claim must be numeric")
	}
	*n = json64(v)
	return nil
}
