package strapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the CMS has no record for the id.
	ErrNotFound = errors.New("strapi: record not found")
	// ErrInvalidRequest indicates the CMS rejected the payload.
	ErrInvalidRequest = errors.New("strapi: invalid request")
)

// Error is the structured error body returned by the CMS.
type Error struct {
	Status  int             `json:"status"`
	Name    string          `json:"name"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("strapi: %d %s: %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("strapi: status %d", e.Status)
}

// Is maps HTTP statuses onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrInvalidRequest:
		return e.Status == http.StatusBadRequest
	default:
		return false
	}
}

// Message prefers the structured CMS message over the fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
