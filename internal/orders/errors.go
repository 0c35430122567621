package orders

import "errors"

// Domain errors for warehouse documents.
var (
	ErrNotFound     = errors.New("document not found")
	ErrLineNotFound = errors.New("order line not found in document")
	ErrItemNotFound = errors.New("item not found in document")

	// State errors.
	ErrReadOnly          = errors.New("document is read-only in its current state")
	ErrCannotDelete      = errors.New("only draft or confirmed documents can be deleted")
	ErrInvalidTransition = errors.New("state transition not allowed")
	ErrUnknownAction     = errors.New("unknown bulk action")

	// Validation errors.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)
