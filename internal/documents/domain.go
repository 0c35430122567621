// Package documents models warehouse documents (purchase, sale, return,
// inbound and outbound orders) and the derived figures the dashboard shows
// for them.
package documents

import (
	"time"
)

// ============================================================================
// DOCUMENT TYPE & STATE
// ============================================================================

// Type identifies the kind of warehouse document.
type Type string

const (
	TypePurchase Type = "purchase"
	TypeSale     Type = "sale"
	TypeReturn   Type = "return"
	TypeIn       Type = "in"
	TypeOut      Type = "out"
)

// IsValid checks if the type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypePurchase, TypeSale, TypeReturn, TypeIn, TypeOut:
		return true
	default:
		return false
	}
}

// State represents the lifecycle of a document.
type State string

const (
	StateDraft     State = "draft"     // Requested quantities, fully editable
	StateConfirmed State = "confirmed" // Confirmed quantities, still editable
	StateCompleted State = "completed" // Delivered quantities, read-only
	StateCanceled  State = "canceled"  // Terminal, read-only
)

// IsValid checks if the state is known.
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StateConfirmed, StateCompleted, StateCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCanceled
}

// CanEdit checks if the document and its items may be changed.
func (s State) CanEdit() bool {
	return s == StateDraft || s == StateConfirmed
}

// CanDelete checks if the document may be removed.
func (s State) CanDelete() bool {
	return s == StateDraft || s == StateConfirmed
}

// CanTransition checks the linear draft → confirmed → completed flow with
// canceled as the alternate terminal.
func (s State) CanTransition(target State) bool {
	switch target {
	case StateConfirmed:
		return s == StateDraft
	case StateCompleted:
		return s == StateConfirmed
	case StateCanceled:
		return s == StateDraft || s == StateConfirmed
	default:
		return false
	}
}

// ============================================================================
// ENTITIES
// ============================================================================

// Document is an order header with its lines, as populated by the CMS.
type Document struct {
	ID            int64          `json:"id"`
	DocumentID    string         `json:"documentId,omitempty"`
	Code          string         `json:"code"`
	Type          Type           `json:"type"`
	State         State          `json:"state"`
	Notes         string         `json:"notes,omitempty"`
	Customer      *Reference     `json:"customer,omitempty"`
	Supplier      *Reference     `json:"supplier,omitempty"`
	SourceOrder   *Reference     `json:"sourceOrder,omitempty"`
	OrderProducts []OrderProduct `json:"orderProducts"`
	CreatedAt     *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}

// ReadOnly reports whether edits must be refused.
func (d Document) ReadOnly() bool {
	return !d.State.CanEdit()
}

// FindItem locates an item anywhere in the document.
func (d *Document) FindItem(itemID int64) (*OrderProduct, *Item) {
	for i := range d.OrderProducts {
		op := &d.OrderProducts[i]
		for j := range op.Items {
			if op.Items[j].ID == itemID {
				return op, &op.Items[j]
			}
		}
	}
	return nil, nil
}

// Reference is a lightweight pointer to a related CMS record.
type Reference struct {
	ID   int64  `json:"id"`
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// Product is the catalogue entry an OrderProduct refers to.
type Product struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`
}

// OrderProduct is a line of a document tracking quantities across states.
type OrderProduct struct {
	ID                int64    `json:"id"`
	Product           *Product `json:"product,omitempty"`
	Price             float64  `json:"price"`
	IVAIncluded       bool     `json:"ivaIncluded"`
	InvoicePercentage *float64 `json:"invoicePercentage,omitempty"`
	RequestedQuantity float64  `json:"requestedQuantity"`
	RequestedPackages float64  `json:"requestedPackages"`
	ConfirmedQuantity float64  `json:"confirmedQuantity"`
	ConfirmedPackages float64  `json:"confirmedPackages"`
	DeliveredQuantity float64  `json:"deliveredQuantity"`
	DeliveredPackages float64  `json:"deliveredPackages"`
	Items             []Item   `json:"items"`
}

// Item is a tracked unit or lot recorded against an OrderProduct.
type Item struct {
	ID              int64      `json:"id"`
	Quantity        float64    `json:"quantity"`
	CurrentQuantity float64    `json:"currentQuantity"`
	LotNumber       string     `json:"lotNumber,omitempty"`
	ItemNumber      string     `json:"itemNumber,omitempty"`
	Barcode         string     `json:"barcode,omitempty"`
	Warehouse       *Reference `json:"warehouse,omitempty"`
	ParentItem      *Item      `json:"parentItem,omitempty"`
}

// ============================================================================
// REQUEST DTOs
// ============================================================================

// ListFilter narrows document listings.
type ListFilter struct {
	Type     *Type
	State    *State
	Search   string
	Page     int
	PageSize int
	Sort     string
}

// UpdateRequest carries a partial header update.
type UpdateRequest struct {
	Code  *string `json:"code,omitempty" validate:"omitempty,max=64"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateLineRequest carries a partial OrderProduct update.
type UpdateLineRequest struct {
	Price             *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	IVAIncluded       *bool    `json:"ivaIncluded,omitempty"`
	InvoicePercentage *float64 `json:"invoicePercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	RequestedQuantity *float64 `json:"requestedQuantity,omitempty" validate:"omitempty,gte=0"`
	RequestedPackages *float64 `json:"requestedPackages,omitempty" validate:"omitempty,gte=0"`
	ConfirmedQuantity *float64 `json:"confirmedQuantity,omitempty" validate:"omitempty,gte=0"`
	ConfirmedPackages *float64 `json:"confirmedPackages,omitempty" validate:"omitempty,gte=0"`
	DeliveredQuantity *float64 `json:"deliveredQuantity,omitempty" validate:"omitempty,gte=0"`
	DeliveredPackages *float64 `json:"deliveredPackages,omitempty" validate:"omitempty,gte=0"`
}

// AddItemRequest records a new packing-list item on a line.
type AddItemRequest struct {
	OrderProductID int64   `json:"orderProductId" validate:"required,gt=0"`
	Quantity       float64 `json:"quantity" validate:"gte=0"`
	LotNumber      string  `json:"lotNumber,omitempty" validate:"omitempty,max=64"`
	ItemNumber     string  `json:"itemNumber,omitempty" validate:"omitempty,max=64"`
	WarehouseID    int64   `json:"warehouseId,omitempty" validate:"gte=0"`
	ParentItemID   int64   `json:"parentItemId,omitempty" validate:"gte=0"`
}

// TransitionRequest moves a document to a new state.
type TransitionRequest struct {
	State State `json:"state" validate:"required,oneof=confirmed completed canceled"`
}

// BulkAction names an action applied to many documents at once.
type BulkAction string

const (
	BulkConfirm  BulkAction = "confirm"
	BulkComplete BulkAction = "complete"
	BulkCancel   BulkAction = "cancel"
	BulkDelete   BulkAction = "delete"
)

// TargetState maps a bulk action to the state it produces.
func (a BulkAction) TargetState() (State, bool) {
	switch a {
	case BulkConfirm:
		return StateConfirmed, true
	case BulkComplete:
		return StateCompleted, true
	case BulkCancel:
		return StateCanceled, true
	default:
		return "", false
	}
}

// BulkRequest applies one action to the selected document ids.
type BulkRequest struct {
	Action BulkAction `json:"action" validate:"required,oneof=confirm complete cancel delete"`
	IDs    []int64    `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// ============================================================================
// RESPONSE DTOs
// ============================================================================

// Stats aggregates document counts for the list page header.
type Stats struct {
	Total   int           `json:"total"`
	ByState map[State]int `json:"byState"`
	ByType  map[Type]int  `json:"byType"`
}
