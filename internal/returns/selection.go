// Package returns tracks which items of a delivered document are being
// returned and how much of each.
package returns

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

var (
	// ErrItemNotFound indicates the item does not belong to the source document.
	ErrItemNotFound = errors.New("item not found in source document")
	// ErrNotSelected indicates a quantity change for an item that is not selected.
	ErrNotSelected = errors.New("item is not selected for return")
)

// SelectedItem is an item chosen for return with the quantity to give back.
type SelectedItem struct {
	ItemID           int64   `json:"itemId"`
	OrderProductID   int64   `json:"orderProductId"`
	ReturnQuantity   float64 `json:"returnQuantity"`
	OriginalQuantity float64 `json:"originalQuantity"`
}

// Coverage describes how much of a product's items are selected.
type Coverage struct {
	Full    bool `json:"full"`
	Partial bool `json:"partial"`
}

// Selection is the return state built on top of a source document.
type Selection struct {
	source   documents.Document
	parents  map[int64]documents.Item
	order    []int64
	selected []SelectedItem
}

// NewSelection prepares an empty selection over the source document. The
// parent index lets items carrying a parentItem resolve their original
// quantity.
func NewSelection(source documents.Document) *Selection {
	parents := make(map[int64]documents.Item)
	for _, op := range source.OrderProducts {
		for _, item := range op.Items {
			if item.ParentItem != nil && item.ParentItem.ID != 0 {
				parents[item.ParentItem.ID] = *item.ParentItem
			}
		}
	}
	order := make([]int64, 0, len(parents))
	for id := range parents {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &Selection{source: source, parents: parents, order: order}
}

// Source returns the document the selection is built on.
func (s *Selection) Source() documents.Document {
	return s.source
}

// Items returns a copy of the selected items in selection order.
func (s *Selection) Items() []SelectedItem {
	out := make([]SelectedItem, len(s.selected))
	copy(out, s.selected)
	return out
}

// Toggle selects the item with its full original quantity, or removes it
// when already selected. It reports whether the item is selected afterwards.
func (s *Selection) Toggle(itemID int64) (bool, error) {
	if idx := s.index(itemID); idx >= 0 {
		s.selected = append(s.selected[:idx], s.selected[idx+1:]...)
		return false, nil
	}
	op, item := s.source.FindItem(itemID)
	if item == nil {
		return false, ErrItemNotFound
	}
	original := s.OriginalQuantity(*item)
	s.selected = append(s.selected, SelectedItem{
		ItemID:           item.ID,
		OrderProductID:   op.ID,
		ReturnQuantity:   original,
		OriginalQuantity: original,
	})
	return true, nil
}

// SetQuantity coerces raw to a number (0 when it cannot be parsed) and clamps
// it into [0, originalQuantity]. The stored value is returned.
func (s *Selection) SetQuantity(itemID int64, raw any) (float64, error) {
	idx := s.index(itemID)
	if idx < 0 {
		return 0, ErrNotSelected
	}
	value := Clamp(Coerce(raw), s.selected[idx].OriginalQuantity)
	s.selected[idx].ReturnQuantity = value
	return value, nil
}

// Coverage reports whether every item, or only some, of a line is selected.
func (s *Selection) Coverage(op documents.OrderProduct) Coverage {
	if len(op.Items) == 0 {
		return Coverage{}
	}
	count := 0
	for _, item := range op.Items {
		if s.index(item.ID) >= 0 {
			count++
		}
	}
	return Coverage{
		Full:    count == len(op.Items),
		Partial: count > 0 && count < len(op.Items),
	}
}

// OriginalQuantity is the upper bound for returning item. It is read from
// the matched parent item when there is one, else from the item itself;
// quantity wins over currentQuantity when set.
func (s *Selection) OriginalQuantity(item documents.Item) float64 {
	if parent, ok := s.matchParent(item); ok {
		return quantityOf(parent)
	}
	return quantityOf(item)
}

func (s *Selection) matchParent(item documents.Item) (documents.Item, bool) {
	if item.ParentItem != nil {
		if parent, ok := s.parents[item.ParentItem.ID]; ok {
			return parent, true
		}
		return *item.ParentItem, true
	}
	if item.LotNumber == "" && item.ItemNumber == "" {
		return documents.Item{}, false
	}
	// Lowest parent id wins when several share a lot and item number.
	for _, id := range s.order {
		parent := s.parents[id]
		if strings.EqualFold(parent.LotNumber, item.LotNumber) && strings.EqualFold(parent.ItemNumber, item.ItemNumber) {
			return parent, true
		}
	}
	return documents.Item{}, false
}

func (s *Selection) index(itemID int64) int {
	for i, sel := range s.selected {
		if sel.ItemID == itemID {
			return i
		}
	}
	return -1
}

func quantityOf(item documents.Item) float64 {
	if item.Quantity > 0 {
		return item.Quantity
	}
	return item.CurrentQuantity
}

// Coerce converts user input into a number, yielding 0 on failure.
func Coerce(raw any) float64 {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// Clamp bounds value into [0, upper].
func Clamp(value, upper float64) float64 {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}
