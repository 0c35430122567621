package orders

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/returns"
)

// ReturnItem selects an item of the source document. A missing quantity
// returns the full original quantity.
type ReturnItem struct {
	ItemID   int64 `json:"itemId" validate:"required,gt=0"`
	Quantity any   `json:"quantity,omitempty"`
}

// ReturnRequest describes a return against a completed document.
type ReturnRequest struct {
	Code  string       `json:"code" validate:"required,max=64"`
	Notes string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Items []ReturnItem `json:"items" validate:"required,min=1,dive"`
}

// ReturnPreview shows the clamped quantities before the return is saved.
type ReturnPreview struct {
	Items    []returns.SelectedItem     `json:"items"`
	Coverage map[int64]returns.Coverage `json:"coverage"`
}

// PreviewReturn applies the selection and clamping without saving.
func (s *Service) PreviewReturn(ctx context.Context, sourceID int64, req ReturnRequest) (*ReturnPreview, error) {
	source, err := s.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	sel, err := selectReturn(*source, req.Items)
	if err != nil {
		return nil, err
	}
	preview := &ReturnPreview{
		Items:    sel.Items(),
		Coverage: make(map[int64]returns.Coverage, len(source.OrderProducts)),
	}
	for _, op := range source.OrderProducts {
		preview.Coverage[op.ID] = sel.Coverage(op)
	}
	return preview, nil
}

// CreateReturn saves a draft return document for the selected items.
func (s *Service) CreateReturn(ctx context.Context, sourceID int64, req ReturnRequest) (*documents.Document, error) {
	source, err := s.repo.Get(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	sel, err := selectReturn(*source, req.Items)
	if err != nil {
		return nil, err
	}
	doc, err := returns.Build(sel, req.Code, req.Notes)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create return for document %d: %w", sourceID, err)
	}
	return s.Get(ctx, id)
}

func selectReturn(source documents.Document, items []ReturnItem) (*returns.Selection, error) {
	sel := returns.NewSelection(source)
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ItemID]; dup {
			continue
		}
		seen[item.ItemID] = struct{}{}
		if _, err := sel.Toggle(item.ItemID); err != nil {
			return nil, fmt.Errorf("%w: %d", err, item.ItemID)
		}
		if item.Quantity != nil {
			if _, err := sel.SetQuantity(item.ItemID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}
	return sel, nil
}
