package returns

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

// ErrEmptyReturn indicates nothing with a positive quantity was selected.
var ErrEmptyReturn = errors.New("select at least one item with a quantity to return")

// ErrSourceNotReturnable indicates the source document cannot be returned against.
var ErrSourceNotReturnable = errors.New("only completed documents can be returned")

// Build turns the selection into a draft return document. Lines keep the
// source order, items reference the item they return and zero quantities
// are dropped.
func Build(sel *Selection, code, notes string) (documents.Document, error) {
	source := sel.Source()
	if source.State != documents.StateCompleted {
		return documents.Document{}, fmt.Errorf("%w: %s", ErrSourceNotReturnable, source.State)
	}

	byLine := make(map[int64][]SelectedItem)
	for _, item := range sel.Items() {
		if item.ReturnQuantity <= 0 {
			continue
		}
		byLine[item.OrderProductID] = append(byLine[item.OrderProductID], item)
	}
	if len(byLine) == 0 {
		return documents.Document{}, ErrEmptyReturn
	}

	doc := documents.Document{
		Code:        code,
		Type:        documents.TypeReturn,
		State:       documents.StateDraft,
		Notes:       notes,
		Customer:    source.Customer,
		Supplier:    source.Supplier,
		SourceOrder: &documents.Reference{ID: source.ID, Code: source.Code},
	}
	for _, op := range source.OrderProducts {
		selected, ok := byLine[op.ID]
		if !ok {
			continue
		}
		line := documents.OrderProduct{
			Product:           op.Product,
			Price:             op.Price,
			IVAIncluded:       op.IVAIncluded,
			InvoicePercentage: op.InvoicePercentage,
		}
		for _, sel := range selected {
			_, original := source.FindItem(sel.ItemID)
			parent := *original
			parent.ParentItem = nil
			line.Items = append(line.Items, documents.Item{
				Quantity:   sel.ReturnQuantity,
				LotNumber:  original.LotNumber,
				ItemNumber: original.ItemNumber,
				Warehouse:  original.Warehouse,
				ParentItem: &parent,
			})
			line.RequestedQuantity += sel.ReturnQuantity
		}
		doc.OrderProducts = append(doc.OrderProducts, line)
	}
	return doc, nil
}
