package imports

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cast"

	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

var (
	// ErrMissingDocument is returned when a packing-list upload names no document.
	ErrMissingDocument = errors.New("documentId is required for packing-list imports")
	// ErrDocumentLocked is returned when the target document is read-only.
	ErrDocumentLocked = errors.New("the document can no longer be edited")
)

// firstDataLine is the spreadsheet line of the first data row.
const firstDataLine = 2

var runner = bulk.Runner{Message: func(err error) string { return strapi.Message(err, err.Error()) }}

// ProductCreator stores catalogue products.
type ProductCreator interface {
	CreateProduct(ctx context.Context, p documents.Product) error
}

// ProductRows creates one product per row. Failures are reported by
// spreadsheet line number.
func ProductRows(creator ProductCreator) RowsHandler {
	return func(ctx context.Context, rows []Row, remove func(), _ map[string]any) (bulk.Result, error) {
		lines, byLine := indexRows(rows)
		result, err := runner.Run(ctx, lines, func(ctx context.Context, line int64) error {
			row := byLine[line]
			p := documents.Product{
				Code: row.Value(CodeColumn),
				Name: row.Value(NameColumn),
				Unit: row.Value(UnitColumn),
			}
			if p.Code == "" {
				return fmt.Errorf("%s is empty", CodeColumn.Name)
			}
			return creator.CreateProduct(ctx, p)
		})
		if err != nil {
			return bulk.Result{}, err
		}
		if result.FailedCount() == 0 {
			remove()
		}
		return result, nil
	}
}

// PackingLoader reads documents and records packing-list items.
type PackingLoader interface {
	Get(ctx context.Context, id int64) (*documents.Document, error)
	AddItem(ctx context.Context, id int64, req documents.AddItemRequest) (*documents.Document, error)
}

// PackingListRows records one item per row on the line whose product code
// matches CODIGO. meta must carry documentId and may carry warehouseId.
func PackingListRows(loader PackingLoader) RowsHandler {
	return func(ctx context.Context, rows []Row, remove func(), meta map[string]any) (bulk.Result, error) {
		docID, err := cast.ToInt64E(meta["documentId"])
		if err != nil || docID <= 0 {
			return bulk.Result{}, ErrMissingDocument
		}
		warehouseID, _ := cast.ToInt64E(meta["warehouseId"])

		doc, err := loader.Get(ctx, docID)
		if err != nil {
			return bulk.Result{}, err
		}
		if doc.ReadOnly() {
			return bulk.Result{}, fmt.Errorf("%w: %s", ErrDocumentLocked, doc.State)
		}
		lines := make(map[string]int64, len(doc.OrderProducts))
		for _, op := range doc.OrderProducts {
			if op.Product != nil {
				lines[Fold(op.Product.Code)] = op.ID
			}
		}

		rowLines, byLine := indexRows(rows)
		result, err := runner.Run(ctx, rowLines, func(ctx context.Context, line int64) error {
			row := byLine[line]
			code := row.Value(CodeColumn)
			lineID, ok := lines[Fold(code)]
			if !ok {
				return fmt.Errorf("product %s is not in the document", code)
			}
			qty, err := row.Float(QuantityColumn.Names()...)
			if err != nil {
				return err
			}
			if qty < 0 {
				return fmt.Errorf("%s must not be negative", QuantityColumn.Name)
			}
			_, err = loader.AddItem(ctx, docID, documents.AddItemRequest{
				OrderProductID: lineID,
				Quantity:       qty,
				LotNumber:      row.Value(LotColumn),
				ItemNumber:     row.Value(SerialColumn),
				WarehouseID:    warehouseID,
			})
			return err
		})
		if err != nil {
			return bulk.Result{}, err
		}
		if result.FailedCount() == 0 {
			remove()
		}
		return result, nil
	}
}

// indexRows keys rows by their file line number. When any row lacks a
// distinct line number, rows are numbered by position after the header.
func indexRows(rows []Row) ([]int64, map[int64]Row) {
	lines := make([]int64, len(rows))
	byLine := make(map[int64]Row, len(rows))
	for i, row := range rows {
		line := int64(row.Line)
		if _, dup := byLine[line]; line <= 0 || dup {
			return positional(rows)
		}
		lines[i] = line
		byLine[line] = row
	}
	return lines, byLine
}

func positional(rows []Row) ([]int64, map[int64]Row) {
	lines := make([]int64, len(rows))
	byLine := make(map[int64]Row, len(rows))
	for i, row := range rows {
		lines[i] = int64(i + firstDataLine)
		byLine[lines[i]] = row
	}
	return lines, byLine
}
