package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
	"github.com/odyssey-erp/odyssey-wms/internal/strapi"
)

const (
	collectionOrders        = "orders"
	collectionOrderProducts = "order-products"
	collectionItems         = "items"

	statsPageSize = 100
)

var documentRelations = []string{
	"customer",
	"supplier",
	"sourceOrder",
	"orderProducts.product",
	"orderProducts.items.warehouse",
	"orderProducts.items.parentItem",
}

// Page describes the slice of a listing that was returned.
type Page struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// Repository persists documents, lines and items.
type Repository interface {
	List(ctx context.Context, filter documents.ListFilter) ([]documents.Document, Page, error)
	Get(ctx context.Context, id int64) (*documents.Document, error)
	Create(ctx context.Context, doc documents.Document) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
	UpdateLine(ctx context.Context, lineID int64, fields map[string]any) error
	CreateItem(ctx context.Context, lineID int64, item documents.Item) (int64, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

// CMS is the subset of the CMS client the repository needs.
type CMS interface {
	List(ctx context.Context, collection string, q *strapi.Query, dest any) (strapi.Meta, error)
	Get(ctx context.Context, collection, id string, q *strapi.Query, dest any) error
	Create(ctx context.Context, collection string, payload any, dest any) error
	Update(ctx context.Context, collection, id string, payload any, dest any) error
	Delete(ctx context.Context, collection, id string) error
}

type repository struct {
	cms    CMS
	logger *slog.Logger
}

// NewRepository returns a Repository backed by the CMS.
func NewRepository(cms CMS, logger *slog.Logger) Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &repository{cms: cms, logger: logger}
}

func (r *repository) List(ctx context.Context, filter documents.ListFilter) ([]documents.Document, Page, error) {
	q := strapi.NewQuery().Populate(documentRelations...)
	if filter.Type != nil {
		q.Eq("type", string(*filter.Type))
	}
	if filter.State != nil {
		q.Eq("state", string(*filter.State))
	}
	q.Search(filter.Search, "code", "customer.name", "supplier.name")
	q.Page(filter.Page, filter.PageSize)
	if filter.Sort != "" {
		q.Sort(filter.Sort)
	} else {
		q.Sort("createdAt:desc")
	}

	var docs []documents.Document
	meta, err := r.cms.List(ctx, collectionOrders, q, &docs)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list documents: %w", err)
	}
	page := Page{Page: filter.Page, PageSize: filter.PageSize, Total: len(docs), PageCount: 1}
	if meta.Pagination != nil {
		page = Page(*meta.Pagination)
	}
	return docs, page, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*documents.Document, error) {
	var doc documents.Document
	err := r.cms.Get(ctx, collectionOrders, formatID(id), strapi.NewQuery().Populate(documentRelations...), &doc)
	if err != nil {
		return nil, mapNotFound(err, ErrNotFound)
	}
	return &doc, nil
}

func (r *repository) Create(ctx context.Context, doc documents.Document) (int64, error) {
	header := map[string]any{
		"code":  doc.Code,
		"type":  doc.Type,
		"state": doc.State,
		"notes": doc.Notes,
	}
	if doc.Customer != nil {
		header["customer"] = doc.Customer.ID
	}
	if doc.Supplier != nil {
		header["supplier"] = doc.Supplier.ID
	}
	if doc.SourceOrder != nil {
		header["sourceOrder"] = doc.SourceOrder.ID
	}

	var created documents.Document
	if err := r.cms.Create(ctx, collectionOrders, header, &created); err != nil {
		return 0, fmt.Errorf("create document: %w", err)
	}

	// The CMS has no transactions, so a failed line or item unwinds what
	// was already written.
	written := []record{{collectionOrders, created.ID}}
	for _, op := range doc.OrderProducts {
		line := map[string]any{
			"order":             created.ID,
			"price":             op.Price,
			"ivaIncluded":       op.IVAIncluded,
			"requestedQuantity": op.RequestedQuantity,
			"requestedPackages": op.RequestedPackages,
		}
		if op.Product != nil {
			line["product"] = op.Product.ID
		}
		if op.InvoicePercentage != nil {
			line["invoicePercentage"] = *op.InvoicePercentage
		}
		var createdLine documents.OrderProduct
		if err := r.cms.Create(ctx, collectionOrderProducts, line, &createdLine); err != nil {
			r.rollback(ctx, written)
			return 0, fmt.Errorf("create line for document %d: %w", created.ID, err)
		}
		written = append(written, record{collectionOrderProducts, createdLine.ID})
		for _, item := range op.Items {
			itemID, err := r.CreateItem(ctx, createdLine.ID, item)
			if err != nil {
				r.rollback(ctx, written)
				return 0, err
			}
			written = append(written, record{collectionItems, itemID})
		}
	}
	return created.ID, nil
}

type record struct {
	collection string
	id         int64
}

// rollback deletes written records newest first. Failures are logged and
// do not stop the remaining deletes.
func (r *repository) rollback(ctx context.Context, written []record) {
	ctx = context.WithoutCancel(ctx)
	for i := len(written) - 1; i >= 0; i-- {
		rec := written[i]
		if err := r.cms.Delete(ctx, rec.collection, formatID(rec.id)); err != nil {
			r.logger.Error("rollback partial document create",
				slog.String("collection", rec.collection),
				slog.Int64("id", rec.id),
				slog.Any("error", err))
		}
	}
}

func (r *repository) Update(ctx context.Context, id int64, fields map[string]any) error {
	if err := r.cms.Update(ctx, collectionOrders, formatID(id), fields, nil); err != nil {
		return mapNotFound(err, ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.cms.Delete(ctx, collectionOrders, formatID(id)); err != nil {
		return mapNotFound(err, ErrNotFound)
	}
	return nil
}

func (r *repository) UpdateLine(ctx context.Context, lineID int64, fields map[string]any) error {
	if err := r.cms.Update(ctx, collectionOrderProducts, formatID(lineID), fields, nil); err != nil {
		return mapNotFound(err, ErrLineNotFound)
	}
	return nil
}

func (r *repository) CreateItem(ctx context.Context, lineID int64, item documents.Item) (int64, error) {
	payload := map[string]any{
		"orderProduct":    lineID,
		"quantity":        item.Quantity,
		"currentQuantity": item.CurrentQuantity,
		"lotNumber":       item.LotNumber,
		"itemNumber":      item.ItemNumber,
	}
	if item.Barcode != "" {
		payload["barcode"] = item.Barcode
	}
	if item.Warehouse != nil {
		payload["warehouse"] = item.Warehouse.ID
	}
	if item.ParentItem != nil {
		payload["parentItem"] = item.ParentItem.ID
	}
	var created documents.Item
	if err := r.cms.Create(ctx, collectionItems, payload, &created); err != nil {
		return 0, fmt.Errorf("create item on line %d: %w", lineID, err)
	}
	return created.ID, nil
}

func (r *repository) DeleteItem(ctx context.Context, itemID int64) error {
	if err := r.cms.Delete(ctx, collectionItems, formatID(itemID)); err != nil {
		return mapNotFound(err, ErrItemNotFound)
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func mapNotFound(err, target error) error {
	if errors.Is(err, strapi.ErrNotFound) {
		return fmt.Errorf("%w: %v", target, err)
	}
	return err
}
