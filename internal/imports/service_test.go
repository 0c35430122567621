package imports

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/activity"
	"github.com/odyssey-erp/odyssey-wms/internal/bulk"
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

type memRecorder struct {
	runs []activity.Run
}

func (r *memRecorder) Record(_ context.Context, run activity.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

type memEnqueuer struct {
	batches []Batch
}

func (e *memEnqueuer) EnqueueImport(_ context.Context, batch Batch) error {
	e.batches = append(e.batches, batch)
	return nil
}

const productsCSV = "Código,Nombre,Unidad\nP-1,Tornillo,und\nP-2,Tuerca,und\n"

func TestLoadInvokesHandlerOnceWithMeta(t *testing.T) {
	recorder := &memRecorder{}
	svc := NewService(Config{}, nil, recorder, nil)

	calls := 0
	svc.Register(ProductSchema, func(ctx context.Context, rows []Row, remove func(), meta map[string]any) (bulk.Result, error) {
		calls++
		assert.Len(t, rows, 2)
		assert.Equal(t, "ana", meta["user"])
		remove()
		return bulk.Result{Succeeded: []int64{2, 3}}, nil
	})

	out, err := svc.Load(context.Background(), "products", "productos.csv", []byte(productsCSV), map[string]any{"user": "ana"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, out.Rows)
	assert.True(t, out.Removed)
	assert.False(t, out.Queued)
	assert.Equal(t, "2 succeeded, 0 failed", out.Summary)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, activity.KindImport, recorder.runs[0].Kind)
	assert.Equal(t, "products", recorder.runs[0].Subject)
	assert.Equal(t, out.RunID, recorder.runs[0].ID)
}

func TestLoadDoesNotCallHandlerOnValidationFailure(t *testing.T) {
	svc := NewService(Config{}, nil, nil, nil)
	svc.Register(PackingListSchema, func(context.Context, []Row, func(), map[string]any) (bulk.Result, error) {
		t.Fatal("handler must not run")
		return bulk.Result{}, nil
	})

	_, err := svc.Load(context.Background(), "packing-list", "lista.csv", []byte("CODIGO,LOTE\nP-1,L1\n"), nil)
	var missing *MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "CANTIDAD", missing.Column)

	_, err = svc.Load(context.Background(), "packing-list", "lista.csv", []byte("CODIGO,CANTIDAD\n"), nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestLoadLimits(t *testing.T) {
	svc := NewService(Config{MaxBytes: 10}, nil, nil, nil)
	svc.Register(ProductSchema, ProductRows(nil))

	_, err := svc.Load(context.Background(), "products", "p.csv", []byte(productsCSV), nil)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Load(context.Background(), "orders", "p.csv", []byte(productsCSV), nil)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestLoadQueuesWhenAsync(t *testing.T) {
	enqueuer := &memEnqueuer{}
	svc := NewService(Config{Async: true}, nil, nil, enqueuer)
	svc.Register(ProductSchema, func(context.Context, []Row, func(), map[string]any) (bulk.Result, error) {
		t.Fatal("handler must run in the worker")
		return bulk.Result{}, nil
	})

	out, err := svc.Load(context.Background(), "products", "p.csv", []byte(productsCSV), nil)
	require.NoError(t, err)
	assert.True(t, out.Queued)
	require.Len(t, enqueuer.batches, 1)
	assert.Equal(t, out.RunID, enqueuer.batches[0].RunID)
	assert.Len(t, enqueuer.batches[0].Rows, 2)
}

type memProducts struct {
	mu      sync.Mutex
	created []documents.Product
}

func (m *memProducts) CreateProduct(_ context.Context, p documents.Product) error {
	if p.Code == "DUP" {
		return errors.New("code must be unique")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, p)
	return nil
}

func TestProductRowsReportsLineNumbers(t *testing.T) {
	store := &memProducts{}
	rows := []Row{
		NewRow(2, "CODIGO", "P-1", "NOMBRE", "Tornillo", "UNIDAD", "und"),
		NewRow(3, "CODIGO", "DUP", "NOMBRE", "Repetido", "UNIDAD", "und"),
		NewRow(4, "CODIGO", "", "NOMBRE", "Sin código", "UNIDAD", "und"),
	}
	removed := false
	result, err := ProductRows(store)(context.Background(), rows, func() { removed = true }, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, result.Succeeded)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, bulk.Failure{ID: 3, Message: "code must be unique"}, result.Failures[0])
	assert.Equal(t, bulk.Failure{ID: 4, Message: "CODIGO is empty"}, result.Failures[1])
	assert.False(t, removed)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Tornillo", store.created[0].Name)
}

func TestProductRowsReadsHeaderVariants(t *testing.T) {
	store := &memProducts{}
	rows, err := Parse("productos.csv", []byte("Referencia,Descripción,Und\nP-1,Tornillo,und\nP-2,Tuerca,und\n"))
	require.NoError(t, err)
	require.NoError(t, Validate(rows, ProductSchema.Requirements))

	result, err := ProductRows(store)(context.Background(), rows, func() {}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2 succeeded, 0 failed", result.Summary())
	require.Len(t, store.created, 2)
	codes := []string{store.created[0].Code, store.created[1].Code}
	assert.ElementsMatch(t, []string{"P-1", "P-2"}, codes)
	for _, p := range store.created {
		assert.Equal(t, "und", p.Unit)
		assert.NotEmpty(t, p.Name)
	}
}

func TestProductRowsReportFileLinesAfterBlankRows(t *testing.T) {
	store := &memProducts{}
	data := "CODIGO,NOMBRE,UNIDAD\nP-1,Tornillo,und\n\n,,\nDUP,Repetido,und\n"
	rows, err := Parse("productos.csv", []byte(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	result, err := ProductRows(store)(context.Background(), rows, func() {}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, result.Succeeded)
	assert.Equal(t, []bulk.Failure{{ID: 5, Message: "code must be unique"}}, result.Failures)
}

type memPacking struct {
	mu    sync.Mutex
	doc   documents.Document
	added []documents.AddItemRequest
}

func (m *memPacking) Get(_ context.Context, id int64) (*documents.Document, error) {
	doc := m.doc
	return &doc, nil
}

func (m *memPacking) AddItem(_ context.Context, id int64, req documents.AddItemRequest) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, req)
	doc := m.doc
	return &doc, nil
}

func TestPackingListRows(t *testing.T) {
	loader := &memPacking{doc: documents.Document{
		ID:    8,
		State: documents.StateConfirmed,
		OrderProducts: []documents.OrderProduct{
			{ID: 81, Product: &documents.Product{Code: "P-1"}},
			{ID: 82, Product: &documents.Product{Code: "P-2"}},
		},
	}}
	rows := []Row{
		NewRow(2, "Código", "p-2", "Cantidad", "4", "Lote", "L9"),
		NewRow(3, "Código", "P-3", "Cantidad", "1"),
	}

	result, err := PackingListRows(loader)(context.Background(), rows, func() {}, map[string]any{"documentId": "8", "warehouseId": 3.0})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "product P-3 is not in the document", result.Failures[0].Message)

	require.Len(t, loader.added, 1)
	assert.Equal(t, documents.AddItemRequest{OrderProductID: 82, Quantity: 4, LotNumber: "L9", WarehouseID: 3}, loader.added[0])
}

func TestPackingListRowsGuards(t *testing.T) {
	loader := &memPacking{doc: documents.Document{ID: 8, State: documents.StateCompleted}}
	rows := []Row{NewRow(2, "CODIGO", "P-1", "CANTIDAD", "1")}

	_, err := PackingListRows(loader)(context.Background(), rows, func() {}, nil)
	assert.ErrorIs(t, err, ErrMissingDocument)

	_, err = PackingListRows(loader)(context.Background(), rows, func() {}, map[string]any{"documentId": 8})
	assert.ErrorIs(t, err, ErrDocumentLocked)
}
