package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

func sourceDocument() documents.Document {
	return documents.Document{
		ID:    10,
		Code:  "VTA-10",
		Type:  documents.TypeSale,
		State: documents.StateCompleted,
		OrderProducts: []documents.OrderProduct{
			{
				ID:    1,
				Price: 500,
				Items: []documents.Item{
					{ID: 100, Quantity: 100, LotNumber: "L1"},
					{ID: 101, CurrentQuantity: 40, LotNumber: "L2"},
				},
			},
			{
				ID:    2,
				Price: 20,
				Items: []documents.Item{{ID: 200, Quantity: 5}},
			},
		},
	}
}

func TestToggleDefaultsToFullQuantity(t *testing.T) {
	sel := NewSelection(sourceDocument())

	selected, err := sel.Toggle(100)
	require.NoError(t, err)
	assert.True(t, selected)
	require.Len(t, sel.Items(), 1)
	assert.Equal(t, 100.0, sel.Items()[0].ReturnQuantity)

	selected, err = sel.Toggle(101)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, 40.0, sel.Items()[1].ReturnQuantity)

	selected, err = sel.Toggle(100)
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Len(t, sel.Items(), 1)

	_, err = sel.Toggle(999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSetQuantityClamps(t *testing.T) {
	sel := NewSelection(sourceDocument())
	_, err := sel.Toggle(100)
	require.NoError(t, err)

	tests := []struct {
		raw  any
		want float64
	}{
		{raw: "150", want: 100},
		{raw: "-5", want: 0},
		{raw: "abc", want: 0},
		{raw: " 42.5 ", want: 42.5},
		{raw: 7, want: 7},
		{raw: nil, want: 0},
	}
	for _, tc := range tests {
		got, err := sel.SetQuantity(100, tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "raw=%v", tc.raw)
	}

	_, err = sel.SetQuantity(200, "1")
	assert.ErrorIs(t, err, ErrNotSelected)
}

func TestOriginalQuantityUsesParentItem(t *testing.T) {
	doc := documents.Document{
		State: documents.StateDraft,
		Type:  documents.TypeReturn,
		OrderProducts: []documents.OrderProduct{{
			ID: 1,
			Items: []documents.Item{
				{ID: 1, Quantity: 3, LotNumber: "A", ItemNumber: "X1", ParentItem: &documents.Item{ID: 50, Quantity: 100, LotNumber: "A", ItemNumber: "X1"}},
				{ID: 2, Quantity: 1, LotNumber: "a", ItemNumber: "x1"},
				{ID: 3, Quantity: 9},
			},
		}},
	}
	sel := NewSelection(doc)
	assert.Equal(t, 100.0, sel.OriginalQuantity(doc.OrderProducts[0].Items[0]))
	assert.Equal(t, 100.0, sel.OriginalQuantity(doc.OrderProducts[0].Items[1]))
	assert.Equal(t, 9.0, sel.OriginalQuantity(doc.OrderProducts[0].Items[2]))

	_, err := sel.Toggle(1)
	require.NoError(t, err)
	got, err := sel.SetQuantity(1, "150")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}

func TestOriginalQuantityPicksLowestParentOnSharedLot(t *testing.T) {
	doc := documents.Document{
		State: documents.StateDraft,
		Type:  documents.TypeReturn,
		OrderProducts: []documents.OrderProduct{{
			ID: 1,
			Items: []documents.Item{
				{ID: 1, Quantity: 1, ParentItem: &documents.Item{ID: 90, Quantity: 30, LotNumber: "L", ItemNumber: "S"}},
				{ID: 2, Quantity: 1, ParentItem: &documents.Item{ID: 70, Quantity: 12, LotNumber: "L", ItemNumber: "S"}},
				{ID: 3, Quantity: 1, ParentItem: &documents.Item{ID: 80, Quantity: 20, LotNumber: "L", ItemNumber: "S"}},
				{ID: 4, Quantity: 1, LotNumber: "l", ItemNumber: "s"},
			},
		}},
	}
	for i := 0; i < 20; i++ {
		sel := NewSelection(doc)
		assert.Equal(t, 12.0, sel.OriginalQuantity(doc.OrderProducts[0].Items[3]))
	}
}

func TestCoverage(t *testing.T) {
	src := sourceDocument()
	sel := NewSelection(src)

	assert.Equal(t, Coverage{}, sel.Coverage(src.OrderProducts[0]))

	_, _ = sel.Toggle(100)
	assert.Equal(t, Coverage{Partial: true}, sel.Coverage(src.OrderProducts[0]))

	_, _ = sel.Toggle(101)
	assert.Equal(t, Coverage{Full: true}, sel.Coverage(src.OrderProducts[0]))
	assert.Equal(t, Coverage{}, sel.Coverage(src.OrderProducts[1]))
}

func TestBuildReturn(t *testing.T) {
	sel := NewSelection(sourceDocument())
	_, _ = sel.Toggle(100)
	_, _ = sel.Toggle(101)
	_, _ = sel.Toggle(200)
	_, _ = sel.SetQuantity(100, "25")
	_, _ = sel.SetQuantity(200, "0")

	doc, err := Build(sel, "DEV-1", "damaged")
	require.NoError(t, err)
	assert.Equal(t, documents.TypeReturn, doc.Type)
	assert.Equal(t, documents.StateDraft, doc.State)
	require.NotNil(t, doc.SourceOrder)
	assert.Equal(t, int64(10), doc.SourceOrder.ID)

	require.Len(t, doc.OrderProducts, 1)
	line := doc.OrderProducts[0]
	assert.Equal(t, 65.0, line.RequestedQuantity)
	require.Len(t, line.Items, 2)
	assert.Equal(t, 25.0, line.Items[0].Quantity)
	assert.Equal(t, int64(100), line.Items[0].ParentItem.ID)
	assert.Equal(t, "L2", line.Items[1].LotNumber)
}

func TestBuildReturnRejectsEmptyAndOpenSources(t *testing.T) {
	sel := NewSelection(sourceDocument())
	_, err := Build(sel, "DEV-1", "")
	assert.ErrorIs(t, err, ErrEmptyReturn)

	open := sourceDocument()
	open.State = documents.StateConfirmed
	_, err = Build(NewSelection(open), "DEV-2", "")
	assert.ErrorIs(t, err, ErrSourceNotReturnable)
}
