package invoice

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

func pct(v float64) *float64 { return &v }

func TestComputeSplitsTaxableQuantity(t *testing.T) {
	lines := []documents.OrderProduct{
		{
			ID:                1,
			Price:             1000,
			InvoicePercentage: pct(50),
			Items:             []documents.Item{{ID: 1, Quantity: 4}, {ID: 2, Quantity: 6}},
		},
	}

	summary := Compute(lines, DefaultTaxes())

	require.Len(t, summary.Lines, 1)
	assert.Equal(t, 10.0, summary.Lines[0].Quantity)
	assert.Equal(t, 5.0, summary.Lines[0].QuantityForTaxes)
	assert.Equal(t, 5.0, summary.Lines[0].QuantityWithNoTaxes)
	assert.Equal(t, 5000.0, summary.SubtotalForTaxes)
	assert.Equal(t, 5000.0, summary.SubtotalWithNoTaxes)
	assert.Equal(t, 10000.0, summary.Subtotal)

	require.Len(t, summary.Taxes, 3)
	assert.InDelta(t, 950.0, summary.Taxes[0].Amount, 1e-9)
	assert.InDelta(t, 125.0, summary.Taxes[1].Amount, 1e-9)
	assert.InDelta(t, 38.5, summary.Taxes[2].Amount, 1e-9)
	assert.InDelta(t, 786.5, summary.TaxAmount, 1e-9)
	assert.Equal(t, 10786.5, summary.Total)
}

func TestComputeBacksOutIVA(t *testing.T) {
	lines := []documents.OrderProduct{{ID: 1, Price: 1000, IVAIncluded: true, Items: []documents.Item{{ID: 1, Quantity: 1}}}}
	summary := Compute(lines, nil)
	assert.Equal(t, 840.34, summary.Lines[0].Price)
	assert.Equal(t, 840.34, summary.Total)
}

func TestComputeFallsBackToProductQuantity(t *testing.T) {
	lines := []documents.OrderProduct{{ID: 1, Price: 10, Product: &documents.Product{ID: 9, Quantity: 7}}}
	summary := Compute(lines, nil)
	assert.Equal(t, 7.0, summary.Lines[0].Quantity)
	assert.Equal(t, 70.0, summary.Total)
}

func TestComputeRespectsThreshold(t *testing.T) {
	taxes := []Tax{
		{Name: "IVA 19%", Rate: 0.19, Use: UseIncrement},
		{Name: "Retefuente 2.5%", Rate: 0.025, Threshold: 10000, Use: "decrement"},
	}
	lines := []documents.OrderProduct{{ID: 1, Price: 100, Items: []documents.Item{{ID: 1, Quantity: 10}}}}
	summary := Compute(lines, taxes)
	assert.InDelta(t, 190.0, summary.Taxes[0].Amount, 1e-9)
	assert.Equal(t, 0.0, summary.Taxes[1].Amount)
	assert.Equal(t, 1190.0, summary.Total)
}

func TestComputeIsIdempotent(t *testing.T) {
	lines := []documents.OrderProduct{
		{ID: 1, Price: 1234.56, IVAIncluded: true, InvoicePercentage: pct(33), Items: []documents.Item{{ID: 1, Quantity: 7.5}}},
		{ID: 2, Price: 99.99, Items: []documents.Item{{ID: 2, Quantity: 3}}},
	}
	taxes := []Tax{{Name: "Custom", Rate: 0.01, Use: "decrement"}, {Name: "IVA 19%", Rate: 0.19, Use: UseIncrement}}

	first := Compute(lines, taxes)
	second := Compute(lines, taxes)

	assert.Equal(t, first.Subtotal, second.Subtotal)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1234.56, lines[0].Price)
	assert.Equal(t, "Custom", taxes[0].Name)
}

func TestComputeRoundsOnlyTheAggregate(t *testing.T) {
	price, quantity := 10.005, 3.0
	lines := []documents.OrderProduct{{ID: 1, Price: price, Items: []documents.Item{{ID: 1, Quantity: quantity}}}}
	summary := Compute(lines, nil)
	assert.Equal(t, math.Round(price*quantity*100)/100, summary.Total)
}

func TestSortForDisplay(t *testing.T) {
	sorted := SortForDisplay([]Tax{
		{Name: "Other"},
		{Name: "ICA 0.77%"},
		{Name: "IVA 19%"},
		{Name: "Another"},
		{Name: "Retefuente 2.5%"},
	})
	names := make([]string, 0, len(sorted))
	for _, tax := range sorted {
		names = append(names, tax.Name)
	}
	assert.Equal(t, []string{"IVA 19%", "Retefuente 2.5%", "ICA 0.77%", "Other", "Another"}, names)
}

func TestLoadTaxes(t *testing.T) {
	taxes, err := LoadTaxes("")
	require.NoError(t, err)
	assert.Len(t, taxes, 3)

	path := filepath.Join(t.TempDir(), "taxes.yml")
	content := "taxes:\n  - name: IVA 19%\n    rate: 0.19\n    use: increment\n  - name: Estampilla\n    rate: 0.01\n    threshold: 500\n    use: decrement\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	taxes, err = LoadTaxes(path)
	require.NoError(t, err)
	require.Len(t, taxes, 2)
	assert.Equal(t, "Estampilla", taxes[1].Name)
	assert.Equal(t, 500.0, taxes[1].Threshold)

	_, err = ParseTaxes([]byte("taxes:\n  - rate: 0.1\n"))
	require.Error(t, err)
}

func TestConfirmedScenarioShowsNetPriceAndConfirmedQuantity(t *testing.T) {
	op := documents.OrderProduct{ID: 1, Price: 1000, IVAIncluded: true, ConfirmedQuantity: 50, ConfirmedPackages: 5}
	assert.Equal(t, 840.34, NetPrice(op.Price, op.IVAIncluded))
	assert.Equal(t, 50.0, documents.SelectQuantity(documents.StateConfirmed, op).Quantity)
}
