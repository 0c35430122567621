// Package invoice computes invoice subtotals and taxes from document lines.
package invoice

import (
	"github.com/odyssey-erp/odyssey-wms/internal/documents"
)

// ivaRate is the VAT backed out of prices flagged as VAT-inclusive.
const ivaRate = 1.19

// Line is the per-OrderProduct breakdown of an invoice.
type Line struct {
	OrderProductID      int64   `json:"orderProductId"`
	Price               float64 `json:"price"`
	Quantity            float64 `json:"quantity"`
	QuantityForTaxes    float64 `json:"quantityForTaxes"`
	QuantityWithNoTaxes float64 `json:"quantityWithNoTaxes"`
	Subtotal            float64 `json:"subtotal"`
}

// TaxAmount is a configured tax with its computed amount.
type TaxAmount struct {
	Tax
	Amount float64 `json:"amount"`
}

// Summary is the full invoice computation result.
type Summary struct {
	Lines               []Line      `json:"lines"`
	SubtotalForTaxes    float64     `json:"subtotalForTaxes"`
	SubtotalWithNoTaxes float64     `json:"subtotalWithNoTaxes"`
	Subtotal            float64     `json:"subtotal"`
	Taxes               []TaxAmount `json:"taxes"`
	TaxAmount           float64     `json:"taxAmount"`
	Total               float64     `json:"total"`
}

// NetPrice backs VAT out of a VAT-inclusive price.
func NetPrice(price float64, ivaIncluded bool) float64 {
	if ivaIncluded {
		return documents.Round2(price / ivaRate)
	}
	return price
}

// LineQuantity sums the item quantities of a line, falling back to the
// product quantity when no items were recorded.
func LineQuantity(op documents.OrderProduct) float64 {
	if len(op.Items) == 0 {
		if op.Product != nil {
			return op.Product.Quantity
		}
		return 0
	}
	var total float64
	for _, item := range op.Items {
		total += item.Quantity
	}
	return total
}

// Compute derives subtotals, taxes and total. It never mutates its inputs
// and rounds only where the figures are displayed.
func Compute(lines []documents.OrderProduct, taxes []Tax) Summary {
	summary := Summary{Lines: make([]Line, 0, len(lines))}

	for _, op := range lines {
		price := NetPrice(op.Price, op.IVAIncluded)
		quantity := LineQuantity(op)
		percentage := 100.0
		if op.InvoicePercentage != nil {
			percentage = *op.InvoicePercentage
		}
		forTaxes := documents.Round2(quantity * percentage / 100)
		withNoTaxes := quantity - forTaxes

		lineForTaxes := price * forTaxes
		lineWithNoTaxes := price * withNoTaxes
		summary.SubtotalForTaxes += lineForTaxes
		summary.SubtotalWithNoTaxes += lineWithNoTaxes

		summary.Lines = append(summary.Lines, Line{
			OrderProductID:      op.ID,
			Price:               price,
			Quantity:            quantity,
			QuantityForTaxes:    forTaxes,
			QuantityWithNoTaxes: withNoTaxes,
			Subtotal:            lineForTaxes + lineWithNoTaxes,
		})
	}
	summary.Subtotal = summary.SubtotalForTaxes + summary.SubtotalWithNoTaxes

	sorted := SortForDisplay(taxes)
	summary.Taxes = make([]TaxAmount, 0, len(sorted))
	for _, tax := range sorted {
		var amount float64
		if summary.SubtotalForTaxes >= tax.Threshold {
			amount = summary.SubtotalForTaxes * tax.Rate
		}
		summary.Taxes = append(summary.Taxes, TaxAmount{Tax: tax, Amount: amount})
		if tax.Use == UseIncrement {
			summary.TaxAmount += amount
		} else {
			summary.TaxAmount -= amount
		}
	}

	summary.Total = documents.Round2(summary.Subtotal + summary.TaxAmount)
	return summary
}
