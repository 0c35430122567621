package documents

import "math"

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Quantity is the quantity/package pair that is authoritative for a state.
type Quantity struct {
	Quantity float64 `json:"quantity"`
	Packages float64 `json:"packages"`
}

// SelectQuantity returns the requested, confirmed or delivered figures of the
// line depending on the parent document state. Unknown states yield zero.
func SelectQuantity(state State, op OrderProduct) Quantity {
	switch state {
	case StateDraft:
		return Quantity{Quantity: op.RequestedQuantity, Packages: op.RequestedPackages}
	case StateConfirmed:
		return Quantity{Quantity: op.ConfirmedQuantity, Packages: op.ConfirmedPackages}
	case StateCompleted:
		return Quantity{Quantity: op.DeliveredQuantity, Packages: op.DeliveredPackages}
	default:
		return Quantity{}
	}
}

// SumQuantities totals the authoritative quantities of every line.
func SumQuantities(doc Document) Quantity {
	var total Quantity
	for _, op := range doc.OrderProducts {
		q := SelectQuantity(doc.State, op)
		total.Quantity += q.Quantity
		total.Packages += q.Packages
	}
	return total
}

// PackingLine summarises the items recorded against one line.
type PackingLine struct {
	OrderProductID    int64   `json:"orderProductId"`
	RequestedQuantity float64 `json:"requestedQuantity"`
	TotalQuantity     float64 `json:"totalQuantity"`
	ItemsWithQuantity int     `json:"itemsWithQuantity"`
	ItemCount         int     `json:"itemCount"`
}

// PackingProgress is the packing-list completion of a whole document.
type PackingProgress struct {
	Lines          []PackingLine `json:"lines"`
	TotalQuantity  float64       `json:"totalQuantity"`
	TotalRequested float64       `json:"totalRequested"`
	Percent        float64       `json:"percent"`
	DisplayPercent float64       `json:"displayPercent"`
}

// SummarizePackingLine computes item totals for a single line.
func SummarizePackingLine(op OrderProduct) PackingLine {
	line := PackingLine{
		OrderProductID:    op.ID,
		RequestedQuantity: op.RequestedQuantity,
		ItemCount:         len(op.Items),
	}
	for _, item := range op.Items {
		line.TotalQuantity += item.Quantity
		if item.Quantity > 0 {
			line.ItemsWithQuantity++
		}
	}
	return line
}

// ComputePackingProgress recomputes the packing percentage from scratch.
// Percent is 0 when nothing was requested; DisplayPercent is clamped to
// [0,100] for progress bars.
func ComputePackingProgress(doc Document) PackingProgress {
	progress := PackingProgress{Lines: make([]PackingLine, 0, len(doc.OrderProducts))}
	for _, op := range doc.OrderProducts {
		line := SummarizePackingLine(op)
		progress.Lines = append(progress.Lines, line)
		progress.TotalQuantity += line.TotalQuantity
		progress.TotalRequested += line.RequestedQuantity
	}
	if progress.TotalRequested != 0 {
		progress.Percent = math.Round(100 * progress.TotalQuantity / progress.TotalRequested)
	}
	progress.DisplayPercent = math.Min(100, math.Max(0, progress.Percent))
	return progress
}

// ComputeStats counts documents per state and per type.
func ComputeStats(docs []Document) Stats {
	stats := Stats{
		Total:   len(docs),
		ByState: make(map[State]int),
		ByType:  make(map[Type]int),
	}
	for _, doc := range docs {
		stats.ByState[doc.State]++
		stats.ByType[doc.Type]++
	}
	return stats
}
