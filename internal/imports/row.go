package imports

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cell is one value of a row together with the header of its column.
type Cell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// Row is one spreadsheet line. Cells keep the column order of the header
// row and Line is the line number in the uploaded file.
type Row struct {
	Line  int    `json:"line"`
	Cells []Cell `json:"cells"`
}

// NewRow builds a row from alternating header and value strings.
func NewRow(line int, pairs ...string) Row {
	row := Row{Line: line, Cells: make([]Cell, 0, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		row.Cells = append(row.Cells, Cell{Header: pairs[i], Value: pairs[i+1]})
	}
	return row
}

// String returns the trimmed value of the first column whose folded header
// matches one of names. Names are tried in order; for each name the
// leftmost matching column wins.
func (r Row) String(names ...string) string {
	for _, name := range names {
		want := Fold(name)
		for _, cell := range r.Cells {
			if Fold(cell.Header) == want {
				return strings.TrimSpace(cell.Value)
			}
		}
	}
	return ""
}

// Value reads the column satisfying req, accepting the same spellings
// Validate does.
func (r Row) Value(req Requirement) string {
	return r.String(req.Names()...)
}

// Decimal parses the column as a decimal number. Both "1234.5" and
// "1.234,5" are accepted. Empty cells yield zero.
func (r Row) Decimal(names ...string) (decimal.Decimal, error) {
	raw := r.String(names...)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}
	return d, nil
}

// Float is Decimal converted to float64.
func (r Row) Float(names ...string) (float64, error) {
	d, err := r.Decimal(names...)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func normalizeNumber(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}
