// Package imports parses spreadsheet uploads and checks that the columns a
// consumer needs are present before handing the rows over.
package imports

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyFile is returned when a file carries no data rows.
var ErrEmptyFile = errors.New("the file is empty")

// MissingColumnError names the first required column absent from a file.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %s", e.Column)
}

// Requirement is a required column and the header spellings that satisfy it.
// The requirement name itself is always accepted.
type Requirement struct {
	Name     string
	Variants []string
}

// Names lists the requirement name followed by its variants.
func (r Requirement) Names() []string {
	return append([]string{r.Name}, r.Variants...)
}

func (r Requirement) matches(folded map[string]struct{}) bool {
	for _, name := range r.Names() {
		if _, ok := folded[Fold(name)]; ok {
			return true
		}
	}
	return false
}

// Schema is an ordered list of requirements checked by Validate.
type Schema struct {
	Name         string
	Requirements []Requirement
}

// Columns read by the built-in consumers. LOTE and SERIAL are optional.
var (
	CodeColumn     = Requirement{Name: "CODIGO", Variants: []string{"codigo", "código", "code", "referencia"}}
	NameColumn     = Requirement{Name: "NOMBRE", Variants: []string{"nombre", "name", "descripcion", "descripción"}}
	UnitColumn     = Requirement{Name: "UNIDAD", Variants: []string{"unidad", "unit", "und"}}
	QuantityColumn = Requirement{Name: "CANTIDAD", Variants: []string{"cantidad", "quantity", "qty"}}
	LotColumn      = Requirement{Name: "LOTE", Variants: []string{"lote", "lot", "lotNumber"}}
	SerialColumn   = Requirement{Name: "SERIAL", Variants: []string{"serie", "itemNumber", "item"}}
)

var (
	// ProductSchema is used for the product catalogue upload.
	ProductSchema = Schema{
		Name:         "products",
		Requirements: []Requirement{CodeColumn, NameColumn, UnitColumn},
	}
	// PackingListSchema is used to load items into an order line.
	PackingListSchema = Schema{
		Name:         "packing-list",
		Requirements: []Requirement{CodeColumn, QuantityColumn},
	}
)

// Schemas indexes the built-in schemas by name.
var Schemas = map[string]Schema{
	ProductSchema.Name:     ProductSchema,
	PackingListSchema.Name: PackingListSchema,
}

// Validate fails with ErrEmptyFile for zero rows, otherwise with a
// MissingColumnError for the first requirement no header satisfies.
// Cell values are not inspected.
func Validate(rows []Row, requirements []Requirement) error {
	if len(rows) == 0 {
		return ErrEmptyFile
	}
	folded := make(map[string]struct{})
	for _, row := range rows {
		for _, cell := range row.Cells {
			folded[Fold(cell.Header)] = struct{}{}
		}
	}
	for _, req := range requirements {
		if !req.matches(folded) {
			return &MissingColumnError{Column: req.Name}
		}
	}
	return nil
}

// Fold lower-cases s, strips diacritics and surrounding space so that
// "Código", "CODIGO" and " codigo " compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
