// Package entities serves the catalogue records (products, warehouses,
// customers, suppliers) through one generic CRUD path. Each entity kind is a
// Config value describing its fields rather than a dedicated type.
package entities

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

var (
	// ErrUnknownEntity is returned for a kind with no Config.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("record not found")
)

// FieldKind selects the value rules of a field.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindEmail  FieldKind = "email"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
)

// Field describes one editable attribute.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Max      int       `json:"max,omitempty"`
}

// Config is the strategy object for one entity kind.
type Config struct {
	Name         string   `json:"name"`
	Collection   string   `json:"collection"`
	Fields       []Field  `json:"fields"`
	Columns      []string `json:"columns"`
	SearchFields []string `json:"-"`
	DefaultSort  string   `json:"-"`
}

// Record is a flat entity payload keyed by field name.
type Record map[string]any

// FieldError is the user-facing message for the first invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	Products = Config{
		Name:       "products",
		Collection: "products",
		Fields: []Field{
			{Name: "code", Label: "Código", Kind: KindText, Required: true, Max: 64},
			{Name: "name", Label: "Nombre", Kind: KindText, Required: true, Max: 255},
			{Name: "unit", Label: "Unidad", Kind: KindText, Required: true, Max: 32},
			{Name: "barcode", Label: "Código de barras", Kind: KindText, Max: 64},
			{Name: "price", Label: "Precio", Kind: KindNumber},
			{Name: "ivaIncluded", Label: "IVA incluido", Kind: KindBool},
		},
		Columns:      []string{"code", "name", "unit", "price"},
		SearchFields: []string{"code", "name", "barcode"},
		DefaultSort:  "code:asc",
	}
	Warehouses = Config{
		Name:       "warehouses",
		Collection: "warehouses",
		Fields: []Field{
			{Name: "code", Label: "Código", Kind: KindText, Required: true, Max: 32},
			{Name: "name", Label: "Nombre", Kind: KindText, Required: true, Max: 255},
			{Name: "address", Label: "Dirección", Kind: KindText, Max: 255},
		},
		Columns:      []string{"code", "name", "address"},
		SearchFields: []string{"code", "name"},
		DefaultSort:  "name:asc",
	}
	Customers = partnerConfig("customers")
	Suppliers = partnerConfig("suppliers")
)

func partnerConfig(name string) Config {
	return Config{
		Name:       name,
		Collection: name,
		Fields: []Field{
			{Name: "name", Label: "Nombre", Kind: KindText, Required: true, Max: 255},
			{Name: "taxId", Label: "NIT", Kind: KindText, Required: true, Max: 32},
			{Name: "email", Label: "Correo", Kind: KindEmail, Max: 255},
			{Name: "phone", Label: "Teléfono", Kind: KindText, Max: 32},
			{Name: "address", Label: "Dirección", Kind: KindText, Max: 255},
		},
		Columns:      []string{"name", "taxId", "email", "phone"},
		SearchFields: []string{"name", "taxId", "email"},
		DefaultSort:  "name:asc",
	}
}

// Registry maps entity names to their Config.
type Registry map[string]Config

// DefaultRegistry holds the built-in entity kinds.
func DefaultRegistry() Registry {
	return Registry{
		Products.Name:   Products,
		Warehouses.Name: Warehouses,
		Customers.Name:  Customers,
		Suppliers.Name:  Suppliers,
	}
}

// Lookup returns the Config for name.
func (r Registry) Lookup(name string) (Config, error) {
	cfg, ok := r[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return cfg, nil
}

// Names lists the registered kinds in order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clean validates rec against the fields and returns only known fields with
// normalised values. With partial set, required fields may be omitted but
// not sent blank or null.
func (c Config) Clean(v *validator.Validate, rec Record, partial bool) (Record, error) {
	out := make(Record, len(c.Fields))
	for _, field := range c.Fields {
		raw, present := rec[field.Name]
		if !present || raw == nil || isBlank(raw) {
			if field.Required && (present || !partial) {
				return nil, &FieldError{Field: field.Name, Message: field.Label + " is required"}
			}
			if present && !field.Required {
				out[field.Name] = nil
			}
			continue
		}
		value, err := field.normalise(v, raw)
		if err != nil {
			return nil, err
		}
		out[field.Name] = value
	}
	return out, nil
}

func (f Field) normalise(v *validator.Validate, raw any) (any, error) {
	switch f.Kind {
	case KindNumber:
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, &FieldError{Field: f.Name, Message: f.Label + " must be a number"}
		}
		return n, nil
	case KindBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, &FieldError{Field: f.Name, Message: f.Label + " must be true or false"}
		}
		return b, nil
	}

	s, err := cast.ToStringE(raw)
	if err != nil {
		return nil, &FieldError{Field: f.Name, Message: f.Label + " must be text"}
	}
	s = strings.TrimSpace(s)
	tags := make([]string, 0, 2)
	if f.Kind == KindEmail {
		tags = append(tags, "email")
	}
	if f.Max > 0 {
		tags = append(tags, fmt.Sprintf("max=%d", f.Max))
	}
	if len(tags) > 0 {
		if err := v.Var(s, strings.Join(tags, ",")); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return nil, &FieldError{Field: f.Name, Message: describe(f, verrs[0])}
			}
			return nil, err
		}
	}
	return s, nil
}

func describe(f Field, fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return f.Label + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", f.Label, fe.Param())
	default:
		return f.Label + " is invalid"
	}
}

func isBlank(raw any) bool {
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}
