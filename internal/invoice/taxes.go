package invoice

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// UseIncrement marks a tax that is added to the subtotal. Any other value
// subtracts (withholdings).
const UseIncrement = "increment"

// Tax is a configured invoice tax or withholding.
type Tax struct {
	Name      string  `json:"name" yaml:"name"`
	Rate      float64 `json:"rate" yaml:"rate"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold"`
	Use       string  `json:"use" yaml:"use"`
}

// displayPriority fixes the order in which well-known taxes are shown.
var displayPriority = []string{"IVA 19%", "Retefuente 2.5%", "ICA 0.77%"}

// DefaultTaxes returns the Colombian tax table used when no file is configured.
func DefaultTaxes() []Tax {
	return []Tax{
		{Name: "IVA 19%", Rate: 0.19, Use: UseIncrement},
		{Name: "Retefuente 2.5%", Rate: 0.025, Use: "decrement"},
		{Name: "ICA 0.77%", Rate: 0.0077, Use: "decrement"},
	}
}

type taxFile struct {
	Taxes []Tax `yaml:"taxes"`
}

// LoadTaxes reads a tax table from a YAML file. An empty path yields the
// defaults.
func LoadTaxes(path string) ([]Tax, error) {
	if path == "" {
		return DefaultTaxes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("invoice: read tax file: %w", err)
	}
	return ParseTaxes(data)
}

// ParseTaxes decodes a YAML tax table.
func ParseTaxes(data []byte) ([]Tax, error) {
	var file taxFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invoice: parse tax file: %w", err)
	}
	for i, tax := range file.Taxes {
		if tax.Name == "" {
			return nil, fmt.Errorf("invoice: tax %d: %w", i+1, errors.New("name is required"))
		}
		if tax.Rate < 0 {
			return nil, fmt.Errorf("invoice: tax %q: rate must not be negative", tax.Name)
		}
	}
	return file.Taxes, nil
}

// SortForDisplay returns a copy of taxes with the well-known ones first, in
// their fixed order, followed by the rest in their original order.
func SortForDisplay(taxes []Tax) []Tax {
	sorted := make([]Tax, len(taxes))
	copy(sorted, taxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priority(sorted[i].Name) < priority(sorted[j].Name)
	})
	return sorted
}

func priority(name string) int {
	for i, known := range displayPriority {
		if known == name {
			return i
		}
	}
	return len(displayPriority)
}
