package orders

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PrepTimeTable holds per-unit preparation minutes by product category.
type PrepTimeTable struct {
	Default    int            `yaml:"default"`
	Min        int            `yaml:"min"`
	Max        int            `yaml:"max"`
	Categories map[string]int `yaml:"categories"`
}

// DefaultPrepTimes returns the built-in menu timings.
func DefaultPrepTimes() PrepTimeTable {
	return PrepTimeTable{
		Default: 3,
		Min:     5,
		Max:     30,
		Categories: map[string]int{
			"ca-phe-truyen-thong": 4,
			"ca-phe-may":          2,
			"tra-tra-sua":         5,
			"da-xay":              6,
			"sinh-to":             6,
			"mon-an-kem":          8,
			"banh-ngot":           8,
		},
	}
}

// Estimate sums base minutes times quantity over items and clamps the total
// to [Min, Max].
func (t PrepTimeTable) Estimate(items []LineItem) int {
	total := 0
	for _, item := range items {
		base := t.base(item.Category)
		if item.Quantity <= 0 || base <= 0 {
			continue
		}
		// total stays within Max here; anything past it clamps.
		if item.Quantity > (t.Max-total)/base {
			return t.Max
		}
		total += base * item.Quantity
	}
	if total < t.Min {
		return t.Min
	}
	if total > t.Max {
		return t.Max
	}
	return total
}

func (t PrepTimeTable) base(category string) int {
	if minutes, ok := t.Categories[strings.ToLower(strings.TrimSpace(category))]; ok {
		return minutes
	}
	return t.Default
}

func (t PrepTimeTable) Validate() error {
	if t.Min <= 0 || t.Max < t.Min {
		return fmt.Errorf("prep times: need 0 < min <= max, got min=%d max=%d", t.Min, t.Max)
	}
	if t.Default <= 0 {
		return fmt.Errorf("prep times: default must be positive")
	}
	for category, minutes := range t.Categories {
		if minutes <= 0 {
			return fmt.Errorf("prep times: category %q must be positive", category)
		}
	}
	return nil
}

// LoadPrepTimeTable merges YAML overrides from path onto the defaults. An
// empty path returns the defaults.
func LoadPrepTimeTable(path string) (PrepTimeTable, error) {
	table := DefaultPrepTimes()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PrepTimeTable{}, fmt.Errorf("read prep times %s: %w", path, err)
	}
	var override PrepTimeTable
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return PrepTimeTable{}, fmt.Errorf("parse prep times %s: %w", path, err)
	}
	if override.Default != 0 {
		table.Default = override.Default
	}
	if override.Min != 0 {
		table.Min = override.Min
	}
	if override.Max != 0 {
		table.Max = override.Max
	}
	for category, minutes := range override.Categories {
		table.Categories[strings.ToLower(strings.TrimSpace(category))] = minutes
	}
	if err := table.Validate(); err != nil {
		return PrepTimeTable{}, err
	}
	return table, nil
}
