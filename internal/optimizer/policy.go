package optimizer

import (
	"fmt"
	"sort"
	"strings"
)

// CategoryPolicy holds the per-category inventory controls: a safety-stock
// multiplier (higher = more buffer) and the perishability cap expressed as
// weeks of demand per order.
type CategoryPolicy struct {
	SafetyMultiplier float64 `json:"safety_multiplier"`
	MaxOrderWeeks    int     `json:"max_order_weeks"`
}

// PolicyTable maps category names to their policies. A nil Default makes
// unknown categories an error; a non-nil Default is applied to any category
// not listed.
type PolicyTable struct {
	Policies map[string]CategoryPolicy `json:"policies"`
	Default  *CategoryPolicy           `json:"default,omitempty"`
}

// DefaultPolicyTable returns the grocery policy set the system ships with.
// Perishable categories get higher safety multipliers and tighter order caps
// than shelf-stable goods.
func DefaultPolicyTable() PolicyTable {
	fallback := CategoryPolicy{SafetyMultiplier: 1.0, MaxOrderWeeks: 8}
	return PolicyTable{
		Policies: map[string]CategoryPolicy{
			"Fruits & Vegetables": {SafetyMultiplier: 1.5, MaxOrderWeeks: 2},
			"Dairy":               {SafetyMultiplier: 1.4, MaxOrderWeeks: 3},
			"Seafood":             {SafetyMultiplier: 1.6, MaxOrderWeeks: 1},
			"Bakery":              {SafetyMultiplier: 1.3, MaxOrderWeeks: 2},
			"Beverages":           {SafetyMultiplier: 1.0, MaxOrderWeeks: 8},
			"Oils & Fats":         {SafetyMultiplier: 0.8, MaxOrderWeeks: 12},
			"Grains & Pulses":     {SafetyMultiplier: 0.7, MaxOrderWeeks: 12},
			"Snacks":              {SafetyMultiplier: 0.9, MaxOrderWeeks: 8},
		},
		Default: &fallback,
	}
}

// Resolve returns the policy for a category. Without a default policy an
// unknown category is an error rather than a silent fallback.
func (t PolicyTable) Resolve(category string) (CategoryPolicy, error) {
	if p, ok := t.Policies[category]; ok {
		return p, nil
	}
	if t.Default != nil {
		return *t.Default, nil
	}
	return CategoryPolicy{}, fmt.Errorf("no policy for category %q and no default configured", category)
}

// Validate checks policy values, and when observed categories are supplied,
// that each one resolves. Called at config load and again at batch start with
// the categories actually present in the data.
func (t PolicyTable) Validate(observed []string) error {
	for name, p := range t.Policies {
		if p.SafetyMultiplier <= 0 {
			return fmt.Errorf("category %q: safety multiplier must be > 0", name)
		}
		if p.MaxOrderWeeks < 1 {
			return fmt.Errorf("category %q: max order weeks must be >= 1", name)
		}
	}
	if t.Default != nil {
		if t.Default.SafetyMultiplier <= 0 || t.Default.MaxOrderWeeks < 1 {
			return fmt.Errorf("default policy is invalid")
		}
		return nil
	}

	var unknown []string
	for _, c := range observed {
		if _, ok := t.Policies[c]; !ok {
			unknown = append(unknown, c)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("categories without a policy: %s", strings.Join(unknown, ", "))
	}
	return nil
}
