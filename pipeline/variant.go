package pipeline

import "fmt"

// Variant selects how much of the advisory layer participates in a run. The
// baseline never calls the advisor; the filter variant uses only its
// approve/reject answer; the sizing variant additionally applies its size
// multiplier.
type Variant struct {
	Name              string
	UseAdvisory       bool
	UseAdvisorySizing bool
}

var (
	Baseline       = Variant{Name: "baseline"}
	AIFilter       = Variant{Name: "ai_filter", UseAdvisory: true}
	AIFilterSizing = Variant{Name: "ai_filter_sizing", UseAdvisory: true, UseAdvisorySizing: true}
)

// AllVariants returns the three canonical variants in evaluation order.
func AllVariants() []Variant {
	return []Variant{Baseline, AIFilter, AIFilterSizing}
}

// VariantByName resolves a variant from its config name.
func VariantByName(name string) (Variant, error) {
	for _, v := range AllVariants() {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown variant %q", name)
}
