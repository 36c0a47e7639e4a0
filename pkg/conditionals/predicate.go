package conditionals

// FlagView is the minimal read access needed to evaluate a predicate.
// It avoids an import cycle with the flags package.
type FlagView interface {
	Has(id string) bool
}

// Predicate gates content on the current flag set.
// It holds when every Required flag is asserted and no Forbidden flag is.
// An empty predicate always holds.
type Predicate struct {
	Required  []string `json:"required_flags,omitempty" yaml:"required_flags,omitempty"`
	Forbidden []string `json:"forbidden_flags,omitempty" yaml:"forbidden_flags,omitempty"`
}

// IsEmpty reports whether the predicate has no conditions
func (p Predicate) IsEmpty() bool {
	return len(p.Required) == 0 && len(p.Forbidden) == 0
}

// Evaluate checks the predicate against the flag view
func (p Predicate) Evaluate(view FlagView) bool {
	return AllAsserted(p.Required, view) && NoneAsserted(p.Forbidden, view)
}

// AllAsserted reports whether every id is asserted. An empty list is satisfied.
func AllAsserted(ids []string, view FlagView) bool {
	for _, id := range ids {
		if !view.Has(id) {
			return false
		}
	}
	return true
}

// NoneAsserted reports whether no id is asserted. An empty list is satisfied.
func NoneAsserted(ids []string, view FlagView) bool {
	for _, id := range ids {
		if view.Has(id) {
			return false
		}
	}
	return true
}

// Filter returns the items whose predicate holds, keeping their order.
func Filter[T any](items []T, predicate func(T) Predicate, view FlagView) []T {
	var out []T
	for _, item := range items {
		if predicate(item).Evaluate(view) {
			out = append(out, item)
		}
	}
	return out
}
