// Package layer provides the precedence tier model and the nested-map
// mechanics the merge engine is built on.
//
// Configuration values are layered across four tiers. Higher tiers override
// values from lower tiers key by key; nested mappings merge recursively
// rather than replacing each other wholesale.
package layer

// Tier is one precedence level in the merge order.
type Tier uint8

const (
	// TierDefaults holds registered schema defaults.
	TierDefaults Tier = iota
	// TierGlobal holds document-root overrides outside any component block.
	TierGlobal
	// TierComponent holds overrides from a component's own block.
	TierComponent
	// TierCategory holds overrides from a category block within a component.
	TierCategory
)

// String returns a human-readable name for the tier.
func (t Tier) String() string {
	switch t {
	case TierDefaults:
		return "defaults"
	case TierGlobal:
		return "global"
	case TierComponent:
		return "component"
	case TierCategory:
		return "category"
	default:
		return "unknown"
	}
}

// Tiers lists all tiers in merge order, lowest precedence first.
func Tiers() []Tier {
	return []Tier{TierDefaults, TierGlobal, TierComponent, TierCategory}
}
