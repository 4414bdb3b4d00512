package models

// InventoryFilter narrows an inventory fetch to the assets a caller cares
// about. Zero-value fields mean "no restriction"; SkippedSets is applied after
// WantedSets so a set present in both is excluded.
type InventoryFilter struct {
	TradableOnly bool
	Types        TypeSet
	WantedSets   map[SetKey]struct{}
	SkippedSets  map[SetKey]struct{}
}

// Match reports whether the asset passes the filter.
func (f InventoryFilter) Match(a Asset) bool {
	if f.TradableOnly && !a.Tradable {
		return false
	}
	if f.Types != nil && !f.Types.Has(a.Type) {
		return false
	}
	if f.WantedSets != nil {
		if _, ok := f.WantedSets[a.Set()]; !ok {
			return false
		}
	}
	if f.SkippedSets != nil {
		if _, ok := f.SkippedSets[a.Set()]; ok {
			return false
		}
	}
	return true
}
