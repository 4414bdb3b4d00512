package matching

import (
	"sort"

	"github.com/itemforge/matchbot/pkg/models"
)

// ClassCounts maps a class id to how many units of it an inventory holds.
// A count above 1 marks a duplicate.
type ClassCounts map[uint64]uint32

// InventoryState is the tabular view the matcher works on: one ClassCounts
// table per collectable set. The inner tables are mutated in place during a
// matching round and discarded at its end; they never feed back into the
// source inventory.
type InventoryState map[models.SetKey]ClassCounts

// BuildState groups a flat asset list into per-set class counts. Stacked
// assets contribute their full amount.
func BuildState(assets []models.Asset) InventoryState {
	state := make(InventoryState)
	for _, a := range assets {
		key := a.Set()
		classes, ok := state[key]
		if !ok {
			classes = make(ClassCounts)
			state[key] = classes
		}
		classes[a.ClassID] += a.Amount
	}
	return state
}

// HasDuplicates reports whether any class in the table is held more than once.
func (c ClassCounts) HasDuplicates() bool {
	for _, count := range c {
		if count > 1 {
			return true
		}
	}
	return false
}

// HasSurplus reports whether any set still holds a duplicate to trade away.
func (s InventoryState) HasSurplus() bool {
	for _, classes := range s {
		if classes.HasDuplicates() {
			return true
		}
	}
	return false
}

// Keys returns the set keys in a fixed order (app id, then type) so round
// logic iterates deterministically.
func (s InventoryState) Keys() []models.SetKey {
	keys := make([]models.SetKey, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RealAppID != keys[j].RealAppID {
			return keys[i].RealAppID < keys[j].RealAppID
		}
		return keys[i].Type < keys[j].Type
	})
	return keys
}

// KeySet returns the set keys as a membership set, for inventory filters.
func (s InventoryState) KeySet() map[models.SetKey]struct{} {
	keys := make(map[models.SetKey]struct{}, len(s))
	for key := range s {
		keys[key] = struct{}{}
	}
	return keys
}
