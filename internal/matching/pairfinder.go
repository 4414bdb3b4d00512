package matching

import (
	"sort"

	"github.com/itemforge/matchbot/pkg/models"
)

// The pair-finder swaps our surplus duplicates for same-set items we hold
// fewer of, down to classes we hold none of at all. Acceptance requires our
// count of the given class to stay strictly above our count of the received
// class after the exchange; equalizing swaps are refused, so imbalance never
// grows and the last copy of a class is never given away.

// MatchSet runs the greedy exchange for a single set key. ours and theirs are
// mutated in place as swaps are accepted, so successive calls within one round
// observe the speculative result of earlier offers. give and take accumulate
// class -> unit counts for the offer under construction.
//
// Returns the updated items-in-trade counter and whether at least one swap was
// accepted. The scan restarts from the most-duplicated class after every
// acceptance because the counts it ordered by have changed.
func MatchSet(ours, theirs, give, take ClassCounts, itemsInTrade, maxItems int) (int, bool) {
	matchedAny := false

	for itemsInTrade < maxItems-1 {
		ourClasses := duplicatesByCountDesc(ours)
		if len(ourClasses) == 0 {
			break
		}
		theirClasses := candidatesByOurHoldingAsc(theirs, ours)
		if len(theirClasses) == 0 {
			break
		}

		matched := false
	scan:
		for _, ourItem := range ourClasses {
			ourAmount := ours[ourItem]
			for _, theirItem := range theirClasses {
				// Accept only if our count of the given class stays strictly
				// above our count of the received class after the swap.
				if ourAmount <= ours[theirItem]+1 {
					continue
				}

				give[ourItem]++
				take[theirItem]++

				ours[ourItem]--
				ours[theirItem]++
				if theirs[theirItem] <= 1 {
					delete(theirs, theirItem)
				} else {
					theirs[theirItem]--
				}

				itemsInTrade += 2
				matched = true
				matchedAny = true
				break scan
			}
		}

		if !matched {
			break
		}
	}

	return itemsInTrade, matchedAny
}

// duplicatesByCountDesc lists our classes with surplus copies, worst imbalance
// first. Class id ascending breaks ties so a run is reproducible.
func duplicatesByCountDesc(ours ClassCounts) []uint64 {
	classes := make([]uint64, 0, len(ours))
	for class, count := range ours {
		if count > 1 {
			classes = append(classes, class)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if ours[classes[i]] != ours[classes[j]] {
			return ours[classes[i]] > ours[classes[j]]
		}
		return classes[i] < classes[j]
	})
	return classes
}

// candidatesByOurHoldingAsc lists their classes ordered by how few of each we
// hold, so classes we hold none of come first. Class id ascending breaks ties
// so a run is reproducible.
func candidatesByOurHoldingAsc(theirs, ours ClassCounts) []uint64 {
	classes := make([]uint64, 0, len(theirs))
	for class := range theirs {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if ours[classes[i]] != ours[classes[j]] {
			return ours[classes[i]] < ours[classes[j]]
		}
		return classes[i] < classes[j]
	})
	return classes
}

// Offer is one assembled trade proposal: flat class -> unit maps for both
// directions plus the set keys that contributed at least one swap.
type Offer struct {
	Give         ClassCounts
	Take         ClassCounts
	MatchedSets  []models.SetKey
	ItemsInTrade int
}

// Empty reports whether the offer carries no items at all.
func (o Offer) Empty() bool {
	return len(o.Give) == 0 && len(o.Take) == 0
}

// BuildOffer walks every set present in both states that the counterparty
// accepts, is not in skip, and in which we hold a duplicate, running the
// pair-finder for each until the per-trade item cap is reached. Both states
// are mutated in place; the speculative result stays even if the offer later
// fails to send, and the caller owns any rollback.
func BuildOffer(ours, theirs InventoryState, theirTypes models.TypeSet, skip map[models.SetKey]struct{}, maxItems int) Offer {
	offer := Offer{
		Give: make(ClassCounts),
		Take: make(ClassCounts),
	}

	for _, key := range ours.Keys() {
		if _, skipped := skip[key]; skipped {
			continue
		}
		if !theirTypes.Has(key.Type) {
			continue
		}
		theirClasses, ok := theirs[key]
		if !ok {
			continue
		}
		ourClasses := ours[key]
		if !ourClasses.HasDuplicates() {
			continue
		}

		items, matched := MatchSet(ourClasses, theirClasses, offer.Give, offer.Take, offer.ItemsInTrade, maxItems)
		offer.ItemsInTrade = items
		if matched {
			offer.MatchedSets = append(offer.MatchedSets, key)
		}

		if offer.ItemsInTrade >= maxItems-1 {
			break
		}
	}

	return offer
}
