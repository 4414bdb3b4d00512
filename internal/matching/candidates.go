package matching

import (
	"fmt"
	"sort"

	"github.com/itemforge/matchbot/internal/directory"
	"github.com/itemforge/matchbot/pkg/models"
)

// SelectCandidates filters the directory listing down to counterparties worth
// visiting in a matching round and caps the result at maxBots, best score
// first. A candidate must accept any same-set swap (match-everything), share at
// least one matchable type with us, not be us, and not sit on the local trade
// blacklist. Equal scores fall back to steam id so the visiting order is
// stable between runs.
func SelectCandidates(entries []directory.ListedUser, ownSteamID uint64, accepted models.TypeSet, blacklist map[uint64]struct{}, maxBots int) []directory.ListedUser {
	candidates := make([]directory.ListedUser, 0, len(entries))
	for _, entry := range entries {
		if entry.SteamID == ownSteamID {
			continue
		}
		if !entry.MatchEverything {
			continue
		}
		if _, banned := blacklist[entry.SteamID]; banned {
			continue
		}
		if len(entry.MatchableTypes.Intersect(accepted)) == 0 {
			continue
		}
		candidates = append(candidates, entry)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score() != candidates[j].Score() {
			return candidates[i].Score() > candidates[j].Score()
		}
		return candidates[i].SteamID < candidates[j].SteamID
	})

	if len(candidates) > maxBots {
		candidates = candidates[:maxBots]
	}
	return candidates
}

// TakeAssets resolves a class -> unit map into concrete assets drawn from
// pool, splitting stacks when only part of one is needed. Chosen assets are
// removed from the returned remainder so the same unit can never be offered
// twice within a round. Resolution order is fixed (class id, then asset id)
// for reproducibility.
//
// An error means the pool cannot cover the request, which indicates the
// tabular state diverged from the asset list; callers should drop the offer.
func TakeAssets(pool []models.Asset, want ClassCounts) (chosen, remaining []models.Asset, err error) {
	needed := make(ClassCounts, len(want))
	for class, count := range want {
		needed[class] = count
	}

	ordered := make([]models.Asset, len(pool))
	copy(ordered, pool)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].ClassID != ordered[j].ClassID {
			return ordered[i].ClassID < ordered[j].ClassID
		}
		return ordered[i].AssetID < ordered[j].AssetID
	})

	remaining = make([]models.Asset, 0, len(ordered))
	for _, asset := range ordered {
		units := needed[asset.ClassID]
		if units == 0 {
			remaining = append(remaining, asset)
			continue
		}

		if asset.Amount <= units {
			chosen = append(chosen, asset)
			needed[asset.ClassID] -= asset.Amount
			continue
		}

		// Partial stack: split into a chosen part and a leftover part.
		taken := asset
		taken.Amount = units
		chosen = append(chosen, taken)

		left := asset
		left.Amount = asset.Amount - units
		remaining = append(remaining, left)
		needed[asset.ClassID] = 0
	}

	for class, units := range needed {
		if units > 0 {
			return nil, nil, fmt.Errorf("inventory is short %d unit(s) of class %d", units, class)
		}
	}
	return chosen, remaining, nil
}
