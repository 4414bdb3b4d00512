package directory

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/itemforge/matchbot/pkg/models"
)

// ListedUser is one parsed entry of the public matching directory. The score
// is computed once at decode time: users holding few items spread across many
// games rank higher, because they are the most likely recipients for
// dump-style exchanges.
type ListedUser struct {
	SteamID         uint64
	TradeToken      string
	GamesCount      uint16
	ItemsCount      uint16
	MatchableTypes  models.TypeSet
	MatchEverything bool

	score float64
}

// NewListedUser builds an entry directly, bypassing the wire form. The items
// count must be positive for a defined score.
func NewListedUser(steamID uint64, tradeToken string, gamesCount, itemsCount uint16, types models.TypeSet, matchEverything bool) (ListedUser, error) {
	if itemsCount == 0 {
		return ListedUser{}, fmt.Errorf("listed user %d has items_count 0", steamID)
	}
	return ListedUser{
		SteamID:         steamID,
		TradeToken:      tradeToken,
		GamesCount:      gamesCount,
		ItemsCount:      itemsCount,
		MatchableTypes:  types,
		MatchEverything: matchEverything,
		score:           float64(gamesCount) / float64(itemsCount),
	}, nil
}

// Score returns the cached desirability score (games per item).
func (u ListedUser) Score() float64 {
	return u.score
}

// listedUserWire mirrors the directory's JSON shape. Pointer fields let the
// decoder tell a missing key apart from a zero value: every key is required.
type listedUserWire struct {
	SteamID              *uint64 `json:"steam_id"`
	TradeToken           *string `json:"trade_token"`
	GamesCount           *uint16 `json:"games_count"`
	ItemsCount           *uint16 `json:"items_count"`
	MatchableBackgrounds *uint8  `json:"matchable_backgrounds"`
	MatchableCards       *uint8  `json:"matchable_cards"`
	MatchableEmoticons   *uint8  `json:"matchable_emoticons"`
	MatchableFoilCards   *uint8  `json:"matchable_foil_cards"`
	MatchEverything      *uint8  `json:"match_everything"`
}

// UnmarshalJSON decodes one directory entry. Any missing field rejects the
// entry, as does an items count of zero (the score would be undefined). The
// flag fields tolerate values outside {0,1} with a warning: a matchable flag
// drops just that type and match_everything falls back to off; everything
// else about the record is kept.
func (u *ListedUser) UnmarshalJSON(data []byte) error {
	var wire listedUserWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	for field, present := range map[string]bool{
		"steam_id":              wire.SteamID != nil,
		"trade_token":           wire.TradeToken != nil,
		"games_count":           wire.GamesCount != nil,
		"items_count":           wire.ItemsCount != nil,
		"matchable_backgrounds": wire.MatchableBackgrounds != nil,
		"matchable_cards":       wire.MatchableCards != nil,
		"matchable_emoticons":   wire.MatchableEmoticons != nil,
		"matchable_foil_cards":  wire.MatchableFoilCards != nil,
		"match_everything":      wire.MatchEverything != nil,
	} {
		if !present {
			return fmt.Errorf("listed user is missing required field %s", field)
		}
	}

	if *wire.ItemsCount == 0 {
		return fmt.Errorf("listed user %d has items_count 0", *wire.SteamID)
	}

	types := make(models.TypeSet)
	addMatchableType(types, models.AssetProfileBackground, *wire.MatchableBackgrounds, "matchable_backgrounds", *wire.SteamID)
	addMatchableType(types, models.AssetTradingCard, *wire.MatchableCards, "matchable_cards", *wire.SteamID)
	addMatchableType(types, models.AssetEmoticon, *wire.MatchableEmoticons, "matchable_emoticons", *wire.SteamID)
	addMatchableType(types, models.AssetFoilTradingCard, *wire.MatchableFoilCards, "matchable_foil_cards", *wire.SteamID)

	if *wire.MatchEverything > 1 {
		log.Printf("[Directory] Warning: user %d reports match_everything=%d, treating it as off", *wire.SteamID, *wire.MatchEverything)
	}

	*u = ListedUser{
		SteamID:         *wire.SteamID,
		TradeToken:      *wire.TradeToken,
		GamesCount:      *wire.GamesCount,
		ItemsCount:      *wire.ItemsCount,
		MatchableTypes:  types,
		MatchEverything: *wire.MatchEverything == 1,
		score:           float64(*wire.GamesCount) / float64(*wire.ItemsCount),
	}
	return nil
}

// addMatchableType admits t into the set when the wire flag is the literal 1.
// A 0 excludes it silently; anything else excludes it with a warning.
func addMatchableType(types models.TypeSet, t models.AssetType, flag uint8, field string, steamID uint64) {
	switch flag {
	case 1:
		types[t] = struct{}{}
	case 0:
	default:
		log.Printf("[Directory] Warning: user %d reports %s=%d, dropping %s from their matchable set", steamID, field, flag, t)
	}
}

// MarshalJSON re-emits the wire form. Decoding an entry and re-encoding it
// preserves the matchable set and the match-everything flag.
func (u ListedUser) MarshalJSON() ([]byte, error) {
	out := struct {
		SteamID              uint64 `json:"steam_id"`
		TradeToken           string `json:"trade_token"`
		GamesCount           uint16 `json:"games_count"`
		ItemsCount           uint16 `json:"items_count"`
		MatchableBackgrounds uint8  `json:"matchable_backgrounds"`
		MatchableCards       uint8  `json:"matchable_cards"`
		MatchableEmoticons   uint8  `json:"matchable_emoticons"`
		MatchableFoilCards   uint8  `json:"matchable_foil_cards"`
		MatchEverything      uint8  `json:"match_everything"`
	}{
		SteamID:              u.SteamID,
		TradeToken:           u.TradeToken,
		GamesCount:           u.GamesCount,
		ItemsCount:           u.ItemsCount,
		MatchableBackgrounds: wireFlag(u.MatchableTypes.Has(models.AssetProfileBackground)),
		MatchableCards:       wireFlag(u.MatchableTypes.Has(models.AssetTradingCard)),
		MatchableEmoticons:   wireFlag(u.MatchableTypes.Has(models.AssetEmoticon)),
		MatchableFoilCards:   wireFlag(u.MatchableTypes.Has(models.AssetFoilTradingCard)),
		MatchEverything:      wireFlag(u.MatchEverything),
	}
	return json.Marshal(out)
}

func wireFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
