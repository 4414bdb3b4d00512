package models

import (
	"fmt"
	"sort"
	"strings"
)

// AssetType classifies a Steam community item by its item class. The numeric
// values double as the wire codes used by the matching directory, so they must
// stay stable.
type AssetType uint8

const (
	AssetUnknown AssetType = iota
	AssetBoosterPack
	AssetEmoticon
	AssetFoilTradingCard
	AssetProfileBackground
	AssetTradingCard
	AssetSteamGems
	AssetSaleItem
	AssetConsumable
	AssetProfileModifier
	AssetSticker
	AssetChatEffect
	AssetMiniProfileBackground
	AssetAvatarProfileFrame
	AssetAnimatedAvatar
	AssetKeyboardSkin
	AssetStartupVideo
)

func (t AssetType) String() string {
	switch t {
	case AssetBoosterPack:
		return "BoosterPack"
	case AssetEmoticon:
		return "Emoticon"
	case AssetFoilTradingCard:
		return "FoilTradingCard"
	case AssetProfileBackground:
		return "ProfileBackground"
	case AssetTradingCard:
		return "TradingCard"
	case AssetSteamGems:
		return "SteamGems"
	case AssetSaleItem:
		return "SaleItem"
	case AssetConsumable:
		return "Consumable"
	case AssetProfileModifier:
		return "ProfileModifier"
	case AssetSticker:
		return "Sticker"
	case AssetChatEffect:
		return "ChatEffect"
	case AssetMiniProfileBackground:
		return "MiniProfileBackground"
	case AssetAvatarProfileFrame:
		return "AvatarProfileFrame"
	case AssetAnimatedAvatar:
		return "AnimatedAvatar"
	case AssetKeyboardSkin:
		return "KeyboardSkin"
	case AssetStartupVideo:
		return "StartupVideo"
	default:
		return "Unknown"
	}
}

// ParseAssetType maps a config-file type name to its AssetType. Matching is
// case-insensitive.
func ParseAssetType(s string) (AssetType, error) {
	for t := AssetBoosterPack; t <= AssetStartupVideo; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return AssetUnknown, fmt.Errorf("unknown asset type %q", s)
}

// Asset is one inventory item stack. Assets are immutable values; matching
// never mutates them, it only derives tabular state from them.
type Asset struct {
	AppID      uint32 // inventory app (753 for Steam community items)
	ContextID  uint64
	AssetID    uint64
	ClassID    uint64 // unique per item template
	InstanceID uint64
	Amount     uint32 // stack size, always > 0
	RealAppID  uint32 // the game this item belongs to
	Type       AssetType
	Tradable   bool
}

// SetKey identifies the collectable set an asset belongs to. Two assets are
// exchangeable only when they share a SetKey.
type SetKey struct {
	RealAppID uint32
	Type      AssetType
}

// Set returns the asset's set key.
func (a Asset) Set() SetKey {
	return SetKey{RealAppID: a.RealAppID, Type: a.Type}
}

// TypeSet is an unordered set of asset types.
type TypeSet map[AssetType]struct{}

// NewTypeSet builds a set from the given types.
func NewTypeSet(types ...AssetType) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// MatchableTypes is the fixed subset of asset types the matching directory
// accepts. Every other type is excluded at every boundary.
func MatchableTypes() TypeSet {
	return NewTypeSet(AssetEmoticon, AssetFoilTradingCard, AssetProfileBackground, AssetTradingCard)
}

func (s TypeSet) Has(t AssetType) bool {
	_, ok := s[t]
	return ok
}

// Intersect returns the types present in both sets.
func (s TypeSet) Intersect(other TypeSet) TypeSet {
	out := make(TypeSet)
	for t := range s {
		if other.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Types returns the members sorted by numeric code, for deterministic
// serialization and iteration.
func (s TypeSet) Types() []AssetType {
	out := make([]AssetType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Codes returns the sorted numeric wire codes of the members. The slice is
// []int rather than []uint8 so json.Marshal produces an array, not base64.
func (s TypeSet) Codes() []int {
	types := s.Types()
	out := make([]int, len(types))
	for i, t := range types {
		out[i] = int(t)
	}
	return out
}

// TradingPreferences is the bot's trading behavior bitmask.
type TradingPreferences uint8

const (
	PrefAcceptDonations TradingPreferences = 1 << iota
	PrefSteamTradeMatcher
	PrefMatchEverything
	PrefDontAcceptBotTrades
	PrefMatchActively
)

func (p TradingPreferences) Has(flag TradingPreferences) bool {
	return p&flag != 0
}

var preferenceNames = map[string]TradingPreferences{
	"AcceptDonations":     PrefAcceptDonations,
	"SteamTradeMatcher":   PrefSteamTradeMatcher,
	"MatchEverything":     PrefMatchEverything,
	"DontAcceptBotTrades": PrefDontAcceptBotTrades,
	"MatchActively":       PrefMatchActively,
}

// ParseTradingPreferences folds a list of config-file preference names into a
// bitmask. Case-insensitive.
func ParseTradingPreferences(names []string) (TradingPreferences, error) {
	var p TradingPreferences
	for _, name := range names {
		found := false
		for known, flag := range preferenceNames {
			if strings.EqualFold(name, known) {
				p |= flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown trading preference %q", name)
		}
	}
	return p, nil
}
