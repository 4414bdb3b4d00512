package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/itemforge/matchbot/pkg/models"
)

const (
	// Steam Community items live in app 753, context 6.
	communityAppID     = 753
	communityContextID = 6

	inventoryPageSize = 2000

	// maxInventoryPages caps pagination in case the endpoint keeps answering
	// more_items=1; 2000 items/page makes 50 pages an absurdly large account.
	maxInventoryPages = 50
)

type inventoryAsset struct {
	AppID      uint32 `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
}

type inventoryTag struct {
	Category     string `json:"category"`
	InternalName string `json:"internal_name"`
}

type inventoryDescription struct {
	ClassID      string         `json:"classid"`
	InstanceID   string         `json:"instanceid"`
	Tradable     int            `json:"tradable"`
	MarketFeeApp uint32         `json:"market_fee_app"`
	Tags         []inventoryTag `json:"tags"`
}

type inventoryPage struct {
	Assets              []inventoryAsset       `json:"assets"`
	Descriptions        []inventoryDescription `json:"descriptions"`
	MoreItems           int                    `json:"more_items"`
	LastAssetID         string                 `json:"last_assetid"`
	TotalInventoryCount int                    `json:"total_inventory_count"`
	Success             int                    `json:"success"`
}

// MyInventory fetches the bot's own community inventory.
func (c *Client) MyInventory(ctx context.Context, filter models.InventoryFilter) ([]models.Asset, error) {
	return c.Inventory(ctx, c.steamID, filter)
}

// UserInventory fetches another user's community inventory.
func (c *Client) UserInventory(ctx context.Context, steamID uint64, filter models.InventoryFilter) ([]models.Asset, error) {
	return c.Inventory(ctx, steamID, filter)
}

// Inventory fetches the Steam Community inventory of steamID page by page and
// returns the assets passing filter. An unreadable inventory is (nil, error);
// a readable inventory with nothing matching is an empty non-nil slice.
func (c *Client) Inventory(ctx context.Context, steamID uint64, filter models.InventoryFilter) ([]models.Asset, error) {
	assets := make([]models.Asset, 0, inventoryPageSize)
	startAssetID := ""

	for page := 0; ; page++ {
		if page >= maxInventoryPages {
			return nil, fmt.Errorf("inventory %d: pagination did not terminate after %d pages", steamID, maxInventoryPages)
		}

		body, err := c.fetchInventoryPage(ctx, steamID, startAssetID)
		if err != nil {
			return nil, err
		}

		descriptions := make(map[string]*inventoryDescription, len(body.Descriptions))
		for i := range body.Descriptions {
			d := &body.Descriptions[i]
			descriptions[d.ClassID+"_"+d.InstanceID] = d
		}

		for _, raw := range body.Assets {
			asset, err := buildAsset(raw, descriptions[raw.ClassID+"_"+raw.InstanceID])
			if err != nil {
				return nil, fmt.Errorf("inventory %d: %w", steamID, err)
			}
			if filter.Match(asset) {
				assets = append(assets, asset)
			}
		}

		if body.MoreItems != 1 {
			break
		}
		startAssetID = body.LastAssetID
	}

	return assets, nil
}

func (c *Client) fetchInventoryPage(ctx context.Context, steamID uint64, startAssetID string) (*inventoryPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/inventory/%d/%d/%d?l=english&count=%d",
		c.communityBase, steamID, communityAppID, communityContextID, inventoryPageSize)
	if startAssetID != "" {
		url += "&start_assetid=" + startAssetID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory %d: create request: %w", steamID, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory %d: http request: %w", steamID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("inventory %d: profile is private", steamID)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("inventory %d: unexpected status %d", steamID, resp.StatusCode)
	}

	var body inventoryPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("inventory %d: unmarshal: %w", steamID, err)
	}
	if body.Success != 1 {
		return nil, fmt.Errorf("inventory %d: endpoint reported failure", steamID)
	}
	return &body, nil
}

func buildAsset(raw inventoryAsset, desc *inventoryDescription) (models.Asset, error) {
	contextID, err := strconv.ParseUint(raw.ContextID, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset %s: parse contextid: %w", raw.AssetID, err)
	}
	assetID, err := strconv.ParseUint(raw.AssetID, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset %s: parse assetid: %w", raw.AssetID, err)
	}
	classID, err := strconv.ParseUint(raw.ClassID, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset %s: parse classid: %w", raw.AssetID, err)
	}
	instanceID, err := strconv.ParseUint(raw.InstanceID, 10, 64)
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset %s: parse instanceid: %w", raw.AssetID, err)
	}
	amount, err := strconv.ParseUint(raw.Amount, 10, 32)
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset %s: parse amount: %w", raw.AssetID, err)
	}

	asset := models.Asset{
		AppID:      raw.AppID,
		ContextID:  contextID,
		AssetID:    assetID,
		ClassID:    classID,
		InstanceID: instanceID,
		Amount:     uint32(amount),
	}
	if desc != nil {
		asset.Tradable = desc.Tradable == 1
		asset.RealAppID = desc.MarketFeeApp
		asset.Type = assetTypeFromTags(desc.Tags)
	}
	return asset, nil
}

// assetTypeFromTags maps the community item_class tag (and cardborder, for
// foils) onto the internal asset type. Unlisted classes stay Unknown and fall
// out of every matchable filter.
func assetTypeFromTags(tags []inventoryTag) models.AssetType {
	itemClass := ""
	cardBorder := ""
	for _, tag := range tags {
		switch tag.Category {
		case "item_class":
			itemClass = tag.InternalName
		case "cardborder":
			cardBorder = tag.InternalName
		}
	}

	switch itemClass {
	case "item_class_2":
		if cardBorder == "cardborder_1" {
			return models.AssetFoilTradingCard
		}
		return models.AssetTradingCard
	case "item_class_3":
		return models.AssetProfileBackground
	case "item_class_4":
		return models.AssetEmoticon
	case "item_class_5":
		return models.AssetBoosterPack
	case "item_class_6":
		return models.AssetConsumable
	case "item_class_7":
		return models.AssetSteamGems
	case "item_class_8":
		return models.AssetProfileModifier
	case "item_class_10":
		return models.AssetSaleItem
	case "item_class_11":
		return models.AssetSticker
	case "item_class_12":
		return models.AssetChatEffect
	case "item_class_13":
		return models.AssetMiniProfileBackground
	case "item_class_14":
		return models.AssetAvatarProfileFrame
	case "item_class_15":
		return models.AssetAnimatedAvatar
	case "item_class_16":
		return models.AssetKeyboardSkin
	case "item_class_17":
		return models.AssetStartupVideo
	default:
		return models.AssetUnknown
	}
}
