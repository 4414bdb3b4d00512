package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client is the per-bot read side of the Steam Web API and the community
// inventory endpoint. It carries one rate limiter across both hosts so a
// matching round visiting 40 counterparties stays well below Steam's
// tolerance.
type Client struct {
	steamID       uint64
	apiKey        string
	httpClient    *http.Client
	limiter       *rate.Limiter
	apiBase       string
	communityBase string

	// OnPersonaState is invoked on its own goroutine after a persona refresh
	// completes, carrying the current nickname and avatar hash.
	OnPersonaState func(nickname, avatarHash string)
}

type Config struct {
	SteamID uint64
	APIKey  string

	// RequestsPerMinute throttles all outbound Steam calls. Defaults to 40.
	RequestsPerMinute int

	// Timeout bounds a single HTTP exchange. Defaults to 30s.
	Timeout time.Duration

	// APIBaseURL and CommunityBaseURL default to the public Steam hosts and
	// exist so tests can point the client at a local server.
	APIBaseURL       string
	CommunityBaseURL string
}

func NewClient(cfg Config) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 40
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.steampowered.com"
	}
	communityBase := cfg.CommunityBaseURL
	if communityBase == "" {
		communityBase = "https://steamcommunity.com"
	}

	return &Client{
		steamID:       cfg.SteamID,
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		apiBase:       apiBase,
		communityBase: communityBase,
	}
}

// SteamID returns the bot account this client reads for.
func (c *Client) SteamID() uint64 {
	return c.steamID
}

type playerSummary struct {
	PersonaName string `json:"personaname"`
	AvatarHash  string `json:"avatarhash"`
}

// fetchOwnSummary calls GetPlayerSummaries for the bot's own account. A
// rejected API key surfaces here as a 401/403 status error.
func (c *Client) fetchOwnSummary(ctx context.Context) (*playerSummary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/ISteamUser/GetPlayerSummaries/v2/?key=%s&steamids=%s",
		c.apiBase, c.apiKey, strconv.FormatUint(c.steamID, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("player summary: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player summary: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("player summary: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Response struct {
			Players []playerSummary `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("player summary: unmarshal: %w", err)
	}
	if len(payload.Response.Players) == 0 {
		return nil, fmt.Errorf("player summary: empty players list for %d", c.steamID)
	}
	return &payload.Response.Players[0], nil
}

// RequestPersonaRefresh fetches the current persona summary and delivers it
// through OnPersonaState on a fresh goroutine, mirroring how the platform
// reports profile changes asynchronously.
func (c *Client) RequestPersonaRefresh(ctx context.Context) error {
	summary, err := c.fetchOwnSummary(ctx)
	if err != nil {
		return err
	}
	if c.OnPersonaState != nil {
		go c.OnPersonaState(summary.PersonaName, summary.AvatarHash)
	}
	return nil
}

// HasValidAPIKey probes the Web API with the configured key. Transient
// failures report false; the caller re-evaluates on its next tick.
func (c *Client) HasValidAPIKey(ctx context.Context) bool {
	_, err := c.fetchOwnSummary(ctx)
	return err == nil
}

// HasPublicInventory probes the community inventory endpoint with a minimal
// page. A private profile answers 403; anything other than a successful page
// reports false.
func (c *Client) HasPublicInventory(ctx context.Context) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	url := fmt.Sprintf("%s/inventory/%d/%d/%d?l=english&count=1",
		c.communityBase, c.steamID, communityAppID, communityContextID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false
	}

	var probe struct {
		Success int `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&probe); err != nil {
		return false
	}
	return probe.Success == 1
}
