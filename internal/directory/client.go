package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/itemforge/matchbot/pkg/models"
)

// Directory endpoints. The heartbeat and announce calls are form-encoded
// POSTs; the bots listing is a plain JSON GET.
const (
	announcePath  = "/Api/Announce"
	heartbeatPath = "/Api/HeartBeat"
	botsPath      = "/Api/Bots"
)

// Client talks to the public matching directory. One client is shared by all
// bots in the process; the Guid identifies this installation across restarts
// so the directory can collapse re-announcements.
type Client struct {
	baseURL    string
	guid       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Config struct {
	BaseURL string
	Guid    string

	// RequestsPerMinute throttles every outbound call so a full matching
	// round cannot hammer the directory. Defaults to 30.
	RequestsPerMinute int

	// Timeout bounds a single HTTP exchange. Defaults to 30s.
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		guid:       cfg.Guid,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Announcement is the listing payload published for one bot.
type Announcement struct {
	SteamID         uint64
	Nickname        string
	AvatarHash      string
	GamesCount      int
	ItemsCount      int
	MatchableTypes  models.TypeSet
	MatchEverything bool
	TradeToken      string
}

// Announce publishes the bot to the directory. The call is attempted exactly
// once; the announcement controller owns retry policy via its TTL clocks.
func (c *Client) Announce(ctx context.Context, a Announcement) error {
	matchableTypes, err := json.Marshal(a.MatchableTypes.Codes())
	if err != nil {
		return fmt.Errorf("announce: encode matchable types: %w", err)
	}

	form := url.Values{
		"SteamID":         {strconv.FormatUint(a.SteamID, 10)},
		"Guid":            {c.guid},
		"Nickname":        {a.Nickname},
		"AvatarHash":      {a.AvatarHash},
		"GamesCount":      {strconv.Itoa(a.GamesCount)},
		"ItemsCount":      {strconv.Itoa(a.ItemsCount)},
		"MatchableTypes":  {string(matchableTypes)},
		"MatchEverything": {wireFlagString(a.MatchEverything)},
		"TradeToken":      {a.TradeToken},
	}
	return c.postForm(ctx, announcePath, form)
}

// HeartBeat refreshes the bot's liveness in the directory.
func (c *Client) HeartBeat(ctx context.Context, steamID uint64) error {
	form := url.Values{
		"SteamID": {strconv.FormatUint(steamID, 10)},
		"Guid":    {c.guid},
	}
	return c.postForm(ctx, heartbeatPath, form)
}

// ListBots fetches the current directory listing. Entries that fail to decode
// are dropped with a warning rather than failing the whole fetch; the
// directory is public and a single bad record must not stall matching.
func (c *Client) ListBots(ctx context.Context) ([]ListedUser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+botsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", botsPath, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: http request: %w", botsPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: unexpected status %d", botsPath, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", botsPath, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%s: unmarshal listing: %w", botsPath, err)
	}

	users := make([]ListedUser, 0, len(raw))
	for _, entry := range raw {
		var u ListedUser
		if err := json.Unmarshal(entry, &u); err != nil {
			log.Printf("[Directory] Dropping malformed listing entry: %v", err)
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func wireFlagString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
