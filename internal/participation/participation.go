// Package participation enrolls a bot into the public matching directory,
// keeps its listing alive with heartbeats, and periodically runs active
// duplicate-reduction matching against other listed users.
package participation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itemforge/matchbot/internal/directory"
	"github.com/itemforge/matchbot/internal/metrics"
	"github.com/itemforge/matchbot/pkg/models"
)

const (
	// MinAnnouncementCheckTTL is the minimum interval between announcement
	// attempts against the directory.
	MinAnnouncementCheckTTL = 6 * time.Hour

	// MinHeartbeatTTL is the minimum interval between liveness heartbeats.
	MinHeartbeatTTL = 10 * time.Minute

	// MinPersonaStateTTL is the minimum interval between persona refresh
	// requests, which in turn drive the announcement path.
	MinPersonaStateTTL = 8 * time.Hour

	// DefaultMinItemsCount is the smallest matchable inventory worth
	// announcing; the roster config can override it.
	DefaultMinItemsCount = 100

	// MaxMatchedBotsHard caps how many directory users one round visits.
	MaxMatchedBotsHard = 40

	// MaxMatchedBotsSoft ends a round after this many consecutive users
	// yielded nothing to trade.
	MaxMatchedBotsSoft = 20

	// MaxMatchingRounds bounds one active-matching pass.
	MaxMatchingRounds = 10

	interRoundDelay = 5 * time.Minute

	triggerInitialDelay = time.Hour
	triggerPeriod       = 8 * time.Hour

	defaultMaxTradesPerAccount = 5
	defaultMaxItemsPerTrade    = 255
)

// DirectoryClient is the announcement endpoint family.
type DirectoryClient interface {
	Announce(ctx context.Context, a directory.Announcement) error
	HeartBeat(ctx context.Context, steamID uint64) error
	ListBots(ctx context.Context) ([]directory.ListedUser, error)
}

// InventorySource reads Steam Community inventories. A failed fetch is
// (nil, error); a readable but empty inventory is an empty non-nil slice.
type InventorySource interface {
	MyInventory(ctx context.Context, filter models.InventoryFilter) ([]models.Asset, error)
	UserInventory(ctx context.Context, steamID uint64, filter models.InventoryFilter) ([]models.Asset, error)
}

// ProfileService answers the remote halves of the eligibility predicate and
// drives persona refreshes. The boolean probes report false on transient
// failure; the caller re-evaluates on its next tick.
type ProfileService interface {
	RequestPersonaRefresh(ctx context.Context) error
	HasValidAPIKey(ctx context.Context) bool
	HasPublicInventory(ctx context.Context) bool
}

// TradeDispatcher submits a composed match offer and returns the mobile
// confirmation IDs the submission produced, if any.
type TradeDispatcher interface {
	SendMatchOffer(ctx context.Context, recipient uint64, give, take []models.Asset, tradeToken string) ([]uint64, error)
}

// ConfirmationAcceptor accepts pending mobile confirmations for offers this
// bot submitted.
type ConfirmationAcceptor interface {
	AcceptConfirmations(ctx context.Context, offerIDs []uint64) error
}

// BlacklistSource lists steam IDs this installation refuses to trade with.
type BlacklistSource interface {
	Blacklisted(ctx context.Context) (map[uint64]struct{}, error)
}

// Collaborators bundles the external services a Participant drives.
// Blacklist may be nil (no blacklist); Confirmer may be nil only for bots
// without an authenticator.
type Collaborators struct {
	Directory  DirectoryClient
	Inventory  InventorySource
	Profile    ProfileService
	Dispatcher TradeDispatcher
	Confirmer  ConfirmationAcceptor
	Blacklist  BlacklistSource
}

// Config carries the per-bot identity and the host agent's knobs.
type Config struct {
	BotName    string
	SteamID    uint64
	TradeToken string

	// Guid identifies this installation to the directory, stable across
	// restarts.
	Guid string

	MatchableTypes   models.TypeSet
	Preferences      models.TradingPreferences
	HasAuthenticator bool

	// MinItemsCount overrides DefaultMinItemsCount when positive.
	MinItemsCount int

	// MaxTradesPerAccount and MaxItemsPerTrade are the host agent's trading
	// limits; zero selects the published defaults.
	MaxTradesPerAccount int
	MaxItemsPerTrade    int

	// TradingLock serializes matching rounds against the host's other
	// trading activity. Nil gets a private lock.
	TradingLock sync.Locker

	// Online reports whether the bot is connected and logged in. Nil means
	// always online.
	Online func() bool

	// Now is the clock; nil means time.Now.
	Now func() time.Time

	// Notify, when set, receives lifecycle events for live streaming.
	Notify func(Event)
}

// Event is one observable lifecycle moment, suitable for the event stream.
type Event struct {
	Bot    string    `json:"bot"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// Participant is the per-bot lifecycle controller and matching engine.
type Participant struct {
	cfg Config

	directory  DirectoryClient
	inventory  InventorySource
	profile    ProfileService
	dispatcher TradeDispatcher
	confirmer  ConfirmationAcceptor
	blacklist  BlacklistSource

	tradingLock sync.Locker
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	triggerInitial time.Duration
	triggerEvery   time.Duration
	triggerCancel  context.CancelFunc
	triggerDone    chan struct{}

	// requestsMu serializes the announcement and heartbeat request paths and
	// guards the lifecycle clocks below.
	requestsMu              sync.Mutex
	lastAnnouncementCheck   time.Time
	lastHeartbeat           time.Time
	lastPersonaStateRequest time.Time
	shouldSendHeartbeats    bool

	// matchMu admits one active-matching pass; re-entry is refused without
	// blocking.
	matchMu  sync.Mutex
	matching atomic.Bool

	roundsCompleted atomic.Uint64
	offersSent      atomic.Uint64
}

func New(cfg Config, c Collaborators) (*Participant, error) {
	if cfg.SteamID == 0 {
		return nil, fmt.Errorf("participant %q: steam id is required", cfg.BotName)
	}
	if c.Directory == nil || c.Inventory == nil || c.Profile == nil || c.Dispatcher == nil {
		return nil, fmt.Errorf("participant %q: directory, inventory, profile and dispatcher collaborators are required", cfg.BotName)
	}
	if cfg.HasAuthenticator && c.Confirmer == nil {
		return nil, fmt.Errorf("participant %q: authenticator-bound bot needs a confirmation acceptor", cfg.BotName)
	}

	if cfg.MinItemsCount <= 0 {
		cfg.MinItemsCount = DefaultMinItemsCount
	}
	if cfg.MaxTradesPerAccount <= 0 {
		cfg.MaxTradesPerAccount = defaultMaxTradesPerAccount
	}
	if cfg.MaxItemsPerTrade <= 0 {
		cfg.MaxItemsPerTrade = defaultMaxItemsPerTrade
	}

	p := &Participant{
		cfg:            cfg,
		directory:      c.Directory,
		inventory:      c.Inventory,
		profile:        c.Profile,
		dispatcher:     c.Dispatcher,
		confirmer:      c.Confirmer,
		blacklist:      c.Blacklist,
		tradingLock:    cfg.TradingLock,
		now:            cfg.Now,
		triggerInitial: triggerInitialDelay,
		triggerEvery:   triggerPeriod,
	}
	if p.tradingLock == nil {
		p.tradingLock = &sync.Mutex{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return p, nil
}

func (p *Participant) online() bool {
	return p.cfg.Online == nil || p.cfg.Online()
}

func (p *Participant) notify(kind, detail string) {
	if p.cfg.Notify == nil {
		return
	}
	p.cfg.Notify(Event{
		Bot:    p.cfg.BotName,
		Kind:   kind,
		Detail: detail,
		Time:   p.now().UTC(),
	})
}

// OnHeartbeatTick runs on the agent's periodic heartbeat. It requests a
// persona refresh when both the persona and announcement TTLs have lapsed
// (racing an announcement check), then delivers a directory heartbeat when
// one is due.
func (p *Participant) OnHeartbeatTick(ctx context.Context) {
	p.requestsMu.Lock()
	now := p.now().UTC()
	refreshPersona := now.After(p.lastPersonaStateRequest.Add(MinPersonaStateTTL)) &&
		now.After(p.lastAnnouncementCheck.Add(MinAnnouncementCheckTTL))
	if refreshPersona {
		p.lastPersonaStateRequest = now
	}
	heartbeatDue := p.shouldSendHeartbeats && !now.Before(p.lastHeartbeat.Add(MinHeartbeatTTL))
	p.requestsMu.Unlock()

	if refreshPersona {
		if err := p.profile.RequestPersonaRefresh(ctx); err != nil {
			log.Printf("[Announcer] %s: persona refresh failed: %v", p.cfg.BotName, err)
		}
	}

	if !heartbeatDue {
		return
	}

	p.requestsMu.Lock()
	defer p.requestsMu.Unlock()

	// The gate must hold again now that we own the request path; a coincident
	// tick may have already heartbeated.
	now = p.now().UTC()
	if !p.shouldSendHeartbeats || now.Before(p.lastHeartbeat.Add(MinHeartbeatTTL)) {
		return
	}

	if err := p.directory.HeartBeat(ctx, p.cfg.SteamID); err != nil {
		log.Printf("[Announcer] %s: heartbeat failed: %v", p.cfg.BotName, err)
		return
	}
	p.lastHeartbeat = p.now().UTC()
	metrics.RecordHeartbeat()
	p.notify("heartbeat", "")
}

// OnPersonaState runs when the platform reports this bot's profile state,
// carrying the current nickname and avatar hash. It drives the announcement
// path when the announcement TTL has lapsed.
func (p *Participant) OnPersonaState(ctx context.Context, nickname, avatarHash string) {
	p.requestsMu.Lock()
	defer p.requestsMu.Unlock()

	now := p.now().UTC()
	if now.Before(p.lastAnnouncementCheck.Add(MinAnnouncementCheckTTL)) {
		return
	}
	p.announceLocked(ctx, now, nickname, avatarHash)
}

// announceLocked runs the announcement sequence. Callers hold requestsMu.
func (p *Participant) announceLocked(ctx context.Context, now time.Time, nickname, avatarHash string) {
	if !p.eligible(ctx) {
		p.lastAnnouncementCheck = now
		p.shouldSendHeartbeats = false
		return
	}

	if p.cfg.TradeToken == "" {
		log.Printf("[Announcer] %s: no trade token configured, not announcing", p.cfg.BotName)
		p.lastAnnouncementCheck = now
		p.shouldSendHeartbeats = false
		return
	}

	accepted := p.cfg.MatchableTypes.Intersect(models.MatchableTypes())
	if len(accepted) == 0 {
		log.Printf("[Announcer] ERROR: %s: matchable types passed eligibility but intersect to nothing", p.cfg.BotName)
		p.lastAnnouncementCheck = now
		p.shouldSendHeartbeats = false
		return
	}

	assets, err := p.inventory.MyInventory(ctx, models.InventoryFilter{
		TradableOnly: true,
		Types:        accepted,
	})
	if err != nil {
		// The TTL clock stays put so the next persona event retries.
		log.Printf("[Announcer] %s: inventory fetch failed: %v", p.cfg.BotName, err)
		p.shouldSendHeartbeats = false
		return
	}

	itemsCount := 0
	apps := make(map[uint32]struct{})
	for _, asset := range assets {
		itemsCount += int(asset.Amount)
		apps[asset.RealAppID] = struct{}{}
	}

	if itemsCount < p.cfg.MinItemsCount {
		log.Printf("[Announcer] %s: %d matchable item(s) is below the %d minimum, not announcing",
			p.cfg.BotName, itemsCount, p.cfg.MinItemsCount)
		p.lastAnnouncementCheck = now
		p.shouldSendHeartbeats = false
		return
	}

	err = p.directory.Announce(ctx, directory.Announcement{
		SteamID:         p.cfg.SteamID,
		Nickname:        nickname,
		AvatarHash:      avatarHash,
		GamesCount:      len(apps),
		ItemsCount:      itemsCount,
		MatchableTypes:  accepted,
		MatchEverything: p.cfg.Preferences.Has(models.PrefMatchEverything),
		TradeToken:      p.cfg.TradeToken,
	})
	if err != nil {
		log.Printf("[Announcer] %s: announce failed: %v", p.cfg.BotName, err)
		p.shouldSendHeartbeats = false
		metrics.RecordAnnounce(false)
		return
	}

	p.lastAnnouncementCheck = p.now().UTC()
	p.shouldSendHeartbeats = true
	metrics.RecordAnnounce(true)
	log.Printf("[Announcer] %s: announced %d item(s) across %d app(s)", p.cfg.BotName, itemsCount, len(apps))
	p.notify("announced", fmt.Sprintf("%d items, %d apps", itemsCount, len(apps)))
}

// Status is a point-in-time lifecycle snapshot for the status API.
type Status struct {
	Bot                   string    `json:"bot"`
	SteamID               uint64    `json:"steam_id"`
	Announced             bool      `json:"announced"`
	LastAnnouncementCheck time.Time `json:"last_announcement_check"`
	LastHeartbeat         time.Time `json:"last_heartbeat"`
	LastPersonaRequest    time.Time `json:"last_persona_request"`
	Matching              bool      `json:"matching"`
	RoundsCompleted       uint64    `json:"rounds_completed"`
	OffersSent            uint64    `json:"offers_sent"`
}

func (p *Participant) Status() Status {
	p.requestsMu.Lock()
	s := Status{
		Bot:                   p.cfg.BotName,
		SteamID:               p.cfg.SteamID,
		Announced:             p.shouldSendHeartbeats,
		LastAnnouncementCheck: p.lastAnnouncementCheck,
		LastHeartbeat:         p.lastHeartbeat,
		LastPersonaRequest:    p.lastPersonaStateRequest,
	}
	p.requestsMu.Unlock()

	s.Matching = p.matching.Load()
	s.RoundsCompleted = p.roundsCompleted.Load()
	s.OffersSent = p.offersSent.Load()
	return s
}

// Name returns the bot's configured name.
func (p *Participant) Name() string {
	return p.cfg.BotName
}
