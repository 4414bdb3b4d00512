package participation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itemforge/matchbot/internal/directory"
	"github.com/itemforge/matchbot/pkg/models"
)

// fakeClock is a hand-driven clock shared by a test and its participant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeDirectory records announce and heartbeat traffic and tracks how many
// requests were in flight at once.
type fakeDirectory struct {
	mu         sync.Mutex
	announces  []directory.Announcement
	heartbeats []uint64
	listed     []directory.ListedUser

	announceErr  error
	heartbeatErr error
	listErr      error
	listCalls    int

	requestDelay time.Duration
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
}

func (d *fakeDirectory) enter() {
	n := d.inFlight.Add(1)
	for {
		max := d.maxInFlight.Load()
		if n <= max || d.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
}

func (d *fakeDirectory) exit() {
	d.inFlight.Add(-1)
}

func (d *fakeDirectory) Announce(ctx context.Context, a directory.Announcement) error {
	d.enter()
	defer d.exit()
	if d.requestDelay > 0 {
		time.Sleep(d.requestDelay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.announceErr != nil {
		return d.announceErr
	}
	d.announces = append(d.announces, a)
	return nil
}

func (d *fakeDirectory) HeartBeat(ctx context.Context, steamID uint64) error {
	d.enter()
	defer d.exit()
	if d.requestDelay > 0 {
		time.Sleep(d.requestDelay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.heartbeatErr != nil {
		return d.heartbeatErr
	}
	d.heartbeats = append(d.heartbeats, steamID)
	return nil
}

func (d *fakeDirectory) ListBots(ctx context.Context) ([]directory.ListedUser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listCalls++
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]directory.ListedUser(nil), d.listed...), nil
}

func (d *fakeDirectory) listCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listCalls
}

func (d *fakeDirectory) announceCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.announces)
}

func (d *fakeDirectory) heartbeatCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.heartbeats)
}

// fakeInventory serves canned inventories through the filter a real source
// would apply. Successive own-inventory snapshots can be queued; the last
// one is sticky.
type fakeInventory struct {
	mu        sync.Mutex
	mineQueue [][]models.Asset
	mineErr   error
	myCalls   int

	users     map[uint64][]models.Asset
	userErrs  map[uint64]error
	userCalls []uint64
}

func (f *fakeInventory) MyInventory(ctx context.Context, filter models.InventoryFilter) ([]models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.myCalls++
	if f.mineErr != nil {
		return nil, f.mineErr
	}
	var mine []models.Asset
	if len(f.mineQueue) > 0 {
		mine = f.mineQueue[0]
		if len(f.mineQueue) > 1 {
			f.mineQueue = f.mineQueue[1:]
		}
	}
	return applyFilter(mine, filter), nil
}

func (f *fakeInventory) UserInventory(ctx context.Context, steamID uint64, filter models.InventoryFilter) ([]models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls = append(f.userCalls, steamID)
	if err := f.userErrs[steamID]; err != nil {
		return nil, err
	}
	assets, ok := f.users[steamID]
	if !ok {
		return nil, fmt.Errorf("no inventory for %d", steamID)
	}
	return applyFilter(assets, filter), nil
}

func applyFilter(assets []models.Asset, filter models.InventoryFilter) []models.Asset {
	out := make([]models.Asset, 0, len(assets))
	for _, a := range assets {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

type fakeProfile struct {
	publicInventory atomic.Bool
	validKey        atomic.Bool
	refreshes       atomic.Int32
	refreshErr      error
}

func newFakeProfile() *fakeProfile {
	p := &fakeProfile{}
	p.publicInventory.Store(true)
	p.validKey.Store(true)
	return p
}

func (f *fakeProfile) RequestPersonaRefresh(ctx context.Context) error {
	f.refreshes.Add(1)
	return f.refreshErr
}

func (f *fakeProfile) HasValidAPIKey(ctx context.Context) bool {
	return f.validKey.Load()
}

func (f *fakeProfile) HasPublicInventory(ctx context.Context) bool {
	return f.publicInventory.Load()
}

type sentOffer struct {
	recipient uint64
	give      []models.Asset
	take      []models.Asset
	token     string
}

type fakeDispatcher struct {
	mu       sync.Mutex
	attempts int
	offers   []sentOffer

	// failFirst makes the first submission fail; confirmIDs is returned on
	// every success.
	failFirst  bool
	confirmIDs []uint64
}

func (f *fakeDispatcher) SendMatchOffer(ctx context.Context, recipient uint64, give, take []models.Asset, tradeToken string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failFirst && f.attempts == 1 {
		return nil, errors.New("submission rejected")
	}
	f.offers = append(f.offers, sentOffer{recipient: recipient, give: give, take: take, token: tradeToken})
	return f.confirmIDs, nil
}

func (f *fakeDispatcher) sent() []sentOffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentOffer(nil), f.offers...)
}

type fakeConfirmer struct {
	mu       sync.Mutex
	accepted [][]uint64
	err      error
}

func (f *fakeConfirmer) AcceptConfirmations(ctx context.Context, offerIDs []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.accepted = append(f.accepted, append([]uint64(nil), offerIDs...))
	return nil
}

type fakeBlacklist struct {
	ids map[uint64]struct{}
	err error
}

func (f *fakeBlacklist) Blacklisted(ctx context.Context) (map[uint64]struct{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type fixture struct {
	clock      *fakeClock
	directory  *fakeDirectory
	inventory  *fakeInventory
	profile    *fakeProfile
	dispatcher *fakeDispatcher
	confirmer  *fakeConfirmer
	blacklist  *fakeBlacklist
	p          *Participant
}

const ownSteamID = uint64(76561198000000001)

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		clock:      newFakeClock(),
		directory:  &fakeDirectory{},
		inventory:  &fakeInventory{users: map[uint64][]models.Asset{}, userErrs: map[uint64]error{}},
		profile:    newFakeProfile(),
		dispatcher: &fakeDispatcher{},
		confirmer:  &fakeConfirmer{},
		blacklist:  &fakeBlacklist{ids: map[uint64]struct{}{}},
	}

	cfg := Config{
		BotName:          "alpha",
		SteamID:          ownSteamID,
		TradeToken:       "ABC1",
		Guid:             "fixture-guid",
		MatchableTypes:   models.MatchableTypes(),
		Preferences:      models.PrefSteamTradeMatcher | models.PrefMatchActively,
		HasAuthenticator: true,
		Now:              f.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	p, err := New(cfg, Collaborators{
		Directory:  f.directory,
		Inventory:  f.inventory,
		Profile:    f.profile,
		Dispatcher: f.dispatcher,
		Confirmer:  f.confirmer,
		Blacklist:  f.blacklist,
	})
	if err != nil {
		t.Fatalf("Expected participant to construct. Got: %v", err)
	}

	// Inter-round sleeps advance the fake clock instead of blocking.
	p.sleep = func(ctx context.Context, d time.Duration) error {
		f.clock.Advance(d)
		return ctx.Err()
	}
	f.p = p
	return f
}

// tradingCards builds n single-unit tradable cards with distinct class ids
// spread evenly across apps.
func tradingCards(n, apps int) []models.Asset {
	out := make([]models.Asset, n)
	for i := range out {
		out[i] = models.Asset{
			AppID:      753,
			ContextID:  6,
			AssetID:    uint64(10_000 + i),
			ClassID:    uint64(1 + i),
			Amount:     1,
			RealAppID:  uint32(100 + i%apps),
			Type:       models.AssetTradingCard,
			Tradable:   true,
		}
	}
	return out
}

// cardSet builds one card per unit for the given class counts, all in one
// app, with deterministic asset ids starting at base.
func cardSet(app uint32, base uint64, counts map[uint64]int) []models.Asset {
	classes := make([]uint64, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	var out []models.Asset
	id := base
	for _, class := range classes {
		for i := 0; i < counts[class]; i++ {
			out = append(out, models.Asset{
				AppID:     753,
				ContextID: 6,
				AssetID:   id,
				ClassID:   class,
				Amount:    1,
				RealAppID: app,
				Type:      models.AssetTradingCard,
				Tradable:  true,
			})
			id++
		}
	}
	return out
}

func TestAnnounceBelowThreshold(t *testing.T) {
	// Scenario: 99 matchable items is below the minimum; the check still
	// counts as done (clock advances) but no announce goes out and
	// heartbeats stay off.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(99, 10)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 0 {
		t.Errorf("Expected no announce call. Got: %d", got)
	}
	status := f.p.Status()
	if !status.LastAnnouncementCheck.Equal(f.clock.Now()) {
		t.Errorf("Expected announcement check clock to advance to %v. Got: %v", f.clock.Now(), status.LastAnnouncementCheck)
	}
	if status.Announced {
		t.Error("Expected heartbeats to stay off. Got: announced")
	}
}

func TestAnnounceThenHeartbeat(t *testing.T) {
	// Scenario: 250 matchable items across 50 apps, three matchable types
	// configured, trade token ABC1. The announce carries the exact counts
	// and the heartbeat tick 11 minutes later posts a heartbeat.
	f := newFixture(t, func(cfg *Config) {
		cfg.MatchableTypes = models.NewTypeSet(
			models.AssetTradingCard, models.AssetFoilTradingCard, models.AssetEmoticon)
	})
	f.inventory.mineQueue = [][]models.Asset{tradingCards(250, 50)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 1 {
		t.Fatalf("Expected exactly one announce. Got: %d", got)
	}
	ann := f.directory.announces[0]
	if ann.SteamID != ownSteamID {
		t.Errorf("Expected steam id %d. Got: %d", ownSteamID, ann.SteamID)
	}
	if ann.ItemsCount != 250 {
		t.Errorf("Expected ItemsCount 250. Got: %d", ann.ItemsCount)
	}
	if ann.GamesCount != 50 {
		t.Errorf("Expected GamesCount 50. Got: %d", ann.GamesCount)
	}
	if ann.TradeToken != "ABC1" {
		t.Errorf("Expected trade token ABC1. Got: %s", ann.TradeToken)
	}
	if ann.MatchEverything {
		t.Error("Expected MatchEverything off. Got: on")
	}
	if len(ann.MatchableTypes) != 3 {
		t.Errorf("Expected 3 matchable types. Got: %d", len(ann.MatchableTypes))
	}
	if !f.p.Status().Announced {
		t.Error("Expected heartbeats on after announce. Got: off")
	}

	f.clock.Advance(11 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())

	if got := f.directory.heartbeatCount(); got != 1 {
		t.Fatalf("Expected one heartbeat. Got: %d", got)
	}
	if f.directory.heartbeats[0] != ownSteamID {
		t.Errorf("Expected heartbeat for %d. Got: %d", ownSteamID, f.directory.heartbeats[0])
	}
}

func TestAnnounceInventoryFailurePreservesClock(t *testing.T) {
	// Scenario: the inventory fetch fails during an announce; the TTL clock
	// must not advance so the next persona event retries immediately.
	f := newFixture(t, nil)
	f.inventory.mineErr = errors.New("inventory unavailable")

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	status := f.p.Status()
	if !status.LastAnnouncementCheck.IsZero() {
		t.Errorf("Expected announcement check clock untouched. Got: %v", status.LastAnnouncementCheck)
	}
	if status.Announced {
		t.Error("Expected heartbeats off after failed fetch. Got: announced")
	}

	// The retry succeeds once the inventory is readable again.
	f.inventory.mu.Lock()
	f.inventory.mineErr = nil
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}
	f.inventory.mu.Unlock()

	f.p.OnPersonaState(context.Background(), "nick", "hash")
	if got := f.directory.announceCount(); got != 1 {
		t.Errorf("Expected the retry to announce. Got: %d announce(s)", got)
	}
}

func TestAnnounceIneligibleAdvancesClock(t *testing.T) {
	// Scenario: the API key probe fails; ineligibility completes the check
	// without any directory traffic.
	f := newFixture(t, nil)
	f.profile.validKey.Store(false)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 0 {
		t.Errorf("Expected no announce while ineligible. Got: %d", got)
	}
	status := f.p.Status()
	if !status.LastAnnouncementCheck.Equal(f.clock.Now()) {
		t.Errorf("Expected announcement check clock to advance. Got: %v", status.LastAnnouncementCheck)
	}
	if status.Announced {
		t.Error("Expected heartbeats off. Got: announced")
	}
	if got := f.inventory.myCalls; got != 0 {
		t.Errorf("Expected no inventory fetch while ineligible. Got: %d", got)
	}
}

func TestAnnounceRespectsTTL(t *testing.T) {
	// Scenario: persona events 1 minute apart announce once; a third event
	// past the 6 hour TTL announces again.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")
	f.clock.Advance(time.Minute)
	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 1 {
		t.Fatalf("Expected one announce inside the TTL. Got: %d", got)
	}

	f.clock.Advance(MinAnnouncementCheckTTL)
	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 2 {
		t.Errorf("Expected a second announce after the TTL. Got: %d", got)
	}
}

func TestHeartbeatGating(t *testing.T) {
	// Scenario: no heartbeat without a successful announce; after one,
	// heartbeats keep the 10 minute spacing.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.clock.Advance(11 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())
	if got := f.directory.heartbeatCount(); got != 0 {
		t.Fatalf("Expected no heartbeat before announcing. Got: %d", got)
	}

	f.p.OnPersonaState(context.Background(), "nick", "hash")
	f.p.OnHeartbeatTick(context.Background())
	if got := f.directory.heartbeatCount(); got != 1 {
		t.Fatalf("Expected first heartbeat after announce. Got: %d", got)
	}

	f.clock.Advance(5 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())
	if got := f.directory.heartbeatCount(); got != 1 {
		t.Errorf("Expected no heartbeat inside the TTL. Got: %d", got)
	}

	f.clock.Advance(5 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())
	if got := f.directory.heartbeatCount(); got != 2 {
		t.Errorf("Expected second heartbeat after the TTL. Got: %d", got)
	}
}

func TestHeartbeatFailureKeepsClock(t *testing.T) {
	// Scenario: a failed heartbeat leaves the clock alone so the next tick
	// retries, and does not stop future heartbeats.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}
	f.p.OnPersonaState(context.Background(), "nick", "hash")

	f.directory.mu.Lock()
	f.directory.heartbeatErr = errors.New("directory down")
	f.directory.mu.Unlock()

	f.clock.Advance(11 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())

	status := f.p.Status()
	if !status.LastHeartbeat.IsZero() {
		t.Errorf("Expected heartbeat clock untouched on failure. Got: %v", status.LastHeartbeat)
	}
	if !status.Announced {
		t.Error("Expected heartbeats to stay enabled after a failed attempt")
	}

	f.directory.mu.Lock()
	f.directory.heartbeatErr = nil
	f.directory.mu.Unlock()

	f.p.OnHeartbeatTick(context.Background())
	if got := f.directory.heartbeatCount(); got != 1 {
		t.Errorf("Expected the retry tick to heartbeat. Got: %d", got)
	}
}

func TestTTLMonotonicity(t *testing.T) {
	// Scenario: across two announce cycles with heartbeats in between, every
	// lifecycle clock only moves forward.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")
	first := f.p.Status()

	f.clock.Advance(11 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())
	second := f.p.Status()

	f.clock.Advance(MinAnnouncementCheckTTL)
	f.p.OnPersonaState(context.Background(), "nick", "hash")
	f.clock.Advance(11 * time.Minute)
	f.p.OnHeartbeatTick(context.Background())
	third := f.p.Status()

	if second.LastHeartbeat.Before(first.LastHeartbeat) ||
		third.LastHeartbeat.Before(second.LastHeartbeat) {
		t.Error("Expected heartbeat clock to be monotonic")
	}
	if second.LastAnnouncementCheck.Before(first.LastAnnouncementCheck) ||
		third.LastAnnouncementCheck.Before(second.LastAnnouncementCheck) {
		t.Error("Expected announcement clock to be monotonic")
	}
	if !third.LastAnnouncementCheck.After(first.LastAnnouncementCheck) {
		t.Error("Expected the second announce to advance the announcement clock")
	}
}

func TestPersonaRefreshGate(t *testing.T) {
	// Scenario: the first tick requests a persona refresh (both TTLs have
	// lapsed at the zero epoch); a second immediate tick does not. After an
	// announce, no refresh fires until both TTLs lapse again.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.p.OnHeartbeatTick(context.Background())
	if got := f.profile.refreshes.Load(); got != 1 {
		t.Fatalf("Expected one persona refresh on first tick. Got: %d", got)
	}

	f.p.OnHeartbeatTick(context.Background())
	if got := f.profile.refreshes.Load(); got != 1 {
		t.Errorf("Expected no refresh inside the persona TTL. Got: %d", got)
	}

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	// 7 hours on: the announcement TTL has lapsed but the persona TTL (8h)
	// has not.
	f.clock.Advance(7 * time.Hour)
	f.p.OnHeartbeatTick(context.Background())
	if got := f.profile.refreshes.Load(); got != 1 {
		t.Errorf("Expected no refresh while the persona TTL holds. Got: %d", got)
	}

	// Past both TTLs the refresh fires again.
	f.clock.Advance(2 * time.Hour)
	f.p.OnHeartbeatTick(context.Background())
	if got := f.profile.refreshes.Load(); got != 2 {
		t.Errorf("Expected a second refresh after both TTLs. Got: %d", got)
	}
}

func TestSingleFlightAnnounce(t *testing.T) {
	// Scenario: many concurrent persona events produce exactly one announce
	// POST, and no two directory requests overlap.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}
	f.directory.requestDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.p.OnPersonaState(context.Background(), "nick", "hash")
		}()
	}
	wg.Wait()

	if got := f.directory.announceCount(); got != 1 {
		t.Errorf("Expected one announce from 8 concurrent events. Got: %d", got)
	}
	if got := f.directory.maxInFlight.Load(); got > 1 {
		t.Errorf("Expected directory requests to never overlap. Got: %d in flight", got)
	}
}

func TestSingleFlightHeartbeat(t *testing.T) {
	// Scenario: concurrent heartbeat ticks collapse into one POST thanks to
	// the double-checked TTL gate.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}
	f.p.OnPersonaState(context.Background(), "nick", "hash")

	f.directory.requestDelay = 20 * time.Millisecond
	f.clock.Advance(11 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.p.OnHeartbeatTick(context.Background())
		}()
	}
	wg.Wait()

	if got := f.directory.heartbeatCount(); got != 1 {
		t.Errorf("Expected one heartbeat from 8 concurrent ticks. Got: %d", got)
	}
	if got := f.directory.maxInFlight.Load(); got > 1 {
		t.Errorf("Expected directory requests to never overlap. Got: %d in flight", got)
	}
}

func TestAnnounceFailureClearsHeartbeats(t *testing.T) {
	// Scenario: the announce POST itself fails; heartbeats must not start
	// and the clock stays put so the next persona event retries.
	f := newFixture(t, nil)
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}
	f.directory.announceErr = errors.New("announce rejected")

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	status := f.p.Status()
	if status.Announced {
		t.Error("Expected heartbeats off after a failed announce")
	}
	if !status.LastAnnouncementCheck.IsZero() {
		t.Errorf("Expected announcement clock untouched. Got: %v", status.LastAnnouncementCheck)
	}

	f.directory.mu.Lock()
	f.directory.announceErr = nil
	f.directory.mu.Unlock()

	f.p.OnPersonaState(context.Background(), "nick", "hash")
	if got := f.directory.announceCount(); got != 1 {
		t.Errorf("Expected the next persona event to announce. Got: %d", got)
	}
	if !f.p.Status().Announced {
		t.Error("Expected heartbeats on after the retry succeeded")
	}
}

func TestMissingTradeTokenSkipsAnnounce(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.TradeToken = ""
	})
	f.inventory.mineQueue = [][]models.Asset{tradingCards(150, 10)}

	f.p.OnPersonaState(context.Background(), "nick", "hash")

	if got := f.directory.announceCount(); got != 0 {
		t.Errorf("Expected no announce without a trade token. Got: %d", got)
	}
	status := f.p.Status()
	if !status.LastAnnouncementCheck.Equal(f.clock.Now()) {
		t.Errorf("Expected announcement check clock to advance. Got: %v", status.LastAnnouncementCheck)
	}
}
