package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itemforge/matchbot/internal/directory"
	"github.com/itemforge/matchbot/internal/participation"
	"github.com/itemforge/matchbot/internal/steam"
)

// heartbeatTickInterval is how often each bot re-evaluates its heartbeat and
// persona-refresh gates. The gates themselves enforce the real TTLs, so the
// tick just has to be comfortably shorter than the smallest one.
const heartbeatTickInterval = time.Minute

// Options carries the process-level services an Agent shares across bots.
type Options struct {
	// DirectoryURL is the matching directory base URL.
	DirectoryURL string

	// Guid identifies this installation to the directory.
	Guid string

	// Blacklist is the installation's trade blacklist; nil means no
	// blacklist is enforced.
	Blacklist participation.BlacklistSource

	// Notify, when set, receives every bot's lifecycle events.
	Notify func(participation.Event)
}

// Agent hosts the roster's bots: it drives their heartbeat ticks, primes the
// announce path at startup and owns the periodic matching triggers.
type Agent struct {
	cfg  *Config
	dir  *directory.Client
	bots []*Bot
	wg   sync.WaitGroup
}

// Bot is one hosted account with its wired collaborators.
type Bot struct {
	name        string
	steam       *steam.Client
	participant *participation.Participant
	online      atomic.Bool
	tradingMu   sync.Mutex
}

// New wires every roster entry into a hosted bot. The directory client is
// shared so its rate limit covers the whole process.
func New(cfg *Config, opts Options) (*Agent, error) {
	a := &Agent{
		cfg: cfg,
		dir: directory.NewClient(directory.Config{
			BaseURL: opts.DirectoryURL,
			Guid:    opts.Guid,
		}),
	}

	for _, bc := range cfg.Bots {
		b, err := a.newBot(bc, opts)
		if err != nil {
			return nil, fmt.Errorf("bot %q: %w", bc.Name, err)
		}
		a.bots = append(a.bots, b)
	}
	return a, nil
}

func (a *Agent) newBot(bc BotConfig, opts Options) (*Bot, error) {
	types, err := bc.Types()
	if err != nil {
		return nil, err
	}
	prefs, err := bc.Preferences()
	if err != nil {
		return nil, err
	}

	b := &Bot{
		name: bc.Name,
		steam: steam.NewClient(steam.Config{
			SteamID: bc.SteamID,
			APIKey:  bc.APIKey,
		}),
	}

	dispatcher := steam.NewDryRunDispatcher()
	p, err := participation.New(participation.Config{
		BotName:             bc.Name,
		SteamID:             bc.SteamID,
		TradeToken:          bc.TradeToken,
		Guid:                opts.Guid,
		MatchableTypes:      types,
		Preferences:         prefs,
		HasAuthenticator:    bc.HasAuthenticator(),
		MinItemsCount:       a.cfg.MinItemsCount,
		MaxTradesPerAccount: MaxTradesPerAccount,
		MaxItemsPerTrade:    MaxItemsPerTrade,
		TradingLock:         &b.tradingMu,
		Online:              b.online.Load,
		Notify:              opts.Notify,
	}, participation.Collaborators{
		Directory:  a.dir,
		Inventory:  b.steam,
		Profile:    b.steam,
		Dispatcher: dispatcher,
		Confirmer:  dispatcher,
		Blacklist:  opts.Blacklist,
	})
	if err != nil {
		return nil, err
	}
	b.participant = p
	return b, nil
}

// Run drives every bot until ctx is cancelled, then stops the triggers and
// waits for the tick loops to drain.
func (a *Agent) Run(ctx context.Context) {
	log.Printf("[Agent] Hosting %d bot(s)", len(a.bots))

	delay := a.cfg.LoadBalancingDelay()
	for i, b := range a.bots {
		b := b
		// Announcements ride on persona-state events, so route the refresh
		// callback into the lifecycle with the run context.
		b.steam.OnPersonaState = func(nickname, avatarHash string) {
			b.participant.OnPersonaState(ctx, nickname, avatarHash)
		}
		a.wg.Add(1)
		go a.runBot(ctx, b)
		b.participant.StartTrigger(ctx, triggerStagger(i, delay))
	}

	<-ctx.Done()
	log.Println("[Agent] Shutting down")
	for _, b := range a.bots {
		b.participant.StopTrigger()
	}
	a.wg.Wait()
}

func (a *Agent) runBot(ctx context.Context, b *Bot) {
	defer a.wg.Done()

	b.online.Store(true)
	defer b.online.Store(false)

	// Prime the announce path: the first persona refresh produces the first
	// persona-state event, which drives the first announcement attempt.
	if err := b.steam.RequestPersonaRefresh(ctx); err != nil {
		log.Printf("[Agent] %s: startup persona refresh: %v", b.name, err)
	}

	ticker := time.NewTicker(heartbeatTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.participant.OnHeartbeatTick(ctx)
		}
	}
}

// triggerStagger spaces the bots' first matching passes so they do not fight
// over the directory and each other's inventories at startup.
func triggerStagger(index int, delay time.Duration) time.Duration {
	return time.Duration(index) * delay
}

// Bots returns the hosted bots in roster order.
func (a *Agent) Bots() []*Bot {
	return a.bots
}

// Bot looks a hosted bot up by name.
func (a *Agent) Bot(name string) (*Bot, bool) {
	for _, b := range a.bots {
		if b.name == name {
			return b, true
		}
	}
	return nil, false
}

// Name returns the bot's roster name.
func (b *Bot) Name() string {
	return b.name
}

// Online reports whether the bot's tick loop is running.
func (b *Bot) Online() bool {
	return b.online.Load()
}

// Status returns the bot's lifecycle snapshot.
func (b *Bot) Status() participation.Status {
	return b.participant.Status()
}

// Match runs one active-matching pass, blocking until it finishes. A pass
// already in flight makes this a no-op.
func (b *Bot) Match(ctx context.Context) {
	b.participant.MatchActively(ctx)
}
