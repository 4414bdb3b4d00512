package participation

import (
	"context"
	"fmt"
	"log"

	"github.com/itemforge/matchbot/internal/matching"
	"github.com/itemforge/matchbot/internal/metrics"
	"github.com/itemforge/matchbot/pkg/models"
)

// matchGuards re-checks the conditions a matching pass depends on. They are
// evaluated on entry and again before every round after the first.
func (p *Participant) matchGuards(ctx context.Context) bool {
	if !p.online() {
		return false
	}
	if !p.cfg.Preferences.Has(models.PrefMatchActively) {
		return false
	}
	if p.cfg.Preferences.Has(models.PrefMatchEverything) {
		// Match-everything accounts are served by a different strategy.
		return false
	}
	return p.eligible(ctx)
}

// MatchActively runs one bounded active-matching pass: up to
// MaxMatchingRounds rounds of duplicate-reduction trading, five minutes
// apart so counterparties have time to accept. If a pass is already running
// the call returns without doing anything.
func (p *Participant) MatchActively(ctx context.Context) {
	if !p.matchGuards(ctx) {
		return
	}

	accepted := p.cfg.MatchableTypes.Intersect(models.MatchableTypes())
	if len(accepted) == 0 {
		return
	}

	if !p.matchMu.TryLock() {
		return
	}
	defer p.matchMu.Unlock()

	p.matching.Store(true)
	defer p.matching.Store(false)

	log.Printf("[Matcher] %s: starting active matching", p.cfg.BotName)
	p.notify("match_started", "")

	for round := 1; round <= MaxMatchingRounds; round++ {
		p.tradingLock.Lock()
		progress := p.matchRound(ctx, accepted)
		p.tradingLock.Unlock()

		p.roundsCompleted.Add(1)
		metrics.RecordRound()
		log.Printf("[Matcher] %s: round %d finished (progress: %t)", p.cfg.BotName, round, progress)
		p.notify("round_finished", fmt.Sprintf("round %d, progress %t", round, progress))

		if !progress || round == MaxMatchingRounds {
			break
		}

		if err := p.sleep(ctx, interRoundDelay); err != nil {
			return
		}
		if !p.matchGuards(ctx) {
			break
		}
	}

	log.Printf("[Matcher] %s: active matching finished", p.cfg.BotName)
	p.notify("match_finished", "")
}

// blacklisted reads the trade blacklist. A missing source or a failed read
// is an empty blacklist; the round proceeds.
func (p *Participant) blacklisted(ctx context.Context) map[uint64]struct{} {
	if p.blacklist == nil {
		return nil
	}
	ids, err := p.blacklist.Blacklisted(ctx)
	if err != nil {
		log.Printf("[Matcher] %s: blacklist read failed: %v", p.cfg.BotName, err)
		return nil
	}
	return ids
}

// matchRound performs one duplicate-reduction round against the directory's
// top-scored candidates. It reports whether any set was matched, which the
// caller uses to decide on another round.
func (p *Participant) matchRound(ctx context.Context, accepted models.TypeSet) bool {
	ourAssets, err := p.inventory.MyInventory(ctx, models.InventoryFilter{
		TradableOnly: true,
		Types:        accepted,
	})
	if err != nil {
		log.Printf("[Matcher] %s: own inventory fetch failed: %v", p.cfg.BotName, err)
		return false
	}
	if len(ourAssets) == 0 {
		return false
	}

	ourState := matching.BuildState(ourAssets)
	if !ourState.HasSurplus() {
		return false
	}

	listed, err := p.directory.ListBots(ctx)
	if err != nil {
		log.Printf("[Matcher] %s: directory fetch failed: %v", p.cfg.BotName, err)
		return false
	}
	if len(listed) == 0 {
		return false
	}

	candidates := matching.SelectCandidates(listed, p.cfg.SteamID, accepted, p.blacklisted(ctx), MaxMatchedBotsHard)
	log.Printf("[Matcher] %s: %d candidate(s) out of %d listed user(s)", p.cfg.BotName, len(candidates), len(listed))

	// ourPool holds the concrete assets still available for offers; units
	// committed to a dispatched offer are consumed for the rest of the round.
	ourPool := ourAssets
	skippedSetsRound := make(map[models.SetKey]struct{})
	emptyMatches := 0

	for _, user := range candidates {
		wantedSets := ourState.KeySet()
		for key := range skippedSetsRound {
			delete(wantedSets, key)
		}
		if len(wantedSets) == 0 {
			break
		}

		theirAssets, err := p.inventory.UserInventory(ctx, user.SteamID, models.InventoryFilter{
			TradableOnly: true,
			WantedSets:   wantedSets,
		})
		if err != nil {
			log.Printf("[Matcher] %s: inventory of %d unavailable: %v", p.cfg.BotName, user.SteamID, err)
			continue
		}
		if len(theirAssets) == 0 {
			continue
		}

		theirState := matching.BuildState(theirAssets)
		theirPool := theirAssets
		skippedSetsUser := make(map[models.SetKey]struct{})

		for attempt := 0; attempt < p.cfg.MaxTradesPerAccount; attempt++ {
			offer := matching.BuildOffer(ourState, theirState, user.MatchableTypes, skippedSetsUser, p.cfg.MaxItemsPerTrade)
			if offer.Empty() {
				emptyMatches++
				if emptyMatches >= MaxMatchedBotsSoft {
					return len(skippedSetsRound) > 0
				}
				break
			}
			emptyMatches = 0

			// A matched set is finished with this user; later attempts must
			// propose different sets.
			for _, key := range offer.MatchedSets {
				skippedSetsUser[key] = struct{}{}
			}

			give, remainingOurs, err := matching.TakeAssets(ourPool, offer.Give)
			if err != nil {
				log.Printf("[Matcher] ERROR: %s: resolving our side for %d: %v", p.cfg.BotName, user.SteamID, err)
				break
			}
			take, remainingTheirs, err := matching.TakeAssets(theirPool, offer.Take)
			if err != nil {
				log.Printf("[Matcher] ERROR: %s: resolving their side for %d: %v", p.cfg.BotName, user.SteamID, err)
				break
			}

			confirmationIDs, err := p.dispatcher.SendMatchOffer(ctx, user.SteamID, give, take, user.TradeToken)
			if err != nil {
				// The speculative state updates stay in place; the next
				// attempt proposes different items.
				log.Printf("[Matcher] %s: offer to %d failed: %v", p.cfg.BotName, user.SteamID, err)
				continue
			}

			ourPool, theirPool = remainingOurs, remainingTheirs
			p.offersSent.Add(1)
			metrics.RecordOffer()
			log.Printf("[Matcher] %s: offered %d item(s) for %d item(s) to %d",
				p.cfg.BotName, len(give), len(take), user.SteamID)
			p.notify("offer_sent", fmt.Sprintf("to %d: %d for %d", user.SteamID, len(give), len(take)))

			if len(confirmationIDs) > 0 && p.cfg.HasAuthenticator {
				if err := p.confirmer.AcceptConfirmations(ctx, confirmationIDs); err != nil {
					// The submitted trade is in an ambiguous state; the round
					// cannot safely continue.
					log.Printf("[Matcher] ERROR: %s: confirmations for %d failed: %v", p.cfg.BotName, user.SteamID, err)
					return false
				}
				metrics.RecordConfirmations(len(confirmationIDs))
			}
		}

		for key := range skippedSetsUser {
			skippedSetsRound[key] = struct{}{}
			delete(ourState, key)
		}
		if !ourState.HasSurplus() {
			break
		}
	}

	return len(skippedSetsRound) > 0
}
