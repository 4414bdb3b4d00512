package participation

import (
	"context"

	"github.com/itemforge/matchbot/pkg/models"
)

// eligible reports whether the bot may participate in matching. The checks
// run in order and short-circuit, so the remote probes are only reached for
// bots that pass the local configuration checks. Results are never cached;
// transient remote failures read as false and resolve on a later tick.
func (p *Participant) eligible(ctx context.Context) bool {
	if !p.cfg.HasAuthenticator {
		return false
	}
	if !p.cfg.Preferences.Has(models.PrefSteamTradeMatcher) {
		return false
	}
	if len(p.cfg.MatchableTypes.Intersect(models.MatchableTypes())) == 0 {
		return false
	}
	if !p.profile.HasPublicInventory(ctx) {
		return false
	}
	if !p.profile.HasValidAPIKey(ctx) {
		return false
	}
	return true
}
