package steam

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/itemforge/matchbot/pkg/models"
)

// DryRunDispatcher satisfies the trade dispatch and confirmation seams
// without touching Steam. Every composed offer is logged and reported as
// sent, with no confirmations left pending, so the full matching pipeline
// can run against live inventories before real dispatch is switched on.
type DryRunDispatcher struct {
	offersComposed atomic.Uint64
	itemsOffered   atomic.Uint64
}

func NewDryRunDispatcher() *DryRunDispatcher {
	return &DryRunDispatcher{}
}

func (d *DryRunDispatcher) SendMatchOffer(ctx context.Context, recipient uint64, give, take []models.Asset, tradeToken string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.offersComposed.Add(1)
	d.itemsOffered.Add(uint64(len(give) + len(take)))

	token := "none"
	if tradeToken != "" {
		token = "set"
	}
	log.Printf("[Steam] Dry run: would offer %d item(s) for %d item(s) to %d (trade token: %s)",
		len(give), len(take), recipient, token)
	return nil, nil
}

func (d *DryRunDispatcher) AcceptConfirmations(ctx context.Context, offerIDs []uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(offerIDs) > 0 {
		log.Printf("[Steam] Dry run: would accept %d confirmation(s)", len(offerIDs))
	}
	return nil
}

// Stats reports how many offers and items the dispatcher has composed since
// start, for the status API.
func (d *DryRunDispatcher) Stats() (offers, items uint64) {
	return d.offersComposed.Load(), d.itemsOffered.Load()
}
