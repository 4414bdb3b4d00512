package participation

import (
	"context"
	"log"
	"time"
)

// StartTrigger schedules periodic active matching: a first pass after one
// hour plus the supplied stagger, then one every eight hours. The stagger
// spreads bots hosted in the same process so they do not hit the directory
// together.
func (p *Participant) StartTrigger(ctx context.Context, stagger time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	p.triggerCancel = cancel
	p.triggerDone = make(chan struct{})

	initial := p.triggerInitial + stagger
	log.Printf("[Matcher] %s: first matching pass in %s, then every %s", p.cfg.BotName, initial, p.triggerEvery)

	go func() {
		defer close(p.triggerDone)

		timer := time.NewTimer(initial)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.MatchActively(ctx)

		ticker := time.NewTicker(p.triggerEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.MatchActively(ctx)
			}
		}
	}()
}

// StopTrigger cancels the schedule and waits for the trigger goroutine to
// unwind, which also aborts any in-flight pass started by it.
func (p *Participant) StopTrigger() {
	if p.triggerCancel == nil {
		return
	}
	p.triggerCancel()
	<-p.triggerDone
	p.triggerCancel = nil
}
