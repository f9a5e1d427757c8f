package feed

import (
	"context"
	"fmt"

	"scrimbot/events"
	"scrimbot/models"
	"scrimbot/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Watcher polls the match feed for matches that carry open bets and turns
// feed state changes into events. Settlement itself happens downstream, in
// the settlement service, so a missed poll only delays it.
type Watcher struct {
	client     *Client
	uowFactory service.UnitOfWorkFactory
	bus        *events.Bus
	pollSpec   string
	cron       *cron.Cron
}

// NewWatcher creates a feed watcher polling on the given cron spec
func NewWatcher(client *Client, uowFactory service.UnitOfWorkFactory, bus *events.Bus, pollSpec string) *Watcher {
	return &Watcher{
		client:     client,
		uowFactory: uowFactory,
		bus:        bus,
		pollSpec:   pollSpec,
	}
}

// Start begins polling and returns a stop function that waits for any
// in-flight poll to finish.
func (w *Watcher) Start(ctx context.Context) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(w.pollSpec, func() { w.poll(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid feed poll spec %q: %w", w.pollSpec, err)
	}
	c.Start()
	w.cron = c

	log.WithField("spec", w.pollSpec).Info("Match feed watcher started")

	return func() {
		<-c.Stop().Done()
		log.Info("Match feed watcher stopped")
	}, nil
}

func (w *Watcher) poll(ctx context.Context) {
	bets, err := w.openBets(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load open bets for feed poll")
		return
	}
	if len(bets) == 0 {
		return
	}

	byMatch := make(map[string][]*models.Bet)
	for _, bet := range bets {
		byMatch[bet.MatchID] = append(byMatch[bet.MatchID], bet)
	}

	live, err := w.client.Live(ctx)
	if err != nil {
		log.WithError(err).Warn("Feed live lookup failed, skipping start notifications this poll")
	}

	results, err := w.client.Results(ctx)
	if err != nil {
		log.WithError(err).Warn("Feed results lookup failed, skipping settlement this poll")
	}

	for matchID, matchBets := range byMatch {
		if m := find(live, matchID); m != nil {
			w.notifyStart(ctx, *m, matchBets)
		}

		m := find(results, matchID)
		if m == nil {
			continue
		}
		switch m.Status {
		case models.MatchStatusFinished:
			w.bus.Emit(ctx, events.MatchResultEvent{MatchID: matchID, Winner: m.Winner})
		case models.MatchStatusVoided:
			w.bus.Emit(ctx, events.MatchVoidedEvent{MatchID: matchID})
		}
	}
}

func (w *Watcher) openBets(ctx context.Context) ([]*models.Bet, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.BetRepository().ListOpen(ctx)
}

// notifyStart emits a one-time started event for bets not yet notified. The
// flag is committed before the event goes out, so a crash in between drops
// the ping rather than repeating it.
func (w *Watcher) notifyStart(ctx context.Context, match models.Match, bets []*models.Bet) {
	var unnotified []*models.Bet
	for _, bet := range bets {
		if !bet.StartNotified {
			unnotified = append(unnotified, bet)
		}
	}
	if len(unnotified) == 0 {
		return
	}

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin start-notification transaction")
		return
	}
	defer uow.Rollback()

	if err := uow.BetRepository().MarkStartNotified(ctx, match.ID); err != nil {
		log.WithError(err).WithField("matchId", match.ID).Error("Failed to mark bets start-notified")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("matchId", match.ID).Error("Failed to commit start notification")
		return
	}

	w.bus.Emit(ctx, events.MatchStartedEvent{Match: match, Bets: unnotified})
}
