package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scrimbot/config"
	"scrimbot/dispatch"
	"scrimbot/events"
	"scrimbot/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
	feed       MatchFeed
	cfg        *config.Config
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory, feed MatchFeed, cfg *config.Config) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		feed:       feed,
		cfg:        cfg,
	}
}

// SettleMatch resolves every open bet on the match in one atomic batch.
// Redelivered result events and racing settlement triggers are no-ops: the
// settlement marker is checked first, and its primary key breaks any tie.
func (s *settlementService) SettleMatch(ctx context.Context, matchID, winner string) (*models.SettlementResult, error) {
	return s.settle(ctx, matchID, models.SettlementOutcomeResult, winner)
}

// VoidMatch refunds every open bet on the match in one atomic batch
func (s *settlementService) VoidMatch(ctx context.Context, matchID string) (*models.SettlementResult, error) {
	return s.settle(ctx, matchID, models.SettlementOutcomeVoided, "")
}

func (s *settlementService) settle(ctx context.Context, matchID string, outcome models.SettlementOutcome, winner string) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.SettlementRepository().Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Already settled; redelivery is a no-op
		return nil, nil
	}

	bets, err := uow.BetRepository().GetOpenByMatchForUpdate(ctx, matchID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &models.SettlementResult{MatchID: matchID, Outcome: outcome, Winner: winner}

	for _, bet := range bets {
		switch {
		case outcome == models.SettlementOutcomeVoided:
			// Full refund of the stake debited at placement
			if err := uow.BetRepository().SetStatus(ctx, bet.ID, models.BetStatusVoided, now); err != nil {
				return nil, err
			}
			if err := uow.BalanceRepository().Add(ctx, bet.GuildID, bet.UserID, bet.Stake); err != nil {
				return nil, err
			}
			bet.Status = models.BetStatusVoided
			bet.SettledAt = &now
			result.Voided = append(result.Voided, bet)

		case bet.PredictedWinner == winner:
			if err := uow.BetRepository().SetStatus(ctx, bet.ID, models.BetStatusWon, now); err != nil {
				return nil, err
			}
			if err := uow.BalanceRepository().Add(ctx, bet.GuildID, bet.UserID, bet.Payout()); err != nil {
				return nil, err
			}
			bet.Status = models.BetStatusWon
			bet.SettledAt = &now
			result.Won = append(result.Won, bet)

		default:
			// Stake was forfeited at placement; nothing to move
			if err := uow.BetRepository().SetStatus(ctx, bet.ID, models.BetStatusLost, now); err != nil {
				return nil, err
			}
			bet.Status = models.BetStatusLost
			bet.SettledAt = &now
			result.Lost = append(result.Lost, bet)
		}
	}

	marker := &models.Settlement{
		MatchID:      matchID,
		Outcome:      outcome,
		Winner:       winner,
		SettlementID: uuid.New(),
	}
	if err := uow.SettlementRepository().Create(ctx, marker); err != nil {
		if errors.Is(err, ErrPersistenceConflict) {
			// A concurrent settlement won the race; ours rolls back untouched
			return nil, nil
		}
		return nil, err
	}

	// Any still-pending settlement trigger for this match is obsolete now
	if _, err := uow.TriggerRepository().CancelForOwner(ctx, models.MatchOwnerRef(matchID)); err != nil {
		return nil, err
	}

	if result.Total() > 0 {
		uow.EventBus().Publish(events.BetsSettledEvent{Result: *result})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"match":   matchID,
		"outcome": outcome,
		"winner":  winner,
		"won":     len(result.Won),
		"lost":    len(result.Lost),
		"voided":  len(result.Voided),
	}).Info("Match settled")

	return result, nil
}

// HandleSettlementTrigger is the durable fallback path: it consults the feed
// and settles once the match is final. While the match is still running it
// asks the dispatcher to check again later without burning a retry attempt.
func (s *settlementService) HandleSettlementTrigger(ctx context.Context, matchID string) error {
	feedCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()

	match, err := s.feed.Match(feedCtx, matchID)
	if err != nil {
		return fmt.Errorf("match feed lookup for %s: %v: %w", matchID, err, ErrExternalUnavailable)
	}

	switch {
	case match == nil:
		return dispatch.ErrRetryLater
	case match.Status == models.MatchStatusFinished:
		_, err := s.SettleMatch(ctx, matchID, match.Winner)
		return err
	case match.Status == models.MatchStatusVoided:
		_, err := s.VoidMatch(ctx, matchID)
		return err
	default:
		return dispatch.ErrRetryLater
	}
}
