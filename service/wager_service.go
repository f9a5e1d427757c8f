package service

import (
	"context"
	"fmt"
	"time"

	"scrimbot/config"
	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

type wagerService struct {
	uowFactory UnitOfWorkFactory
	feed       MatchFeed
	cfg        *config.Config
}

// NewWagerService creates a new wager service
func NewWagerService(uowFactory UnitOfWorkFactory, feed MatchFeed, cfg *config.Config) WagerService {
	return &wagerService{
		uowFactory: uowFactory,
		feed:       feed,
		cfg:        cfg,
	}
}

// GetBalance returns the user's balance, creating the account on first access
func (s *wagerService) GetBalance(ctx context.Context, guildID, userID int64) (*models.Balance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balance, err := s.getOrCreateLocked(ctx, uow, guildID, userID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return balance, nil
}

// getOrCreateLocked loads the balance row under lock, creating it with the
// starting grant on first access and applying the lazy daily grant. The row
// lock makes the grant and any bet placement on the same balance mutually
// exclusive.
func (s *wagerService) getOrCreateLocked(ctx context.Context, uow UnitOfWork, guildID, userID int64) (*models.Balance, error) {
	balance, err := uow.BalanceRepository().GetForUpdate(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return uow.BalanceRepository().Create(ctx, guildID, userID, s.cfg.StartingBalance)
	}

	today := time.Now().UTC()
	if balance.DailyGrantEligible(s.cfg.DailyGrantThreshold, today) {
		if err := uow.BalanceRepository().ApplyDailyGrant(ctx, guildID, userID, s.cfg.DailyGrantAmount, today); err != nil {
			return nil, err
		}
		balance.Balance += s.cfg.DailyGrantAmount
		balance.LastDailyGrant = &today
		log.WithFields(log.Fields{
			"guild": guildID,
			"user":  userID,
			"grant": s.cfg.DailyGrantAmount,
		}).Info("Daily grant applied")
	}

	return balance, nil
}

// Leaderboard returns the guild's top balances plus the caller's own entry
func (s *wagerService) Leaderboard(ctx context.Context, guildID, userID int64, limit int) ([]*models.LeaderboardEntry, *models.LeaderboardEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	caller, err := s.getOrCreateLocked(ctx, uow, guildID, userID)
	if err != nil {
		return nil, nil, err
	}

	top, err := uow.BalanceRepository().Top(ctx, guildID, limit)
	if err != nil {
		return nil, nil, err
	}

	rank, err := uow.BalanceRepository().Rank(ctx, guildID, userID)
	if err != nil {
		return nil, nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	callerEntry := &models.LeaderboardEntry{UserID: userID, Balance: caller.Balance, Rank: rank}
	return top, callerEntry, nil
}

// PlaceBet validates the stake against the feed and the balance, then debits
// the stake and stores the open bet in one transaction. A settlement trigger
// is armed for the match as the durable fallback for missed feed events.
func (s *wagerService) PlaceBet(ctx context.Context, params PlaceBetParams) (*models.Bet, error) {
	if params.Stake <= 0 {
		return nil, fmt.Errorf("stake %d: %w", params.Stake, ErrInvalidStake)
	}

	// Feed lookup happens outside the transaction; it is a bounded external call
	feedCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()
	match, err := s.feed.Match(feedCtx, params.MatchID)
	if err != nil {
		return nil, fmt.Errorf("match feed lookup for %s: %v: %w", params.MatchID, err, ErrExternalUnavailable)
	}
	if match == nil || !match.IsOpenForBets() {
		return nil, fmt.Errorf("match %s: %w", params.MatchID, ErrMatchAlreadyStarted)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balance, err := s.getOrCreateLocked(ctx, uow, params.GuildID, params.UserID)
	if err != nil {
		return nil, err
	}
	if params.Stake > balance.Balance {
		return nil, fmt.Errorf("stake %d exceeds balance %d: %w", params.Stake, balance.Balance, ErrInsufficientFunds)
	}

	if err := uow.BalanceRepository().Deduct(ctx, params.GuildID, params.UserID, params.Stake); err != nil {
		return nil, err
	}

	bet := &models.Bet{
		GuildID:         params.GuildID,
		UserID:          params.UserID,
		ChannelID:       params.ChannelID,
		MatchID:         params.MatchID,
		PredictedWinner: params.PredictedWinner,
		Stake:           params.Stake,
		Status:          models.BetStatusOpen,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, err
	}

	fireAt := time.Now().UTC().Add(s.cfg.TriggerRetryBase)
	if _, err := uow.TriggerRepository().EnsureScheduled(ctx, models.MatchOwnerRef(params.MatchID), models.TriggerKindSettlement, fireAt); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"guild": params.GuildID,
		"user":  params.UserID,
		"match": params.MatchID,
		"stake": params.Stake,
		"pick":  params.PredictedWinner,
	}).Info("Bet placed")

	return bet, nil
}
