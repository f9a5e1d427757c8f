package service

import (
	"context"
	"errors"
	"testing"

	"scrimbot/dispatch"
	"scrimbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func settlementFixture() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockBalanceRepository, *MockBetRepository, *MockTriggerRepository, *MockSettlementRepository, *MockMatchFeed, SettlementService) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockBalanceRepo := new(MockBalanceRepository)
	mockBetRepo := new(MockBetRepository)
	mockTriggerRepo := new(MockTriggerRepository)
	mockSettlementRepo := new(MockSettlementRepository)
	mockFeed := new(MockMatchFeed)

	mockUoW.SetRepositories(nil, mockTriggerRepo, nil, mockBalanceRepo, mockBetRepo, mockSettlementRepo)

	svc := NewSettlementService(mockFactory, mockFeed, testConfig())
	return mockUoW, mockFactory, mockBalanceRepo, mockBetRepo, mockTriggerRepo, mockSettlementRepo, mockFeed, svc
}

func TestSettlementService_SettleMatch_WinnersAndLosers(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockBalanceRepo, mockBetRepo, mockTriggerRepo, mockSettlementRepo, _, svc := settlementFixture()

	winningBet := &models.Bet{ID: 1, GuildID: 100, UserID: 1, MatchID: "/m", PredictedWinner: "TeamA", Stake: 40, Status: models.BetStatusOpen}
	losingBet := &models.Bet{ID: 2, GuildID: 100, UserID: 2, MatchID: "/m", PredictedWinner: "TeamB", Stake: 25, Status: models.BetStatusOpen}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettlementRepo.On("Get", ctx, "/m").Return(nil, nil)
	mockBetRepo.On("GetOpenByMatchForUpdate", ctx, "/m").Return([]*models.Bet{winningBet, losingBet}, nil)

	// Winner gets double the stake back; the loser's stake stays forfeited
	mockBetRepo.On("SetStatus", ctx, int64(1), models.BetStatusWon, mock.AnythingOfType("time.Time")).Return(nil)
	mockBalanceRepo.On("Add", ctx, int64(100), int64(1), int64(80)).Return(nil)
	mockBetRepo.On("SetStatus", ctx, int64(2), models.BetStatusLost, mock.AnythingOfType("time.Time")).Return(nil)

	mockSettlementRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Settlement) bool {
		return s.MatchID == "/m" &&
			s.Outcome == models.SettlementOutcomeResult &&
			s.Winner == "TeamA"
	})).Return(nil)
	mockTriggerRepo.On("CancelForOwner", ctx, "match:/m").Return(int64(1), nil)

	result, err := svc.SettleMatch(ctx, "/m", "TeamA")

	assert.NoError(t, err)
	assert.Len(t, result.Won, 1)
	assert.Len(t, result.Lost, 1)
	assert.Empty(t, result.Voided)
	assert.Equal(t, models.BetStatusWon, result.Won[0].Status)

	mockBalanceRepo.AssertExpectations(t)
	mockBetRepo.AssertExpectations(t)
	mockSettlementRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestSettlementService_SettleMatch_SecondCallIsNoop(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockBalanceRepo, mockBetRepo, _, mockSettlementRepo, _, svc := settlementFixture()

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettlementRepo.On("Get", ctx, "/m").Return(&models.Settlement{
		MatchID: "/m",
		Outcome: models.SettlementOutcomeResult,
		Winner:  "TeamA",
	}, nil)

	// Settling an already-settled match must not touch bets or balances
	result, err := svc.SettleMatch(ctx, "/m", "TeamA")

	assert.NoError(t, err)
	assert.Nil(t, result)
	mockBetRepo.AssertNotCalled(t, "GetOpenByMatchForUpdate")
	mockBalanceRepo.AssertNotCalled(t, "Add")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestSettlementService_SettleMatch_ConcurrentWinnerRollsBack(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockBalanceRepo, mockBetRepo, _, mockSettlementRepo, _, svc := settlementFixture()

	bet := &models.Bet{ID: 1, GuildID: 100, UserID: 1, MatchID: "/m", PredictedWinner: "TeamA", Stake: 40, Status: models.BetStatusOpen}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettlementRepo.On("Get", ctx, "/m").Return(nil, nil)
	mockBetRepo.On("GetOpenByMatchForUpdate", ctx, "/m").Return([]*models.Bet{bet}, nil)
	mockBetRepo.On("SetStatus", ctx, int64(1), models.BetStatusWon, mock.AnythingOfType("time.Time")).Return(nil)
	mockBalanceRepo.On("Add", ctx, int64(100), int64(1), int64(80)).Return(nil)
	mockSettlementRepo.On("Create", ctx, mock.Anything).Return(ErrPersistenceConflict)

	// Another process inserted the marker first: our whole batch rolls back
	result, err := svc.SettleMatch(ctx, "/m", "TeamA")

	assert.NoError(t, err)
	assert.Nil(t, result)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestSettlementService_VoidMatch_RefundsStakes(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockBalanceRepo, mockBetRepo, mockTriggerRepo, mockSettlementRepo, _, svc := settlementFixture()

	bet := &models.Bet{ID: 1, GuildID: 100, UserID: 1, MatchID: "/m", PredictedWinner: "TeamA", Stake: 40, Status: models.BetStatusOpen}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettlementRepo.On("Get", ctx, "/m").Return(nil, nil)
	mockBetRepo.On("GetOpenByMatchForUpdate", ctx, "/m").Return([]*models.Bet{bet}, nil)
	mockBetRepo.On("SetStatus", ctx, int64(1), models.BetStatusVoided, mock.AnythingOfType("time.Time")).Return(nil)
	mockBalanceRepo.On("Add", ctx, int64(100), int64(1), int64(40)).Return(nil)
	mockSettlementRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Settlement) bool {
		return s.Outcome == models.SettlementOutcomeVoided
	})).Return(nil)
	mockTriggerRepo.On("CancelForOwner", ctx, "match:/m").Return(int64(0), nil)

	result, err := svc.VoidMatch(ctx, "/m")

	assert.NoError(t, err)
	assert.Len(t, result.Voided, 1)
	assert.Empty(t, result.Won)
	mockBalanceRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestSettlementService_HandleSettlementTrigger_NotFinalYet(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _, mockFeed, svc := settlementFixture()

	mockFeed.On("Match", mock.Anything, "/m").
		Return(&models.Match{ID: "/m", Status: models.MatchStatusLive}, nil)

	err := svc.HandleSettlementTrigger(ctx, "/m")

	// The dispatcher reschedules without burning a retry attempt
	assert.ErrorIs(t, err, dispatch.ErrRetryLater)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestSettlementService_HandleSettlementTrigger_FinishedSettles(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockBetRepo, mockTriggerRepo, mockSettlementRepo, mockFeed, svc := settlementFixture()

	mockFeed.On("Match", mock.Anything, "/m").
		Return(&models.Match{ID: "/m", Status: models.MatchStatusFinished, Winner: "TeamA"}, nil)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSettlementRepo.On("Get", ctx, "/m").Return(nil, nil)
	mockBetRepo.On("GetOpenByMatchForUpdate", ctx, "/m").Return([]*models.Bet{}, nil)
	mockSettlementRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockTriggerRepo.On("CancelForOwner", ctx, "match:/m").Return(int64(1), nil)

	err := svc.HandleSettlementTrigger(ctx, "/m")

	assert.NoError(t, err)
	mockSettlementRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestSettlementService_HandleSettlementTrigger_FeedUnavailable(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _, mockFeed, svc := settlementFixture()

	mockFeed.On("Match", mock.Anything, "/m").Return(nil, errors.New("http 502"))

	err := svc.HandleSettlementTrigger(ctx, "/m")

	assert.ErrorIs(t, err, ErrExternalUnavailable)
	mockFactory.AssertNotCalled(t, "Create")
}
