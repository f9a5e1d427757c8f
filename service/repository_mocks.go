package service

import (
	"context"
	"time"

	"scrimbot/events"
	"scrimbot/models"

	"github.com/stretchr/testify/mock"
)

// MockMeetingRepository is a mock implementation of MeetingRepository
type MockMeetingRepository struct {
	mock.Mock
}

func (m *MockMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}

func (m *MockMeetingRepository) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Meeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) SetStatus(ctx context.Context, id int64, status models.MeetingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMeetingRepository) ListUpcoming(ctx context.Context, guildID int64) ([]*models.Meeting, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Meeting), args.Error(1)
}

// MockTriggerRepository is a mock implementation of TriggerRepository
type MockTriggerRepository struct {
	mock.Mock
}

func (m *MockTriggerRepository) Create(ctx context.Context, trigger *models.Trigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

func (m *MockTriggerRepository) EnsureScheduled(ctx context.Context, ownerRef string, kind models.TriggerKind, fireAt time.Time) (bool, error) {
	args := m.Called(ctx, ownerRef, kind, fireAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockTriggerRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*models.Trigger, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trigger), args.Error(1)
}

func (m *MockTriggerRepository) Claim(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTriggerRepository) Reschedule(ctx context.Context, id int64, fireAt time.Time, attempts int) error {
	args := m.Called(ctx, id, fireAt, attempts)
	return args.Error(0)
}

func (m *MockTriggerRepository) MarkFailed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTriggerRepository) Cancel(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTriggerRepository) CancelForOwner(ctx context.Context, ownerRef string) (int64, error) {
	args := m.Called(ctx, ownerRef)
	return args.Get(0).(int64), args.Error(1)
}

// MockWarningRepository is a mock implementation of WarningRepository
type MockWarningRepository struct {
	mock.Mock
}

func (m *MockWarningRepository) Get(ctx context.Context, guildID, userID int64) (int, error) {
	args := m.Called(ctx, guildID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockWarningRepository) Increment(ctx context.Context, guildID, userID int64) (int, error) {
	args := m.Called(ctx, guildID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockWarningRepository) List(ctx context.Context, guildID int64) ([]*models.Warning, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Warning), args.Error(1)
}

func (m *MockWarningRepository) Reset(ctx context.Context, guildID, userID int64) error {
	args := m.Called(ctx, guildID, userID)
	return args.Error(0)
}

func (m *MockWarningRepository) ResetAll(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetForUpdate(ctx context.Context, guildID, userID int64) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Create(ctx context.Context, guildID, userID, amount int64) (*models.Balance, error) {
	args := m.Called(ctx, guildID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Balance), args.Error(1)
}

func (m *MockBalanceRepository) Add(ctx context.Context, guildID, userID, amount int64) error {
	args := m.Called(ctx, guildID, userID, amount)
	return args.Error(0)
}

func (m *MockBalanceRepository) Deduct(ctx context.Context, guildID, userID, amount int64) error {
	args := m.Called(ctx, guildID, userID, amount)
	return args.Error(0)
}

func (m *MockBalanceRepository) ApplyDailyGrant(ctx context.Context, guildID, userID, amount int64, day time.Time) error {
	args := m.Called(ctx, guildID, userID, amount, day)
	return args.Error(0)
}

func (m *MockBalanceRepository) Top(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, guildID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *MockBalanceRepository) Rank(ctx context.Context, guildID, userID int64) (int, error) {
	args := m.Called(ctx, guildID, userID)
	return args.Int(0), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetOpenByMatchForUpdate(ctx context.Context, matchID string) ([]*models.Bet, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListOpen(ctx context.Context) ([]*models.Bet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListOpenByUser(ctx context.Context, guildID, userID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, guildID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) SetStatus(ctx context.Context, id int64, status models.BetStatus, settledAt time.Time) error {
	args := m.Called(ctx, id, status, settledAt)
	return args.Error(0)
}

func (m *MockBetRepository) MarkStartNotified(ctx context.Context, matchID string) error {
	args := m.Called(ctx, matchID)
	return args.Error(0)
}

// MockSettlementRepository is a mock implementation of SettlementRepository
type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Get(ctx context.Context, matchID string) (*models.Settlement, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) Create(ctx context.Context, settlement *models.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return the mocks configured via SetRepositories; the event bus is a real
// transactional bus over an unused underlying bus.
type MockUnitOfWork struct {
	mock.Mock

	meetingRepo    MeetingRepository
	triggerRepo    TriggerRepository
	warningRepo    WarningRepository
	balanceRepo    BalanceRepository
	betRepo        BetRepository
	settlementRepo SettlementRepository
	eventBus       *events.TransactionalBus
}

// SetRepositories configures which repository mocks the unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	meetingRepo MeetingRepository,
	triggerRepo TriggerRepository,
	warningRepo WarningRepository,
	balanceRepo BalanceRepository,
	betRepo BetRepository,
	settlementRepo SettlementRepository,
) {
	m.meetingRepo = meetingRepo
	m.triggerRepo = triggerRepo
	m.warningRepo = warningRepo
	m.balanceRepo = balanceRepo
	m.betRepo = betRepo
	m.settlementRepo = settlementRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MeetingRepository() MeetingRepository {
	return m.meetingRepo
}

func (m *MockUnitOfWork) TriggerRepository() TriggerRepository {
	return m.triggerRepo
}

func (m *MockUnitOfWork) WarningRepository() WarningRepository {
	return m.warningRepo
}

func (m *MockUnitOfWork) BalanceRepository() BalanceRepository {
	return m.balanceRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) SettlementRepository() SettlementRepository {
	return m.settlementRepo
}

func (m *MockUnitOfWork) EventBus() *events.TransactionalBus {
	if m.eventBus == nil {
		m.eventBus = events.NewTransactionalBus(events.NewBus())
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockPlatform is a mock implementation of the chat platform boundary
type MockPlatform struct {
	mock.Mock
}

func (m *MockPlatform) SendMention(ctx context.Context, channelID int64, userIDs []int64, text string) error {
	args := m.Called(ctx, channelID, userIDs, text)
	return args.Error(0)
}

func (m *MockPlatform) VoicePresence(ctx context.Context, guildID, voiceChannelID int64) (map[int64]bool, error) {
	args := m.Called(ctx, guildID, voiceChannelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]bool), args.Error(1)
}

// MockMatchFeed is a mock implementation of the match-data feed boundary
type MockMatchFeed struct {
	mock.Mock
}

func (m *MockMatchFeed) Match(ctx context.Context, matchID string) (*models.Match, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchFeed) Upcoming(ctx context.Context) ([]models.Match, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Match), args.Error(1)
}
