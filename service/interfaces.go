package service

import (
	"context"
	"time"

	"scrimbot/events"
	"scrimbot/models"
)

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// Create inserts a new meeting and sets its ID
	Create(ctx context.Context, meeting *models.Meeting) error

	// GetByID retrieves a meeting by its ID, nil if absent
	GetByID(ctx context.Context, id int64) (*models.Meeting, error)

	// GetByIDForUpdate retrieves a meeting and row-locks it for the current
	// transaction; the lock is the serialization point for status transitions
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Meeting, error)

	// SetStatus updates a meeting's status
	SetStatus(ctx context.Context, id int64, status models.MeetingStatus) error

	// ListUpcoming returns a guild's not-yet-concluded meetings ordered by start
	ListUpcoming(ctx context.Context, guildID int64) ([]*models.Meeting, error)
}

// TriggerRepository defines the interface for durable trigger data access
type TriggerRepository interface {
	// Create inserts a new pending trigger and sets its ID
	Create(ctx context.Context, trigger *models.Trigger) error

	// EnsureScheduled inserts a pending trigger unless a live trigger of the
	// same kind already exists for the owner. Returns true if a row was inserted.
	EnsureScheduled(ctx context.Context, ownerRef string, kind models.TriggerKind, fireAt time.Time) (bool, error)

	// GetDue returns pending triggers with fire_at <= now, oldest first
	GetDue(ctx context.Context, now time.Time, limit int) ([]*models.Trigger, error)

	// Claim transitions a trigger from pending to fired. Returns false if the
	// trigger was no longer pending (already claimed or cancelled).
	Claim(ctx context.Context, id int64) (bool, error)

	// Reschedule moves a fired trigger back to pending with a new fire time,
	// recording the attempt count
	Reschedule(ctx context.Context, id int64, fireAt time.Time, attempts int) error

	// MarkFailed marks a trigger permanently failed after exhausting retries
	MarkFailed(ctx context.Context, id int64) error

	// Cancel cancels a single pending trigger
	Cancel(ctx context.Context, id int64) error

	// CancelForOwner cancels all pending triggers for an owner, returning how
	// many rows were cancelled
	CancelForOwner(ctx context.Context, ownerRef string) (int64, error)
}

// WarningRepository defines the interface for attendance warning counters
type WarningRepository interface {
	// Get returns the warning count for a user, zero if no row exists
	Get(ctx context.Context, guildID, userID int64) (int, error)

	// Increment adds one to a user's warning count and returns the new count
	Increment(ctx context.Context, guildID, userID int64) (int, error)

	// List returns all non-zero warning counters for a guild, highest first
	List(ctx context.Context, guildID int64) ([]*models.Warning, error)

	// Reset sets a user's warning count to zero
	Reset(ctx context.Context, guildID, userID int64) error

	// ResetAll sets every warning count in a guild to zero
	ResetAll(ctx context.Context, guildID int64) error
}

// BalanceRepository defines the interface for fake-currency balances
type BalanceRepository interface {
	// GetForUpdate retrieves a balance row-locked for the current transaction,
	// nil if absent. The row lock serializes bet placement and daily grants
	// for the same user.
	GetForUpdate(ctx context.Context, guildID, userID int64) (*models.Balance, error)

	// Create inserts a new balance row with the starting amount
	Create(ctx context.Context, guildID, userID, amount int64) (*models.Balance, error)

	// Add credits an amount to a balance
	Add(ctx context.Context, guildID, userID, amount int64) error

	// Deduct debits an amount, failing if the balance would go negative
	Deduct(ctx context.Context, guildID, userID, amount int64) error

	// ApplyDailyGrant credits the grant amount and stamps the grant day
	ApplyDailyGrant(ctx context.Context, guildID, userID, amount int64, day time.Time) error

	// Top returns the highest balances in a guild
	Top(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error)

	// Rank returns a user's 1-indexed rank by balance within a guild
	Rank(ctx context.Context, guildID, userID int64) (int, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a new bet and sets its ID
	Create(ctx context.Context, bet *models.Bet) error

	// GetOpenByMatchForUpdate returns all open bets for a match, row-locked
	// for the settlement transaction
	GetOpenByMatchForUpdate(ctx context.Context, matchID string) ([]*models.Bet, error)

	// ListOpen returns all open bets across guilds
	ListOpen(ctx context.Context) ([]*models.Bet, error)

	// ListOpenByUser returns a user's open bets in a guild
	ListOpenByUser(ctx context.Context, guildID, userID int64) ([]*models.Bet, error)

	// SetStatus transitions a bet to a settled status with a settlement time
	SetStatus(ctx context.Context, id int64, status models.BetStatus, settledAt time.Time) error

	// MarkStartNotified flags all open bets for a match as start-notified
	MarkStartNotified(ctx context.Context, matchID string) error
}

// SettlementRepository defines the interface for per-match settlement markers
type SettlementRepository interface {
	// Get returns the settlement marker for a match, nil if not settled
	Get(ctx context.Context, matchID string) (*models.Settlement, error)

	// Create inserts the settlement marker. Returns ErrPersistenceConflict if
	// another transaction settled the match first.
	Create(ctx context.Context, settlement *models.Settlement) error
}

// UnitOfWork provides transactional access to all repositories
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	MeetingRepository() MeetingRepository
	TriggerRepository() TriggerRepository
	WarningRepository() WarningRepository
	BalanceRepository() BalanceRepository
	BetRepository() BetRepository
	SettlementRepository() SettlementRepository

	// EventBus stashes events until the transaction commits
	EventBus() *events.TransactionalBus
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Platform is the chat-platform collaborator boundary. Implementations must
// honor context deadlines; the core never waits on the platform unboundedly.
type Platform interface {
	// SendMention delivers a message mentioning the given users in a channel
	SendMention(ctx context.Context, channelID int64, userIDs []int64, text string) error

	// VoicePresence returns the set of users currently connected to a voice channel
	VoicePresence(ctx context.Context, guildID, voiceChannelID int64) (map[int64]bool, error)
}

// MatchFeed is the external match-data feed boundary
type MatchFeed interface {
	// Match returns the feed's current view of a match; status is
	// models.MatchStatusUnknown when the feed no longer lists it
	Match(ctx context.Context, matchID string) (*models.Match, error)

	// Upcoming lists matches currently open for bets
	Upcoming(ctx context.Context) ([]models.Match, error)
}

// MeetingService defines meeting scheduling operations
type MeetingService interface {
	// ScheduleMeeting creates a meeting with its reminder and attendance-check
	// triggers. Fails with ErrInvalidSchedule for non-future starts or empty
	// participant lists.
	ScheduleMeeting(ctx context.Context, params ScheduleMeetingParams) (*models.Meeting, error)

	// CancelMeeting cancels a meeting and its pending triggers. Fails with
	// ErrNotFound if absent or already concluded.
	CancelMeeting(ctx context.Context, meetingID int64) error

	// ListUpcoming returns a guild's upcoming meetings
	ListUpcoming(ctx context.Context, guildID int64) ([]*models.Meeting, error)

	// HandleReminder delivers the pre-meeting reminder; invoked by the dispatcher
	HandleReminder(ctx context.Context, meetingID int64) error
}

// ScheduleMeetingParams carries the inputs of a schedule command
type ScheduleMeetingParams struct {
	GuildID        int64
	VoiceChannelID int64
	TextChannelID  int64
	CreatorID      int64
	ParticipantIDs []int64
	ScheduledStart time.Time
}

// AttendanceService verifies attendance when a meeting's check trigger fires
type AttendanceService interface {
	// HandleAttendanceCheck snapshots voice presence and issues warnings to
	// absent participants. Idempotent: a no-op when the meeting is already
	// checked or cancelled.
	HandleAttendanceCheck(ctx context.Context, meetingID int64) error
}

// WarningService defines warning ledger operations
type WarningService interface {
	GetWarnings(ctx context.Context, guildID, userID int64) (int, error)

	// ListWarnings returns warned users ordered by count descending
	ListWarnings(ctx context.Context, guildID int64) ([]*models.Warning, error)

	// ResetWarnings zeroes a user's count; callerIsAdmin is resolved by the
	// platform layer. Fails with ErrPermissionDenied otherwise.
	ResetWarnings(ctx context.Context, guildID, userID int64, callerIsAdmin bool) error

	// ResetAllWarnings zeroes every count in the guild, admin only
	ResetAllWarnings(ctx context.Context, guildID int64, callerIsAdmin bool) error
}

// WagerService defines balance and bet placement operations
type WagerService interface {
	// GetBalance returns the user's balance, creating the account with the
	// starting grant on first access and applying the lazy daily grant
	GetBalance(ctx context.Context, guildID, userID int64) (*models.Balance, error)

	// Leaderboard returns the guild's top balances plus the caller's rank
	Leaderboard(ctx context.Context, guildID, userID int64, limit int) ([]*models.LeaderboardEntry, *models.LeaderboardEntry, error)

	// PlaceBet validates and stores a bet, debiting the stake atomically
	PlaceBet(ctx context.Context, params PlaceBetParams) (*models.Bet, error)
}

// PlaceBetParams carries the inputs of a bet command
type PlaceBetParams struct {
	GuildID         int64
	UserID          int64
	ChannelID       int64
	MatchID         string
	PredictedWinner string
	Stake           int64
}

// SettlementService resolves all open bets on a finished or voided match
type SettlementService interface {
	// SettleMatch resolves every open bet for the match in one atomic batch:
	// predicted winners are credited double their stake, the rest lose.
	// Exactly-once per match: redelivery is a no-op with a nil result.
	SettleMatch(ctx context.Context, matchID, winner string) (*models.SettlementResult, error)

	// VoidMatch refunds every open bet for the match in one atomic batch
	VoidMatch(ctx context.Context, matchID string) (*models.SettlementResult, error)

	// HandleSettlementTrigger consults the feed for the match's status and
	// settles or voids when final; invoked by the dispatcher as the durable
	// fallback for missed feed events
	HandleSettlementTrigger(ctx context.Context, matchID string) error
}
