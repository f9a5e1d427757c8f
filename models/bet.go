package models

import "time"

// BetStatus represents the settlement state of a bet
type BetStatus string

const (
	BetStatusOpen   BetStatus = "open"
	BetStatusWon    BetStatus = "won"
	BetStatusLost   BetStatus = "lost"
	BetStatusVoided BetStatus = "voided"
)

// Bet represents a fake-currency wager on an external match result. The stake
// is debited from the user's balance when the bet is placed; predicted winner
// and stake are immutable afterwards.
type Bet struct {
	ID              int64      `db:"id"`
	GuildID         int64      `db:"guild_id"`
	UserID          int64      `db:"user_id"`
	ChannelID       int64      `db:"channel_id"`
	MatchID         string     `db:"match_id"`
	PredictedWinner string     `db:"predicted_winner"`
	Stake           int64      `db:"stake"`
	Status          BetStatus  `db:"status"`
	StartNotified   bool       `db:"start_notified"`
	CreatedAt       time.Time  `db:"created_at"`
	SettledAt       *time.Time `db:"settled_at"`
}

// IsOpen checks whether the bet is still awaiting settlement
func (b *Bet) IsOpen() bool {
	return b.Status == BetStatusOpen
}

// Payout returns the amount credited back on a win. The stake was already
// deducted at placement, so a win pays double the stake.
func (b *Bet) Payout() int64 {
	return 2 * b.Stake
}
