package models

import "time"

// Balance represents a user's fake-currency balance within a guild
type Balance struct {
	GuildID        int64      `db:"guild_id"`
	UserID         int64      `db:"user_id"`
	Balance        int64      `db:"balance"`
	LastDailyGrant *time.Time `db:"last_daily_grant"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// DailyGrantEligible checks whether the lazy daily grant applies: balance
// below the threshold and no grant received on the given day yet.
func (b *Balance) DailyGrantEligible(threshold int64, today time.Time) bool {
	if b.Balance >= threshold {
		return false
	}
	if b.LastDailyGrant == nil {
		return true
	}
	return !sameDay(*b.LastDailyGrant, today)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// LeaderboardEntry is a single row of the guild balance leaderboard
type LeaderboardEntry struct {
	UserID  int64
	Balance int64
	Rank    int
}
