package models

import "time"

// Warning represents the per-guild attendance warning counter for a user.
// Incremented when a participant misses a meeting's attendance check, reset
// only by an admin.
type Warning struct {
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Count     int       `db:"count"`
	UpdatedAt time.Time `db:"updated_at"`
}
