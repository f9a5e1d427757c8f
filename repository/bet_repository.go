package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbot/database"
	"scrimbot/models"
)

// BetRepository implements the service.BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, guild_id, user_id, channel_id, match_id, predicted_winner,
	stake, status, start_notified, created_at, settled_at`

// Create inserts a new bet and sets its ID
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (guild_id, user_id, channel_id, match_id, predicted_winner, stake, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, start_notified, created_at
	`

	if bet.Status == "" {
		bet.Status = models.BetStatusOpen
	}

	err := r.q.QueryRow(ctx, query,
		bet.GuildID,
		bet.UserID,
		bet.ChannelID,
		bet.MatchID,
		bet.PredictedWinner,
		bet.Stake,
		bet.Status,
	).Scan(&bet.ID, &bet.StartNotified, &bet.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bet for user %d on match %s: %w", bet.UserID, bet.MatchID, err)
	}

	return nil
}

// GetOpenByMatchForUpdate returns all open bets for a match, row-locked so
// the settlement batch is the only writer
func (r *BetRepository) GetOpenByMatchForUpdate(ctx context.Context, matchID string) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE match_id = $1 AND status = 'open' ORDER BY id ASC FOR UPDATE`
	return r.scanList(ctx, query, matchID)
}

// ListOpen returns all open bets across guilds
func (r *BetRepository) ListOpen(ctx context.Context) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE status = 'open' ORDER BY match_id, id ASC`
	return r.scanList(ctx, query)
}

// ListOpenByUser returns a user's open bets in a guild
func (r *BetRepository) ListOpenByUser(ctx context.Context, guildID, userID int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE guild_id = $1 AND user_id = $2 AND status = 'open' ORDER BY id ASC`
	return r.scanList(ctx, query, guildID, userID)
}

func (r *BetRepository) scanList(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var bet models.Bet
		err := rows.Scan(
			&bet.ID,
			&bet.GuildID,
			&bet.UserID,
			&bet.ChannelID,
			&bet.MatchID,
			&bet.PredictedWinner,
			&bet.Stake,
			&bet.Status,
			&bet.StartNotified,
			&bet.CreatedAt,
			&bet.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet row: %w", err)
		}
		bets = append(bets, &bet)
	}

	return bets, rows.Err()
}

// SetStatus transitions an open bet to a settled status
func (r *BetRepository) SetStatus(ctx context.Context, id int64, status models.BetStatus, settledAt time.Time) error {
	query := `UPDATE bets SET status = $2, settled_at = $3 WHERE id = $1 AND status = 'open'`

	tag, err := r.q.Exec(ctx, query, id, status, settledAt)
	if err != nil {
		return fmt.Errorf("failed to set bet %d status to %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet %d is not open", id)
	}

	return nil
}

// MarkStartNotified flags all open bets for a match as start-notified
func (r *BetRepository) MarkStartNotified(ctx context.Context, matchID string) error {
	query := `UPDATE bets SET start_notified = TRUE WHERE match_id = $1 AND status = 'open' AND start_notified = FALSE`

	if _, err := r.q.Exec(ctx, query, matchID); err != nil {
		return fmt.Errorf("failed to mark bets start-notified for match %s: %w", matchID, err)
	}

	return nil
}
