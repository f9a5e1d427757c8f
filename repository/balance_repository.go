package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbot/database"
	"scrimbot/models"
	"scrimbot/service"

	"github.com/jackc/pgx/v5"
)

// BalanceRepository implements the service.BalanceRepository interface
type BalanceRepository struct {
	q queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

func newBalanceRepositoryWithTx(tx queryable) *BalanceRepository {
	return &BalanceRepository{q: tx}
}

// GetForUpdate retrieves a balance row-locked for the current transaction.
// Bet placement and daily grants on the same user serialize on this lock.
func (r *BalanceRepository) GetForUpdate(ctx context.Context, guildID, userID int64) (*models.Balance, error) {
	query := `
		SELECT guild_id, user_id, balance, last_daily_grant, created_at, updated_at
		FROM balances
		WHERE guild_id = $1 AND user_id = $2
		FOR UPDATE
	`

	var balance models.Balance
	err := r.q.QueryRow(ctx, query, guildID, userID).Scan(
		&balance.GuildID,
		&balance.UserID,
		&balance.Balance,
		&balance.LastDailyGrant,
		&balance.CreatedAt,
		&balance.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for user %d in guild %d: %w", userID, guildID, err)
	}

	return &balance, nil
}

// Create inserts a new balance row with the starting amount
func (r *BalanceRepository) Create(ctx context.Context, guildID, userID, amount int64) (*models.Balance, error) {
	query := `
		INSERT INTO balances (guild_id, user_id, balance)
		VALUES ($1, $2, $3)
		RETURNING guild_id, user_id, balance, last_daily_grant, created_at, updated_at
	`

	var balance models.Balance
	err := r.q.QueryRow(ctx, query, guildID, userID, amount).Scan(
		&balance.GuildID,
		&balance.UserID,
		&balance.Balance,
		&balance.LastDailyGrant,
		&balance.CreatedAt,
		&balance.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create balance for user %d in guild %d: %w", userID, guildID, err)
	}

	return &balance, nil
}

// Add credits an amount to a balance
func (r *BalanceRepository) Add(ctx context.Context, guildID, userID, amount int64) error {
	query := `UPDATE balances SET balance = balance + $3, updated_at = NOW() WHERE guild_id = $1 AND user_id = $2`

	tag, err := r.q.Exec(ctx, query, guildID, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to add %d to balance of user %d in guild %d: %w", amount, userID, guildID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance for user %d in guild %d: %w", userID, guildID, service.ErrNotFound)
	}

	return nil
}

// Deduct debits an amount, failing if the balance would go negative
func (r *BalanceRepository) Deduct(ctx context.Context, guildID, userID, amount int64) error {
	query := `
		UPDATE balances
		SET balance = balance - $3, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2 AND balance >= $3
	`

	tag, err := r.q.Exec(ctx, query, guildID, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct %d from balance of user %d in guild %d: %w", amount, userID, guildID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deduct %d for user %d: %w", amount, userID, service.ErrInsufficientFunds)
	}

	return nil
}

// ApplyDailyGrant credits the grant amount and stamps the grant day
func (r *BalanceRepository) ApplyDailyGrant(ctx context.Context, guildID, userID, amount int64, day time.Time) error {
	query := `
		UPDATE balances
		SET balance = balance + $3, last_daily_grant = $4, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
	`

	tag, err := r.q.Exec(ctx, query, guildID, userID, amount, day.UTC())
	if err != nil {
		return fmt.Errorf("failed to apply daily grant for user %d in guild %d: %w", userID, guildID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance for user %d in guild %d: %w", userID, guildID, service.ErrNotFound)
	}

	return nil
}

// Top returns the highest balances in a guild
func (r *BalanceRepository) Top(ctx context.Context, guildID int64, limit int) ([]*models.LeaderboardEntry, error) {
	query := `
		SELECT user_id, balance
		FROM balances
		WHERE guild_id = $1
		ORDER BY balance DESC, user_id ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		entry := &models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.UserID, &entry.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Rank returns a user's 1-indexed rank by balance within a guild
func (r *BalanceRepository) Rank(ctx context.Context, guildID, userID int64) (int, error) {
	query := `
		SELECT COUNT(*) + 1
		FROM balances
		WHERE guild_id = $1
		  AND balance > (SELECT balance FROM balances WHERE guild_id = $1 AND user_id = $2)
	`

	var rank int
	err := r.q.QueryRow(ctx, query, guildID, userID).Scan(&rank)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("balance for user %d in guild %d: %w", userID, guildID, service.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rank for user %d in guild %d: %w", userID, guildID, err)
	}

	return rank, nil
}
