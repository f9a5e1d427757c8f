package repository

import (
	"context"
	"fmt"

	"scrimbot/database"
	"scrimbot/models"

	"github.com/jackc/pgx/v5"
)

// WarningRepository implements the service.WarningRepository interface
type WarningRepository struct {
	q queryable
}

// NewWarningRepository creates a new warning repository
func NewWarningRepository(db *database.DB) *WarningRepository {
	return &WarningRepository{q: db.Pool}
}

func newWarningRepositoryWithTx(tx queryable) *WarningRepository {
	return &WarningRepository{q: tx}
}

// Get returns the warning count for a user, zero if no row exists
func (r *WarningRepository) Get(ctx context.Context, guildID, userID int64) (int, error) {
	query := `SELECT count FROM warnings WHERE guild_id = $1 AND user_id = $2`

	var count int
	err := r.q.QueryRow(ctx, query, guildID, userID).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get warnings for user %d in guild %d: %w", userID, guildID, err)
	}

	return count, nil
}

// Increment adds one to a user's warning count and returns the new count
func (r *WarningRepository) Increment(ctx context.Context, guildID, userID int64) (int, error) {
	query := `
		INSERT INTO warnings (guild_id, user_id, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET count = warnings.count + 1, updated_at = NOW()
		RETURNING count
	`

	var count int
	if err := r.q.QueryRow(ctx, query, guildID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment warnings for user %d in guild %d: %w", userID, guildID, err)
	}

	return count, nil
}

// List returns all non-zero warning counters for a guild, highest first
func (r *WarningRepository) List(ctx context.Context, guildID int64) ([]*models.Warning, error) {
	query := `
		SELECT guild_id, user_id, count, updated_at
		FROM warnings
		WHERE guild_id = $1 AND count > 0
		ORDER BY count DESC, user_id ASC
	`

	rows, err := r.q.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var warnings []*models.Warning
	for rows.Next() {
		var w models.Warning
		if err := rows.Scan(&w.GuildID, &w.UserID, &w.Count, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warning row: %w", err)
		}
		warnings = append(warnings, &w)
	}

	return warnings, rows.Err()
}

// Reset sets a user's warning count to zero
func (r *WarningRepository) Reset(ctx context.Context, guildID, userID int64) error {
	query := `UPDATE warnings SET count = 0, updated_at = NOW() WHERE guild_id = $1 AND user_id = $2`

	if _, err := r.q.Exec(ctx, query, guildID, userID); err != nil {
		return fmt.Errorf("failed to reset warnings for user %d in guild %d: %w", userID, guildID, err)
	}

	return nil
}

// ResetAll sets every warning count in a guild to zero
func (r *WarningRepository) ResetAll(ctx context.Context, guildID int64) error {
	query := `UPDATE warnings SET count = 0, updated_at = NOW() WHERE guild_id = $1 AND count > 0`

	if _, err := r.q.Exec(ctx, query, guildID); err != nil {
		return fmt.Errorf("failed to reset warnings for guild %d: %w", guildID, err)
	}

	return nil
}
