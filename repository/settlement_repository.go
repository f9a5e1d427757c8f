package repository

import (
	"context"
	"errors"
	"fmt"

	"scrimbot/database"
	"scrimbot/models"
	"scrimbot/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SettlementRepository implements the service.SettlementRepository interface
type SettlementRepository struct {
	q queryable
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(db *database.DB) *SettlementRepository {
	return &SettlementRepository{q: db.Pool}
}

func newSettlementRepositoryWithTx(tx queryable) *SettlementRepository {
	return &SettlementRepository{q: tx}
}

// Get returns the settlement marker for a match, nil if not settled
func (r *SettlementRepository) Get(ctx context.Context, matchID string) (*models.Settlement, error) {
	query := `SELECT match_id, outcome, winner, settlement_id, settled_at FROM settlements WHERE match_id = $1`

	var settlement models.Settlement
	err := r.q.QueryRow(ctx, query, matchID).Scan(
		&settlement.MatchID,
		&settlement.Outcome,
		&settlement.Winner,
		&settlement.SettlementID,
		&settlement.SettledAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement for match %s: %w", matchID, err)
	}

	return &settlement, nil
}

// Create inserts the settlement marker. The primary key on match_id makes
// this the exactly-once gate: the second of two racing settlements gets
// ErrPersistenceConflict and rolls back.
func (r *SettlementRepository) Create(ctx context.Context, settlement *models.Settlement) error {
	query := `
		INSERT INTO settlements (match_id, outcome, winner, settlement_id)
		VALUES ($1, $2, $3, $4)
		RETURNING settled_at
	`

	err := r.q.QueryRow(ctx, query,
		settlement.MatchID,
		settlement.Outcome,
		settlement.Winner,
		settlement.SettlementID,
	).Scan(&settlement.SettledAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("match %s already settled: %w", settlement.MatchID, service.ErrPersistenceConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create settlement for match %s: %w", settlement.MatchID, err)
	}

	return nil
}
