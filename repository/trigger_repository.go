package repository

import (
	"context"
	"fmt"
	"time"

	"scrimbot/database"
	"scrimbot/models"
)

// TriggerRepository implements the service.TriggerRepository interface
type TriggerRepository struct {
	q queryable
}

// NewTriggerRepository creates a trigger repository backed by the pool; the
// dispatcher uses it outside any unit of work.
func NewTriggerRepository(db *database.DB) *TriggerRepository {
	return &TriggerRepository{q: db.Pool}
}

func newTriggerRepositoryWithTx(tx queryable) *TriggerRepository {
	return &TriggerRepository{q: tx}
}

// Create inserts a new pending trigger and sets its ID
func (r *TriggerRepository) Create(ctx context.Context, trigger *models.Trigger) error {
	query := `
		INSERT INTO triggers (owner_ref, kind, fire_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, attempts, created_at, updated_at
	`

	if trigger.Status == "" {
		trigger.Status = models.TriggerStatusPending
	}

	err := r.q.QueryRow(ctx, query,
		trigger.OwnerRef,
		trigger.Kind,
		trigger.FireAt,
		trigger.Status,
	).Scan(&trigger.ID, &trigger.Attempts, &trigger.CreatedAt, &trigger.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create %s trigger for %s: %w", trigger.Kind, trigger.OwnerRef, err)
	}

	return nil
}

// EnsureScheduled inserts a pending trigger unless a live one of the same
// kind already exists for the owner
func (r *TriggerRepository) EnsureScheduled(ctx context.Context, ownerRef string, kind models.TriggerKind, fireAt time.Time) (bool, error) {
	query := `
		INSERT INTO triggers (owner_ref, kind, fire_at, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (owner_ref, kind) WHERE status IN ('pending', 'fired') DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, ownerRef, kind, fireAt)
	if err != nil {
		return false, fmt.Errorf("failed to ensure %s trigger for %s: %w", kind, ownerRef, err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetDue returns pending triggers with fire_at <= now, oldest first. Overdue
// triggers from before a restart surface here in ascending fire_at order.
func (r *TriggerRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*models.Trigger, error) {
	query := `
		SELECT id, owner_ref, kind, fire_at, status, attempts, created_at, updated_at
		FROM triggers
		WHERE status = 'pending' AND fire_at <= $1
		ORDER BY fire_at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due triggers: %w", err)
	}
	defer rows.Close()

	var triggers []*models.Trigger
	for rows.Next() {
		var t models.Trigger
		err := rows.Scan(&t.ID, &t.OwnerRef, &t.Kind, &t.FireAt, &t.Status, &t.Attempts, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger row: %w", err)
		}
		triggers = append(triggers, &t)
	}

	return triggers, rows.Err()
}

// Claim transitions a trigger from pending to fired. The conditional update
// is the serialization point between concurrent dispatchers and cancels:
// exactly one caller observes true.
func (r *TriggerRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE triggers SET status = 'fired', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim trigger %d: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Reschedule moves a fired trigger back to pending for a retry
func (r *TriggerRepository) Reschedule(ctx context.Context, id int64, fireAt time.Time, attempts int) error {
	query := `
		UPDATE triggers
		SET status = 'pending', fire_at = $2, attempts = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'fired'
	`

	tag, err := r.q.Exec(ctx, query, id, fireAt, attempts)
	if err != nil {
		return fmt.Errorf("failed to reschedule trigger %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trigger %d not in fired state", id)
	}

	return nil
}

// MarkFailed marks a trigger permanently failed after exhausting retries
func (r *TriggerRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `UPDATE triggers SET status = 'failed', updated_at = NOW() WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark trigger %d failed: %w", id, err)
	}

	return nil
}

// Cancel cancels a single pending trigger
func (r *TriggerRepository) Cancel(ctx context.Context, id int64) error {
	query := `UPDATE triggers SET status = 'cancelled', updated_at = NOW() WHERE id = $1 AND status = 'pending'`

	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to cancel trigger %d: %w", id, err)
	}

	return nil
}

// CancelForOwner cancels all pending triggers for an owner
func (r *TriggerRepository) CancelForOwner(ctx context.Context, ownerRef string) (int64, error) {
	query := `UPDATE triggers SET status = 'cancelled', updated_at = NOW() WHERE owner_ref = $1 AND status = 'pending'`

	tag, err := r.q.Exec(ctx, query, ownerRef)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel triggers for %s: %w", ownerRef, err)
	}

	return tag.RowsAffected(), nil
}
