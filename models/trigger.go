package models

import (
	"fmt"
	"strings"
	"time"
)

// TriggerKind identifies what a trigger firing should do
type TriggerKind string

const (
	TriggerKindReminder        TriggerKind = "reminder"
	TriggerKindAttendanceCheck TriggerKind = "attendance_check"
	TriggerKindSettlement      TriggerKind = "settlement"
)

// TriggerStatus represents the delivery state of a trigger
type TriggerStatus string

const (
	TriggerStatusPending   TriggerStatus = "pending"
	TriggerStatusFired     TriggerStatus = "fired"
	TriggerStatusCancelled TriggerStatus = "cancelled"
	TriggerStatusFailed    TriggerStatus = "failed"
)

// Trigger is a durable, timestamped scheduled callback record. Rows survive
// restarts; the dispatcher re-arms pending triggers from storage on startup.
type Trigger struct {
	ID        int64         `db:"id"`
	OwnerRef  string        `db:"owner_ref"`
	Kind      TriggerKind   `db:"kind"`
	FireAt    time.Time     `db:"fire_at"`
	Status    TriggerStatus `db:"status"`
	Attempts  int           `db:"attempts"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// IsPending checks whether the trigger is still awaiting delivery
func (t *Trigger) IsPending() bool {
	return t.Status == TriggerStatusPending
}

// MatchOwnerRef builds the trigger owner reference for a match ID
func MatchOwnerRef(matchID string) string {
	return "match:" + matchID
}

// ParseMatchOwnerRef extracts the match ID from a trigger owner reference
func ParseMatchOwnerRef(ownerRef string) (string, error) {
	matchID, ok := strings.CutPrefix(ownerRef, "match:")
	if !ok {
		return "", fmt.Errorf("not a match owner ref: %q", ownerRef)
	}
	return matchID, nil
}
