package models

import (
	"time"

	"github.com/google/uuid"
)

// SettlementOutcome distinguishes a resolved match from a voided one
type SettlementOutcome string

const (
	SettlementOutcomeResult SettlementOutcome = "result"
	SettlementOutcomeVoided SettlementOutcome = "voided"
)

// Settlement is the per-match exactly-once marker. Its presence means every
// bet for the match has been resolved; redelivered result events check it
// first and become no-ops.
type Settlement struct {
	MatchID      string            `db:"match_id"`
	Outcome      SettlementOutcome `db:"outcome"`
	Winner       string            `db:"winner"`
	SettlementID uuid.UUID         `db:"settlement_id"`
	SettledAt    time.Time         `db:"settled_at"`
}

// SettlementResult summarizes a completed settlement batch for announcements
type SettlementResult struct {
	MatchID string
	Outcome SettlementOutcome
	Winner  string
	Won     []*Bet
	Lost    []*Bet
	Voided  []*Bet
}

// Total returns the number of bets resolved by the batch
func (r *SettlementResult) Total() int {
	return len(r.Won) + len(r.Lost) + len(r.Voided)
}
