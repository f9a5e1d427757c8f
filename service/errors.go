package service

import "errors"

// Error taxonomy surfaced by the core services. Command handlers map the
// first four to actionable user messages; the external/conflict errors are
// retried internally and only reach the user after the retry budget runs out.
var (
	// ErrInvalidSchedule is returned when a meeting start is not strictly in
	// the future or the participant list is empty
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNotFound is returned when the referenced entity does not exist or is
	// already in a terminal state
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the caller lacks the admin
	// capability required by the operation
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInsufficientFunds is returned when a stake exceeds the current balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidStake is returned when a stake is not a positive amount
	ErrInvalidStake = errors.New("invalid stake")

	// ErrMatchAlreadyStarted is returned when the match is no longer open for bets
	ErrMatchAlreadyStarted = errors.New("match already started")

	// ErrExternalUnavailable wraps platform/feed timeouts and failures; callers
	// retry with backoff rather than treating it as permanent
	ErrExternalUnavailable = errors.New("external dependency unavailable")

	// ErrPersistenceConflict marks a concurrent-update race lost by this
	// transaction; safe to retry transparently
	ErrPersistenceConflict = errors.New("persistence conflict")
)
