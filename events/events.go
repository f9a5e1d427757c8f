package events

import (
	"context"
	"sync"

	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeMatchResult  EventType = "match_result"
	EventTypeMatchVoided  EventType = "match_voided"
	EventTypeMatchStarted EventType = "match_started"
	EventTypeBetsSettled  EventType = "bets_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// MatchResultEvent is emitted when the match-data feed reports a final result
type MatchResultEvent struct {
	MatchID string
	Winner  string
}

func (e MatchResultEvent) Type() EventType {
	return EventTypeMatchResult
}

// MatchVoidedEvent is emitted when the feed reports a match was cancelled
// upstream; all open bets on it are refunded
type MatchVoidedEvent struct {
	MatchID string
}

func (e MatchVoidedEvent) Type() EventType {
	return EventTypeMatchVoided
}

// MatchStartedEvent is emitted once when a match with open bets goes live
type MatchStartedEvent struct {
	Match models.Match
	Bets  []*models.Bet
}

func (e MatchStartedEvent) Type() EventType {
	return EventTypeMatchStarted
}

// BetsSettledEvent is emitted after a settlement batch commits, so the bot
// can announce winners and losers
type BetsSettledEvent struct {
	Result models.SettlementResult
}

func (e BetsSettledEvent) Type() EventType {
	return EventTypeBetsSettled
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the emitter
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events published during a unit of work and flushes
// them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) {
	// Events outlive the transaction context
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
