package dispatch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"scrimbot/models"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// ErrRetryLater tells the dispatcher to reschedule the trigger at the base
// retry interval without consuming a retry attempt. Settlement triggers
// return it while the match has no final result yet.
var ErrRetryLater = errors.New("retry later")

// HandlerFunc processes a fired trigger. Handlers are invoked at least once
// per trigger and must be idempotent.
type HandlerFunc func(ctx context.Context, trigger *models.Trigger) error

// TriggerStore is the durable trigger storage the dispatcher runs against
type TriggerStore interface {
	Create(ctx context.Context, trigger *models.Trigger) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]*models.Trigger, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Reschedule(ctx context.Context, id int64, fireAt time.Time, attempts int) error
	MarkFailed(ctx context.Context, id int64) error
	Cancel(ctx context.Context, id int64) error
}

// Config holds dispatcher tuning
type Config struct {
	PollInterval time.Duration
	Workers      int
	MaxAttempts  int
	RetryBase    time.Duration
}

// Dispatcher polls the trigger table and delivers due triggers to registered
// handlers. Pending rows survive restarts; the first sweep after startup
// drains everything that came due during downtime, oldest first. Triggers
// sharded to the same worker by owner fire in schedule order.
type Dispatcher struct {
	store    TriggerStore
	cfg      Config
	handlers map[models.TriggerKind]HandlerFunc
	queues   []chan *models.Trigger
	wg       sync.WaitGroup
}

// sweepBatchSize bounds how many due triggers one sweep picks up
const sweepBatchSize = 100

// New creates a dispatcher; register handlers before calling Start
func New(store TriggerStore, cfg Config) *Dispatcher {
	queues := make([]chan *models.Trigger, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan *models.Trigger, sweepBatchSize)
	}
	return &Dispatcher{
		store:    store,
		cfg:      cfg,
		handlers: make(map[models.TriggerKind]HandlerFunc),
		queues:   queues,
	}
}

// Register binds a handler to a trigger kind
func (d *Dispatcher) Register(kind models.TriggerKind, handler HandlerFunc) {
	d.handlers[kind] = handler
}

// Schedule creates a new pending trigger
func (d *Dispatcher) Schedule(ctx context.Context, ownerRef string, kind models.TriggerKind, fireAt time.Time) (int64, error) {
	trigger := &models.Trigger{
		OwnerRef: ownerRef,
		Kind:     kind,
		FireAt:   fireAt,
		Status:   models.TriggerStatusPending,
	}
	if err := d.store.Create(ctx, trigger); err != nil {
		return 0, err
	}
	return trigger.ID, nil
}

// Cancel cancels a pending trigger
func (d *Dispatcher) Cancel(ctx context.Context, triggerID int64) error {
	return d.store.Cancel(ctx, triggerID)
}

// Start launches the worker pool and poll loop. The first sweep runs
// immediately, which is also the crash-recovery pass. Returns a stop
// function that waits for in-flight work.
func (d *Dispatcher) Start(ctx context.Context) func() {
	runCtx, cancel := context.WithCancel(ctx)

	for i := range d.queues {
		d.wg.Add(1)
		go d.worker(runCtx, d.queues[i])
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		log.WithField("pollInterval", d.cfg.PollInterval).Info("Trigger dispatcher started")
		d.sweep(runCtx)

		ticker := time.NewTicker(d.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				d.sweep(runCtx)
			}
		}
	}()

	return func() {
		cancel()
		d.wg.Wait()
		log.Info("Trigger dispatcher stopped")
	}
}

// sweep fetches due triggers and fans them out to workers by owner
func (d *Dispatcher) sweep(ctx context.Context) {
	triggers, err := d.store.GetDue(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("Error fetching due triggers: %v", err)
		}
		return
	}

	for _, trigger := range triggers {
		queue := d.queues[shard(trigger.OwnerRef, len(d.queues))]
		select {
		case <-ctx.Done():
			return
		case queue <- trigger:
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context, queue <-chan *models.Trigger) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-queue:
			d.process(ctx, trigger)
		}
	}
}

// process claims and delivers one trigger. The durable pending->fired claim
// happens before the callback runs, so delivery is at-least-once and the
// loser of a cancel-vs-fire race sees no side effects at all.
func (d *Dispatcher) process(ctx context.Context, trigger *models.Trigger) {
	claimed, err := d.store.Claim(ctx, trigger.ID)
	if err != nil {
		log.Errorf("Error claiming trigger %d: %v", trigger.ID, err)
		return
	}
	if !claimed {
		// Cancelled, or a concurrent sweep already delivered it
		return
	}

	handler, ok := d.handlers[trigger.Kind]
	if !ok {
		log.WithFields(log.Fields{
			"trigger": trigger.ID,
			"kind":    trigger.Kind,
		}).Error("No handler registered for trigger kind")
		if err := d.store.MarkFailed(ctx, trigger.ID); err != nil {
			log.Errorf("Error marking trigger %d failed: %v", trigger.ID, err)
		}
		return
	}

	if err := handler(ctx, trigger); err != nil {
		d.handleCallbackError(ctx, trigger, err)
	}
}

func (d *Dispatcher) handleCallbackError(ctx context.Context, trigger *models.Trigger, callbackErr error) {
	if errors.Is(callbackErr, ErrRetryLater) {
		// Waiting on an external condition, not a failure
		fireAt := time.Now().UTC().Add(d.cfg.RetryBase)
		if err := d.store.Reschedule(ctx, trigger.ID, fireAt, trigger.Attempts); err != nil {
			log.Errorf("Error rescheduling trigger %d: %v", trigger.ID, err)
		}
		return
	}

	attempts := trigger.Attempts + 1
	fields := log.Fields{
		"trigger":  trigger.ID,
		"owner":    trigger.OwnerRef,
		"kind":     trigger.Kind,
		"attempts": attempts,
	}

	if attempts >= d.cfg.MaxAttempts {
		log.WithFields(fields).Errorf("Trigger callback failed permanently, marking failed for manual intervention: %v", callbackErr)
		if err := d.store.MarkFailed(ctx, trigger.ID); err != nil {
			log.Errorf("Error marking trigger %d failed: %v", trigger.ID, err)
		}
		return
	}

	delay := d.retryDelay(attempts)
	log.WithFields(fields).Warnf("Trigger callback failed, retrying in %v: %v", delay, callbackErr)
	if err := d.store.Reschedule(ctx, trigger.ID, time.Now().UTC().Add(delay), attempts); err != nil {
		log.Errorf("Error rescheduling trigger %d: %v", trigger.ID, err)
	}
}

// retryDelay computes the bounded exponential backoff for the given attempt
func (d *Dispatcher) retryDelay(attempts int) time.Duration {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.RetryBase
	policy.MaxInterval = 16 * d.cfg.RetryBase
	policy.MaxElapsedTime = 0

	delay := policy.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}

func shard(ownerRef string, n int) int {
	h := fnv.New32a()
	fmt.Fprint(h, ownerRef)
	return int(h.Sum32()) % n
}
