package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"scrimbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory TriggerStore with the same conditional-update
// claim semantics as the Postgres implementation
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	triggers map[int64]*models.Trigger
}

func newFakeStore() *fakeStore {
	return &fakeStore{triggers: make(map[int64]*models.Trigger)}
}

func (s *fakeStore) Create(ctx context.Context, trigger *models.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	trigger.ID = s.nextID
	if trigger.Status == "" {
		trigger.Status = models.TriggerStatusPending
	}
	copied := *trigger
	s.triggers[trigger.ID] = &copied
	return nil
}

func (s *fakeStore) GetDue(ctx context.Context, now time.Time, limit int) ([]*models.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.Trigger
	for _, t := range s.triggers {
		if t.Status == models.TriggerStatusPending && !t.FireAt.After(now) {
			copied := *t
			due = append(due, &copied)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *fakeStore) Claim(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok || t.Status != models.TriggerStatusPending {
		return false, nil
	}
	t.Status = models.TriggerStatusFired
	return true, nil
}

func (s *fakeStore) Reschedule(ctx context.Context, id int64, fireAt time.Time, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok || t.Status != models.TriggerStatusFired {
		return errors.New("trigger not in fired state")
	}
	t.Status = models.TriggerStatusPending
	t.FireAt = fireAt
	t.Attempts = attempts
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[id].Status = models.TriggerStatusFailed
	return nil
}

func (s *fakeStore) Cancel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if ok && t.Status == models.TriggerStatusPending {
		t.Status = models.TriggerStatusCancelled
	}
	return nil
}

func (s *fakeStore) get(id int64) models.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.triggers[id]
}

func testDispatchConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		Workers:      2,
		MaxAttempts:  3,
		RetryBase:    30 * time.Second,
	}
}

func TestDispatcher_DeliversOverdueTriggerOnStartup(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	d := New(store, testDispatchConfig())

	delivered := make(chan *models.Trigger, 1)
	d.Register(models.TriggerKindReminder, func(ctx context.Context, trigger *models.Trigger) error {
		delivered <- trigger
		return nil
	})

	// Fire time long in the past, as after a restart
	id, err := d.Schedule(ctx, "meeting:1", models.TriggerKindReminder, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	stop := d.Start(ctx)
	defer stop()

	select {
	case trigger := <-delivered:
		assert.Equal(t, "meeting:1", trigger.OwnerRef)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger was not delivered")
	}

	assert.Equal(t, models.TriggerStatusFired, store.get(id).Status)
}

func TestDispatcher_FutureTriggerNotDelivered(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	d := New(store, testDispatchConfig())

	delivered := make(chan struct{}, 1)
	d.Register(models.TriggerKindReminder, func(ctx context.Context, trigger *models.Trigger) error {
		delivered <- struct{}{}
		return nil
	})

	_, err := d.Schedule(ctx, "meeting:1", models.TriggerKindReminder, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	stop := d.Start(ctx)
	defer stop()

	select {
	case <-delivered:
		t.Fatal("future trigger must not fire")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatcher_CancelledTriggerNotDelivered(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	d := New(store, testDispatchConfig())

	var calls int
	d.Register(models.TriggerKindReminder, func(ctx context.Context, trigger *models.Trigger) error {
		calls++
		return nil
	})

	id, err := d.Schedule(ctx, "meeting:1", models.TriggerKindReminder, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, d.Cancel(ctx, id))

	// Deliver directly; the claim must lose against the cancel
	trigger := store.get(id)
	trigger.Status = models.TriggerStatusPending // stale sweep snapshot
	d.process(ctx, &trigger)

	assert.Equal(t, 0, calls)
	assert.Equal(t, models.TriggerStatusCancelled, store.get(id).Status)
}

func TestDispatcher_FailureReschedulesWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cfg := testDispatchConfig()
	d := New(store, cfg)

	d.Register(models.TriggerKindAttendanceCheck, func(ctx context.Context, trigger *models.Trigger) error {
		return errors.New("discord gateway down")
	})

	id, err := d.Schedule(ctx, "meeting:1", models.TriggerKindAttendanceCheck, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	trigger := store.get(id)
	before := time.Now().UTC()
	d.process(ctx, &trigger)

	after := store.get(id)
	assert.Equal(t, models.TriggerStatusPending, after.Status)
	assert.Equal(t, 1, after.Attempts)
	assert.True(t, after.FireAt.After(before), "retry must be scheduled in the future")
}

func TestDispatcher_RetryLaterDoesNotConsumeAttempt(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cfg := testDispatchConfig()
	d := New(store, cfg)

	d.Register(models.TriggerKindSettlement, func(ctx context.Context, trigger *models.Trigger) error {
		return ErrRetryLater
	})

	id, err := d.Schedule(ctx, "match:/m", models.TriggerKindSettlement, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	// Deliver it many times; a match that stays live must never exhaust retries
	for i := 0; i < 10; i++ {
		trigger := store.get(id)
		d.process(ctx, &trigger)
		after := store.get(id)
		assert.Equal(t, models.TriggerStatusPending, after.Status)
		assert.Equal(t, 0, after.Attempts)
	}
}

func TestDispatcher_ExhaustedRetriesMarkFailed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cfg := testDispatchConfig()
	d := New(store, cfg)

	d.Register(models.TriggerKindAttendanceCheck, func(ctx context.Context, trigger *models.Trigger) error {
		return errors.New("permanent failure")
	})

	id, err := d.Schedule(ctx, "meeting:1", models.TriggerKindAttendanceCheck, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	for i := 0; i < cfg.MaxAttempts; i++ {
		trigger := store.get(id)
		if trigger.Status != models.TriggerStatusPending {
			break
		}
		d.process(ctx, &trigger)
	}

	assert.Equal(t, models.TriggerStatusFailed, store.get(id).Status)
}

func TestDispatcher_UnknownKindMarkedFailed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	d := New(store, testDispatchConfig())

	id, err := d.Schedule(ctx, "meeting:1", models.TriggerKind("unknown"), time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	trigger := store.get(id)
	d.process(ctx, &trigger)

	assert.Equal(t, models.TriggerStatusFailed, store.get(id).Status)
}

func TestDispatcher_RetryDelayGrowsWithinBounds(t *testing.T) {
	cfg := testDispatchConfig()
	d := New(newFakeStore(), cfg)

	// ExponentialBackOff randomizes around the midpoint, so assert bounds
	// rather than exact values
	first := d.retryDelay(1)
	assert.GreaterOrEqual(t, first, cfg.RetryBase/2)
	assert.LessOrEqual(t, first, cfg.RetryBase*3/2)

	deep := d.retryDelay(10)
	assert.LessOrEqual(t, deep, 16*cfg.RetryBase*3/2)
}

func TestShard_StableAndInRange(t *testing.T) {
	for _, owner := range []string{"meeting:1", "meeting:2", "match:/m/42"} {
		idx := shard(owner, 4)
		assert.Equal(t, idx, shard(owner, 4))
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 4)
	}
}
