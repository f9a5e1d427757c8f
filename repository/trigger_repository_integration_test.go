package repository_test

import (
	"context"
	"testing"
	"time"

	"scrimbot/models"
	"scrimbot/repository"
	"scrimbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRepository_ClaimIsExactlyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := repository.NewTriggerRepository(testDB.DB)

	trigger := &models.Trigger{
		OwnerRef: "meeting:1",
		Kind:     models.TriggerKindAttendanceCheck,
		FireAt:   time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(ctx, trigger))

	claimed, err := repo.Claim(ctx, trigger.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second claim of the same trigger must lose
	claimed, err = repo.Claim(ctx, trigger.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestTriggerRepository_CancelBeatsClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := repository.NewTriggerRepository(testDB.DB)

	trigger := &models.Trigger{
		OwnerRef: "meeting:1",
		Kind:     models.TriggerKindReminder,
		FireAt:   time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(ctx, trigger))
	require.NoError(t, repo.Cancel(ctx, trigger.ID))

	claimed, err := repo.Claim(ctx, trigger.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "a cancelled trigger must not be claimable")
}

func TestTriggerRepository_EnsureScheduled_DedupesLiveTriggers(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := repository.NewTriggerRepository(testDB.DB)
	fireAt := time.Now().UTC().Add(time.Minute)

	inserted, err := repo.EnsureScheduled(ctx, "match:/m", models.TriggerKindSettlement, fireAt)
	require.NoError(t, err)
	assert.True(t, inserted)

	// A second bet on the same match must not arm a second trigger
	inserted, err = repo.EnsureScheduled(ctx, "match:/m", models.TriggerKindSettlement, fireAt)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Once the live trigger is cancelled, a fresh one may be armed
	cancelled, err := repo.CancelForOwner(ctx, "match:/m")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)

	inserted, err = repo.EnsureScheduled(ctx, "match:/m", models.TriggerKindSettlement, fireAt)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestTriggerRepository_GetDue_OldestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	repo := repository.NewTriggerRepository(testDB.DB)
	now := time.Now().UTC()

	newer := &models.Trigger{OwnerRef: "meeting:2", Kind: models.TriggerKindReminder, FireAt: now.Add(-time.Minute)}
	older := &models.Trigger{OwnerRef: "meeting:1", Kind: models.TriggerKindReminder, FireAt: now.Add(-time.Hour)}
	future := &models.Trigger{OwnerRef: "meeting:3", Kind: models.TriggerKindReminder, FireAt: now.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, future))

	due, err := repo.GetDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, older.ID, due[0].ID)
	assert.Equal(t, newer.ID, due[1].ID)
}
