package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(sagaID string, status Status) *Context {
	now := time.Now()
	run := &Context{
		SagaID:          sagaID,
		SagaType:        "order",
		Status:          status,
		CurrentStep:     1,
		CurrentStepName: "charge",
		StartedAt:       now.Add(-time.Second),
		CorrelationID:   "corr-" + sagaID,
		UserID:          "user-1",
		Errors: []ErrorRecord{
			{StepName: "charge", Message: "支付被拒", Timestamp: now, Retryable: true},
		},
		CompensationLog: []CompensationLogEntry{
			{
				StepName:  "reserve",
				StepIndex: 0,
				Forward:   ActionRecord{ActionID: "act-1", CompletedAt: now},
				Compensation: &ActionRecord{
					ActionID:    "act-2",
					CompletedAt: now,
				},
				Status: CompensationStatusCompensated,
			},
		},
	}
	if status.IsTerminal() {
		run.CompletedAt = &now
	}
	return run
}

func TestMemoryStoreSaveGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	run := testRun("saga-1", StatusCompensated)
	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, "saga-1")
	require.NoError(t, err)
	assert.Equal(t, run.SagaID, got.SagaID)
	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.Errors, got.Errors)
	assert.Equal(t, run.CompensationLog, got.CompensationLog)
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "不存在")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	run := testRun("saga-1", StatusRunning)
	require.NoError(t, store.Save(ctx, run))

	// 保存后修改原对象，不应影响已保存的快照
	run.Status = StatusFailed
	run.CompensationLog[0].Status = CompensationStatusFailed
	run.CompensationLog[0].Compensation.ActionID = "篡改"

	got, err := store.Get(ctx, "saga-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, CompensationStatusCompensated, got.CompensationLog[0].Status)
	assert.Equal(t, "act-2", got.CompensationLog[0].Compensation.ActionID)

	// 读出的快照同样与存储隔离
	got.Status = StatusPending
	again, err := store.Get(ctx, "saga-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, again.Status)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRun("saga-1", StatusCompleted)))
	require.NoError(t, store.Delete(ctx, "saga-1"))

	_, err := store.Get(ctx, "saga-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRun("saga-1", StatusCompleted)))
	require.NoError(t, store.Save(ctx, testRun("saga-2", StatusCompleted)))
	require.NoError(t, store.Save(ctx, testRun("saga-3", StatusFailed)))

	completed, err := store.List(ctx, StatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	limited, err := store.List(ctx, StatusCompleted, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	failed, err := store.List(ctx, StatusFailed, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	none, err := store.List(ctx, StatusCompensated, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	old := testRun("saga-old", StatusCompleted)
	stale := time.Now().Add(-25 * time.Hour)
	old.CompletedAt = &stale
	require.NoError(t, store.Save(ctx, old))

	fresh := testRun("saga-fresh", StatusCompleted)
	require.NoError(t, store.Save(ctx, fresh))

	running := testRun("saga-running", StatusRunning)
	require.NoError(t, store.Save(ctx, running))

	store.doCleanup()

	_, err := store.Get(ctx, "saga-old")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.Get(ctx, "saga-fresh")
	assert.NoError(t, err)

	_, err = store.Get(ctx, "saga-running")
	assert.NoError(t, err)
}

func TestNopStore(t *testing.T) {
	store := NewNopStore()
	ctx := context.Background()

	assert.NoError(t, store.Save(ctx, testRun("saga-1", StatusCompleted)))

	_, err := store.Get(ctx, "saga-1")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.NoError(t, store.Delete(ctx, "saga-1"))

	runs, err := store.List(ctx, StatusCompleted, 0)
	assert.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCloneRunNilFields(t *testing.T) {
	run := &Context{SagaID: "saga-1", Status: StatusPending}
	got := cloneRun(run)

	assert.Equal(t, run, got)
	assert.NotSame(t, run, got)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.Errors)
	assert.Nil(t, got.CompensationLog)
}
