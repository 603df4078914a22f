package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgflow/dispatch/internal/domain"
)

func TestContainerStore_Lifecycle(t *testing.T) {
	store := NewContainerStore(newTestDB(t))
	ctx := context.Background()

	id, err := store.Create(ctx, &domain.TrackedContainer{
		ContainerID: "abc123",
		WorkflowID:  "wf-1",
		Status:      domain.StatusCreated,
		StatusTime:  time.UnixMilli(1000),
	})
	require.NoError(t, err)

	got, err := store.GetByContainerID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.False(t, got.IsSwarmService())

	got.Status = domain.StatusRunning
	require.NoError(t, store.Update(ctx, got))

	got, err = store.GetByContainerID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)

	_, err = store.GetByContainerID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)

	assert.ErrorIs(t, store.Update(ctx, &domain.TrackedContainer{ID: 999}), domain.ErrContainerNotFound)
}

func TestContainerStore_ListActiveServices(t *testing.T) {
	store := NewContainerStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, &domain.TrackedContainer{ServiceID: "svc-running", Status: domain.StatusRunning})
	require.NoError(t, err)
	_, err = store.Create(ctx, &domain.TrackedContainer{ServiceID: "svc-done", Status: domain.StatusComplete})
	require.NoError(t, err)
	_, err = store.Create(ctx, &domain.TrackedContainer{ContainerID: "standalone", Status: domain.StatusRunning})
	require.NoError(t, err)

	active, err := store.ListActiveServices(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "svc-running", active[0].ServiceID)

	svc, err := store.GetByServiceID(ctx, "svc-done")
	require.NoError(t, err)
	assert.True(t, svc.IsSwarmService())
}

func TestContainerStore_ContainerLookupSkipsServices(t *testing.T) {
	store := NewContainerStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, &domain.TrackedContainer{ServiceID: "svc", ContainerID: "ctr-1", Status: domain.StatusRunning})
	require.NoError(t, err)

	_, err = store.GetByContainerID(ctx, "ctr-1")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestWorkflowStore_SaveAndGet(t *testing.T) {
	store := NewWorkflowStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "wf-1")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)

	require.NoError(t, store.Save(ctx, &domain.Workflow{ID: "wf-1", Status: domain.StatusRunning, Actor: "watcher", UpdatedAt: time.UnixMilli(5)}))
	require.NoError(t, store.Save(ctx, &domain.Workflow{ID: "wf-1", Status: domain.StatusComplete, Details: "exit code 0", UpdatedAt: time.UnixMilli(6)}))

	wf, err := store.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, wf.Status)
	assert.Equal(t, "exit code 0", wf.Details)
	assert.Equal(t, int64(6), wf.UpdatedAt.UnixMilli())
}
