package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgflow/dispatch/internal/adapters/out/sqlite"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/usecase/workflow"
)

type stores struct {
	containers *sqlite.ContainerStore
	workflows  *sqlite.WorkflowStore
}

func openStores(t *testing.T) stores {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return stores{containers: sqlite.NewContainerStore(db), workflows: sqlite.NewWorkflowStore(db)}
}

func TestHandlers_TaskContainerKillLeavesServiceActive(t *testing.T) {
	s := openStores(t)
	wf := workflow.NewService(s.workflows)
	containerHandler := NewContainerEventHandler(s.containers, wf)
	taskHandler := NewServiceTaskEventHandler(s.containers, wf)
	ctx := testCtx()

	_, err := s.containers.Create(ctx, &domain.TrackedContainer{ServiceID: "svc", WorkflowID: "wf-1", Status: domain.StatusCreated})
	require.NoError(t, err)
	tracked, err := s.containers.GetByServiceID(ctx, "svc")
	require.NoError(t, err)

	task := domain.ServiceTask{TaskID: "task-1", ContainerID: "ctr-1", Status: domain.TaskStateRunning, StatusTime: time.UnixMilli(1000)}
	ste, err := domain.NewServiceTaskEvent(&task, tracked)
	require.NoError(t, err)
	require.NoError(t, taskHandler.Handle(ctx, domain.Event{Type: domain.EventServiceTask, Data: ste}))

	kill := domain.NewContainerEvent("kill", "ctr-1", 2, 2_000_000_000, map[string]string{"exitCode": "137"})
	require.NoError(t, containerHandler.Handle(ctx, domain.Event{Type: domain.EventContainer, Data: kill}))

	svc, err := s.containers.GetByServiceID(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, svc.Status)

	active, err := s.containers.ListActiveServices(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	flow, err := s.workflows.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, flow.Status)
}

func TestHandlers_DestroyAfterDieKeepsComplete(t *testing.T) {
	s := openStores(t)
	h := NewContainerEventHandler(s.containers, workflow.NewService(s.workflows))
	ctx := testCtx()

	_, err := s.containers.Create(ctx, &domain.TrackedContainer{ContainerID: "ctr-1", WorkflowID: "wf-1", Status: domain.StatusRunning})
	require.NoError(t, err)

	for i, status := range []string{"die", "destroy"} {
		ev := domain.NewContainerEvent(status, "ctr-1", int64(10+i), int64(10+i)*1_000_000_000, map[string]string{"exitCode": "0"})
		require.NoError(t, h.Handle(ctx, domain.Event{Type: domain.EventContainer, Data: ev}))
	}

	got, err := s.containers.GetByContainerID(ctx, "ctr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, got.Status)
	assert.Equal(t, int64(10_000), got.StatusTime.UnixMilli())

	flow, err := s.workflows.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, flow.Status)
}
