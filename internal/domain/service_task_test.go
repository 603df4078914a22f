package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTask_Classification(t *testing.T) {
	tests := []struct {
		status     string
		exit       bool
		successful bool
		notStarted bool
	}{
		{status: "complete", exit: true, successful: true},
		{status: "shutdown", exit: true},
		{status: "failed", exit: true},
		{status: "rejected", exit: true},
		{status: "running"},
		{status: "pending", notStarted: true},
		{status: "new", notStarted: true},
		{status: "starting", notStarted: true},
		{status: "preparing", notStarted: true},
		{status: "completed"},
		{status: "orphaned"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			task := &ServiceTask{Status: tt.status}

			assert.Equal(t, tt.exit, task.IsExitStatus())
			assert.Equal(t, tt.successful, task.IsSuccessfulStatus())
			assert.Equal(t, tt.notStarted, task.HasNotStarted())
		})
	}
}

func TestNewServiceTaskEvent_DefaultsToNormal(t *testing.T) {
	event, err := NewServiceTaskEvent(&ServiceTask{TaskID: "t1"}, &TrackedContainer{ServiceID: "s1"})

	require.NoError(t, err)
	assert.Equal(t, ServiceTaskEventNormal, event.Kind())
	assert.Equal(t, "t1", event.Task().TaskID)
	assert.Equal(t, "s1", event.Service().ServiceID)
}

func TestNewServiceTaskEvent_WithKind(t *testing.T) {
	for _, kind := range []ServiceTaskEventKind{ServiceTaskEventRestart, ServiceTaskEventWaiting} {
		event, err := NewServiceTaskEvent(&ServiceTask{}, &TrackedContainer{}, WithEventKind(kind))

		require.NoError(t, err)
		assert.Equal(t, kind, event.Kind())
	}
}

func TestNewServiceTaskEvent_RequiresTaskAndService(t *testing.T) {
	_, err := NewServiceTaskEvent(nil, &TrackedContainer{})
	assert.Error(t, err)

	_, err = NewServiceTaskEvent(&ServiceTask{}, nil)
	assert.Error(t, err)
}

func TestNewServiceTaskEvent_SnapshotsInputs(t *testing.T) {
	code := int64(1)
	task := &ServiceTask{TaskID: "t1", Status: "failed", ExitCode: &code}
	service := &TrackedContainer{ServiceID: "s1", Status: StatusRunning}

	event, err := NewServiceTaskEvent(task, service)
	require.NoError(t, err)

	task.Status = "complete"
	code = 0
	service.Status = StatusComplete

	got := event.Task()
	assert.Equal(t, "failed", got.Status)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, int64(1), *got.ExitCode)
	assert.Equal(t, StatusRunning, event.Service().Status)
}
