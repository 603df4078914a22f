package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/boundaries/out/mocks"
	"github.com/imgflow/dispatch/internal/domain"
)

func newTestService(t *testing.T) (*Service, *mocks.MockWorkflowStore) {
	store := mocks.NewMockWorkflowStore(t)
	svc := NewService(store)
	svc.now = func() time.Time { return time.UnixMilli(42) }
	return svc, store
}

func TestService_UpdateStatus_BlankIDIsNoop(t *testing.T) {
	svc, _ := newTestService(t)

	svc.UpdateStatus(context.Background(), "  ", domain.StatusRunning, "watcher", "")
}

func TestService_UpdateStatus_UnchangedIsNoop(t *testing.T) {
	svc, store := newTestService(t)
	store.On("Get", mock.Anything, "wf-1").
		Return(&domain.Workflow{ID: "wf-1", Status: domain.StatusRunning, Details: "d"}, nil)

	svc.UpdateStatus(context.Background(), "wf-1", domain.StatusRunning, "watcher", "d")

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_UpdateStatus_SavesNewWorkflow(t *testing.T) {
	svc, store := newTestService(t)
	store.On("Get", mock.Anything, "wf-1").Return(nil, domain.ErrWorkflowNotFound)
	store.On("Save", mock.Anything, &domain.Workflow{
		ID:        "wf-1",
		Status:    domain.StatusComplete,
		Details:   "exit code 0",
		Actor:     "watcher",
		UpdatedAt: time.UnixMilli(42),
	}).Return(nil)

	svc.UpdateStatus(context.Background(), "wf-1", domain.StatusComplete, "watcher", "exit code 0")
}

func TestService_UpdateStatus_DetailsChange(t *testing.T) {
	svc, store := newTestService(t)
	store.On("Get", mock.Anything, "wf-1").
		Return(&domain.Workflow{ID: "wf-1", Status: domain.StatusFailed, Details: "exit code 1"}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(wf *domain.Workflow) bool {
		return wf.Status == domain.StatusFailed && wf.Details == "exit code 2"
	})).Return(nil)

	svc.UpdateStatus(context.Background(), "wf-1", domain.StatusFailed, "watcher", "exit code 2")
}

func TestService_UpdateStatus_SwallowsErrors(t *testing.T) {
	t.Run("read failure", func(t *testing.T) {
		svc, store := newTestService(t)
		store.On("Get", mock.Anything, "wf-1").Return(nil, errors.New("disk gone"))

		assert.NotPanics(t, func() {
			svc.UpdateStatus(context.Background(), "wf-1", domain.StatusRunning, "watcher", "")
		})
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("write failure", func(t *testing.T) {
		svc, store := newTestService(t)
		store.On("Get", mock.Anything, "wf-1").Return(nil, domain.ErrWorkflowNotFound)
		store.On("Save", mock.Anything, mock.Anything).Return(errors.New("locked"))

		assert.NotPanics(t, func() {
			svc.UpdateStatus(context.Background(), "wf-1", domain.StatusRunning, "watcher", "")
		})
	})
}
