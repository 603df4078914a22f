package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imgflow/dispatch/internal/adapters/dto"
	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/boundaries/in/mocks"
	"github.com/imgflow/dispatch/internal/domain"
)

func runTrackingCLI(t *testing.T, tracking in.TrackingService, args ...string) (string, error) {
	t.Helper()

	prev := openTracking
	openTracking = func(ctx context.Context) (in.TrackingService, func() error, error) {
		return tracking, func() error { return nil }, nil
	}
	t.Cleanup(func() { openTracking = prev })

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestContainerTrack(t *testing.T) {
	tracking := mocks.NewMockTrackingService(t)
	tracking.On("Track", mock.Anything, mock.MatchedBy(func(c *domain.TrackedContainer) bool {
		return c.ContainerID == "4f2a9c" && c.WorkflowID == "build-17" && c.Subtype == "build"
	})).Return(&domain.TrackedContainer{ID: 3, ContainerID: "4f2a9c", WorkflowID: "build-17", Status: domain.StatusCreated}, nil)

	out, err := runTrackingCLI(t, tracking, "container", "track", "--container", "4f2a9c", "--workflow", "build-17", "--subtype", "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Tracking 3: container 4f2a9c workflow build-17")
}

func TestContainerTrack_ServiceJSON(t *testing.T) {
	tracking := mocks.NewMockTrackingService(t)
	tracking.On("Track", mock.Anything, mock.MatchedBy(func(c *domain.TrackedContainer) bool {
		return c.ServiceID == "q1w2e3" && c.TaskID == "t9y8" && c.ContainerID == ""
	})).Return(&domain.TrackedContainer{ID: 4, ServiceID: "q1w2e3", TaskID: "t9y8", Status: domain.StatusCreated}, nil)

	out, err := runTrackingCLI(t, tracking, "container", "track", "--service", "q1w2e3", "--task", "t9y8", "--json")
	require.NoError(t, err)

	var got dto.Tracked
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(4), got.ID)
	assert.Equal(t, "q1w2e3", got.ServiceID)
}

func TestContainerTrack_RequiresOneTarget(t *testing.T) {
	tracking := mocks.NewMockTrackingService(t)

	_, err := runTrackingCLI(t, tracking, "container", "track", "--workflow", "wf")
	assert.Error(t, err)

	_, err = runTrackingCLI(t, tracking, "container", "track", "--container", "c", "--service", "s")
	assert.Error(t, err)
}

func TestContainerTrack_Duplicate(t *testing.T) {
	tracking := mocks.NewMockTrackingService(t)
	tracking.On("Track", mock.Anything, mock.Anything).Return(nil, domain.ErrAlreadyTracked)

	_, err := runTrackingCLI(t, tracking, "container", "track", "--container", "c")
	assert.ErrorIs(t, err, domain.ErrAlreadyTracked)
}
