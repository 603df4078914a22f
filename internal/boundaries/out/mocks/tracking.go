// Package mocks provides testify mocks for the output ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/domain"
)

// MockContainerStore is a mock implementation of out.ContainerStore.
type MockContainerStore struct {
	mock.Mock
}

// NewMockContainerStore creates a mock whose expectations are asserted on cleanup.
func NewMockContainerStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContainerStore {
	m := &MockContainerStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockContainerStore) Create(ctx context.Context, c *domain.TrackedContainer) (int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContainerStore) GetByContainerID(ctx context.Context, containerID string) (*domain.TrackedContainer, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackedContainer), args.Error(1)
}

func (m *MockContainerStore) GetByServiceID(ctx context.Context, serviceID string) (*domain.TrackedContainer, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackedContainer), args.Error(1)
}

func (m *MockContainerStore) ListActiveServices(ctx context.Context) ([]*domain.TrackedContainer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TrackedContainer), args.Error(1)
}

func (m *MockContainerStore) Update(ctx context.Context, c *domain.TrackedContainer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

// MockWorkflowStore is a mock implementation of out.WorkflowStore.
type MockWorkflowStore struct {
	mock.Mock
}

// NewMockWorkflowStore creates a mock whose expectations are asserted on cleanup.
func NewMockWorkflowStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflowStore {
	m := &MockWorkflowStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWorkflowStore) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowStore) Save(ctx context.Context, wf *domain.Workflow) error {
	args := m.Called(ctx, wf)
	return args.Error(0)
}
