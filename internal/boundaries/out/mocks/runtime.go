package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
)

// MockEngineConnector is a mock implementation of out.EngineConnector.
type MockEngineConnector struct {
	mock.Mock
}

// NewMockEngineConnector creates a mock whose expectations are asserted on cleanup.
func NewMockEngineConnector(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEngineConnector {
	m := &MockEngineConnector{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEngineConnector) Connect(ctx context.Context, server *domain.ServerConfig) (out.Engine, error) {
	args := m.Called(ctx, server)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(out.Engine), args.Error(1)
}

// MockEngine is a mock implementation of out.Engine.
type MockEngine struct {
	mock.Mock
}

// NewMockEngine creates a mock whose expectations are asserted on cleanup.
func NewMockEngine(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEngine {
	m := &MockEngine{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEngine) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEngine) APIVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockEngine) ContainerEvents(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, <-chan error) {
	args := m.Called(ctx, since)
	return args.Get(0).(<-chan domain.ContainerEvent), args.Get(1).(<-chan error)
}

func (m *MockEngine) ServiceTasks(ctx context.Context, serviceID string) ([]domain.ServiceTask, error) {
	args := m.Called(ctx, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ServiceTask), args.Error(1)
}

func (m *MockEngine) Close() error {
	return m.Called().Error(0)
}
