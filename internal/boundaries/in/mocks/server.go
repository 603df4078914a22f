package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/domain"
)

// MockServerService is a mock implementation of in.ServerService.
type MockServerService struct {
	mock.Mock
}

// NewMockServerService creates a mock whose expectations are asserted on cleanup.
func NewMockServerService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockServerService {
	m := &MockServerService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockServerService) GetEnabled(ctx context.Context) (*domain.ServerConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServerConfig), args.Error(1)
}

func (m *MockServerService) GetEnabledID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockServerService) Get(ctx context.Context, id int64) (*domain.ServerConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServerConfig), args.Error(1)
}

func (m *MockServerService) List(ctx context.Context) ([]*domain.ServerConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ServerConfig), args.Error(1)
}

func (m *MockServerService) Create(ctx context.Context, server *domain.ServerConfig) (*domain.ServerConfig, error) {
	args := m.Called(ctx, server)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServerConfig), args.Error(1)
}

func (m *MockServerService) Update(ctx context.Context, server *domain.ServerConfig) error {
	return m.Called(ctx, server).Error(0)
}

func (m *MockServerService) SetEnabled(ctx context.Context, id int64, enabled bool) (*domain.ServerConfig, error) {
	args := m.Called(ctx, id, enabled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServerConfig), args.Error(1)
}

func (m *MockServerService) RecordEventCheckTime(ctx context.Context, id int64, t time.Time) error {
	return m.Called(ctx, id, t).Error(0)
}
