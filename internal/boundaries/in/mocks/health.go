package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/domain"
)

// MockHealthService is a mock implementation of in.HealthService.
type MockHealthService struct {
	mock.Mock
}

// NewMockHealthService creates a mock whose expectations are asserted on cleanup.
func NewMockHealthService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockHealthService {
	m := &MockHealthService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockHealthService) Check(ctx context.Context) *domain.SystemHealth {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.SystemHealth)
}
