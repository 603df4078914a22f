package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/domain"
)

// MockTrackingService is a mock implementation of in.TrackingService.
type MockTrackingService struct {
	mock.Mock
}

// NewMockTrackingService creates a mock whose expectations are asserted on cleanup.
func NewMockTrackingService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTrackingService {
	m := &MockTrackingService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTrackingService) Track(ctx context.Context, workload *domain.TrackedContainer) (*domain.TrackedContainer, error) {
	args := m.Called(ctx, workload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackedContainer), args.Error(1)
}
