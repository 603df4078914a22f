package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
)

// MockEventBus is a mock implementation of out.EventBus.
type MockEventBus struct {
	mock.Mock
}

// NewMockEventBus creates a mock whose expectations are asserted on cleanup.
func NewMockEventBus(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventBus {
	m := &MockEventBus{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventBus) Publish(eventType domain.EventType, payload any) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(handler out.EventHandler) error {
	args := m.Called(handler)
	return args.Error(0)
}

func (m *MockEventBus) Unsubscribe(handler out.EventHandler) error {
	args := m.Called(handler)
	return args.Error(0)
}

func (m *MockEventBus) Start() error {
	return m.Called().Error(0)
}

func (m *MockEventBus) Stop() error {
	return m.Called().Error(0)
}
