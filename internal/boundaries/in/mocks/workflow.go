// Package mocks provides testify mocks for the input ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockWorkflowService is a mock implementation of in.WorkflowService.
type MockWorkflowService struct {
	mock.Mock
}

// NewMockWorkflowService creates a mock whose expectations are asserted on cleanup.
func NewMockWorkflowService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflowService {
	m := &MockWorkflowService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWorkflowService) UpdateStatus(ctx context.Context, workflowID, status, actor, details string) {
	m.Called(ctx, workflowID, status, actor, details)
}
