package in

import "context"

// WorkflowService defines the contract for updating workflow status.
type WorkflowService interface {
	// UpdateStatus records a new status. Blank ids and unchanged
	// (status, details) pairs are ignored; failures are logged, not returned.
	UpdateStatus(ctx context.Context, workflowID, status, actor, details string)
}
