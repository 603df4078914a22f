package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

// WorkflowStore implements out.WorkflowStore.
type WorkflowStore struct {
	db *DB
}

// NewWorkflowStore creates a workflow store on db.
func NewWorkflowStore(db *DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// Get returns the workflow row.
func (s *WorkflowStore) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	var (
		wf        domain.Workflow
		updatedAt int64
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, status, details, actor, updated_at FROM workflows WHERE id = ?`, id).
		Scan(&wf.ID, &wf.Status, &wf.Details, &wf.Actor, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}
	wf.UpdatedAt = time.UnixMilli(updatedAt)
	return &wf, nil
}

// Save inserts or replaces the workflow row.
func (s *WorkflowStore) Save(ctx context.Context, wf *domain.Workflow) error {
	_, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO workflows (id, status, details, actor, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			details = excluded.details,
			actor = excluded.actor,
			updated_at = excluded.updated_at`,
		wf.ID, wf.Status, wf.Details, wf.Actor, toMillis(wf.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", wf.ID, err)
	}
	return nil
}
