package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/imgflow/dispatch/internal/domain"
)

const selectContainers = `
	SELECT id, container_id, service_id, task_id, node_id, workflow_id, subtype, status, status_time
	FROM tracked_containers
`

// ContainerStore implements out.ContainerStore.
type ContainerStore struct {
	db *DB
}

// NewContainerStore creates a tracked container store on db.
func NewContainerStore(db *DB) *ContainerStore {
	return &ContainerStore{db: db}
}

// Create stores a new tracked container.
func (s *ContainerStore) Create(ctx context.Context, c *domain.TrackedContainer) (int64, error) {
	result, err := s.db.conn.ExecContext(ctx, `
		INSERT INTO tracked_containers (
			container_id, service_id, task_id, node_id, workflow_id, subtype, status, status_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ContainerID, c.ServiceID, c.TaskID, c.NodeID, c.WorkflowID, c.Subtype, c.Status, toMillis(c.StatusTime))
	if err != nil {
		return 0, fmt.Errorf("failed to insert tracked container: %w", err)
	}
	return result.LastInsertId()
}

// GetByContainerID looks up a standalone container.
func (s *ContainerStore) GetByContainerID(ctx context.Context, containerID string) (*domain.TrackedContainer, error) {
	return s.getOne(ctx, selectContainers+` WHERE container_id = ? AND service_id = '' ORDER BY id DESC LIMIT 1`, containerID)
}

// GetByServiceID looks up a Swarm service.
func (s *ContainerStore) GetByServiceID(ctx context.Context, serviceID string) (*domain.TrackedContainer, error) {
	return s.getOne(ctx, selectContainers+` WHERE service_id = ? ORDER BY id DESC LIMIT 1`, serviceID)
}

// ListActiveServices returns Swarm services not yet Complete or Failed.
func (s *ContainerStore) ListActiveServices(ctx context.Context) ([]*domain.TrackedContainer, error) {
	rows, err := s.db.conn.QueryContext(ctx, selectContainers+`
		WHERE service_id != '' AND status NOT IN (?, ?)
		ORDER BY id`,
		domain.StatusComplete, domain.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to query active services: %w", err)
	}
	defer rows.Close()

	var out []*domain.TrackedContainer
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the tracked record.
func (s *ContainerStore) Update(ctx context.Context, c *domain.TrackedContainer) error {
	result, err := s.db.conn.ExecContext(ctx, `
		UPDATE tracked_containers SET
			container_id = ?, service_id = ?, task_id = ?, node_id = ?,
			workflow_id = ?, subtype = ?, status = ?, status_time = ?
		WHERE id = ?`,
		c.ContainerID, c.ServiceID, c.TaskID, c.NodeID,
		c.WorkflowID, c.Subtype, c.Status, toMillis(c.StatusTime), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update tracked container %d: %w", c.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrContainerNotFound
	}
	return nil
}

func (s *ContainerStore) getOne(ctx context.Context, query string, args ...any) (*domain.TrackedContainer, error) {
	c, err := scanContainer(s.db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrContainerNotFound
	}
	return c, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContainer(row rowScanner) (*domain.TrackedContainer, error) {
	var (
		c          domain.TrackedContainer
		statusTime int64
	)
	err := row.Scan(&c.ID, &c.ContainerID, &c.ServiceID, &c.TaskID, &c.NodeID,
		&c.WorkflowID, &c.Subtype, &c.Status, &statusTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan tracked container: %w", err)
	}
	c.StatusTime = time.UnixMilli(statusTime)
	return &c, nil
}
