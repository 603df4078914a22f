package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
)

// servers, constraints and values are loaded in one round trip
const selectServers = `
	SELECT s.id, s.name, s.host, s.cert_path, s.swarm_mode, s.enabled,
	       s.enabled_at, s.disabled_at, s.last_modified, s.last_event_check_time,
	       c.id, c.constraint_key, c.comparator, c.user_settable, v.value
	FROM docker_servers s
	LEFT JOIN server_constraints c ON c.server_id = s.id
	LEFT JOIN server_constraint_values v ON v.constraint_id = c.id
`

const orderServers = ` ORDER BY s.id, c.position, v.position`

// ServerStore implements out.ServerStore.
type ServerStore struct {
	db *DB
}

// NewServerStore creates a server store on db.
func NewServerStore(db *DB) *ServerStore {
	return &ServerStore{db: db}
}

// WithTx runs fn in an immediate transaction.
func (s *ServerStore) WithTx(ctx context.Context, fn func(tx out.ServerTx) error) (err error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&serverTx{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get loads a server by id.
func (s *ServerStore) Get(ctx context.Context, id int64) (*domain.ServerConfig, error) {
	return getServer(ctx, s.db.conn, id)
}

// FindEnabled returns all enabled servers.
func (s *ServerStore) FindEnabled(ctx context.Context) ([]*domain.ServerConfig, error) {
	return findEnabled(ctx, s.db.conn)
}

// List returns every server ordered by id.
func (s *ServerStore) List(ctx context.Context) ([]*domain.ServerConfig, error) {
	return queryServers(ctx, s.db.conn, selectServers+orderServers)
}

// EnabledIDs returns the ids of enabled servers.
func (s *ServerStore) EnabledIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT id FROM docker_servers WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled server ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan server id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetEventCheckTime stores the event watermark of a server.
func (s *ServerStore) SetEventCheckTime(ctx context.Context, id int64, t time.Time) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE docker_servers SET last_event_check_time = ? WHERE id = ?`, toMillis(t), id)
	if err != nil {
		return fmt.Errorf("failed to update event check time: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrServerNotFound
	}
	return nil
}

type serverTx struct {
	q querier
}

func (t *serverTx) Get(ctx context.Context, id int64) (*domain.ServerConfig, error) {
	return getServer(ctx, t.q, id)
}

func (t *serverTx) FindEnabled(ctx context.Context) ([]*domain.ServerConfig, error) {
	return findEnabled(ctx, t.q)
}

func (t *serverTx) Insert(ctx context.Context, server *domain.ServerConfig) (int64, error) {
	result, err := t.q.ExecContext(ctx, `
		INSERT INTO docker_servers (
			name, host, cert_path, swarm_mode, enabled,
			enabled_at, disabled_at, last_modified, last_event_check_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		server.Name,
		server.Host,
		server.CertPath,
		boolInt(server.SwarmMode),
		boolInt(server.Enabled),
		nullMillis(server.EnabledAt),
		nullMillis(server.DisabledAt),
		toMillis(server.LastModified),
		nullMillis(server.LastEventCheckTime),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert server: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get server id: %w", err)
	}

	if err := insertConstraints(ctx, t.q, id, server.Constraints); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *serverTx) Upsert(ctx context.Context, server *domain.ServerConfig) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO docker_servers (
			id, name, host, cert_path, swarm_mode, enabled,
			enabled_at, disabled_at, last_modified, last_event_check_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			host = excluded.host,
			cert_path = excluded.cert_path,
			swarm_mode = excluded.swarm_mode,
			enabled = excluded.enabled,
			enabled_at = excluded.enabled_at,
			disabled_at = excluded.disabled_at,
			last_modified = excluded.last_modified,
			last_event_check_time = excluded.last_event_check_time`,
		server.ID,
		server.Name,
		server.Host,
		server.CertPath,
		boolInt(server.SwarmMode),
		boolInt(server.Enabled),
		nullMillis(server.EnabledAt),
		nullMillis(server.DisabledAt),
		toMillis(server.LastModified),
		nullMillis(server.LastEventCheckTime),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert server %d: %w", server.ID, err)
	}

	if _, err := t.q.ExecContext(ctx, `DELETE FROM server_constraints WHERE server_id = ?`, server.ID); err != nil {
		return fmt.Errorf("failed to clear constraints of server %d: %w", server.ID, err)
	}
	return insertConstraints(ctx, t.q, server.ID, server.Constraints)
}

func insertConstraints(ctx context.Context, q querier, serverID int64, constraints []domain.Constraint) error {
	for i, c := range constraints {
		comparator := c.Comparator
		if comparator == "" {
			comparator = domain.ComparatorEquals
		}

		result, err := q.ExecContext(ctx, `
			INSERT INTO server_constraints (server_id, position, constraint_key, comparator, user_settable)
			VALUES (?, ?, ?, ?, ?)`,
			serverID, i, c.Key, string(comparator), boolInt(c.UserSettable))
		if err != nil {
			return fmt.Errorf("failed to insert constraint %q: %w", c.Key, err)
		}

		constraintID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get constraint id: %w", err)
		}

		for j, v := range c.Values {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO server_constraint_values (constraint_id, position, value)
				VALUES (?, ?, ?)`,
				constraintID, j, v); err != nil {
				return fmt.Errorf("failed to insert constraint value %q: %w", v, err)
			}
		}
	}
	return nil
}

func getServer(ctx context.Context, q querier, id int64) (*domain.ServerConfig, error) {
	servers, err := queryServers(ctx, q, selectServers+` WHERE s.id = ?`+orderServers, id)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, domain.ErrServerNotFound
	}
	return servers[0], nil
}

func findEnabled(ctx context.Context, q querier) ([]*domain.ServerConfig, error) {
	return queryServers(ctx, q, selectServers+` WHERE s.enabled = 1`+orderServers)
}

// queryServers folds the joined server/constraint/value rows into aggregates.
func queryServers(ctx context.Context, q querier, query string, args ...any) ([]*domain.ServerConfig, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	var (
		servers          []*domain.ServerConfig
		current          *domain.ServerConfig
		lastConstraintID int64
	)

	for rows.Next() {
		var (
			id                     int64
			name, host, certPath   string
			swarmMode, enabled     int
			enabledAt, disabledAt  sql.NullInt64
			lastModified           int64
			lastEventCheck         sql.NullInt64
			constraintID           sql.NullInt64
			key, comparator, value sql.NullString
			userSettable           sql.NullInt64
		)

		if err := rows.Scan(
			&id, &name, &host, &certPath, &swarmMode, &enabled,
			&enabledAt, &disabledAt, &lastModified, &lastEventCheck,
			&constraintID, &key, &comparator, &userSettable, &value,
		); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}

		if current == nil || current.ID != id {
			current = &domain.ServerConfig{
				ID:                 id,
				Name:               name,
				Host:               host,
				CertPath:           certPath,
				SwarmMode:          swarmMode == 1,
				Enabled:            enabled == 1,
				EnabledAt:          fromNullMillis(enabledAt),
				DisabledAt:         fromNullMillis(disabledAt),
				LastModified:       time.UnixMilli(lastModified),
				LastEventCheckTime: fromNullMillis(lastEventCheck),
			}
			servers = append(servers, current)
			lastConstraintID = 0
		}

		if !constraintID.Valid {
			continue
		}

		if constraintID.Int64 != lastConstraintID {
			current.Constraints = append(current.Constraints, domain.Constraint{
				Key:          key.String,
				Values:       []string{},
				Comparator:   domain.ConstraintComparator(comparator.String),
				UserSettable: userSettable.Int64 == 1,
			})
			lastConstraintID = constraintID.Int64
		}

		if value.Valid {
			last := &current.Constraints[len(current.Constraints)-1]
			last.Values = append(last.Values, value.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate servers: %w", err)
	}
	return servers, nil
}
