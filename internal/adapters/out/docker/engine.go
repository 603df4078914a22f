// Package docker implements the engine adapter using the Docker API.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"

	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// Connector opens engine clients for registered servers.
type Connector struct {
	timeout time.Duration
}

// NewConnector creates a connector. timeout bounds the initial ping.
func NewConnector(timeout time.Duration) *Connector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Connector{timeout: timeout}
}

// Connect builds a client for server and verifies the engine answers.
func (c *Connector) Connect(ctx context.Context, server *domain.ServerConfig) (out.Engine, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:    "adapter",
		logging.FieldAdapter:  "docker",
		logging.FieldAction:   "Connect",
		logging.FieldEntityID: server.ID,
		"host":                server.Host,
	})
	log := logging.FromCtx(ctx)

	cli, err := newClient(server)
	if err != nil {
		return nil, err
	}

	engine := NewEngineWithClient(cli)

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := engine.Ping(pingCtx); err != nil {
		_ = cli.Close()
		return nil, err
	}

	log.Info().Bool("tls", server.UsesTLS()).Msg("connected to docker engine")
	return engine, nil
}

func newClient(server *domain.ServerConfig) (*client.Client, error) {
	opts := []client.Opt{
		client.WithHost(server.Host),
		client.WithAPIVersionNegotiation(),
	}

	if server.UsesTLS() {
		tlsc, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             filepath.Join(server.CertPath, "ca.pem"),
			CertFile:           filepath.Join(server.CertPath, "cert.pem"),
			KeyFile:            filepath.Join(server.CertPath, "key.pem"),
			ExclusiveRootPools: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS material from %s: %w", server.CertPath, err)
		}
		opts = append(opts, client.WithHTTPClient(&http.Client{
			Transport:     &http.Transport{TLSClientConfig: tlsc},
			CheckRedirect: client.CheckRedirect,
		}))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return cli, nil
}

// Engine implements out.Engine on a Docker client.
type Engine struct {
	client *client.Client
}

// NewEngineWithClient wraps an existing client.
func NewEngineWithClient(cli *client.Client) *Engine {
	return &Engine{client: cli}
}

// Ping checks the engine is responsive.
func (e *Engine) Ping(ctx context.Context) error {
	if _, err := e.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEngineUnavailable, err)
	}
	return nil
}

// APIVersion returns the API version reported by the engine.
func (e *Engine) APIVersion(ctx context.Context) (string, error) {
	v, err := e.client.ServerVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get Docker version: %w", err)
	}
	return v.APIVersion, nil
}

// ContainerEvents streams container events since the given time.
func (e *Engine) ContainerEvents(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, <-chan error) {
	opts := events.ListOptions{
		Filters: filters.NewArgs(filters.Arg("type", string(events.ContainerEventType))),
	}
	if !since.IsZero() {
		opts.Since = fmt.Sprintf("%d.%09d", since.Unix(), since.Nanosecond())
	}

	msgs, errs := e.client.Events(ctx, opts)

	eventCh := make(chan domain.ContainerEvent)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return
				}
				errCh <- fmt.Errorf("docker event stream failed: %w", err)
				return
			case msg := <-msgs:
				select {
				case eventCh <- toContainerEvent(msg):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return eventCh, errCh
}

// ServiceTasks lists the tasks of a Swarm service, newest first.
func (e *Engine) ServiceTasks(ctx context.Context, serviceID string) ([]domain.ServiceTask, error) {
	tasks, err := e.client.TaskList(ctx, types.TaskListOptions{
		Filters: filters.NewArgs(filters.Arg("service", serviceID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of service %s: %w", serviceID, err)
	}

	result := make([]domain.ServiceTask, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, toServiceTask(t))
	}
	slices.SortStableFunc(result, func(a, b domain.ServiceTask) int {
		return b.StatusTime.Compare(a.StatusTime)
	})
	return result, nil
}

// Close releases the client.
func (e *Engine) Close() error {
	return e.client.Close()
}

func toContainerEvent(msg events.Message) domain.ContainerEvent {
	return domain.NewContainerEventBuilder().
		Status(string(msg.Action)).
		ContainerID(msg.Actor.ID).
		Time(msg.Time).
		TimeNano(msg.TimeNano).
		Attributes(msg.Actor.Attributes).
		Build()
}

func toServiceTask(t swarm.Task) domain.ServiceTask {
	task := domain.ServiceTask{
		ServiceID:  t.ServiceID,
		TaskID:     t.ID,
		NodeID:     t.NodeID,
		Status:     string(t.Status.State),
		StatusTime: t.Status.Timestamp,
		Message:    t.Status.Message,
		Err:        t.Status.Err,
	}
	if cs := t.Status.ContainerStatus; cs != nil {
		task.ContainerID = cs.ContainerID
		if task.IsExitStatus() {
			code := int64(cs.ExitCode)
			task.ExitCode = &code
		}
	}
	return task
}
