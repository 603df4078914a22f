// Package watcher follows the enabled Docker server and publishes its
// container and Swarm task activity as domain events.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// DefaultMinAPIVersion is the oldest engine API the watcher accepts.
const DefaultMinAPIVersion = "1.41"

var waitingMarkers = []string{"no suitable node", "insufficient resources"}

// Config holds watcher settings.
type Config struct {
	MinAPIVersion  string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
}

// Watcher implements out.EventHandler for server.changed so it can reconnect
// when a different server is enabled.
type Watcher struct {
	servers    in.ServerService
	containers out.ContainerStore
	connector  out.EngineConnector
	bus        out.EventPublisher
	metrics    out.Metrics
	cfg        Config
	minVersion *semver.Version
	reconnect  chan struct{}

	mu       sync.Mutex
	lastSeen map[string]string
}

// New creates a watcher.
func New(servers in.ServerService, containers out.ContainerStore, connector out.EngineConnector, bus out.EventPublisher, cfg Config) (*Watcher, error) {
	if cfg.MinAPIVersion == "" {
		cfg.MinAPIVersion = DefaultMinAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}

	minVersion, err := semver.NewVersion(cfg.MinAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum API version %q: %w", cfg.MinAPIVersion, err)
	}

	return &Watcher{
		servers:    servers,
		containers: containers,
		connector:  connector,
		bus:        bus,
		cfg:        cfg,
		minVersion: minVersion,
		reconnect:  make(chan struct{}, 1),
		lastSeen:   make(map[string]string),
	}, nil
}

// SetMetrics sets the metrics sink. Must be called before Run.
func (w *Watcher) SetMetrics(m out.Metrics) {
	w.metrics = m
}

// CanHandle returns whether this handler can handle the given event type.
func (w *Watcher) CanHandle(eventType domain.EventType) bool {
	return eventType == domain.EventServerChanged
}

// Handle asks the running watcher to reconnect.
func (w *Watcher) Handle(ctx context.Context, event domain.Event) error {
	logging.FromCtx(ctx).Info().Interface("change", event.Data).Msg("enabled server changed, reconnecting")
	w.Reconnect()
	return nil
}

// Reconnect drops the current engine session. Extra requests coalesce.
func (w *Watcher) Reconnect() {
	select {
	case w.reconnect <- struct{}{}:
	default:
	}
}

// Run watches the enabled server until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:     "usecase",
		logging.FieldComponent: "watcher",
	})
	log := logging.FromCtx(ctx)

	for {
		server, err := w.servers.GetEnabled(ctx)
		switch {
		case errors.Is(err, domain.ErrNoEnabledServer):
			log.Info().Msg("no enabled server, waiting for one")
			if !w.wait(ctx, 0) {
				return ctx.Err()
			}
			continue
		case err != nil:
			log.Error().Err(err).Msg("failed to read enabled server")
			if !w.wait(ctx, w.cfg.ReconnectDelay) {
				return ctx.Err()
			}
			continue
		}

		err = w.watch(ctx, server)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Warn().Err(err).Int64(logging.FieldEntityID, server.ID).Msg("engine session ended")
			if !w.wait(ctx, w.cfg.ReconnectDelay) {
				return ctx.Err()
			}
		}
	}
}

// wait blocks until a reconnect request, the delay, or ctx ends. A zero
// delay waits for a reconnect request only.
func (w *Watcher) wait(ctx context.Context, delay time.Duration) bool {
	var timeout <-chan time.Time
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return false
	case <-w.reconnect:
	case <-timeout:
	}
	return true
}

// watch runs one engine session. It returns nil when a reconnect was requested.
func (w *Watcher) watch(ctx context.Context, server *domain.ServerConfig) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldEntityID: server.ID,
		"host":                server.Host,
	})
	log := logging.FromCtx(ctx)

	engine, err := w.connector.Connect(ctx, server)
	if w.metrics != nil {
		w.metrics.RecordEngineReconnect(ctx, err)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close engine client")
		}
	}()

	if err := w.checkVersion(ctx, engine); err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	since := time.Now()
	if server.LastEventCheckTime != nil {
		since = *server.LastEventCheckTime
	}
	events, errs := engine.ContainerEvents(sessionCtx, since)

	var poll <-chan time.Time
	if server.SwarmMode {
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	log.Info().Bool("swarm", server.SwarmMode).Time("since", since).Msg("watching engine events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.reconnect:
			return nil
		case ev, ok := <-events:
			if !ok {
				if err := <-errs; err != nil {
					return err
				}
				return fmt.Errorf("%w: event stream closed", domain.ErrEngineUnavailable)
			}
			w.publishContainerEvent(ctx, server.ID, ev)
		case <-poll:
			w.pollServices(ctx, engine)
		}
	}
}

func (w *Watcher) checkVersion(ctx context.Context, engine out.Engine) error {
	raw, err := engine.APIVersion(ctx)
	if err != nil {
		return err
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: unparsable API version %q", domain.ErrUnsupportedEngine, raw)
	}
	if version.LessThan(w.minVersion) {
		return fmt.Errorf("%w: API %s is older than %s", domain.ErrUnsupportedEngine, raw, w.minVersion.Original())
	}
	return nil
}

func (w *Watcher) publishContainerEvent(ctx context.Context, serverID int64, ev domain.ContainerEvent) {
	log := logging.FromCtx(ctx)

	if err := w.bus.Publish(domain.EventContainer, ev); err != nil {
		log.Warn().Err(err).Str("container_id", ev.ContainerID()).Msg("failed to publish container event")
		return
	}
	if w.metrics != nil {
		w.metrics.RecordEngineEvent(ctx, "container")
	}

	if err := w.servers.RecordEventCheckTime(ctx, serverID, ev.Timestamp()); err != nil {
		log.Warn().Err(err).Msg("failed to record event check time")
	}
}

// pollServices compares the newest task of every active tracked service
// with what was last published and raises service task events.
func (w *Watcher) pollServices(ctx context.Context, engine out.Engine) {
	log := logging.FromCtx(ctx)

	services, err := w.containers.ListActiveServices(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list active services")
		return
	}

	for _, svc := range services {
		tasks, err := engine.ServiceTasks(ctx, svc.ServiceID)
		if err != nil {
			log.Warn().Err(err).Str("service_id", svc.ServiceID).Msg("failed to list service tasks")
			continue
		}
		if len(tasks) == 0 {
			continue
		}

		latest := tasks[0]
		kind := classifyTask(svc, &latest)

		key := string(kind) + "|" + latest.TaskID + "|" + latest.Status
		if !w.markSeen(svc.ServiceID, key) {
			continue
		}

		ste, err := domain.NewServiceTaskEvent(&latest, svc, domain.WithEventKind(kind))
		if err != nil {
			log.Error().Err(err).Msg("failed to build service task event")
			continue
		}
		if err := w.bus.Publish(domain.EventServiceTask, ste); err != nil {
			log.Warn().Err(err).Str("service_id", svc.ServiceID).Msg("failed to publish service task event")
			w.forget(svc.ServiceID)
			continue
		}
		if w.metrics != nil {
			w.metrics.RecordEngineEvent(ctx, "service_task")
		}
	}
}

func classifyTask(svc *domain.TrackedContainer, task *domain.ServiceTask) domain.ServiceTaskEventKind {
	if svc.TaskID != "" && task.TaskID != svc.TaskID {
		return domain.ServiceTaskEventRestart
	}
	if task.HasNotStarted() && waitingForResources(task) {
		return domain.ServiceTaskEventWaiting
	}
	return domain.ServiceTaskEventNormal
}

func waitingForResources(task *domain.ServiceTask) bool {
	text := strings.ToLower(task.Message + " " + task.Err)
	for _, marker := range waitingMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// markSeen records key for the service and reports whether it is new.
func (w *Watcher) markSeen(serviceID, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastSeen[serviceID] == key {
		return false
	}
	w.lastSeen[serviceID] = key
	return true
}

func (w *Watcher) forget(serviceID string) {
	w.mu.Lock()
	delete(w.lastSeen, serviceID)
	w.mu.Unlock()
}
