// Package eventbus implements the event bus adapter.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/imgflow/dispatch/internal/adapters/out/telemetry"
	"github.com/imgflow/dispatch/internal/boundaries/out"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

const (
	defaultBufferSize     = 100
	defaultPublishTimeout = 5 * time.Second
	defaultHandlerTimeout = 30 * time.Second
)

// InMemory implements the EventBus interface using in-memory channels.
type InMemory struct {
	handlers       []out.EventHandler
	eventChan      chan domain.Event
	done           chan struct{}
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	bufferSize     int
	publishTimeout time.Duration
	handlerTimeout time.Duration
	log            zerolog.Logger
	metrics        *telemetry.Metrics
}

// Option customizes an InMemory bus.
type Option func(*InMemory)

// WithHandlerTimeout bounds how long one handler may run for one event.
func WithHandlerTimeout(d time.Duration) Option {
	return func(b *InMemory) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// WithPublishTimeout bounds how long Publish waits on a full buffer.
func WithPublishTimeout(d time.Duration) Option {
	return func(b *InMemory) {
		if d > 0 {
			b.publishTimeout = d
		}
	}
}

// NewInMemory creates a new in-memory event bus.
func NewInMemory(bufferSize int, log zerolog.Logger, opts ...Option) *InMemory {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &InMemory{
		handlers:       make([]out.EventHandler, 0),
		eventChan:      make(chan domain.Event, bufferSize),
		done:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		bufferSize:     bufferSize,
		publishTimeout: defaultPublishTimeout,
		handlerTimeout: defaultHandlerTimeout,
		log: log.With().
			Str(logging.FieldLayer, "adapter").
			Str(logging.FieldAdapter, "eventbus").
			Logger(),
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// SetMetrics sets the telemetry metrics for the event bus.
// Must be called before Start.
func (bus *InMemory) SetMetrics(m *telemetry.Metrics) {
	bus.mu.Lock()
	bus.metrics = m
	bus.mu.Unlock()
}

// Publish publishes an event to the bus.
func (bus *InMemory) Publish(eventType domain.EventType, payload any) error {
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      payload,
	}

	select {
	case <-bus.ctx.Done():
		return domain.ErrEventBusStopped
	default:
	}

	timer := time.NewTimer(bus.publishTimeout)
	defer timer.Stop()

	select {
	case bus.eventChan <- event:
		bus.log.Debug().
			Str("event_id", event.ID).
			Str(logging.FieldEvent, string(event.Type)).
			Msg("event published")
		return nil
	case <-bus.ctx.Done():
		return domain.ErrEventBusStopped
	case <-timer.C:
		bus.log.Error().
			Str("event_id", event.ID).
			Str(logging.FieldEvent, string(event.Type)).
			Dur("timeout", bus.publishTimeout).
			Msg("event channel is full, dropping event")

		if bus.metrics != nil {
			bus.metrics.RecordEventDropped(context.Background(), string(event.Type))
		}
		return fmt.Errorf("event channel is full, dropping event %s", event.ID)
	}
}

// Subscribe adds an event handler to the bus.
func (bus *InMemory) Subscribe(handler out.EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers = append(bus.handlers, handler)
	bus.log.Debug().
		Str(logging.FieldHandler, fmt.Sprintf("%T", handler)).
		Int("total_handlers", len(bus.handlers)).
		Msg("event handler subscribed")

	return nil
}

// Unsubscribe removes an event handler from the bus.
func (bus *InMemory) Unsubscribe(handler out.EventHandler) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, h := range bus.handlers {
		if h == handler {
			bus.handlers = append(bus.handlers[:i], bus.handlers[i+1:]...)
			bus.log.Debug().
				Str(logging.FieldHandler, fmt.Sprintf("%T", handler)).
				Int("total_handlers", len(bus.handlers)).
				Msg("event handler unsubscribed")
			return nil
		}
	}

	return domain.ErrHandlerNotFound
}

// Start starts the event bus processing loop.
func (bus *InMemory) Start() error {
	bus.log.Info().
		Int("buffer_size", bus.bufferSize).
		Msg("starting event bus")

	go bus.processEvents()
	return nil
}

// Stop stops the event bus.
func (bus *InMemory) Stop() error {
	bus.log.Info().Msg("stopping event bus")

	bus.cancel()

	select {
	case <-bus.done:
		bus.log.Info().Msg("event bus stopped")
		return nil
	case <-time.After(5 * time.Second):
		bus.log.Warn().Msg("event bus stop timeout")
		return fmt.Errorf("timeout waiting for event bus to stop")
	}
}

func (bus *InMemory) processEvents() {
	defer close(bus.done)

	for {
		select {
		case event := <-bus.eventChan:
			bus.handleEvent(event)
		case <-bus.ctx.Done():
			bus.log.Debug().Msg("event bus processing stopped")
			return
		}
	}
}

func (bus *InMemory) handleEvent(event domain.Event) {
	bus.mu.RLock()
	handlers := make([]out.EventHandler, len(bus.handlers))
	copy(handlers, bus.handlers)
	bus.mu.RUnlock()

	for _, h := range handlers {
		if !h.CanHandle(event.Type) {
			continue
		}

		log := bus.log.With().
			Str("event_id", event.ID).
			Str(logging.FieldEvent, string(event.Type)).
			Str(logging.FieldHandler, fmt.Sprintf("%T", h)).
			Logger()
		start := time.Now()

		ctx, cancel := context.WithTimeout(logging.WithCtx(bus.ctx, log), bus.handlerTimeout)

		done := make(chan error, 1)
		go func() {
			done <- h.Handle(ctx, event)
		}()

		select {
		case err := <-done:
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("error handling event")
				continue
			}
			log.Debug().
				Dur(logging.FieldDuration, time.Since(start)).
				Msg("event handled successfully")
			if bus.metrics != nil {
				bus.metrics.RecordEventProcessed(context.Background(), string(event.Type))
			}
		case <-ctx.Done():
			cancel()
			log.Warn().
				Dur(logging.FieldDuration, time.Since(start)).
				Msg("handler timed out")
		}
	}
}
