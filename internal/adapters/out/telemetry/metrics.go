package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds dispatch OTel metric instruments.
type Metrics struct {
	// Registry
	ServerWrites      metric.Int64Counter
	ServerWriteErrors metric.Int64Counter

	// Engine
	EngineEvents     metric.Int64Counter
	EngineReconnects metric.Int64Counter

	// Events
	EventsProcessed metric.Int64Counter
	EventsDropped   metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter. Instruments
// created before NewProvider installs a MeterProvider are forwarded to it.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("dispatch")
	m := &Metrics{}
	var err error

	if m.ServerWrites, err = meter.Int64Counter("dispatch.server.writes",
		metric.WithDescription("Total server registry writes")); err != nil {
		return nil, err
	}
	if m.ServerWriteErrors, err = meter.Int64Counter("dispatch.server.write_errors",
		metric.WithDescription("Failed server registry writes")); err != nil {
		return nil, err
	}
	if m.EngineEvents, err = meter.Int64Counter("dispatch.engine.events",
		metric.WithDescription("Engine events published to the bus")); err != nil {
		return nil, err
	}
	if m.EngineReconnects, err = meter.Int64Counter("dispatch.engine.reconnects",
		metric.WithDescription("Engine connection attempts")); err != nil {
		return nil, err
	}
	if m.EventsProcessed, err = meter.Int64Counter("dispatch.events.processed",
		metric.WithDescription("Total events processed")); err != nil {
		return nil, err
	}
	if m.EventsDropped, err = meter.Int64Counter("dispatch.events.dropped",
		metric.WithDescription("Total events dropped")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordServerWrite counts a registry mutation.
func (m *Metrics) RecordServerWrite(ctx context.Context, op string, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.ServerWrites.Add(ctx, 1, attrs)
	if err != nil {
		m.ServerWriteErrors.Add(ctx, 1, attrs)
	}
}

// RecordEngineEvent counts an engine event by kind.
func (m *Metrics) RecordEngineEvent(ctx context.Context, kind string) {
	m.EngineEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordEngineReconnect counts a connection attempt and its outcome.
func (m *Metrics) RecordEngineReconnect(ctx context.Context, err error) {
	m.EngineReconnects.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// RecordEventProcessed counts a handled bus event.
func (m *Metrics) RecordEventProcessed(ctx context.Context, eventType string) {
	m.EventsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordEventDropped counts a bus event that could not be queued.
func (m *Metrics) RecordEventDropped(ctx context.Context, eventType string) {
	m.EventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
