package out

import "context"

// Metrics defines the instruments use cases report to.
type Metrics interface {
	// RecordServerWrite counts a registry mutation and whether it failed.
	RecordServerWrite(ctx context.Context, op string, err error)

	// RecordEngineEvent counts an engine event published to the bus.
	RecordEngineEvent(ctx context.Context, kind string)

	// RecordEngineReconnect counts a watcher (re)connection attempt.
	RecordEngineReconnect(ctx context.Context, err error)
}
