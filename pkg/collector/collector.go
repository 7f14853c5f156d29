package collector

import (
	"context"

	"github.com/tbrennan/chronicle/pkg/types"
)

// Sink receives every event a collector produces. The supervisor owns the
// one sink implementation in this module; tests use a simple closure.
type Sink func(types.Event)

// Collector is the contract every activity source implements. Run blocks
// until ctx is cancelled or a terminal error occurs; it must respond to
// cancellation within one poll period, matching the teacher's
// ticker+context.CancelFunc lifecycle in pkg/worker/health_monitor.go.
type Collector interface {
	// Name identifies the collector in logs and as an Event.Source value.
	Name() string
	// Run starts the collector's poll loop, delivering events to sink
	// until ctx is done. A returned error is logged by the supervisor and
	// does not bring down the other collectors.
	Run(ctx context.Context, sink Sink) error
}
