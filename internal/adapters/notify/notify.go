// Package notify delivers engine events to interested parties: connected
// websocket clients, the structured log, and whatever else registers a
// sink.
package notify

import (
	"context"

	"github.com/rackline/ladder/internal/domain/model"
)

// Sink receives events after the corresponding state transition has
// committed. Implementations must tolerate redelivery and must not
// block for long; slow sinks hold up a dispatcher goroutine.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Deliver hands one event to the sink.
	Deliver(ctx context.Context, e model.Event) error
}
