// Package worker moves committed events from the queue to the
// registered notification sinks.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/rackline/ladder/internal/adapters/notify"
	"github.com/rackline/ladder/internal/domain/model"
	"github.com/rackline/ladder/pkg/logger"
	"github.com/rackline/ladder/pkg/metrics"
)

// Default dispatcher configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what dispatchers read off the queue.
type Event = model.Event

// Queue defines how dispatchers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Dispatcher drains the queue and delivers each event to every sink.
type Dispatcher struct {
	queue Queue
	sinks []notify.Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, sinks []notify.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    queue,
		sinks:    sinks,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}
	return d
}

// Run starts the dispatch loop until the context is cancelled, the
// dispatcher is shut down, or the queue closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	events := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			d.dispatch(ctx, event)
		}
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// dispatch delivers one event to every sink. A sink failure is logged
// and counted but does not stop delivery to the remaining sinks.
func (d *Dispatcher) dispatch(ctx context.Context, event Event) {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	}()

	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, event); err != nil {
			metrics.RecordDispatchError(sink.Name())
			d.logger.Error(ctx, "sink delivery failed",
				logger.String("sink", sink.Name()),
				logger.String("event_id", event.ID),
				logger.String("kind", string(event.Kind)),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordEventDispatched(sink.Name())
	}
}

// Pool manages multiple dispatchers draining the same queue.
type Pool struct {
	dispatchers []*Dispatcher
	queue       Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a dispatcher pool.
func NewPool(workerCount int, queue Queue, sinks []notify.Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		dispatchers: make([]*Dispatcher, workerCount),
		queue:       queue,
		shutdown:    make(chan struct{}),
		logger:      logger.Get().Named("dispatch-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.dispatchers[i] = NewDispatcher(
			queue,
			sinks,
			WithName("dispatcher-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateDispatchWorkerCount(workerCount)
	return pool
}

// Start starts all dispatchers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, d := range p.dispatchers {
		go d.Run(ctx)
	}
}

// Stop stops all dispatchers without draining the queue.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, d := range p.dispatchers {
		close(d.shutdown)
	}
	for _, d := range p.dispatchers {
		select {
		case <-d.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue so in-flight events drain, then waits for
// every dispatcher to finish or the timeout to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, d := range p.dispatchers {
		select {
		case <-d.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "dispatcher shutdown timed out", logger.Int("dispatcher_id", i))
		}
	}
	return nil
}
