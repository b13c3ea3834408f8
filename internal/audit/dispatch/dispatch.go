// Package dispatch decouples interception from persistence. Interceptors
// enqueue events onto a bounded channel and return immediately; a single
// worker drains the channel and hands events to the writer.
package dispatch

import (
	"context"
	"log/slog"

	"chronicle/internal/audit"
	"chronicle/internal/audit/metrics"
)

// Sink consumes drained events. Implemented by the writer.
type Sink interface {
	Write(ctx context.Context, ev audit.Event) *audit.Record
}

type Dispatcher struct {
	inbox   chan audit.Event
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

const DefaultQueueSize = 1024

func New(sink Sink, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		inbox:   make(chan audit.Event, queueSize),
		sink:    sink,
		logger:  logger,
		metrics: m,
	}
}

// Enqueue hands an event to the worker without blocking. When the queue is
// full the event is dropped and counted; the intercepted operation is never
// delayed or failed by audit logging.
func (d *Dispatcher) Enqueue(ev audit.Event) {
	select {
	case d.inbox <- ev:
		d.metrics.SetQueueDepth(len(d.inbox))
	default:
		d.metrics.IncDropped()
		d.logger.Warn("audit queue full, dropping event",
			"action", ev.Action,
			"endpoint", ev.Endpoint,
		)
	}
}

// Run drains the queue until ctx is cancelled, then flushes whatever is
// already buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		case ev := <-d.inbox:
			d.sink.Write(context.WithoutCancel(ctx), ev)
			d.metrics.SetQueueDepth(len(d.inbox))
		}
	}
}

// drain writes buffered events with a background context so records enqueued
// just before shutdown are not lost.
func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.inbox:
			d.sink.Write(context.Background(), ev)
		default:
			d.metrics.SetQueueDepth(0)
			return
		}
	}
}
