package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/arsteady/internal/domain/model"
	"github.com/okian/arsteady/pkg/logger"
	"github.com/okian/arsteady/pkg/metrics"
)

// Frame abstracts what the dispatcher reads off the queue.
type Frame = model.Frame

// Handler applies one frame.
type Handler interface {
	HandleFrame(ctx context.Context, f Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, f Frame) error

func (fn HandlerFunc) HandleFrame(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Queue defines how the dispatcher receives frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Frame
}

// Worker processes frames until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the frame in flight.
	Shutdown(ctx context.Context) error
}

// Dispatcher is a single worker that hands frames to a Handler one at a
// time, so frames for the same target are applied in queue order.
type Dispatcher struct {
	queue   Queue
	handler Handler
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, handler Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    queue,
		handler:  handler,
		name:     "dispatcher",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Run starts the worker loop.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	frames := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := d.process(ctx, f); err != nil {
				d.logger.Error(ctx, "error processing frame", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Shutdown stops the worker and waits for Run to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	select {
	case <-d.shutdown:
	default:
		close(d.shutdown)
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (d *Dispatcher) process(ctx context.Context, f Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	if err := d.handler.HandleFrame(ctx, f); err != nil {
		metrics.RecordFrameDropped("handler_error")
		return fmt.Errorf("frame %s for target %d: %w", f.EventID, f.TargetID, err)
	}
	if !f.TS.IsZero() {
		metrics.RecordFrameLatency(float64(time.Since(f.TS).Microseconds()) / 1000)
	}
	return nil
}
