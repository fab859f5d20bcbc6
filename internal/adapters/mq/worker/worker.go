// Package worker drains the frame queue on a single goroutine so that frames
// are handled one at a time, in arrival order.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/dextap/internal/domain/model"
	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

// Frame abstracts what workers read off the queue.
type Frame = model.Frame

// Handler processes one frame. Errors are logged and counted; they never stop
// the worker.
type Handler interface {
	HandleFrame(ctx context.Context, f Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, f Frame) error

// HandleFrame calls fn.
func (fn HandlerFunc) HandleFrame(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Queue defines how workers receive frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Frame
}

// Worker processes frames.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the frames already queued are handled.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing frames.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	processed atomic.Uint64
	failed    atomic.Uint64

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.drain(ctx, frames)
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			w.process(ctx, f)
		}
	}
}

// drain handles whatever is still buffered, then returns. The queue must be
// closed for the channel to end.
func (w *InMemoryWorker) drain(ctx context.Context, frames <-chan Frame) {
	for f := range frames {
		w.process(ctx, f)
	}
}

func (w *InMemoryWorker) process(ctx context.Context, f Frame) { //nolint:gocritic // hugeParam: Frame is passed by value for channel semantics
	w.processed.Add(1)
	if err := w.handler.HandleFrame(ctx, f); err != nil {
		w.failed.Add(1)
		metrics.RecordErrorByComponent("worker", "handle_failed")
		w.logger.Error(ctx, "error handling frame",
			logger.Any("seq", f.Seq),
			logger.Int("bytes", len(f.Data)),
			logger.Error(err),
		)
	}
}

// Shutdown gracefully stops the worker. If the queue can be closed it is
// closed first, so buffered frames are drained before Run returns.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	if closer, ok := w.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			w.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many frames were handled, including failures.
func (w *InMemoryWorker) Processed() uint64 { return w.processed.Load() }

// Failed returns how many frames the handler rejected.
func (w *InMemoryWorker) Failed() uint64 { return w.failed.Load() }
