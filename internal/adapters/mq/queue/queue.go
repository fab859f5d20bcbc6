// Package queue hands frames from the transport reader to the single
// consumer that decodes them, preserving arrival order.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/dextap/internal/domain/model"
	"github.com/okian/dextap/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
)

// Frame is the payload type flowing through the queue.
type Frame = model.Frame

// Queue is a bounded FIFO of frames.
type Queue interface {
	// Enqueue waits for room, ctx cancellation or Close.
	Enqueue(ctx context.Context, f Frame) error

	// TryEnqueue adds f only if there is room right now.
	TryEnqueue(f Frame) error

	// Dequeue returns a channel that receives frames in order. The channel
	// is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Frame

	// Len returns the current number of queued frames.
	Len() int

	// Close stops accepting frames; queued frames remain readable.
	Close() error

	IsClosed() bool
}

type item struct {
	frame Frame
	at    time.Time
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan item
	capacity int

	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a frame, blocking while the queue is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return q.reject("closed", ErrClosed)
	}

	select {
	case q.items <- item{frame: f, at: time.Now()}:
		q.accepted()
		return nil
	case <-ctx.Done():
		return q.reject("context_cancelled", ctx.Err())
	case <-q.done:
		return q.reject("closed", ErrClosed)
	}
}

// TryEnqueue adds a frame without waiting.
func (q *InMemoryQueue) TryEnqueue(f Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return q.reject("closed", ErrClosed)
	}

	select {
	case q.items <- item{frame: f, at: time.Now()}:
		q.accepted()
		return nil
	default:
		return q.reject("queue_full", ErrFull)
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	q.updateGauges()
}

func (q *InMemoryQueue) reject(reason string, err error) error {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
	return err
}

func (q *InMemoryQueue) updateGauges() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns a channel that receives frames as they become available.
// Only one consumer should read it; a second reader would break ordering.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go func() {
		defer close(out)
		for it := range q.items {
			select {
			case out <- it.frame:
				metrics.RecordQueueDequeue()
				metrics.RecordQueueWait(float64(time.Since(it.at).Microseconds()))
				q.updateGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	// Release blocked producers before taking the write lock they hold as readers.
	q.closeOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
