package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/dextap/internal/adapters/mq/queue"
	worker "github.com/okian/dextap/internal/adapters/mq/worker"
	model "github.com/okian/dextap/internal/domain/model"
	logging "github.com/okian/dextap/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type recordingHandler struct {
	mu    sync.Mutex
	seqs  []uint64
	fail  map[uint64]error
	delay time.Duration
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{fail: make(map[uint64]error)}
}

func (h *recordingHandler) HandleFrame(_ context.Context, f model.Frame) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seqs = append(h.seqs, f.Seq)
	return h.fail[f.Seq]
}

func (h *recordingHandler) handled() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint64(nil), h.seqs...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading a frame queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		h := newRecordingHandler()
		w := worker.NewInMemoryWorker(q, h, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When frames are enqueued", func() {
			for i := uint64(1); i <= 5; i++ {
				convey.So(q.Enqueue(ctx, model.Frame{Seq: i}), convey.ShouldBeNil)
			}

			convey.Convey("Then each is handled once, in order", func() {
				convey.So(waitFor(func() bool { return len(h.handled()) == 5 }), convey.ShouldBeTrue)
				convey.So(h.handled(), convey.ShouldResemble, []uint64{1, 2, 3, 4, 5})
				convey.So(w.Processed(), convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When the handler fails on a frame", func() {
			h.mu.Lock()
			h.fail[2] = errors.New("bad frame")
			h.mu.Unlock()

			for i := uint64(1); i <= 3; i++ {
				convey.So(q.Enqueue(ctx, model.Frame{Seq: i}), convey.ShouldBeNil)
			}

			convey.Convey("Then the worker keeps going", func() {
				convey.So(waitFor(func() bool { return len(h.handled()) == 3 }), convey.ShouldBeTrue)
				convey.So(w.Failed(), convey.ShouldEqual, 1)
				convey.So(w.Processed(), convey.ShouldEqual, 3)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a worker with a backlog", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		h := newRecordingHandler()
		h.delay = 5 * time.Millisecond
		w := worker.NewInMemoryWorker(q, h)

		for i := uint64(1); i <= 10; i++ {
			convey.So(q.TryEnqueue(model.Frame{Seq: i}), convey.ShouldBeNil)
		}
		go w.Run(context.Background())

		convey.Convey("When shutting down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then the backlog is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(h.handled()), convey.ShouldEqual, 10)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a worker stuck in its handler", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		block := make(chan struct{})
		defer close(block)
		w := worker.NewInMemoryWorker(q, worker.HandlerFunc(func(context.Context, model.Frame) error {
			<-block
			return nil
		}))
		convey.So(q.TryEnqueue(model.Frame{Seq: 1}), convey.ShouldBeNil)
		go w.Run(context.Background())
		time.Sleep(20 * time.Millisecond)

		convey.Convey("When the shutdown deadline passes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})
}
