package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/dextap/internal/domain/model"
)

func frame(seq uint64) model.Frame {
	return model.Frame{Seq: seq, Data: []byte(`{"PumpFunTrade":{}}`), RecvUs: int64(seq)}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, frame(1)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	f := <-q.Dequeue(ctx)
	if f.Seq != 1 {
		t.Errorf("expected seq 1, got %d", f.Seq)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))

	if err := q.TryEnqueue(frame(1)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if err := q.TryEnqueue(frame(2)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if err := q.TryEnqueue(frame(3)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_EnqueueWaitsForRoom(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, frame(1)); err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() { result <- q.Enqueue(ctx, frame(2)) }()

	select {
	case err := <-result:
		t.Fatalf("expected enqueue to block, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	frames := q.Dequeue(ctx)
	if f := <-frames; f.Seq != 1 {
		t.Errorf("expected seq 1, got %d", f.Seq)
	}
	if err := <-result; err != nil {
		t.Errorf("expected blocked enqueue to succeed, got %v", err)
	}
	if f := <-frames; f.Seq != 2 {
		t.Errorf("expected seq 2, got %d", f.Seq)
	}
}

func TestInMemoryQueue_EnqueueCancelled(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	if err := q.TryEnqueue(frame(1)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, frame(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_CloseReleasesBlockedProducer(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	if err := q.TryEnqueue(frame(1)); err != nil {
		t.Fatal(err)
	}

	result := make(chan error, 1)
	go func() { result <- q.Enqueue(context.Background(), frame(2)) }()
	time.Sleep(20 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked producer was not released by Close")
	}
}

func TestInMemoryQueue_OrderPreserved(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()
	const total = 200

	go func() {
		for i := uint64(1); i <= total; i++ {
			if err := q.Enqueue(ctx, frame(i)); err != nil {
				t.Errorf("enqueue %d: %v", i, err)
				return
			}
		}
		_ = q.Close()
	}()

	want := uint64(1)
	for f := range q.Dequeue(ctx) {
		if f.Seq != want {
			t.Fatalf("expected seq %d, got %d", want, f.Seq)
		}
		want++
	}
	if want != total+1 {
		t.Errorf("expected %d frames, got %d", total, want-1)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := uint64(1); i <= 2; i++ {
		if err := q.Enqueue(ctx, frame(i)); err != nil {
			t.Fatal(err)
		}
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, frame(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}
	if err := q.TryEnqueue(frame(3)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Queued frames drain before the channel closes.
	var got []uint64
	for f := range q.Dequeue(ctx) {
		got = append(got, f.Seq)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
