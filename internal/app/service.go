// Package service wires the decode pipeline: frames from the transport are
// queued, handled one at a time by a single worker, and emitted to a sink.
// It also implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/dextap/internal/adapters/mq/queue"
	"github.com/okian/dextap/internal/adapters/mq/worker"
	"github.com/okian/dextap/internal/domain/classify"
	"github.com/okian/dextap/internal/domain/decode"
	"github.com/okian/dextap/internal/domain/dedupe"
	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/internal/domain/model"
	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

// Sink receives every event that passes the filter, in arrival order.
type Sink interface {
	Emit(ctx context.Context, e model.Event) error
}

// Broadcaster relays rendered events to downstream subscribers.
type Broadcaster interface {
	Broadcast(msg []byte) int
}

type discardSink struct{}

func (discardSink) Emit(context.Context, model.Event) error { return nil }

// Service implements the frame pipeline and the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	decoder *decode.Decoder
	clock   latency.Clock
	sink    Sink
	relay   Broadcaster
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	worker  *worker.InMemoryWorker

	// Configuration
	queueSize  int
	maxDepth   int
	dedupeSize int
	recentSize int
	filter     map[string]struct{}

	// State
	started bool
	cancel  context.CancelFunc

	recentMu sync.Mutex
	recent   []model.Event
	next     int
	filled   bool

	received   atomic.Uint64
	malformed  atomic.Uint64
	handled    atomic.Uint64
	unknown    atomic.Uint64
	duplicates atomic.Uint64
	filtered   atomic.Uint64
	measured   atomic.Uint64
	skewed     atomic.Uint64
	tooDeep    atomic.Uint64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock:      latency.NewMonotonicClock(),
		sink:       discardSink{},
		queueSize:  4096,
		maxDepth:   jsonvalue.DefaultMaxDepth,
		recentSize: 256,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.decoder = decode.New(decode.WithMaxDepth(s.maxDepth))
	if s.dedupeSize > 0 {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.recent = make([]model.Event, s.recentSize)

	return s
}

// Start creates the queue and launches the single worker. The worker outlives
// ctx cancellation so that Stop can drain what is already queued.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting decode service...")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s, worker.WithLogger(s.logger))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.worker.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "decode service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxDepth", s.maxDepth),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("filter", len(s.filter)),
	)

	return nil
}

// Stop closes the queue, waits for queued frames to be handled, and stops the
// worker. ctx bounds the wait.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping decode service...")

	err := s.worker.Shutdown(ctx)
	s.cancel()
	s.started = false

	if err != nil {
		s.logger.Warn(ctx, "decode service stopped before draining", logger.Error(err))
		return fmt.Errorf("stop service: %w", err)
	}
	s.logger.Info(ctx, "decode service stopped",
		logger.Any("handled", s.handled.Load()),
		logger.Any("malformed", s.malformed.Load()),
	)
	return nil
}

// Enqueue hands a frame to the worker, waiting while the queue is full.
func (s *Service) Enqueue(ctx context.Context, f model.Frame) error {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}
	if err := q.Enqueue(ctx, f); err != nil {
		return fmt.Errorf("enqueue frame %d: %w", f.Seq, err)
	}
	return nil
}

// outcome is one frame run through parse, decode, classify and estimate.
type outcome struct {
	event   model.Event
	stats   decode.Stats
	tooDeep bool
}

func (s *Service) process(f model.Frame) (outcome, error) { //nolint:gocritic // hugeParam: Frame is passed by value like the queue does
	var out outcome

	record, err := jsonvalue.Parse(f.Data, s.maxDepth)
	var c classify.Classification
	switch {
	case errors.Is(err, jsonvalue.ErrTooDeep):
		out.tooDeep = true
		c = classify.Unclassified(jsonvalue.NullValue())
	case err != nil:
		return out, fmt.Errorf("frame %d: %w", f.Seq, err)
	default:
		decoded, stats, derr := s.decoder.DecodeWithStats(record, decode.Root())
		if derr != nil {
			out.tooDeep = true
			c = classify.Unclassified(record)
		} else {
			out.stats = stats
			c = classify.Classify(decoded)
		}
	}

	out.event = model.Event{
		Seq:      f.Seq,
		Tag:      c.Tag,
		Category: c.Category,
		Protocol: c.Protocol,
		Payload:  c.Payload,
		RecvUs:   f.RecvUs,
	}
	upstream, ok := latency.UpstreamRecvUs(c.Payload)
	if res, measured := latency.Estimate(f.RecvUs, upstream, ok); measured {
		out.event.Latency = &res
	}
	return out, nil
}

// HandleFrame runs the full pipeline for one frame. Malformed frames return
// an error; the worker logs it and moves on.
func (s *Service) HandleFrame(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam
	s.received.Add(1)
	start := time.Now()

	out, err := s.process(f)
	metrics.RecordDecodeDuration(float64(time.Since(start).Microseconds()))
	if err != nil {
		s.malformed.Add(1)
		metrics.RecordFrameMalformed()
		return err
	}

	e := out.event
	metrics.RecordDecoded(out.stats.Identifiers, out.stats.Credentials, out.stats.Fallbacks)
	if out.tooDeep {
		s.tooDeep.Add(1)
		metrics.RecordDepthExceeded()
		s.logger.Warn(ctx, "frame nested too deep, emitting as unknown", logger.Any("seq", f.Seq))
	}
	if out.stats.Fallbacks > 0 {
		s.logger.Debug(ctx, "byte array kept as decimals",
			logger.Any("seq", f.Seq),
			logger.Int("fallbacks", out.stats.Fallbacks),
		)
	}
	if l := e.Latency; l != nil {
		s.measured.Add(1)
		if l.ClockSkewSuspected {
			s.skewed.Add(1)
		}
		metrics.RecordLatency(l.DisplayUs, l.Tier.String(), l.ClockSkewSuspected)
	} else {
		metrics.RecordLatencyMissing()
	}
	if e.Category == classify.Unknown {
		s.unknown.Add(1)
	}
	metrics.RecordEvent(e.Category, string(e.Protocol))

	if s.deduper != nil && s.deduper.SeenAndRecord(ctx, dedupe.Key(e.Tag, e.Signature())) {
		s.duplicates.Add(1)
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping",
			logger.String("tag", e.Tag),
			logger.String("signature", e.Signature()),
		)
		return nil
	}

	s.remember(e)
	s.handled.Add(1)

	if s.relay != nil {
		s.relay.Broadcast(e.AppendJSON(nil))
	}

	if !s.accepts(e.Tag) {
		s.filtered.Add(1)
		metrics.RecordFrameFiltered()
		return nil
	}
	if err := s.sink.Emit(ctx, e); err != nil {
		return fmt.Errorf("emit event %d: %w", e.Seq, err)
	}
	return nil
}

// DecodeFrame runs parse, decode, classify and estimate on data without
// counting, deduplicating or emitting it. Receipt is stamped now.
func (s *Service) DecodeFrame(data []byte) (model.Event, error) {
	out, err := s.process(model.Frame{Data: data, RecvUs: s.clock.NowMicros()})
	if err != nil {
		return model.Event{}, err
	}
	return out.event, nil
}

func (s *Service) accepts(tag string) bool {
	if len(s.filter) == 0 {
		return true
	}
	_, ok := s.filter[tag]
	return ok
}

func (s *Service) remember(e model.Event) { //nolint:gocritic // hugeParam
	if len(s.recent) == 0 {
		return
	}
	s.recentMu.Lock()
	s.recent[s.next] = e
	s.next = (s.next + 1) % len(s.recent)
	if s.next == 0 {
		s.filled = true
	}
	s.recentMu.Unlock()
}

// Recent returns up to n of the latest handled events, oldest first.
func (s *Service) Recent(n int) []model.Event {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()

	size := s.next
	if s.filled {
		size = len(s.recent)
	}
	n = min(n, size)
	if n <= 0 {
		return nil
	}

	out := make([]model.Event, n)
	start := s.next - n
	if start < 0 {
		start += len(s.recent)
	}
	for i := range out {
		out[i] = s.recent[(start+i)%len(s.recent)]
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"queueSize":       s.queueSize,
		"maxDepth":        s.maxDepth,
		"framesReceived":  s.received.Load(),
		"framesMalformed": s.malformed.Load(),
		"eventsHandled":   s.handled.Load(),
		"eventsUnknown":   s.unknown.Load(),
		"eventsDuplicate": s.duplicates.Load(),
		"eventsFiltered":  s.filtered.Load(),
		"latencyMeasured": s.measured.Load(),
		"clockSkew":       s.skewed.Load(),
		"depthExceeded":   s.tooDeep.Load(),
		"dedupeSize":      s.dedupeSize,
		"dedupeEntries":   int64(0),
		"filterTags":      len(s.filter),
	}
	if s.deduper != nil {
		stats["dedupeEntries"] = s.deduper.Size()
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}
