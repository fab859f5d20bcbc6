package service

import (
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the maximum number of frames waiting for the worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxDepth bounds nesting for both parsing and decoding.
func WithMaxDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithDedupeSize enables duplicate suppression keyed by tag and signature,
// remembering up to size events. Zero disables it.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecentSize sets how many handled events Recent can return.
func WithRecentSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.recentSize = size
		}
	}
}

// WithEventFilter restricts the sink to the given variant tags. Filtered
// events are still decoded, measured and counted.
func WithEventFilter(tags []string) Option {
	return func(s *Service) {
		if len(tags) == 0 {
			s.filter = nil
			return
		}
		s.filter = make(map[string]struct{}, len(tags))
		for _, t := range tags {
			s.filter[t] = struct{}{}
		}
	}
}

// WithClock sets the clock used to stamp frames decoded on demand.
func WithClock(clock latency.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSink sets where handled events are emitted.
func WithSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithBroadcaster relays every handled event, filtered or not, as one JSON
// message per event.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) {
		s.relay = b
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
