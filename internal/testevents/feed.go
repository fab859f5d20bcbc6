package testevents

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/dextap/pkg/logger"
)

// Broadcaster delivers one frame to every connected subscriber and reports
// how many received it.
type Broadcaster interface {
	Broadcast(msg []byte) int
}

// Feed publishes generated frames at a fixed interval.
type Feed struct {
	gen      *Generator
	out      Broadcaster
	interval time.Duration

	sent      atomic.Uint64
	delivered atomic.Uint64

	logger logger.Logger
}

// NewFeed creates a feed. interval must be positive.
func NewFeed(gen *Generator, out Broadcaster, interval time.Duration) *Feed {
	return &Feed{
		gen:      gen,
		out:      out,
		interval: interval,
		logger:   logger.Get().Named("feed"),
	}
}

// Run publishes until ctx is canceled.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info(ctx, "starting synthetic feed", logger.Duration("interval", f.interval))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info(ctx, "synthetic feed stopped",
				logger.Any("sent", f.sent.Load()),
				logger.Any("delivered", f.delivered.Load()),
			)
			return nil
		case <-ticker.C:
			f.Publish(ctx)
		}
	}
}

// Publish generates and broadcasts one frame.
func (f *Feed) Publish(ctx context.Context) {
	tag, rec := f.gen.Next()
	n := f.out.Broadcast(rec.AppendJSON(nil))
	f.sent.Add(1)
	f.delivered.Add(uint64(n))
	f.logger.Debug(ctx, "published frame", logger.String("tag", tag), logger.Int("subscribers", n))
}

// Sent returns the number of frames generated.
func (f *Feed) Sent() uint64 { return f.sent.Load() }

// Delivered returns the number of per-subscriber deliveries.
func (f *Feed) Delivered() uint64 { return f.delivered.Load() }
