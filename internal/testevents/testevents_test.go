package testevents_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/dextap/internal/domain/classify"
	"github.com/okian/dextap/internal/domain/decode"
	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/internal/testevents"
	"github.com/okian/dextap/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const now = int64(1_700_000_000_000_000)

func TestGenerator(t *testing.T) {
	Convey("Given a generator on a fixed clock", t, func() {
		clock := latency.NewFixedClock(now)
		gen := testevents.NewGenerator(clock, testevents.WithMaxLag(120*time.Millisecond))

		Convey("When every kind is generated", func() {
			for _, kind := range testevents.Kinds() {
				frame := gen.Record(kind).AppendJSON(nil)

				record, err := jsonvalue.Parse(frame, 0)
				So(err, ShouldBeNil)
				decoded, stats, err := decode.New().DecodeWithStats(record, decode.Root())
				So(err, ShouldBeNil)
				c := classify.Classify(decoded)

				So(c.Tag, ShouldEqual, kind)
				So(c.IsUnknown(), ShouldBeFalse)
				So(stats.Fallbacks, ShouldEqual, 0)
				So(stats.Identifiers, ShouldBeGreaterThan, 0)

				up, ok := latency.UpstreamRecvUs(c.Payload)
				So(ok, ShouldBeTrue)
				So(up, ShouldBeLessThanOrEqualTo, now)
				So(up, ShouldBeGreaterThanOrEqualTo, now-120_000)

				if kind != testevents.BlockMeta {
					So(stats.Credentials, ShouldEqual, 1)
					sig, _ := c.Payload.Get("signature")
					text, _ := sig.Str()
					raw, err := decode.DecodeCredential(text)
					So(err, ShouldBeNil)
					So(raw, ShouldHaveLength, 64)
				}
			}
		})

		Convey("When the lag is zero", func() {
			gen := testevents.NewGenerator(clock, testevents.WithMaxLag(0))
			_, rec := gen.Next()
			payload := rec.Members()[0].Value
			up, _ := latency.UpstreamRecvUs(payload)

			Convey("Then the upstream stamp is the clock instant", func() {
				So(up, ShouldEqual, now)
			})
		})

		Convey("When restricted to one kind", func() {
			gen := testevents.NewGenerator(clock, testevents.WithKinds(testevents.OrcaWhirlpoolSwap))

			Convey("Then only that kind is produced", func() {
				for range 10 {
					tag, _ := gen.Next()
					So(tag, ShouldEqual, testevents.OrcaWhirlpoolSwap)
				}
			})
		})

		Convey("When slots advance", func() {
			first, _ := gen.Record(testevents.BlockMeta).Lookup(testevents.BlockMeta, "metadata", "slot")
			second, _ := gen.Record(testevents.BlockMeta).Lookup(testevents.BlockMeta, "metadata", "slot")
			a, _ := first.Int64()
			b, _ := second.Int64()

			Convey("Then each record gets the next slot", func() {
				So(b, ShouldEqual, a+1)
			})
		})
	})
}

type countingBroadcaster struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *countingBroadcaster) Broadcast(msg []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return 2
}

func (c *countingBroadcaster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestFeed(t *testing.T) {
	Convey("Given a feed publishing every millisecond", t, func() {
		out := &countingBroadcaster{}
		feed := testevents.NewFeed(testevents.NewGenerator(latency.NewMonotonicClock()), out, time.Millisecond)

		Convey("When it runs until a few frames are out", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- feed.Run(ctx) }()

			deadline := time.Now().Add(5 * time.Second)
			for out.count() < 3 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			cancel()
			err := <-done

			Convey("Then it stops cleanly and counts deliveries", func() {
				So(err, ShouldBeNil)
				So(feed.Sent(), ShouldBeGreaterThanOrEqualTo, 3)
				So(feed.Delivered(), ShouldEqual, 2*feed.Sent())
				So(out.count(), ShouldEqual, int(feed.Sent()))
			})

			Convey("Then every frame parses as a record", func() {
				out.mu.Lock()
				defer out.mu.Unlock()
				for _, msg := range out.msgs {
					rec, err := jsonvalue.Parse(msg, 0)
					So(err, ShouldBeNil)
					So(rec.Len(), ShouldEqual, 1)
				}
			})
		})
	})
}
