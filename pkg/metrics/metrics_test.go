package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names carry the namespace, subsystem and prefix", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				manager.framesReceived.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_test_frames_received_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options receive empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithCustomLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "dextap")
				So(manager.subsystem, ShouldEqual, "decoder")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording stream metrics", func() {
			before := testutil.ToFloat64(globalManager.framesReceived)
			bytesBefore := testutil.ToFloat64(globalManager.wsBytesReceived)
			RecordFrameReceived(128)
			RecordFrameReceived(64)

			Convey("Then frame and byte counters advance", func() {
				So(testutil.ToFloat64(globalManager.framesReceived)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.wsBytesReceived)-bytesBefore, ShouldEqual, 192)
			})
		})

		Convey("When recording events by tag", func() {
			c := globalManager.eventsByTag.WithLabelValues("PumpFunTrade", "PumpFunTrade")
			before := testutil.ToFloat64(c)
			RecordEvent("PumpFunTrade", "pumpfun")

			Convey("Then the labelled counter advances", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 1)
			})
		})

		Convey("When recording decoder counts", func() {
			ids := testutil.ToFloat64(globalManager.identifiersDecoded)
			creds := testutil.ToFloat64(globalManager.credentialsDecoded)
			falls := testutil.ToFloat64(globalManager.encodeFallbacks)
			RecordDecoded(3, 1, 0)

			Convey("Then each counter advances by its share", func() {
				So(testutil.ToFloat64(globalManager.identifiersDecoded)-ids, ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.credentialsDecoded)-creds, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.encodeFallbacks)-falls, ShouldEqual, 0)
			})
		})

		Convey("When recording latency", func() {
			skew := testutil.ToFloat64(globalManager.clockSkew)
			medium := globalManager.latencyTier.WithLabelValues("medium")
			mediumBefore := testutil.ToFloat64(medium)
			RecordLatency(50_000, "medium", false)
			RecordLatency(0, "fast", true)

			Convey("Then tier, skew and last-latency reflect the observations", func() {
				So(testutil.ToFloat64(medium)-mediumBefore, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.clockSkew)-skew, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.lastLatencyMicro), ShouldEqual, 0)
			})
		})

		Convey("When recording operational metrics", func() {
			So(func() {
				RecordFrameMalformed()
				RecordFrameFiltered()
				RecordEventDuplicate()
				RecordDecodeDuration(12.5)
				RecordDepthExceeded()
				RecordLatencyMissing()
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueWait(40)
				RecordConnectionEvent("open")
				UpdateHubClients(2)
				RecordHubBroadcast()
				RecordHubDroppedClient()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1.5)
				RecordErrorByComponent("service", "malformed_frame")
				UpdateSystemMemoryUsage(1024 * 1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
			So(testutil.ToFloat64(globalManager.hubClients), ShouldEqual, 2)
		})
	})
}

func TestRegistryExposition(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordFrameReceived(1)

		Convey("When served over promhttp", func() {
			rec := httptest.NewRecorder()
			promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

			Convey("Then decoder metrics are exposed without default Go collectors", func() {
				body := rec.Body.String()
				So(body, ShouldContainSubstring, "dextap_decoder_frames_received_total")
				So(strings.Contains(body, "go_goroutines"), ShouldBeFalse)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordFrameReceived(j)
					UpdateQueueSize(j)
					RecordLatency(int64(j), "fast", false)
					RecordHTTPRequest("/stats", "GET", "200")
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		So(true, ShouldBeTrue)
	})
}
