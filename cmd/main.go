package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/dextap/internal/adapters/console"
	"github.com/okian/dextap/internal/adapters/http/api"
	"github.com/okian/dextap/internal/adapters/http/swagger"
	"github.com/okian/dextap/internal/adapters/ws"
	app "github.com/okian/dextap/internal/app"
	"github.com/okian/dextap/internal/config"
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		stop()
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	err = run(ctx, cfg, os.Stdout)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run decodes the configured stream until ctx ends or the connection is
// lost, then drains queued frames. Events are rendered to stdout.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	loggerInstance := logger.Get()
	clock := latency.NewMonotonicClock()

	var hub *ws.Hub
	if cfg.Relay {
		hub = ws.NewHub(ws.WithHubLogger(loggerInstance.Named("relay")))
		defer func() { _ = hub.Close() }()
	}

	svc := newService(cfg, clock, stdout, hub)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	var srv *http.Server
	if cfg.Addr != "" {
		srv = newHTTPServer(cfg.Addr, svc, hub)
		go func() {
			loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			}
		}()
	}

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(ctx, svc, metrics.RefreshInterval())

	client := ws.NewClient(cfg.WSURL, svc,
		ws.WithClock(clock),
		ws.WithClientLogger(loggerInstance.Named("ws")),
	)
	loggerInstance.Info(ctx, "connecting to event stream", logger.String("url", cfg.WSURL))
	streamErr := client.Run(ctx)
	if streamErr != nil {
		loggerInstance.Error(ctx, "event stream ended", logger.Error(streamErr))
	} else {
		loggerInstance.Info(ctx, "shutting down...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
		time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
		}
	}

	loggerInstance.Info(ctx, "stopped", logger.Any("delivered", client.Delivered()))
	return streamErr
}

func newService(cfg *config.Config, clock latency.Clock, stdout io.Writer, hub *ws.Hub) *app.Service {
	opts := []app.Option{
		app.WithLogger(logger.Get().Named("service")),
		app.WithClock(clock),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxDepth(cfg.MaxDepth),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRecentSize(cfg.RecentSize),
		app.WithEventFilter(cfg.Events),
		app.WithSink(console.New(stdout,
			console.WithColor(cfg.Color),
			console.WithPretty(cfg.Pretty),
		)),
	}
	if hub != nil {
		opts = append(opts, app.WithBroadcaster(hub))
	}
	return app.New(opts...)
}

func newHTTPServer(addr string, svc *app.Service, hub *ws.Hub) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, 0).Register(mux)
	swagger.Register(mux)
	if hub != nil {
		mux.Handle("/ws", hub)
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater periodically samples runtime metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically refreshes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// GetStats refreshes the queue gauge while the service runs.
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
