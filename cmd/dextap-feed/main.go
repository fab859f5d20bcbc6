// Command dextap-feed serves synthetic event records over WebSocket so the
// decoder can be exercised without an upstream stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/okian/dextap/internal/adapters/ws"
	"github.com/okian/dextap/internal/config"
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/internal/testevents"
	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// feedOptions are the resolved command-line settings.
type feedOptions struct {
	addr     string
	interval time.Duration
	maxLag   time.Duration
	kinds    []string
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.New()
	if cfg, err := config.Load(context.Background()); err == nil {
		defaults = cfg
	}

	opts := feedOptions{}
	cmd := &cobra.Command{
		Use:   "dextap-feed",
		Short: color.GreenString("📡 dextap-feed - synthetic event stream"),
		Long: color.BlueString(`dextap-feed serves randomly generated event records over WebSocket.

Each record carries one variant tag, 32-byte keys and a 64-byte signature as
raw byte arrays, and metadata.grpc_recv_us stamped from the local clock minus
a random lag. Point dextap at ws://<addr>/ to decode them.`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", opts.interval)
			}
			for _, k := range opts.kinds {
				if !isKind(k) {
					return fmt.Errorf("unknown kind %q", k)
				}
			}

			ln, err := net.Listen("tcp", opts.addr)
			if err != nil {
				color.Red("❌ listen on %s: %v", opts.addr, err)
				return err
			}
			return serve(cmd.Context(), ln, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.addr, "addr", "a", defaults.FeedAddr, "listen address")
	flags.DurationVarP(&opts.interval, "interval", "i",
		time.Duration(defaults.FeedIntervalMS)*time.Millisecond, "time between frames")
	flags.DurationVar(&opts.maxLag, "max-lag", 150*time.Millisecond, "largest simulated upstream delay")
	flags.StringSliceVarP(&opts.kinds, "kinds", "k", nil, "variant tags to generate (default all)")

	return cmd
}

func isKind(k string) bool {
	for _, known := range testevents.Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// serve runs the hub on ln and publishes frames until ctx ends.
func serve(ctx context.Context, ln net.Listener, opts feedOptions, out io.Writer) error {
	log := logger.Get().Named("feed")

	hub := ws.NewHub(ws.WithHubLogger(log))
	mux := http.NewServeMux()
	mux.Handle("/", hub)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	genOpts := []testevents.Option{testevents.WithMaxLag(opts.maxLag)}
	if len(opts.kinds) > 0 {
		genOpts = append(genOpts, testevents.WithKinds(opts.kinds...))
	}
	feed := testevents.NewFeed(testevents.NewGenerator(latency.NewMonotonicClock(), genOpts...), hub, opts.interval)

	fmt.Fprintln(out, color.GreenString("🌿 serving synthetic events on ws://%s/", ln.Addr()))
	fmt.Fprintln(out, color.CyanString("   every %s, lag up to %s", opts.interval, opts.maxLag))

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	feedDone := make(chan error, 1)
	go func() { feedDone <- feed.Run(feedCtx) }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		log.Error(ctx, "feed server failed", logger.Error(err))
	}
	cancel()
	<-feedDone

	_ = hub.Close()
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer stop()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn(ctx, "feed server shutdown failed", logger.Error(shutdownErr))
	}

	fmt.Fprintln(out, color.YellowString("👋 sent %d frames, %d deliveries", feed.Sent(), feed.Delivered()))
	return err
}
