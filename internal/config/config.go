// Package config defines process configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named by
// DEXTAP_CONFIG, then DEXTAP_* environment variables.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WSURL is the upstream event stream, ws:// or wss://.
	WSURL string `koanf:"ws_url"`

	// Addr configures the operational HTTP listen address, e.g. ":9090".
	// Empty disables the HTTP server.
	Addr string `koanf:"addr"`

	// QueueSize bounds the frames waiting between the reader and the worker.
	QueueSize int `koanf:"queue_size"`

	// MaxDepth bounds JSON nesting for parsing and decoding.
	MaxDepth int `koanf:"max_depth"`

	// DedupeSize enables duplicate suppression when positive.
	DedupeSize int `koanf:"dedupe_size"`

	// RecentSize is how many handled events GET /events can return.
	RecentSize int `koanf:"recent_size"`

	// Color and Pretty control the console renderer.
	Color  bool `koanf:"color"`
	Pretty bool `koanf:"pretty"`

	// Events restricts the console to these variant tags; empty shows all.
	// From the environment it is a comma separated list.
	Events []string `koanf:"events"`

	// Relay serves every handled event to WebSocket subscribers at /ws on Addr.
	Relay bool `koanf:"relay"`

	// ShutdownTimeoutMS bounds the drain of queued frames on exit.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// FeedAddr and FeedIntervalMS configure the synthetic feed server.
	FeedAddr       string `koanf:"feed_addr"`
	FeedIntervalMS int    `koanf:"feed_interval_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		WSURL:             "ws://127.0.0.1:9001",
		Addr:              ":9090",
		QueueSize:         4096,
		MaxDepth:          512,
		DedupeSize:        0,
		RecentSize:        256,
		Color:             true,
		Pretty:            true,
		ShutdownTimeoutMS: 5000,
		FeedAddr:          ":9001",
		FeedIntervalMS:    500,
	}
}
