package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/pkg/logger"
)

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithClock sets the clock used to stamp frame receipt.
func WithClock(clock latency.Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithDialer replaces the gorilla dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithPongWait sets how long the connection may stay silent; pings go out
// at nine tenths of it.
func WithPongWait(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.pongWait = d
		}
	}
}

// WithClientLogger sets a custom logger for the client.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// HubOption applies a configuration option to the Hub.
type HubOption func(*Hub)

// WithClientBuffer sets how many messages may wait for a slow client before
// it is dropped.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.clientBuffer = n
		}
	}
}

// WithHubLogger sets a custom logger for the hub.
func WithHubLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
