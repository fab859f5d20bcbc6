// Package ws carries event frames over WebSocket: a Client that reads the
// upstream feed and a Hub that fans frames out to subscribers.
package ws

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/internal/domain/model"
	"github.com/okian/dextap/pkg/logger"
	"github.com/okian/dextap/pkg/metrics"
)

const (
	// Time allowed to write a control message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer.
	defaultPongWait = 60 * time.Second
)

// FrameSink receives frames in arrival order.
type FrameSink interface {
	Enqueue(ctx context.Context, f model.Frame) error
}

// Client reads text frames from one upstream WebSocket and hands each to a
// FrameSink, stamped with the local receive instant. It does not reconnect.
type Client struct {
	url      string
	sink     FrameSink
	clock    latency.Clock
	dialer   *websocket.Dialer
	pongWait time.Duration
	seq      atomic.Uint64
	logger   logger.Logger
}

// NewClient creates a client for url.
func NewClient(url string, sink FrameSink, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		sink:     sink,
		clock:    latency.NewMonotonicClock(),
		dialer:   websocket.DefaultDialer,
		pongWait: defaultPongWait,
		logger:   logger.Get().Named("ws-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Delivered returns how many frames were handed to the sink.
func (c *Client) Delivered() uint64 { return c.seq.Load() }

// Run connects and delivers frames until ctx is done or the connection
// drops. It returns nil when ctx ends it.
func (c *Client) Run(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		metrics.RecordConnectionEvent("dial_failed")
		return fmt.Errorf("%w: %s: %w", ErrDial, c.url, err)
	}
	metrics.RecordConnectionEvent("open")
	c.logger.Info(ctx, "connected to feed", logger.String("url", c.url))

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.pingLoop(connCtx, conn)
	go func() {
		<-connCtx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}()

	err = c.readLoop(connCtx, conn)
	if ctx.Err() != nil {
		metrics.RecordConnectionEvent("closed")
		c.logger.Info(ctx, "feed connection closed", logger.Any("frames", c.Delivered()))
		return nil
	}

	metrics.RecordConnectionEvent("lost")
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info(ctx, "feed closed by peer", logger.Error(err))
	} else {
		c.logger.Warn(ctx, "feed connection lost", logger.Error(err))
	}
	return fmt.Errorf("%w: %w", ErrConnectionLost, err)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		recvUs := c.clock.NowMicros()
		if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return err
		}

		if mt != websocket.TextMessage {
			metrics.RecordErrorByComponent("ws", "non_text_frame")
			continue
		}

		metrics.RecordFrameReceived(len(data))
		f := model.Frame{Seq: c.seq.Add(1), Data: data, RecvUs: recvUs}
		if err := c.sink.Enqueue(ctx, f); err != nil {
			return fmt.Errorf("enqueue frame %d: %w", f.Seq, err)
		}
	}
}

// pingLoop keeps the connection alive; a missing pong trips the read deadline.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug(ctx, "failed to send ping", logger.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
