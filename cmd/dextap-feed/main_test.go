package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/okian/dextap/internal/domain/classify"
	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/testevents"
	"github.com/okian/dextap/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func Test_Serve_PublishesRecords(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, feedOptions{
			interval: 5 * time.Millisecond,
			maxLag:   10 * time.Millisecond,
			kinds:    []string{testevents.RaydiumAmmV4Swap},
		}, out)
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)

	rec, err := jsonvalue.Parse(data, 0)
	require.NoError(t, err)
	c := classify.Classify(rec)
	require.Equal(t, testevents.RaydiumAmmV4Swap, c.Tag)
	require.Equal(t, classify.ProtocolRaydiumAmmV4, c.Protocol)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.Contains(t, out.String(), "serving synthetic events on ws://"+ln.Addr().String())
	require.Contains(t, out.String(), "frames")
}

func Test_RootCmd_RejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero interval", []string{"--interval", "0s"}, "interval must be positive"},
		{"unknown kind", []string{"--kinds", "PumpFunTrade,Nope"}, `unknown kind "Nope"`},
		{"positional args", []string{"extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func Test_RootCmd_Defaults(t *testing.T) {
	cmd := newRootCmd()
	interval, err := cmd.Flags().GetDuration("interval")
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, interval)

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	require.Equal(t, ":9001", addr)
}
