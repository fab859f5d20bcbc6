// Package console prints decoded events for a human watching the stream.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/okian/dextap/internal/domain/classify"
	"github.com/okian/dextap/internal/domain/latency"
	"github.com/okian/dextap/internal/domain/model"
)

const ruleWidth = 80

// Renderer writes one block per event. It is safe for concurrent use, though
// the decoder calls it from a single goroutine.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	pretty bool

	rule   *color.Color
	dim    *color.Color
	label  *color.Color
	fast   *color.Color
	medium *color.Color
	slow   *color.Color
}

// New creates a renderer writing to out.
func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:    out,
		pretty: true,
		rule:   color.New(color.FgHiBlack),
		dim:    color.New(color.FgHiBlack),
		label:  color.New(color.FgCyan, color.Bold),
		fast:   color.New(color.FgGreen),
		medium: color.New(color.FgYellow),
		slow:   color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) setColor(on bool) {
	for _, c := range []*color.Color{r.rule, r.dim, r.label, r.fast, r.medium, r.slow} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Emit renders e. In compact mode it writes one JSON line instead.
func (r *Renderer) Emit(_ context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value across the sink boundary
	var b strings.Builder
	if r.pretty {
		r.block(&b, e)
	} else {
		b.Write(e.AppendJSON(nil))
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return fmt.Errorf("write event %d: %w", e.Seq, err)
	}
	return nil
}

func (r *Renderer) block(b *strings.Builder, e model.Event) { //nolint:gocritic // hugeParam
	rule := strings.Repeat("=", ruleWidth)

	r.rule.Fprintln(b, rule)
	fmt.Fprintf(b, "📊 New Event Received: %s\n", time.UnixMicro(e.RecvUs).UTC().Format(time.RFC3339Nano))

	if l := e.Latency; l != nil {
		if l.ClockSkewSuspected {
			r.dim.Fprintf(b, "⚠️  Raw latency was negative: %d μs (likely clock skew)\n", l.RawUs)
		}
		fmt.Fprintf(b, "⏱️  Upstream Receive Time: %d μs\n", l.UpstreamRecvUs)
		fmt.Fprintf(b, "⏱️  Local Receive Time: %d μs\n", l.LocalRecvUs)
		r.tierColor(l.Tier).Fprintf(b, "⚡ Total Latency: %s ms (%d μs)\n", l.Millis(), l.DisplayUs)
	}

	r.rule.Fprintln(b, rule)

	if e.Category == classify.Unknown {
		r.label.Fprintf(b, "❓ Unknown Event Type")
		if e.Tag != classify.Unknown {
			fmt.Fprintf(b, " (%s)", e.Tag)
		}
		b.WriteByte('\n')
	} else {
		r.label.Fprintf(b, "Event Type: %s\n", e.Label())
	}
	b.Write(e.Payload.Indent())
	b.WriteString("\n\n")
}

func (r *Renderer) tierColor(t latency.Tier) *color.Color {
	switch t {
	case latency.Fast:
		return r.fast
	case latency.Medium:
		return r.medium
	default:
		return r.slow
	}
}
