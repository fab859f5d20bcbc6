// Package latency measures end-to-end delay between an upstream receive
// timestamp and local receipt.
package latency

import (
	"github.com/shopspring/decimal"

	"github.com/okian/dextap/internal/domain/jsonvalue"
)

// Tier boundaries in microseconds; each tier includes its lower bound.
const (
	MediumThresholdUs int64 = 50_000
	SlowThresholdUs   int64 = 100_000
)

// Tier is the severity bucket of a displayed latency.
type Tier int

const (
	Fast Tier = iota
	Medium
	Slow
)

func (t Tier) String() string {
	switch t {
	case Fast:
		return "fast"
	case Medium:
		return "medium"
	case Slow:
		return "slow"
	default:
		return "unknown"
	}
}

// TierFor buckets a non-negative latency.
func TierFor(displayUs int64) Tier {
	switch {
	case displayUs < MediumThresholdUs:
		return Fast
	case displayUs < SlowThresholdUs:
		return Medium
	default:
		return Slow
	}
}

// Result is one latency measurement.
type Result struct {
	LocalRecvUs        int64
	UpstreamRecvUs     int64
	RawUs              int64 // negative when the upstream clock runs ahead
	DisplayUs          int64
	Tier               Tier
	ClockSkewSuspected bool
}

// Millis renders DisplayUs as milliseconds with two decimals.
func (r Result) Millis() string {
	return decimal.New(r.DisplayUs, -3).StringFixed(2)
}

// Estimate computes the latency between local and upstream receipt. ok
// reports whether an upstream timestamp was available; without one there is
// nothing to measure and the second return is false.
func Estimate(localRecvUs, upstreamRecvUs int64, ok bool) (Result, bool) {
	if !ok {
		return Result{}, false
	}
	raw := localRecvUs - upstreamRecvUs
	display := max(raw, 0)
	return Result{
		LocalRecvUs:        localRecvUs,
		UpstreamRecvUs:     upstreamRecvUs,
		RawUs:              raw,
		DisplayUs:          display,
		Tier:               TierFor(display),
		ClockSkewSuspected: raw < 0,
	}, true
}

// UpstreamRecvUs reads metadata.grpc_recv_us from an event payload.
func UpstreamRecvUs(payload jsonvalue.Value) (int64, bool) {
	ts, ok := payload.Lookup("metadata", "grpc_recv_us")
	if !ok {
		return 0, false
	}
	return ts.Int64()
}
