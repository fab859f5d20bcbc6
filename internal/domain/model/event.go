// Package model contains domain models passed between layers.
package model

import (
	"strconv"

	"github.com/okian/dextap/internal/domain/classify"
	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/domain/latency"
)

// Frame is one raw text message as delivered by the transport.
type Frame struct {
	Seq    uint64 // arrival order, starting at 1
	Data   []byte
	RecvUs int64 // local receipt, microseconds since the UNIX epoch
}

// Event is a decoded, measured and classified frame.
type Event struct {
	Seq      uint64
	Tag      string // variant tag, or classify.Unknown
	Category string // Tag when catalogued, else classify.Unknown
	Protocol classify.Protocol
	Payload  jsonvalue.Value
	Latency  *latency.Result // nil when the record carries no upstream timestamp
	RecvUs   int64
}

// Signature returns the decoded top-level payload signature, if any.
func (e Event) Signature() string {
	v, ok := e.Payload.Get("signature")
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

// Label is the display name of the event's variant.
func (e Event) Label() string {
	return classify.Label(e.Tag)
}

// AppendJSON appends a compact JSON rendering of e to dst:
// {"seq":..,"tag":..,"category":..,"recv_us":..,"latency":{..},"payload":..}.
func (e Event) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"seq":`...)
	dst = strconv.AppendUint(dst, e.Seq, 10)
	dst = append(dst, `,"tag":`...)
	dst = jsonvalue.StringValue(e.Tag).AppendJSON(dst)
	dst = append(dst, `,"category":`...)
	dst = jsonvalue.StringValue(e.Category).AppendJSON(dst)
	dst = append(dst, `,"recv_us":`...)
	dst = strconv.AppendInt(dst, e.RecvUs, 10)
	if l := e.Latency; l != nil {
		dst = append(dst, `,"latency":{"raw_us":`...)
		dst = strconv.AppendInt(dst, l.RawUs, 10)
		dst = append(dst, `,"display_us":`...)
		dst = strconv.AppendInt(dst, l.DisplayUs, 10)
		dst = append(dst, `,"tier":"`...)
		dst = append(dst, l.Tier.String()...)
		dst = append(dst, `","clock_skew_suspected":`...)
		dst = strconv.AppendBool(dst, l.ClockSkewSuspected)
		dst = append(dst, '}')
	}
	dst = append(dst, `,"payload":`...)
	dst = e.Payload.AppendJSON(dst)
	return append(dst, '}')
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return e.AppendJSON(nil), nil
}
