// Package decode rewrites raw byte arrays inside a JSON tree into their
// canonical base-58 text form.
//
// Classification is structural: any array of exactly 32 integers in [0,255]
// is an identifier (public key). An array of exactly 64 such integers is a
// credential (signature) only when its enclosing key is "signature";
// elsewhere it is left as a plain array. Nothing is validated
// cryptographically.
package decode

import (
	"fmt"

	"github.com/okian/dextap/internal/domain/jsonvalue"
)

// Stats counts what one Decode call rewrote.
type Stats struct {
	Identifiers int
	Credentials int
	Fallbacks   int
}

// Decoder walks a tree and replaces recognized byte arrays. A Decoder holds
// no per-call state and is safe for concurrent use.
type Decoder struct {
	maxDepth   int
	identifier Encoder
	credential Encoder
}

// Option applies a configuration option to the Decoder.
type Option func(*Decoder)

// WithMaxDepth bounds container nesting; deeper trees fail with ErrTooDeep.
func WithMaxDepth(depth int) Option {
	return func(d *Decoder) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}

// WithIdentifierEncoder replaces the 32-byte encoder.
func WithIdentifierEncoder(enc Encoder) Option {
	return func(d *Decoder) {
		if enc != nil {
			d.identifier = enc
		}
	}
}

// WithCredentialEncoder replaces the 64-byte encoder.
func WithCredentialEncoder(enc Encoder) Option {
	return func(d *Decoder) {
		if enc != nil {
			d.credential = enc
		}
	}
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		maxDepth:   jsonvalue.DefaultMaxDepth,
		identifier: EncodeIdentifier,
		credential: EncodeCredential,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode returns a tree isomorphic to v with recognized byte arrays replaced
// by strings. p is the location of v; pass Root() for a whole document.
func (d *Decoder) Decode(v jsonvalue.Value, p Path) (jsonvalue.Value, error) {
	out, _, err := d.DecodeWithStats(v, p)
	return out, err
}

// DecodeWithStats is Decode plus counts of what was rewritten.
func (d *Decoder) DecodeWithStats(v jsonvalue.Value, p Path) (jsonvalue.Value, Stats, error) {
	var st Stats
	out, err := d.walk(v, p, 0, &st)
	if err != nil {
		return jsonvalue.Value{}, st, err
	}
	return out, st, nil
}

func (d *Decoder) walk(v jsonvalue.Value, p Path, depth int, st *Stats) (jsonvalue.Value, error) {
	switch v.Kind() {
	case jsonvalue.Array:
		elems := v.Array()
		if len(elems) == CredentialLen && isCredentialPath(p) {
			if b, ok := byteArray(elems); ok {
				return d.rewrite(d.credential, b, &st.Credentials, st), nil
			}
		}
		if len(elems) == IdentifierLen {
			if b, ok := byteArray(elems); ok {
				return d.rewrite(d.identifier, b, &st.Identifiers, st), nil
			}
		}
		if depth >= d.maxDepth {
			return jsonvalue.Value{}, fmt.Errorf("%w: at %q", ErrTooDeep, p.String())
		}
		out := make([]jsonvalue.Value, len(elems))
		for i, e := range elems {
			dv, err := d.walk(e, p.Index(i), depth+1, st)
			if err != nil {
				return jsonvalue.Value{}, err
			}
			out[i] = dv
		}
		return jsonvalue.ArrayValue(out...), nil

	case jsonvalue.Object:
		if depth >= d.maxDepth {
			return jsonvalue.Value{}, fmt.Errorf("%w: at %q", ErrTooDeep, p.String())
		}
		members := v.Members()
		out := make([]jsonvalue.Member, len(members))
		for i, m := range members {
			dv, err := d.walk(m.Value, p.Key(m.Key), depth+1, st)
			if err != nil {
				return jsonvalue.Value{}, err
			}
			out[i] = jsonvalue.Member{Key: m.Key, Value: dv}
		}
		return jsonvalue.ObjectValue(out...), nil

	default:
		return v, nil
	}
}

func (d *Decoder) rewrite(enc Encoder, b []byte, counter *int, st *Stats) jsonvalue.Value {
	s, fellBack := encodeOrJoin(enc, b)
	if fellBack {
		st.Fallbacks++
	} else {
		*counter++
	}
	return jsonvalue.StringValue(s)
}

func isCredentialPath(p Path) bool {
	k, ok := p.LastKey()
	return ok && k == CredentialKey
}

// byteArray converts elems to bytes when every element is an integer in [0,255].
func byteArray(elems []jsonvalue.Value) ([]byte, bool) {
	b := make([]byte, len(elems))
	for i, e := range elems {
		n, ok := e.Int64()
		if !ok || n < 0 || n > 255 {
			return nil, false
		}
		b[i] = byte(n)
	}
	return b, true
}

var defaultDecoder = New() //nolint:gochecknoglobals // stateless default

// Decode runs the default Decoder over a whole document.
func Decode(v jsonvalue.Value) (jsonvalue.Value, error) {
	return defaultDecoder.Decode(v, Root())
}
