// Package testevents produces synthetic event records shaped like the live
// stream: one variant tag per record, identifiers and signatures as raw byte
// arrays, and metadata.grpc_recv_us stamped from a microsecond clock.
package testevents

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/okian/dextap/internal/domain/jsonvalue"
	"github.com/okian/dextap/internal/domain/latency"
)

// Generated variant tags.
const (
	PumpFunTrade      = "PumpFunTrade"
	PumpFunCreate     = "PumpFunCreate"
	PumpSwapBuy       = "PumpSwapBuy"
	RaydiumAmmV4Swap  = "RaydiumAmmV4Swap"
	OrcaWhirlpoolSwap = "OrcaWhirlpoolSwap"
	BlockMeta         = "BlockMeta"
)

// Default generator configuration constants.
const (
	defaultMaxLag = 150 * time.Millisecond
	startSlot     = 300_000_000
	maxAmount     = 1_000_000_000_000
)

// Kinds lists every tag the generator can produce.
func Kinds() []string {
	return []string{PumpFunTrade, PumpFunCreate, PumpSwapBuy, RaydiumAmmV4Swap, OrcaWhirlpoolSwap, BlockMeta}
}

// Generator builds synthetic records. It is safe for concurrent use.
type Generator struct {
	clock  latency.Clock
	kinds  []string
	maxLag time.Duration
	slot   atomic.Uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithKinds limits generation to the given tags; unknown tags yield records
// with only a signature and metadata.
func WithKinds(kinds ...string) Option {
	return func(g *Generator) {
		if len(kinds) > 0 {
			g.kinds = kinds
		}
	}
}

// WithMaxLag sets the largest simulated delay between upstream receipt and
// generation. Zero stamps records with the current instant.
func WithMaxLag(d time.Duration) Option {
	return func(g *Generator) {
		if d >= 0 {
			g.maxLag = d
		}
	}
}

// NewGenerator creates a generator stamping records from clock.
func NewGenerator(clock latency.Clock, opts ...Option) *Generator {
	g := &Generator{
		clock:  clock,
		kinds:  Kinds(),
		maxLag: defaultMaxLag,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.slot.Store(startSlot)
	return g
}

// Next returns a record of a randomly chosen kind.
func (g *Generator) Next() (string, jsonvalue.Value) {
	tag := g.kinds[randomInt(int64(len(g.kinds)))]
	return tag, g.Record(tag)
}

// NextFrame returns the next record as a JSON text frame.
func (g *Generator) NextFrame() []byte {
	_, rec := g.Next()
	return rec.AppendJSON(nil)
}

// Record builds one record for tag.
func (g *Generator) Record(tag string) jsonvalue.Value {
	var fields []jsonvalue.Member
	switch tag {
	case PumpFunTrade:
		fields = []jsonvalue.Member{
			signature(),
			key("mint"),
			key("user"),
			amount("sol_amount"),
			amount("token_amount"),
			{Key: "is_buy", Value: jsonvalue.BoolValue(randomInt(2) == 1)},
		}
	case PumpFunCreate:
		fields = []jsonvalue.Member{
			signature(),
			{Key: "name", Value: jsonvalue.StringValue("Synthetic")},
			{Key: "symbol", Value: jsonvalue.StringValue("SYN")},
			{Key: "uri", Value: jsonvalue.StringValue("https://example.invalid/meta.json")},
			key("mint"),
			key("bonding_curve"),
			key("user"),
		}
	case PumpSwapBuy:
		fields = []jsonvalue.Member{
			signature(),
			key("pool"),
			key("user"),
			amount("base_amount_out"),
			amount("max_quote_amount_in"),
		}
	case RaydiumAmmV4Swap:
		fields = []jsonvalue.Member{
			signature(),
			key("amm"),
			key("user_source_owner"),
			amount("amount_in"),
			amount("minimum_amount_out"),
		}
	case OrcaWhirlpoolSwap:
		fields = []jsonvalue.Member{
			signature(),
			key("whirlpool"),
			{Key: "a_to_b", Value: jsonvalue.BoolValue(randomInt(2) == 1)},
			amount("input_amount"),
			amount("output_amount"),
		}
	case BlockMeta:
		fields = []jsonvalue.Member{
			key("block_hash"),
			{Key: "parent_slot", Value: jsonvalue.IntValue(int64(g.slot.Load()))},
		}
	default:
		fields = []jsonvalue.Member{signature()}
	}
	fields = append(fields, jsonvalue.Member{Key: "metadata", Value: g.metadata()})

	return jsonvalue.ObjectValue(jsonvalue.Member{Key: tag, Value: jsonvalue.ObjectValue(fields...)})
}

func (g *Generator) metadata() jsonvalue.Value {
	now := g.clock.NowMicros()
	lag := int64(0)
	if us := g.maxLag.Microseconds(); us > 0 {
		lag = randomInt(us + 1)
	}
	upstream := now - lag
	return jsonvalue.ObjectValue(
		jsonvalue.Member{Key: "slot", Value: jsonvalue.IntValue(int64(g.slot.Add(1)))},
		jsonvalue.Member{Key: "block_time", Value: jsonvalue.IntValue(upstream / int64(time.Second/time.Microsecond))},
		jsonvalue.Member{Key: "grpc_recv_us", Value: jsonvalue.IntValue(upstream)},
	)
}

func signature() jsonvalue.Member {
	return jsonvalue.Member{Key: "signature", Value: byteArray(64)}
}

func key(name string) jsonvalue.Member {
	return jsonvalue.Member{Key: name, Value: byteArray(32)}
}

func amount(name string) jsonvalue.Member {
	return jsonvalue.Member{Key: name, Value: jsonvalue.IntValue(randomInt(maxAmount))}
}

// byteArray returns n random bytes as a JSON array of numbers.
func byteArray(n int) jsonvalue.Value {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	elems := make([]jsonvalue.Value, n)
	for i, v := range b {
		elems[i] = jsonvalue.IntValue(int64(v))
	}
	return jsonvalue.ArrayValue(elems...)
}

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}
