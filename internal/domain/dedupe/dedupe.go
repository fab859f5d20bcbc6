// Package dedupe suppresses events already seen on the stream.
//
// The upstream feed may replay a transaction, for example after it
// reconnects to its own source. A replay carries the same variant tag and
// signature, so that pair identifies an event.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultMaxSize bounds the remembered keys when no option is given.
const DefaultMaxSize = 50000

// Deduper records seen event keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if
	// not. The empty key is never recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Forget removes key so a later occurrence is treated as new.
	Forget(ctx context.Context, key string)

	Size() int64
}

// Key builds the dedupe key of an event. An empty signature yields an empty
// key, which callers should not record.
func Key(tag, signature string) string {
	if signature == "" {
		return ""
	}
	return tag + ":" + signature
}

// inMemoryDeduper keeps keys in a map. In bounded mode a ring of insertion
// order evicts the oldest key once maxSize is reached; in unbounded mode
// (maxSize <= 0) nothing is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot, -1 in unbounded mode
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	if key == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}

	if d.maxSize <= 0 {
		d.seen[key] = -1
		d.size.Add(1)
		return false
	}

	// The slot under next is the oldest entry once the ring has wrapped.
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
		d.size.Add(-1)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
