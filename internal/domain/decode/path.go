package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// Path locates a node from the root of the tree being decoded. It is an
// immutable list of segments; extending a Path never modifies the receiver.
// The zero Path is the root.
type Path struct {
	node *pathNode
}

type pathNode struct {
	parent  *pathNode
	key     string
	index   int
	isIndex bool
}

// Root returns the empty path.
func Root() Path { return Path{} }

// Key returns p extended by an object key.
func (p Path) Key(k string) Path {
	return Path{node: &pathNode{parent: p.node, key: k}}
}

// Index returns p extended by an array index.
func (p Path) Index(i int) Path {
	return Path{node: &pathNode{parent: p.node, index: i, isIndex: true}}
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool { return p.node == nil }

// LastKey returns the final segment when it is an object key.
func (p Path) LastKey() (string, bool) {
	if p.node == nil || p.node.isIndex {
		return "", false
	}
	return p.node.key, true
}

// Len returns the number of segments.
func (p Path) Len() int {
	n := 0
	for cur := p.node; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// String renders p as a.b[2].c.
func (p Path) String() string {
	var segs []*pathNode
	for cur := p.node; cur != nil; cur = cur.parent {
		segs = append(segs, cur)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if s.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.key)
	}
	return b.String()
}

// ParsePath builds a Path from its rendered form, e.g. "a[2].b" or
// "PumpFunTrade.trade.signature". Keys containing '.' or '[' cannot be
// expressed this way; build those with Key.
func ParsePath(s string) (Path, error) {
	p := Root()
	if s == "" {
		return p, nil
	}
	for _, part := range strings.Split(s, ".") {
		key := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			key, rest = part[:i], part[i:]
		}
		if key == "" && rest == "" {
			return Path{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, s)
		}
		if key != "" {
			p = p.Key(key)
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return Path{}, fmt.Errorf("%w: bad index in %q", ErrInvalidPath, s)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return Path{}, fmt.Errorf("%w: bad index in %q", ErrInvalidPath, s)
			}
			p = p.Index(idx)
			rest = rest[end+1:]
		}
	}
	return p, nil
}
