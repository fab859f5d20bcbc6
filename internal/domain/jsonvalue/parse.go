package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxDepth bounds array/object nesting accepted by Parse.
const DefaultMaxDepth = 512

// Parse decodes a single JSON document. Nesting deeper than maxDepth yields
// ErrTooDeep; maxDepth <= 0 selects DefaultMaxDepth.
//
// Duplicate object keys keep the position of the first occurrence and the
// value of the last one.
func Parse(data []byte, maxDepth int) (Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	p := parser{dec: dec, maxDepth: maxDepth}
	v, err := p.value(0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data after document", ErrMalformed)
	}
	return v, nil
}

type parser struct {
	dec      *json.Decoder
	maxDepth int
}

func (p *parser) value(depth int) (Value, error) {
	tok, err := p.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
		}
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		if depth >= p.maxDepth {
			return Value{}, fmt.Errorf("%w: limit %d", ErrTooDeep, p.maxDepth)
		}
		switch t {
		case '[':
			return p.array(depth + 1)
		case '{':
			return p.object(depth + 1)
		}
	}
	return Value{}, fmt.Errorf("%w: unexpected token %v", ErrMalformed, tok)
}

func (p *parser) array(depth int) (Value, error) {
	elems := []Value{}
	for p.dec.More() {
		v, err := p.value(depth)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	if err := p.closing(']'); err != nil {
		return Value{}, err
	}
	return ArrayValue(elems...), nil
}

func (p *parser) object(depth int) (Value, error) {
	members := []Member{}
	var index map[string]int
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: object key %v is not a string", ErrMalformed, tok)
		}
		v, err := p.value(depth)
		if err != nil {
			return Value{}, err
		}

		if index == nil {
			index = make(map[string]int)
		}
		if i, dup := index[key]; dup {
			members[i].Value = v
			continue
		}
		index[key] = len(members)
		members = append(members, Member{Key: key, Value: v})
	}
	if err := p.closing('}'); err != nil {
		return Value{}, err
	}
	return ObjectValue(members...), nil
}

func (p *parser) closing(want json.Delim) error {
	tok, err := p.dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", ErrMalformed, want)
	}
	return nil
}
