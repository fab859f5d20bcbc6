// Package classify routes a decoded event record by its variant tag.
//
// A record is a one-variant tagged union: a JSON object with exactly one
// key naming the variant and whose value is the payload.
package classify

import "github.com/okian/dextap/internal/domain/jsonvalue"

// Unknown is the tag and category given to records that are not a single-key
// object, and the category of tags missing from the catalog.
const Unknown = "unknown"

// Classification is the routing result for one record.
type Classification struct {
	Tag      string
	Category string
	Protocol Protocol
	Payload  jsonvalue.Value
}

// Classify never fails: malformed shapes become Unknown carrying the whole
// record as payload.
func Classify(record jsonvalue.Value) Classification {
	if record.Kind() != jsonvalue.Object || record.Len() != 1 {
		return Unclassified(record)
	}
	m := record.Members()[0]
	c := Classification{
		Tag:      m.Key,
		Category: Unknown,
		Protocol: ProtocolOf(m.Key),
		Payload:  m.Value,
	}
	if Known(m.Key) {
		c.Category = m.Key
	}
	return c
}

// Unclassified wraps a record that could not be routed.
func Unclassified(record jsonvalue.Value) Classification {
	return Classification{
		Tag:      Unknown,
		Category: Unknown,
		Protocol: ProtocolUnknown,
		Payload:  record,
	}
}

// IsUnknown reports whether c could not be routed to a catalogued variant.
func (c Classification) IsUnknown() bool {
	return c.Category == Unknown
}
