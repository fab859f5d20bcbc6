package jsonvalue

import "errors"

// Sentinel error kinds for this package.
var (
	ErrMalformed = errors.New("malformed json")
	ErrTooDeep   = errors.New("json nesting too deep")
)
