package decode

import (
	"errors"

	"github.com/okian/dextap/internal/domain/jsonvalue"
)

// Sentinel error kinds for this package.
var (
	// ErrTooDeep is the same sentinel the parser uses, so callers can
	// match either source with one errors.Is.
	ErrTooDeep       = jsonvalue.ErrTooDeep
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidLength = errors.New("decoded length mismatch")
)
