package aggregate

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingKey      = errors.New("missing group key")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrShape           = errors.New("values do not match index and columns")
	ErrMissingWeight   = errors.New("missing weight")
	ErrInvalidConfig   = errors.New("invalid aggregator config")
)
