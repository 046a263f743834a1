package source

import "errors"

// Sentinel kinds for loader errors.
var (
	ErrRead  = errors.New("read input table")
	ErrEmpty = errors.New("input table has no columns")
)
