package export

import "errors"

// Sentinel kinds for export errors.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrWrite         = errors.New("write feature table")
)
