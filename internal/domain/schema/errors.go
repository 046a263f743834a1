package schema

import "errors"

// ErrSchema marks an input whose columns do not match the declared layout.
// It is fatal: callers must not attempt partial processing.
var ErrSchema = errors.New("schema error")
