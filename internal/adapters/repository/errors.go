package repository

import "errors"

// Sentinel kinds for feature store errors.
var (
	ErrNotFound     = errors.New("application not found")
	ErrInvalidLimit = errors.New("invalid page limit")
	ErrEmptyTable   = errors.New("feature table is nil")
)
