package features

import (
	"errors"

	"github.com/okian/grantfeat/internal/domain/aggregate"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingKey     = aggregate.ErrMissingKey
	ErrDuplicateKey   = aggregate.ErrDuplicateKey
	ErrUnmatchedKey   = errors.New("application missing from an aggregate")
	ErrParseDate      = errors.New("invalid start date")
	ErrContractBand   = errors.New("invalid contract value band")
	ErrInvalidOptions = errors.New("invalid feature options")
)
