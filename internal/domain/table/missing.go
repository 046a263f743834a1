package table

import (
	"strconv"
	"strings"
)

// missingTokens are the spellings treated as an absent value.
var missingTokens = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup
	"":      {},
	"NA":    {},
	"NaN":   {},
	"nan":   {},
	"<nil>": {},
}

// IsMissing reports whether a cell holds no value.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// ParseFloat parses a numeric cell. ok is false for a missing cell.
func ParseFloat(s string) (v float64, ok bool, err error) {
	if IsMissing(s) {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, ErrParse
	}
	return v, true, nil
}

// FormatFloat renders v so that ParseFloat returns exactly v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
