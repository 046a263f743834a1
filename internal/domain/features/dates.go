package features

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/grantfeat/internal/domain/table"
)

// StartDateLayout reads day/month/two-digit-year; day and month may have one
// or two digits. Years 69-99 are 19xx, 00-68 are 20xx.
const StartDateLayout = "2/1/06"

// ParseStartDate converts a start date to Unix seconds at midnight UTC. The
// result depends only on the string.
func ParseStartDate(s string) (float64, error) {
	t, err := time.Parse(StartDateLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w: %w", s, ErrParseDate, table.ErrParse)
	}
	return float64(t.Unix()), nil
}
