package features

import (
	"fmt"
	"strings"

	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/schema"
)

// JoinPolicy decides what happens to an application missing from one of the
// aggregates it is joined with.
type JoinPolicy int

const (
	// JoinInner drops the application and lists it in Report.Dropped.
	JoinInner JoinPolicy = iota
	// JoinStrict fails the build with ErrUnmatchedKey.
	JoinStrict
)

func (p JoinPolicy) String() string {
	if p == JoinStrict {
		return "strict"
	}
	return "inner"
}

// ParseJoinPolicy reads "inner" or "strict".
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inner":
		return JoinInner, nil
	case "strict":
		return JoinStrict, nil
	default:
		return JoinInner, fmt.Errorf("join policy %q: %w", s, ErrInvalidOptions)
	}
}

type options struct {
	layout   schema.Layout
	join     JoinPolicy
	codeOpts []aggregate.CodeOption
}

// Option applies a configuration option to Build.
type Option func(*options)

// WithLayout sets the column layout of the researcher table.
func WithLayout(l schema.Layout) Option {
	return func(o *options) {
		if len(l.Shared) > 0 && len(l.Block) > 0 {
			o.layout = l
		}
	}
}

// WithJoinPolicy sets the join policy.
func WithJoinPolicy(p JoinPolicy) Option {
	return func(o *options) {
		o.join = p
	}
}

// WithCodeOptions applies options to both the RFCD and the SEO aggregator.
func WithCodeOptions(opts ...aggregate.CodeOption) Option {
	return func(o *options) {
		o.codeOpts = append(o.codeOpts, opts...)
	}
}
