package aggregate

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
)

// Code coarsening constants. A missing code takes the sentinel
// MissingBucket*divisor, which lands in the "unknown" bucket 99.
const (
	MissingBucket = 99
	BucketDivisor = 10000
)

// CodeConfig describes one (code, percentage) column family.
type CodeConfig struct {
	CodePrefix       string
	PercentagePrefix string
	Slots            int
	Key              string
	Divisor          float64
	KeepZeroBucket   bool
}

// RFCDConfig is the research-field code family.
func RFCDConfig() CodeConfig {
	return CodeConfig{
		CodePrefix:       schema.RFCDCodePrefix,
		PercentagePrefix: schema.RFCDPercentagePrefix,
		Slots:            schema.CodeSlots,
		Key:              schema.ApplicationID,
		Divisor:          BucketDivisor,
	}
}

// SEOConfig is the socio-economic objective code family.
func SEOConfig() CodeConfig {
	return CodeConfig{
		CodePrefix:       schema.SEOCodePrefix,
		PercentagePrefix: schema.SEOPercentagePrefix,
		Slots:            schema.CodeSlots,
		Key:              schema.ApplicationID,
		Divisor:          BucketDivisor,
	}
}

// CodeOption adjusts a CodeConfig.
type CodeOption func(*CodeConfig)

// WithSlots limits aggregation to the first n slots.
func WithSlots(n int) CodeOption {
	return func(c *CodeConfig) {
		if n > 0 {
			c.Slots = n
		}
	}
}

// WithKey sets the join-key column.
func WithKey(key string) CodeOption {
	return func(c *CodeConfig) {
		if key != "" {
			c.Key = key
		}
	}
}

// WithDivisor sets the coarsening divisor; 1 keeps codes as they are.
func WithDivisor(d float64) CodeOption {
	return func(c *CodeConfig) {
		if d > 0 {
			c.Divisor = d
		}
	}
}

// WithKeepZeroBucket emits bucket 0, which is dropped by default as a
// placeholder code.
func WithKeepZeroBucket(keep bool) CodeOption {
	return func(c *CodeConfig) {
		c.KeepZeroBucket = keep
	}
}

// CodeAggregator spreads each application's percentage mass over coarse code
// buckets.
type CodeAggregator struct {
	cfg CodeConfig
}

// NewCodeAggregator creates an aggregator for one code family.
func NewCodeAggregator(cfg CodeConfig, opts ...CodeOption) *CodeAggregator {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CodeAggregator{cfg: cfg}
}

// Config returns the effective configuration.
func (a *CodeAggregator) Config() CodeConfig { return a.cfg }

// Bucket coarsens a code: floor(code / divisor).
func Bucket(code, divisor float64) float64 { return math.Floor(code / divisor) }

// Aggregate returns one row per key whose columns are code buckets, each
// holding the percentage mass the key assigns to it across all slots.
//
// Per slot the bucket indicators and the percentage are collapsed with Max
// over the rows sharing a key, then multiplied; slots are summed with zero
// fill. Percentages must already be imputed.
func (a *CodeAggregator) Aggregate(t *table.Table) (*Frame, error) {
	cfg := a.cfg
	if cfg.Slots < 1 || cfg.Divisor <= 0 || cfg.CodePrefix == "" || cfg.PercentagePrefix == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%+v: %w", cfg, ErrInvalidConfig)
	}
	required := []string{cfg.Key}
	for i := 1; i <= cfg.Slots; i++ {
		required = append(required, schema.SlotColumn(cfg.CodePrefix, i), schema.SlotColumn(cfg.PercentagePrefix, i))
	}
	if err := schema.Require(t.Columns(), required...); err != nil {
		return nil, err
	}

	var total *Frame
	buckets := map[string]struct{}{}
	for i := 1; i <= cfg.Slots; i++ {
		sels, labels, err := OneHot(t, cfg.CodePrefix, a.bucketOf(schema.SlotColumn(cfg.CodePrefix, i)))
		if err != nil {
			return nil, err
		}
		for _, l := range labels {
			buckets[l] = struct{}{}
		}
		slot, err := Weighted(t, cfg.Key, sels, Numeric(schema.SlotColumn(cfg.PercentagePrefix, i)), Max)
		if err != nil {
			return nil, err
		}
		if total, err = AddFill(total, slot); err != nil {
			return nil, err
		}
	}

	labels := make([]string, 0, len(buckets))
	for l := range buckets {
		labels = append(labels, l)
	}
	table.SortKeys(labels)
	columns := make([]string, len(labels))
	for k, l := range labels {
		columns[k] = DummyName(cfg.CodePrefix, l)
	}
	return total.Select(columns...)
}

func (a *CodeAggregator) bucketOf(column string) Categorizer {
	return func(r table.Row) (string, bool, error) {
		code, ok, err := r.Float(column)
		if err != nil {
			return "", false, err
		}
		if !ok {
			code = MissingBucket * a.cfg.Divisor
		}
		b := Bucket(code, a.cfg.Divisor)
		if b == 0 && !a.cfg.KeepZeroBucket {
			return "", false, nil
		}
		return strconv.FormatFloat(b, 'f', -1, 64), true, nil
	}
}
