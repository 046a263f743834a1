package aggregate

import "math"

// Collapse reduces the values a group holds for one column to a single value.
// Missing values never reach a Collapse: it sees only present values and may
// receive none.
//
// The choice of collapse is a policy. Max keeps an indicator that any row of
// the group set, Min keeps one only when every row set it, Sum counts.
type Collapse func(values []float64) float64

// Max returns the largest value, NaN for an empty group.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest value, NaN for an empty group.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Sum adds the values; an empty group sums to zero.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
