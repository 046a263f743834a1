// Package dedupe records row keys that were already emitted so that repeated
// rows collapse to their first occurrence.
package dedupe

import (
	"strconv"
	"strings"
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(key string) bool

	// Size returns the number of distinct keys recorded.
	Size() int
}

// inMemoryDeduper implements Deduper with an unbounded set. Eviction would
// let a duplicate through, so there is no size limit. Not safe for concurrent
// use.
type inMemoryDeduper struct {
	seen     map[string]struct{}
	capacity int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(key string) bool {
	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int {
	return len(d.seen)
}

// Key encodes a row as an unambiguous key. Every value is length-prefixed so
// that no separator inside a cell can make two different rows collide.
func Key(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}
