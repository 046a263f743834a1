package table

import "sort"

// LessKey orders key cells: numeric keys by value and before non-numeric
// keys, which compare lexically. Missing keys sort last.
func LessKey(a, b string) bool {
	am, bm := IsMissing(a), IsMissing(b)
	if am || bm {
		return !am && bm
	}
	av, aok, aerr := ParseFloat(a)
	bv, bok, berr := ParseFloat(b)
	an, bn := aok && aerr == nil, bok && berr == nil
	switch {
	case an && bn:
		if av != bv {
			return av < bv
		}
		return a < b
	case an != bn:
		return an
	default:
		return a < b
	}
}

// SortKeys sorts keys in place with LessKey.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool { return LessKey(keys[i], keys[j]) })
}

// Canonical maps every missing spelling to the empty string.
func Canonical(s string) string {
	if IsMissing(s) {
		return ""
	}
	return s
}
