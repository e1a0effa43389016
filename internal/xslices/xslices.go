// Package xslices provides the handful of ordered-collection helpers this
// module needs (descending sort over distinct values), backed by
// golang.org/x/exp the way the teacher's go.mod pulls it in ahead of the
// standard library's own slices/maps packages being available on its
// declared Go version.
package xslices

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// DescendingValues returns the distinct values of m sorted in descending
// order, used by commit-index recomputation (§4.4.5) which walks
// match_index values from highest to lowest.
func DescendingValues[K comparable, V constraints.Ordered](m map[K]V) []V {
	seen := make(map[V]struct{}, len(m))
	values := make([]V, 0, len(m))
	for _, v := range m {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	slices.Reverse(values)
	return values
}
