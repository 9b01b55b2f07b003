// Copyright 2026 Leon Hwang.
// SPDX-License-Identifier: Apache-2.0

package slicex

import (
	"cmp"
	"slices"

	"golang.org/x/exp/maps"
)

// SortedKeys returns the keys of m in ascending order, for
// deterministic iteration over maps.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
