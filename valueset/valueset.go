// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package valueset

import (
	"fmt"
	"slices"
	"strings"
)

// ValueSet is a root/extension pair of values and ranges. A set is
// extensible when its definition carried an extension marker, even if Ext
// and ExtRanges are empty.
type ValueSet[T Elem[T]] struct {
	Root       []T
	RootRanges []Range[T]
	Ext        []T
	ExtRanges  []Range[T]
	Extensible bool
}

func containedIn[T Elem[T]](v T, values []T, ranges []Range[T]) bool {
	for _, other := range values {
		if v.Compare(other) == 0 {
			return true
		}
	}
	for _, r := range ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

func (s ValueSet[T]) rootContains(v T) bool {
	return containedIn(v, s.Root, s.RootRanges)
}

// Contains reports whether v is a root or extension value of s.
func (s ValueSet[T]) Contains(v T) bool {
	return s.rootContains(v) || containedIn(v, s.Ext, s.ExtRanges)
}

func (s ValueSet[T]) RootContains(v T) bool {
	return s.rootContains(v)
}

func (s ValueSet[T]) IsEmpty() bool {
	return s.RootIsEmpty() && len(s.Ext) == 0 && allEmpty(s.ExtRanges)
}

// RootIsEmpty reports whether no root value exists. Emptiness checks of
// combined constraints look at the root only.
func (s ValueSet[T]) RootIsEmpty() bool {
	return len(s.Root) == 0 && allEmpty(s.RootRanges)
}

func allEmpty[T Elem[T]](ranges []Range[T]) bool {
	for _, r := range ranges {
		if !r.IsEmpty() {
			return false
		}
	}
	return true
}

func appendUnique[T Elem[T]](values []T, v T) []T {
	if containedIn(v, values, nil) {
		return values
	}
	return append(values, v)
}

func compareElems[T Elem[T]](a, b T) int {
	return a.Compare(b)
}

func sameElem[T Elem[T]](a, b T) bool {
	return a.Compare(b) == 0
}

func sameRange[T Elem[T]](a, b Range[T]) bool {
	return a.Equal(b)
}

// collapse merges values into the ranges, reduces them, and moves
// single-value ranges back into the sorted value list. Unordered values
// stay values.
func collapse[T Elem[T]](values []T, ranges []Range[T]) ([]T, []Range[T]) {
	var loose []T
	all := slices.Clone(ranges)
	for _, v := range values {
		if isUnordered(v) {
			loose = appendUnique(loose, v)
			continue
		}
		all = append(all, Single(v))
	}
	var kept []Range[T]
	for _, r := range ReduceRanges(all) {
		if r.IsSingle() {
			loose = appendUnique(loose, r.Lb)
			continue
		}
		kept = append(kept, r)
	}
	slices.SortFunc(loose, compareElems[T])
	return loose, kept
}

// withoutRoot removes every root value of root from the extension parts.
func withoutRoot[T Elem[T]](root ValueSet[T], values []T, ranges []Range[T]) ([]T, []Range[T]) {
	minus := slices.Clone(root.RootRanges)
	for _, v := range root.Root {
		if !isUnordered(v) {
			minus = append(minus, Single(v))
		}
	}
	ranges = subtractRanges(ReduceRanges(ranges), minus)
	var kept []T
	for _, v := range values {
		if !root.rootContains(v) {
			kept = appendUnique(kept, v)
		}
	}
	return collapse(kept, ranges)
}

// Intersect combines two constraint sets.
//
// The root is the intersection of both roots. When either side is
// extensible, the result is extensible and its extension receives every
// value of both sides not captured by the new root.
func (s ValueSet[T]) Intersect(other ValueSet[T]) ValueSet[T] {
	var out ValueSet[T]

	var ranges []Range[T]
	for _, a := range s.RootRanges {
		for _, b := range other.RootRanges {
			if r := a.Intersect(b); r != nil {
				ranges = append(ranges, *r)
			}
		}
	}
	var values []T
	for _, v := range s.Root {
		if other.rootContains(v) {
			values = appendUnique(values, v)
		}
	}
	for _, v := range other.Root {
		if s.rootContains(v) {
			values = appendUnique(values, v)
		}
	}
	out.Root, out.RootRanges = collapse(values, ranges)

	if !s.Extensible && !other.Extensible {
		return out
	}
	out.Extensible = true

	var extRanges []Range[T]
	var extValues []T
	for _, side := range []ValueSet[T]{s, other} {
		extRanges = append(extRanges, side.RootRanges...)
		extRanges = append(extRanges, side.ExtRanges...)
		extValues = append(extValues, side.Root...)
		extValues = append(extValues, side.Ext...)
	}
	out.Ext, out.ExtRanges = withoutRoot(out, extValues, extRanges)
	return out
}

// Canonical returns an equivalent set in a unique form: ranges reduced and
// sorted, single-value ranges collapsed into sorted values, and no
// extension value also present in the root.
func (s ValueSet[T]) Canonical() ValueSet[T] {
	out := ValueSet[T]{Extensible: s.Extensible}
	out.Root, out.RootRanges = collapse(s.Root, s.RootRanges)
	out.Ext, out.ExtRanges = withoutRoot(out, s.Ext, s.ExtRanges)
	return out
}

// Equal compares two sets by content.
func (s ValueSet[T]) Equal(other ValueSet[T]) bool {
	a, b := s.Canonical(), other.Canonical()
	return a.Extensible == b.Extensible &&
		slices.EqualFunc(a.Root, b.Root, sameElem[T]) &&
		slices.EqualFunc(a.RootRanges, b.RootRanges, sameRange[T]) &&
		slices.EqualFunc(a.Ext, b.Ext, sameElem[T]) &&
		slices.EqualFunc(a.ExtRanges, b.ExtRanges, sameRange[T])
}

func (s ValueSet[T]) String() string {
	var items []string
	for _, v := range s.Root {
		items = append(items, fmt.Sprint(v))
	}
	for _, r := range s.RootRanges {
		items = append(items, r.String())
	}
	if s.Extensible {
		items = append(items, "...")
		for _, v := range s.Ext {
			items = append(items, fmt.Sprint(v))
		}
		for _, r := range s.ExtRanges {
			items = append(items, r.String())
		}
	}
	return "{" + strings.Join(items, ", ") + "}"
}
