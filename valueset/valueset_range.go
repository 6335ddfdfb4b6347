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

// Range is an interval of an ordered domain. NoLb and NoUb mark an
// unbounded side (MIN or MAX), LbExcl and UbExcl an exclusive bound.
type Range[T Elem[T]] struct {
	Lb     T
	Ub     T
	NoLb   bool
	NoUb   bool
	LbExcl bool
	UbExcl bool
}

func Closed[T Elem[T]](lb, ub T) Range[T] {
	return Range[T]{Lb: lb, Ub: ub}
}

func Single[T Elem[T]](v T) Range[T] {
	return Range[T]{Lb: v, Ub: v}
}

// normalize converts exclusive bounds of discrete domains into inclusive
// ones. It returns false when the range is empty.
func (r Range[T]) normalize() (Range[T], bool) {
	if !r.NoLb && r.LbExcl {
		if next, ok := r.Lb.Next(); ok {
			r.Lb, r.LbExcl = next, false
		} else if _, discrete := r.Lb.Prev(); discrete {
			return r, false
		}
	}
	if !r.NoUb && r.UbExcl {
		if prev, ok := r.Ub.Prev(); ok {
			r.Ub, r.UbExcl = prev, false
		} else if _, discrete := r.Ub.Next(); discrete {
			return r, false
		}
	}
	if r.NoLb {
		var zero T
		r.Lb, r.LbExcl = zero, false
	}
	if r.NoUb {
		var zero T
		r.Ub, r.UbExcl = zero, false
	}
	if !r.NoLb && !r.NoUb {
		c := r.Lb.Compare(r.Ub)
		if c > 0 || (c == 0 && (r.LbExcl || r.UbExcl)) {
			return r, false
		}
	}
	return r, true
}

func (r Range[T]) IsEmpty() bool {
	_, ok := r.normalize()
	return !ok
}

// IsSingle reports whether the range holds exactly one value.
func (r Range[T]) IsSingle() bool {
	n, ok := r.normalize()
	return ok && !n.NoLb && !n.NoUb && !n.LbExcl && !n.UbExcl &&
		n.Lb.Compare(n.Ub) == 0
}

func (r Range[T]) Contains(v T) bool {
	if isUnordered(v) {
		return false
	}
	if !r.NoLb {
		c := r.Lb.Compare(v)
		if c > 0 || (c == 0 && r.LbExcl) {
			return false
		}
	}
	if !r.NoUb {
		c := v.Compare(r.Ub)
		if c > 0 || (c == 0 && r.UbExcl) {
			return false
		}
	}
	return true
}

// cmpLower orders lower bounds, an unbounded one first.
func cmpLower[T Elem[T]](a, b Range[T]) int {
	switch {
	case a.NoLb && b.NoLb:
		return 0
	case a.NoLb:
		return -1
	case b.NoLb:
		return 1
	}
	if c := a.Lb.Compare(b.Lb); c != 0 {
		return c
	}
	switch {
	case a.LbExcl == b.LbExcl:
		return 0
	case a.LbExcl:
		return 1
	}
	return -1
}

// cmpUpper orders upper bounds, an unbounded one last.
func cmpUpper[T Elem[T]](a, b Range[T]) int {
	switch {
	case a.NoUb && b.NoUb:
		return 0
	case a.NoUb:
		return 1
	case b.NoUb:
		return -1
	}
	if c := a.Ub.Compare(b.Ub); c != 0 {
		return c
	}
	switch {
	case a.UbExcl == b.UbExcl:
		return 0
	case a.UbExcl:
		return -1
	}
	return 1
}

func compareRanges[T Elem[T]](a, b Range[T]) int {
	if c := cmpLower(a, b); c != 0 {
		return c
	}
	return cmpUpper(a, b)
}

func (r Range[T]) Equal(other Range[T]) bool {
	a, aok := r.normalize()
	b, bok := other.normalize()
	if !aok || !bok {
		return aok == bok
	}
	return compareRanges(a, b) == 0
}

// Intersect returns the overlap of both ranges, or nil when they are
// disjoint.
func (r Range[T]) Intersect(other Range[T]) *Range[T] {
	out := r
	if cmpLower(other, r) > 0 {
		out.Lb, out.NoLb, out.LbExcl = other.Lb, other.NoLb, other.LbExcl
	}
	if cmpUpper(other, r) < 0 {
		out.Ub, out.NoUb, out.UbExcl = other.Ub, other.NoUb, other.UbExcl
	}
	out, ok := out.normalize()
	if !ok {
		return nil
	}
	return &out
}

// Union returns the smallest range covering both, or nil when they neither
// overlap nor touch.
func (r Range[T]) Union(other Range[T]) *Range[T] {
	a, aok := r.normalize()
	b, bok := other.normalize()
	switch {
	case !aok && !bok:
		return nil
	case !aok:
		return &b
	case !bok:
		return &a
	}
	if cmpLower(a, b) > 0 {
		a, b = b, a
	}
	if !a.NoUb && !b.NoLb {
		c := a.Ub.Compare(b.Lb)
		switch {
		case c < 0:
			next, ok := a.Ub.Next()
			if !ok || next.Compare(b.Lb) != 0 {
				return nil
			}
		case c == 0:
			if a.UbExcl && b.LbExcl {
				return nil
			}
		}
	}
	out := a
	if cmpUpper(b, a) > 0 {
		out.Ub, out.NoUb, out.UbExcl = b.Ub, b.NoUb, b.UbExcl
	}
	return &out
}

// Difference returns the parts of r below and above other.
func (r Range[T]) Difference(other Range[T]) (lower, upper *Range[T]) {
	if !other.NoLb {
		below := Range[T]{NoLb: true, Ub: other.Lb, UbExcl: !other.LbExcl}
		lower = r.Intersect(below)
	}
	if !other.NoUb {
		above := Range[T]{NoUb: true, Lb: other.Ub, LbExcl: !other.UbExcl}
		upper = r.Intersect(above)
	}
	return lower, upper
}

func (r Range[T]) String() string {
	var buf strings.Builder
	if r.NoLb {
		buf.WriteString("MIN")
	} else {
		fmt.Fprint(&buf, r.Lb)
		if r.LbExcl {
			buf.WriteByte('<')
		}
	}
	buf.WriteString("..")
	if r.NoUb {
		buf.WriteString("MAX")
	} else {
		if r.UbExcl {
			buf.WriteByte('<')
		}
		fmt.Fprint(&buf, r.Ub)
	}
	return buf.String()
}

// ReduceRanges merges overlapping or adjacent ranges until no pair can be
// merged, drops empty ranges and sorts the result by lower bound.
func ReduceRanges[T Elem[T]](ranges []Range[T]) []Range[T] {
	out := make([]Range[T], 0, len(ranges))
	for _, r := range ranges {
		if n, ok := r.normalize(); ok {
			out = append(out, n)
		}
	}
	for merged := true; merged; {
		merged = false
	outer:
		for ii := 0; ii < len(out); ii++ {
			for jj := ii + 1; jj < len(out); jj++ {
				if u := out[ii].Union(out[jj]); u != nil {
					out[ii] = *u
					out = slices.Delete(out, jj, jj+1)
					merged = true
					break outer
				}
			}
		}
	}
	slices.SortFunc(out, compareRanges[T])
	return out
}

// subtractRanges removes every range of minus from ranges.
func subtractRanges[T Elem[T]](ranges, minus []Range[T]) []Range[T] {
	out := slices.Clone(ranges)
	for _, m := range minus {
		var next []Range[T]
		for _, r := range out {
			if r.Intersect(m) == nil {
				next = append(next, r)
				continue
			}
			lower, upper := r.Difference(m)
			if lower != nil {
				next = append(next, *lower)
			}
			if upper != nil {
				next = append(next, *upper)
			}
		}
		out = next
	}
	return ReduceRanges(out)
}
