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

package valueset_test

import (
	"math/rand"
	"testing"

	"go.asn1c.org/asn1c/internal/testutil"
	"go.asn1c.org/asn1c/valueset"
)

type (
	Int      = valueset.Int
	IntRange = valueset.Range[valueset.Int]
	IntSet   = valueset.ValueSet[valueset.Int]
)

func rng(lb, ub int64) IntRange {
	return valueset.Closed(Int(lb), Int(ub))
}

func TestRangeContains(t *testing.T) {
	t.Parallel()

	r := rng(1, 10)
	testutil.ExpectTrue(t, r.Contains(1))
	testutil.ExpectTrue(t, r.Contains(10))
	testutil.ExpectFalse(t, r.Contains(0))
	testutil.ExpectFalse(t, r.Contains(11))

	open := IntRange{NoLb: true, Ub: 5, UbExcl: true}
	testutil.ExpectTrue(t, open.Contains(-1000))
	testutil.ExpectTrue(t, open.Contains(4))
	testutil.ExpectFalse(t, open.Contains(5))
}

func TestRangeIntersect(t *testing.T) {
	t.Parallel()

	got := rng(1, 10).Intersect(rng(5, 20))
	testutil.ExpectTrue(t, got != nil && got.Equal(rng(5, 10)))

	testutil.ExpectTrue(t, rng(1, 4).Intersect(rng(5, 20)) == nil)

	// 1<..<3 on integers is the single value 2
	excl := IntRange{Lb: 1, Ub: 3, LbExcl: true, UbExcl: true}
	testutil.ExpectTrue(t, excl.IsSingle())
}

func TestRangeUnion(t *testing.T) {
	t.Parallel()

	got := rng(1, 4).Union(rng(5, 9))
	testutil.ExpectTrue(t, got != nil && got.Equal(rng(1, 9)))

	testutil.ExpectTrue(t, rng(1, 3).Union(rng(5, 9)) == nil)

	unbounded := rng(1, 3).Union(IntRange{Lb: 2, NoUb: true})
	testutil.ExpectTrue(t, unbounded != nil && unbounded.NoUb)
	testutil.ExpectEq(t, Int(1), unbounded.Lb)
}

func TestRangeDifference(t *testing.T) {
	t.Parallel()

	lower, upper := rng(1, 10).Difference(rng(4, 6))
	testutil.ExpectTrue(t, lower != nil && lower.Equal(rng(1, 3)))
	testutil.ExpectTrue(t, upper != nil && upper.Equal(rng(7, 10)))

	lower, upper = rng(1, 10).Difference(IntRange{NoLb: true, Ub: 5})
	testutil.ExpectTrue(t, lower == nil)
	testutil.ExpectTrue(t, upper != nil && upper.Equal(rng(6, 10)))
}

func TestReduceRanges(t *testing.T) {
	t.Parallel()

	got := valueset.ReduceRanges([]IntRange{
		rng(10, 20), rng(1, 3), rng(4, 5), rng(15, 30), rng(40, 41),
	})
	testutil.ExpectEq(t, 3, len(got))
	testutil.ExpectTrue(t, got[0].Equal(rng(1, 5)))
	testutil.ExpectTrue(t, got[1].Equal(rng(10, 30)))
	testutil.ExpectTrue(t, got[2].Equal(rng(40, 41)))
}

func randomRanges(r *rand.Rand) []IntRange {
	var out []IntRange
	for range r.Intn(8) {
		lb := r.Int63n(50)
		out = append(out, rng(lb, lb+r.Int63n(10)))
	}
	return out
}

func TestReduceRangesIdempotent(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	for range 200 {
		once := valueset.ReduceRanges(randomRanges(r))
		twice := valueset.ReduceRanges(once)
		testutil.AssertEq(t, len(once), len(twice))
		for ii := range once {
			testutil.ExpectTrue(t, once[ii].Equal(twice[ii]))
		}
	}
}

func randomSet(r *rand.Rand, extensible bool) IntSet {
	s := IntSet{RootRanges: randomRanges(r), Extensible: extensible}
	for range r.Intn(5) {
		s.Root = append(s.Root, Int(r.Int63n(60)))
	}
	if extensible {
		for range r.Intn(3) {
			s.Ext = append(s.Ext, Int(r.Int63n(60)))
		}
	}
	return s
}

func TestIntersectCommutative(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(2))
	for range 200 {
		a := randomSet(r, r.Intn(2) == 0)
		b := randomSet(r, r.Intn(2) == 0)
		if !a.Intersect(b).Equal(b.Intersect(a)) {
			t.Fatalf("%v ^ %v: %v != %v", a, b, a.Intersect(b), b.Intersect(a))
		}
	}
}

func TestIntersectAssociative(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(3))
	for _, extensible := range []bool{false, true} {
		for range 200 {
			a := randomSet(r, extensible)
			b := randomSet(r, extensible)
			c := randomSet(r, extensible)
			left := a.Intersect(b).Intersect(c)
			right := a.Intersect(b.Intersect(c))
			if !left.Equal(right) {
				t.Fatalf("(%v ^ %v) ^ %v: %v != %v", a, b, c, left, right)
			}
		}
	}
}

func TestIntersectExtension(t *testing.T) {
	t.Parallel()

	a := IntSet{RootRanges: []IntRange{rng(1, 10)}, Extensible: true}
	b := IntSet{RootRanges: []IntRange{rng(5, 20)}}
	got := a.Intersect(b)

	testutil.ExpectTrue(t, got.Extensible)
	testutil.ExpectTrue(t, got.RootContains(5))
	testutil.ExpectTrue(t, got.RootContains(10))
	testutil.ExpectFalse(t, got.RootContains(11))
	testutil.ExpectTrue(t, got.Contains(2))
	testutil.ExpectTrue(t, got.Contains(20))
	testutil.ExpectFalse(t, got.Contains(21))

	// an extension value never repeats a root value
	for _, v := range got.Ext {
		testutil.ExpectFalse(t, got.RootContains(v))
	}
}

func TestIntersectEmpty(t *testing.T) {
	t.Parallel()

	a := IntSet{RootRanges: []IntRange{rng(1, 3)}}
	b := IntSet{Root: []Int{7, 8}}
	got := a.Intersect(b)
	testutil.ExpectTrue(t, got.IsEmpty())
	testutil.ExpectFalse(t, got.Extensible)
}

func TestSingleRangesCollapse(t *testing.T) {
	t.Parallel()

	a := IntSet{RootRanges: []IntRange{rng(1, 5)}}
	b := IntSet{RootRanges: []IntRange{rng(5, 9)}}
	got := a.Intersect(b)
	testutil.ExpectSliceEq(t, []Int{5}, got.Root)
	testutil.ExpectEq(t, 0, len(got.RootRanges))
}

func TestRealSpecialValues(t *testing.T) {
	t.Parallel()

	nan := valueset.Real{Special: valueset.SpecialNaN}
	inf := valueset.Real{Special: valueset.SpecialPlusInfinity}
	minf := valueset.Real{Special: valueset.SpecialMinusInfinity}

	all := valueset.Range[valueset.Real]{NoLb: true, NoUb: true}
	testutil.ExpectFalse(t, all.Contains(nan))
	testutil.ExpectTrue(t, all.Contains(inf))

	testutil.ExpectEq(t, 0, nan.Compare(nan))
	testutil.ExpectEq(t, -1, minf.Compare(valueset.RealFromInt(-1000)))
	testutil.ExpectEq(t, 1, inf.Compare(valueset.RealFromInt(1000)))

	set := valueset.ValueSet[valueset.Real]{Root: []valueset.Real{nan}}
	testutil.ExpectTrue(t, set.Contains(nan))
	testutil.ExpectFalse(t, set.Contains(inf))
}

func TestParseReal(t *testing.T) {
	t.Parallel()

	v, ok := valueset.ParseReal("3.14")
	testutil.AssertTrue(t, ok)
	testutil.ExpectEq(t, valueset.Real{Mantissa: 314, Base: 10, Exponent: -2}, v)

	v, ok = valueset.ParseReal("-1.5e3")
	testutil.AssertTrue(t, ok)
	testutil.ExpectEq(t, -1500.0, v.Float())

	half, _ := valueset.ParseReal("0.5")
	r := valueset.Range[valueset.Real]{Lb: valueset.RealFromInt(0), Ub: valueset.RealFromInt(1), UbExcl: true}
	testutil.ExpectTrue(t, r.Contains(half))
	testutil.ExpectFalse(t, r.Contains(valueset.RealFromInt(1)))
}
