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

// Package valueset implements ranges and root/extension value sets over
// ordered ASN.1 value domains.
//
// The algebra never fails: malformed constraint text is rejected by the
// compiler before any set is built.
package valueset

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// Elem is an element of an ordered value domain. Next and Prev report the
// adjacent element of a discrete domain; continuous domains return false.
type Elem[T any] interface {
	comparable
	Compare(other T) int
	Next() (T, bool)
	Prev() (T, bool)
}

// unordered elements are never contained in a range.
type unordered interface {
	Unordered() bool
}

func isUnordered[T any](v T) bool {
	if u, ok := any(v).(unordered); ok {
		return u.Unordered()
	}
	return false
}

type Int int64

func (v Int) Compare(other Int) int {
	return cmp.Compare(v, other)
}

func (v Int) Next() (Int, bool) {
	if v == math.MaxInt64 {
		return v, false
	}
	return v + 1, true
}

func (v Int) Prev() (Int, bool) {
	if v == math.MinInt64 {
		return v, false
	}
	return v - 1, true
}

func (v Int) String() string {
	return strconv.FormatInt(int64(v), 10)
}

// Char is a character of a restricted character string alphabet.
type Char rune

func (v Char) Compare(other Char) int {
	return cmp.Compare(v, other)
}

func (v Char) Next() (Char, bool) {
	if v == math.MaxInt32 {
		return v, false
	}
	return v + 1, true
}

func (v Char) Prev() (Char, bool) {
	if v == 0 {
		return v, false
	}
	return v - 1, true
}

func (v Char) String() string {
	return strconv.QuoteRune(rune(v))
}

// Key is an element of a domain that only supports equality, such as
// ENUMERATED identifiers or OBJECT IDENTIFIER values. The ordering exists
// only to sort keys deterministically.
type Key string

func (v Key) Compare(other Key) int {
	return strings.Compare(string(v), string(other))
}

func (v Key) Next() (Key, bool) {
	return v, false
}

func (v Key) Prev() (Key, bool) {
	return v, false
}

type Special uint8

const (
	SpecialNone Special = iota
	SpecialMinusInfinity
	SpecialPlusInfinity
	SpecialNaN
)

func (s Special) String() string {
	switch s {
	case SpecialMinusInfinity:
		return "MINUS-INFINITY"
	case SpecialPlusInfinity:
		return "PLUS-INFINITY"
	case SpecialNaN:
		return "NOT-A-NUMBER"
	}
	return ""
}

// Real is a REAL value as a mantissa/base/exponent triple, or one of the
// special values. Special values compare by identity and are never
// converted to floating point.
type Real struct {
	Mantissa int64
	Base     int64
	Exponent int64
	Special  Special
}

func RealFromInt(v int64) Real {
	return Real{Mantissa: v, Base: 10}
}

// ParseReal converts a decimal literal such as "-1.25e3" into a base 10
// triple. The mantissa carries every significant digit.
func ParseReal(lit string) (Real, bool) {
	mant, exp := lit, int64(0)
	if idx := strings.IndexAny(lit, "eE"); idx >= 0 {
		e, err := strconv.ParseInt(lit[idx+1:], 10, 64)
		if err != nil {
			return Real{}, false
		}
		mant, exp = lit[:idx], e
	}
	if idx := strings.IndexByte(mant, '.'); idx >= 0 {
		frac := strings.TrimRight(mant[idx+1:], "0")
		exp -= int64(len(frac))
		mant = mant[:idx] + frac
	}
	m, err := strconv.ParseInt(mant, 10, 64)
	if err != nil {
		return Real{}, false
	}
	return Real{Mantissa: m, Base: 10, Exponent: exp}, true
}

func (v Real) Float() float64 {
	switch v.Special {
	case SpecialMinusInfinity:
		return math.Inf(-1)
	case SpecialPlusInfinity:
		return math.Inf(1)
	case SpecialNaN:
		return math.NaN()
	}
	base := v.Base
	if base == 0 {
		base = 10
	}
	return float64(v.Mantissa) * math.Pow(float64(base), float64(v.Exponent))
}

func (v Real) Unordered() bool {
	return v.Special == SpecialNaN
}

// Compare orders reals numerically, with MINUS-INFINITY first and
// PLUS-INFINITY last. NOT-A-NUMBER sorts after PLUS-INFINITY and is equal
// only to itself.
func (v Real) Compare(other Real) int {
	if v.Special != SpecialNone || other.Special != SpecialNone {
		return cmp.Compare(v.rank(), other.rank())
	}
	return cmp.Compare(v.Float(), other.Float())
}

func (v Real) rank() int {
	switch v.Special {
	case SpecialMinusInfinity:
		return -1
	case SpecialPlusInfinity:
		return 1
	case SpecialNaN:
		return 2
	}
	return 0
}

func (v Real) Next() (Real, bool) {
	return v, false
}

func (v Real) Prev() (Real, bool) {
	return v, false
}

func (v Real) String() string {
	if v.Special != SpecialNone {
		return v.Special.String()
	}
	return strconv.FormatFloat(v.Float(), 'g', -1, 64)
}
