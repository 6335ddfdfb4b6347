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

package compiler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/valueset"
)

// Value is a concrete ASN.1 value, a range or set element, or an
// unresolved parameter reference.
type Value interface {
	fmt.Stringer
	isValue()
}

type (
	IntValue    int64
	RealValue   valueset.Real
	BoolValue   bool
	NullValue   struct{}
	StrValue    string
	EnumValue   string
	BitStrValue string // '0' and '1' digits
	OctStrValue string // uppercase hex digits
	OIDValue    []uint64
	SeqOfValue  []Value
)

type FieldValue struct {
	Name  string
	Value Value
}

// SeqValue is a SEQUENCE or SET value, components in definition order.
type SeqValue []FieldValue

type ChoiceValue struct {
	Alt   string
	Value Value
}

// ClassField is one field setting of an information object. Obj holds a
// type (MODE_TYPE), a value (MODE_VALUE) or a set (MODE_SET).
type ClassField struct {
	Name string
	Obj  *Object
}

type ClassValue struct {
	Class  *Object
	Fields []ClassField
}

type OpenValue struct {
	Type  *Object
	Value Value
}

// RangeValue is a range element of a constraint or value set. NoLb and NoUb
// stand for MIN and MAX.
type RangeValue struct {
	Lb     Value
	Ub     Value
	NoLb   bool
	NoUb   bool
	LbExcl bool
	UbExcl bool
}

// SetValue embeds a whole value set as one element, as a value set
// reference does.
type SetValue struct {
	Set *ValueSet
}

// RefValue is a value standing for a formal parameter. It never survives
// in an instantiated definition.
type RefValue struct {
	Ref *ref.Ref
}

func (IntValue) isValue()    {}
func (RealValue) isValue()   {}
func (BoolValue) isValue()   {}
func (NullValue) isValue()   {}
func (StrValue) isValue()    {}
func (EnumValue) isValue()   {}
func (BitStrValue) isValue() {}
func (OctStrValue) isValue() {}
func (OIDValue) isValue()    {}
func (SeqValue) isValue()    {}
func (SeqOfValue) isValue()  {}
func (ChoiceValue) isValue() {}
func (ClassValue) isValue()  {}
func (OpenValue) isValue()   {}
func (RangeValue) isValue()  {}
func (SetValue) isValue()    {}
func (RefValue) isValue()    {}

func (v IntValue) String() string {
	return strconv.FormatInt(int64(v), 10)
}

func (v RealValue) String() string {
	return valueset.Real(v).String()
}

func (v BoolValue) String() string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

func (NullValue) String() string {
	return "NULL"
}

func (v StrValue) String() string {
	return `"` + strings.ReplaceAll(string(v), `"`, `""`) + `"`
}

func (v EnumValue) String() string {
	return string(v)
}

func (v BitStrValue) String() string {
	return "'" + string(v) + "'B"
}

func (v OctStrValue) String() string {
	return "'" + string(v) + "'H"
}

func (v OIDValue) String() string {
	arcs := make([]string, len(v))
	for ii, arc := range v {
		arcs[ii] = strconv.FormatUint(arc, 10)
	}
	return "{ " + strings.Join(arcs, " ") + " }"
}

func (v SeqValue) String() string {
	items := make([]string, len(v))
	for ii, fv := range v {
		items[ii] = fv.Name + " " + fv.Value.String()
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

func (v SeqOfValue) String() string {
	items := make([]string, len(v))
	for ii, item := range v {
		items[ii] = item.String()
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

func (v ChoiceValue) String() string {
	return v.Alt + " : " + v.Value.String()
}

func (v ClassValue) String() string {
	items := make([]string, len(v.Fields))
	for ii, f := range v.Fields {
		items[ii] = f.Name + " " + describeField(f.Obj)
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

func describeField(o *Object) string {
	switch o.Mode {
	case ModeValue:
		if o.Val != nil {
			return o.Val.String()
		}
	case ModeSet:
		if o.Set != nil {
			return describeSet(o.Set)
		}
	}
	if o.Ref != nil {
		return o.Ref.String()
	}
	return o.Type.String()
}

func (v OpenValue) String() string {
	if v.Value == nil {
		return describeField(v.Type)
	}
	return describeField(v.Type) + " : " + v.Value.String()
}

func (v RangeValue) String() string {
	var buf strings.Builder
	if v.NoLb {
		buf.WriteString("MIN")
	} else {
		buf.WriteString(v.Lb.String())
	}
	if v.LbExcl {
		buf.WriteByte('<')
	}
	buf.WriteString("..")
	if v.UbExcl {
		buf.WriteByte('<')
	}
	if v.NoUb {
		buf.WriteString("MAX")
	} else {
		buf.WriteString(v.Ub.String())
	}
	return buf.String()
}

func (v SetValue) String() string {
	return describeSet(v.Set)
}

func (v RefValue) String() string {
	return v.Ref.String()
}

func describeSet(s *ValueSet) string {
	var items []string
	for _, v := range s.Root {
		items = append(items, v.String())
	}
	if s.Extensible {
		items = append(items, "...")
		for _, v := range s.Ext {
			items = append(items, v.String())
		}
	}
	return "{ " + strings.Join(items, " | ") + " }"
}

// valueEqual compares two values structurally. Types inside open values
// and class values compare by reference or identity.
func valueEqual(a, b Value) bool {
	switch a := a.(type) {
	case OIDValue:
		b, ok := b.(OIDValue)
		return ok && slices.Equal(a, b)
	case SeqValue:
		b, ok := b.(SeqValue)
		return ok && slices.EqualFunc(a, b, func(x, y FieldValue) bool {
			return x.Name == y.Name && valueEqual(x.Value, y.Value)
		})
	case SeqOfValue:
		b, ok := b.(SeqOfValue)
		return ok && slices.EqualFunc(a, b, valueEqual)
	case ChoiceValue:
		b, ok := b.(ChoiceValue)
		return ok && a.Alt == b.Alt && valueEqual(a.Value, b.Value)
	case RealValue:
		b, ok := b.(RealValue)
		return ok && valueset.Real(a).Compare(valueset.Real(b)) == 0
	case ClassValue:
		b, ok := b.(ClassValue)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for ii := range a.Fields {
			if a.Fields[ii].Name != b.Fields[ii].Name ||
				!sameFieldSetting(a.Fields[ii].Obj, b.Fields[ii].Obj) {
				return false
			}
		}
		return true
	case OpenValue:
		b, ok := b.(OpenValue)
		return ok && sameType(a.Type, b.Type) && valueEqual(a.Value, b.Value)
	case RangeValue:
		b, ok := b.(RangeValue)
		return ok && a.NoLb == b.NoLb && a.NoUb == b.NoUb &&
			a.LbExcl == b.LbExcl && a.UbExcl == b.UbExcl &&
			(a.NoLb || valueEqual(a.Lb, b.Lb)) &&
			(a.NoUb || valueEqual(a.Ub, b.Ub))
	case SetValue:
		b, ok := b.(SetValue)
		return ok && a.Set == b.Set
	case RefValue:
		b, ok := b.(RefValue)
		return ok && a.Ref.Equal(b.Ref)
	case nil:
		return b == nil
	}
	return a == b
}

func sameFieldSetting(a, b *Object) bool {
	if a.Mode != b.Mode {
		return false
	}
	switch a.Mode {
	case ModeValue:
		return valueEqual(a.Val, b.Val)
	case ModeSet:
		return a.Set == b.Set
	}
	return sameType(a, b)
}

// sameType reports whether two type objects denote the same type: the
// same object, the same named reference, or the same unreferenced native
// type without constraints.
func sameType(a, b *Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Ref != nil && b.Ref != nil {
		return a.Ref.Equal(b.Ref)
	}
	if a.Ref != nil || b.Ref != nil {
		return false
	}
	return a.Type == b.Type && !a.Type.IsConstructed() && a.Type != TypeClass &&
		len(a.Const) == 0 && len(b.Const) == 0
}

// valueKey renders a value for equality-only sets.
func valueKey(v Value) valueset.Key {
	return valueset.Key(fmt.Sprintf("%T:%s", v, v))
}
