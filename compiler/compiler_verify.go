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
	"log/slog"
	"unicode/utf8"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/valueset"
)

// verifyModule runs the checks that need the whole graph: parameter
// bookkeeping of templates, and constraint legality, emptiness and value
// conformance of everything else.
func (g *Graph) verifyModule(mod *Module) error {
	for _, e := range mod.assigns {
		obj := e.obj
		if obj == nil {
			continue
		}
		v := &verifier{g: g, object: e.qualifiedName(), seen: make(map[*Object]bool)}
		var err error
		if obj.IsParameterized() {
			err = v.referrers(obj)
		} else {
			err = v.walk(obj)
		}
		if err != nil {
			return withObject(err, v.object)
		}
	}
	g.log.log(slog.LevelDebug, "verified module", slog.String("module", mod.Name))
	return nil
}

type verifier struct {
	g      *Graph
	object string
	seen   map[*Object]bool
}

func (v *verifier) soft(err error) error {
	return v.g.soft(withObject(err, v.object))
}

// referrers checks that every referrer path of every formal parameter
// still addresses a placeholder of that parameter.
func (v *verifier) referrers(tmpl *Object) error {
	for _, p := range tmpl.Params {
		for _, rp := range p.Referrers {
			x, err := tmpl.Get(rp)
			if err != nil {
				return errParamReferrer(p.Name, rp)
			}
			var found *ref.Param
			switch x := x.(type) {
			case *Object:
				if x.Ref != nil {
					found = x.Ref.Param
				}
			case *ref.Param:
				found = x
			case RefValue:
				found = x.Ref.Param
			}
			if found == nil || found != p.ref || found.Name != p.Name {
				return errParamReferrer(p.Name, rp)
			}
		}
	}
	return nil
}

// walk verifies o and every object nested in its content and constraints.
func (v *verifier) walk(o *Object) error {
	if o == nil || v.seen[o] {
		return nil
	}
	v.seen[o] = true
	if o.Ref != nil && o.Ref.IsParam() {
		return nil
	}
	if err := v.check(o); err != nil {
		return err
	}
	for _, comp := range o.Comps {
		if err := v.walk(comp); err != nil {
			return err
		}
	}
	for _, field := range o.Fields {
		if err := v.walk(field); err != nil {
			return err
		}
	}
	if err := v.walk(o.Item); err != nil {
		return err
	}
	for _, c := range o.Const {
		if err := v.walk(c.Containing); err != nil {
			return err
		}
	}
	return nil
}

// combined holds the intersection of the same-kind constraints of an
// object, per value domain. A nil set means no constraint of that kind.
// The excl* lists hold the sets named by "ALL EXCEPT" constraints.
type combined struct {
	ints  *valueset.ValueSet[valueset.Int]
	reals *valueset.ValueSet[valueset.Real]
	keys  *valueset.ValueSet[valueset.Key]
	size  *valueset.ValueSet[valueset.Int]
	chars *valueset.ValueSet[valueset.Char]

	exclInts  []valueset.ValueSet[valueset.Int]
	exclReals []valueset.ValueSet[valueset.Real]
	exclKeys  []valueset.ValueSet[valueset.Key]
	exclSize  []valueset.ValueSet[valueset.Int]
}

func (v *verifier) check(o *Object) error {
	if o.Mode == ModeType && o.Type == TypeClass {
		return nil
	}
	ct, err := v.g.contentOf(o)
	if err != nil {
		return err
	}
	consts, err := v.g.effectiveConstraints(o)
	if err != nil {
		return err
	}
	typ := ct.Type
	for _, c := range consts {
		if !c.Kind.IsInert() && !constraintApplies(c.Kind, typ) {
			return errConstraintKind(c.Kind, typ)
		}
	}

	comb, err := v.combine(typ, consts)
	if err != nil {
		return err
	}
	if o.Val != nil {
		if err := v.conform(ct, comb, o.Val); err != nil {
			return err
		}
	}
	if o.Default != nil {
		if err := v.conform(ct, comb, o.Default); err != nil {
			return err
		}
	}
	if o.Set != nil && typ != TypeClass {
		for _, elem := range o.Set.All() {
			if err := v.conform(ct, comb, elem); err != nil {
				return err
			}
		}
	}
	if typ.IsConstructed() {
		v.tableKeys(ct)
	}
	return nil
}

func constraintApplies(kind ConstKind, typ NativeType) bool {
	switch typ {
	case TypeUnknown, TypeOpen, TypeAny:
		return true
	}
	switch kind {
	case ConstVal, ConstTable:
		return typ != TypeClass
	case ConstSize:
		return typ.IsString() || typ.IsList() ||
			typ == TypeBitString || typ == TypeOctetString || typ == TypeCharacterString
	case ConstAlphabet:
		return typ.IsRestrictedString()
	case ConstContaining:
		return typ == TypeBitString || typ == TypeOctetString
	case ConstWithComps:
		return typ.IsConstructed() || typ == TypeExternal ||
			typ == TypeEmbeddedPDV || typ == TypeCharacterString
	}
	return true
}

// combine intersects the VAL, SIZE and ALPHABET constraints of an object
// and checks that VAL and SIZE leave at least one root value.
func (v *verifier) combine(typ NativeType, consts []*Constraint) (*combined, error) {
	comb := &combined{}
	for _, c := range consts {
		if c.Excl {
			comb.exclude(typ, c)
			continue
		}
		switch {
		case c.Kind == ConstSize:
			comb.size = intersectInto(comb.size, c, intElem)
		case c.Kind == ConstAlphabet:
			comb.chars = intersectInto(comb.chars, c, charElem)
		case c.Kind == ConstVal && typ == TypeInteger:
			comb.ints = intersectInto(comb.ints, c, intElem)
		case c.Kind == ConstVal && typ == TypeReal:
			comb.reals = intersectInto(comb.reals, c, realElem)
		case c.Kind == ConstVal:
			comb.keys = intersectInto(comb.keys, c, keyElem)
		}
	}
	empty := func(kind ConstKind, root bool) error {
		if root {
			return v.soft(errEmptyConstraint(kind))
		}
		return nil
	}
	if comb.ints != nil {
		if err := empty(ConstVal, comb.ints.RootIsEmpty()); err != nil {
			return nil, err
		}
	}
	if comb.reals != nil {
		if err := empty(ConstVal, comb.reals.RootIsEmpty()); err != nil {
			return nil, err
		}
	}
	if comb.keys != nil {
		if err := empty(ConstVal, comb.keys.RootIsEmpty()); err != nil {
			return nil, err
		}
	}
	if comb.size != nil {
		if err := empty(ConstSize, comb.size.RootIsEmpty()); err != nil {
			return nil, err
		}
	}
	return comb, nil
}

// exclude records the set of an "ALL EXCEPT" constraint. Extensible
// exclusions accept any value and are not recorded.
func (comb *combined) exclude(typ NativeType, c *Constraint) {
	if c.Extensible {
		return
	}
	switch {
	case c.Kind == ConstSize:
		comb.exclSize = appendExcluded(comb.exclSize, c, intElem)
	case c.Kind == ConstVal && typ == TypeInteger:
		comb.exclInts = appendExcluded(comb.exclInts, c, intElem)
	case c.Kind == ConstVal && typ == TypeReal:
		comb.exclReals = appendExcluded(comb.exclReals, c, realElem)
	case c.Kind == ConstVal:
		comb.exclKeys = appendExcluded(comb.exclKeys, c, keyElem)
	}
}

func appendExcluded[T valueset.Elem[T]](sets []valueset.ValueSet[T], c *Constraint, conv elemFunc[T]) []valueset.ValueSet[T] {
	set, ok := buildSet(c.Root, nil, false, conv)
	if !ok {
		return sets
	}
	return append(sets, set)
}

func anyContains[T valueset.Elem[T]](sets []valueset.ValueSet[T], v T) bool {
	for _, set := range sets {
		if set.Contains(v) {
			return true
		}
	}
	return false
}

// elemFunc converts a constraint element into a single value or a range.
// ok is false for elements outside the domain, which disable the check.
type elemFunc[T valueset.Elem[T]] func(v Value) (single T, r *valueset.Range[T], ok bool)

// intersectInto intersects acc with the set of c. Constraints holding an
// element the domain cannot express are left out.
func intersectInto[T valueset.Elem[T]](acc *valueset.ValueSet[T], c *Constraint, conv elemFunc[T]) *valueset.ValueSet[T] {
	set, ok := buildSet(c.Root, c.Ext, c.Extensible, conv)
	if !ok {
		return acc
	}
	if acc == nil {
		return &set
	}
	out := acc.Intersect(set)
	return &out
}

func buildSet[T valueset.Elem[T]](root, ext []Value, extensible bool, conv elemFunc[T]) (valueset.ValueSet[T], bool) {
	out := valueset.ValueSet[T]{Extensible: extensible}
	add := func(elems []Value, values *[]T, ranges *[]valueset.Range[T]) bool {
		for _, elem := range elems {
			if sv, ok := elem.(SetValue); ok && sv.Set != nil {
				nested, ok := buildSet(sv.Set.Root, sv.Set.Ext, sv.Set.Extensible, conv)
				if !ok {
					return false
				}
				*values = append(*values, nested.Root...)
				*ranges = append(*ranges, nested.RootRanges...)
				continue
			}
			single, r, ok := conv(elem)
			if !ok {
				return false
			}
			if r != nil {
				*ranges = append(*ranges, *r)
			} else {
				*values = append(*values, single)
			}
		}
		return true
	}
	if !add(root, &out.Root, &out.RootRanges) || !add(ext, &out.Ext, &out.ExtRanges) {
		return out, false
	}
	return out, true
}

// rangeOf converts a RangeValue with the bound conversion fn.
func rangeOf[T valueset.Elem[T]](rv RangeValue, fn func(Value) (T, bool)) (*valueset.Range[T], bool) {
	r := valueset.Range[T]{NoLb: rv.NoLb, NoUb: rv.NoUb, LbExcl: rv.LbExcl, UbExcl: rv.UbExcl}
	var ok bool
	if !rv.NoLb {
		if r.Lb, ok = fn(rv.Lb); !ok {
			return nil, false
		}
	}
	if !rv.NoUb {
		if r.Ub, ok = fn(rv.Ub); !ok {
			return nil, false
		}
	}
	return &r, true
}

func intBound(v Value) (valueset.Int, bool) {
	n, ok := v.(IntValue)
	return valueset.Int(n), ok
}

func intElem(v Value) (valueset.Int, *valueset.Range[valueset.Int], bool) {
	if rv, ok := v.(RangeValue); ok {
		r, ok := rangeOf(rv, intBound)
		return 0, r, ok
	}
	n, ok := intBound(v)
	return n, nil, ok
}

func realBound(v Value) (valueset.Real, bool) {
	switch v := v.(type) {
	case RealValue:
		return valueset.Real(v), true
	case IntValue:
		return valueset.RealFromInt(int64(v)), true
	}
	return valueset.Real{}, false
}

func realElem(v Value) (valueset.Real, *valueset.Range[valueset.Real], bool) {
	if rv, ok := v.(RangeValue); ok {
		r, ok := rangeOf(rv, realBound)
		return valueset.Real{}, r, ok
	}
	x, ok := realBound(v)
	return x, nil, ok
}

func charBound(v Value) (valueset.Char, bool) {
	s, ok := v.(StrValue)
	if !ok || utf8.RuneCountInString(string(s)) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(string(s))
	return valueset.Char(r), true
}

// charElem accepts single characters and character ranges. Longer
// strings in an alphabet stand for each of their characters, which a
// single element cannot express.
func charElem(v Value) (valueset.Char, *valueset.Range[valueset.Char], bool) {
	if rv, ok := v.(RangeValue); ok {
		r, ok := rangeOf(rv, charBound)
		return 0, r, ok
	}
	c, ok := charBound(v)
	return c, nil, ok
}

func keyElem(v Value) (valueset.Key, *valueset.Range[valueset.Key], bool) {
	switch v.(type) {
	case RangeValue, RefValue, OpenValue, ClassValue:
		return "", nil, false
	}
	return valueKey(v), nil, true
}

// conform checks one concrete value of a type against its combined
// constraints. Extensible constraints accept any value.
func (v *verifier) conform(ct *Object, comb *combined, val Value) error {
	switch val.(type) {
	case RangeValue, RefValue, SetValue:
		return nil
	}
	if ev, ok := val.(EnumValue); ok && ct.Type == TypeEnumerated {
		if _, known := ct.NamedValue(string(ev)); !known {
			return errUnknownIdentifier(ct.Type, string(ev))
		}
	}
	fail := func(kind ConstKind) error {
		return v.soft(errValueConstraint(kind, val.String()))
	}
	if comb.ints != nil && !comb.ints.Extensible {
		if n, ok := intBound(val); ok && !comb.ints.Contains(n) {
			return fail(ConstVal)
		}
	}
	if comb.reals != nil && !comb.reals.Extensible {
		if x, ok := realBound(val); ok && !comb.reals.Contains(x) {
			return fail(ConstVal)
		}
	}
	if comb.keys != nil && !comb.keys.Extensible {
		if k, _, ok := keyElem(val); ok && !comb.keys.Contains(k) {
			return fail(ConstVal)
		}
	}
	if comb.size != nil && !comb.size.Extensible {
		if n, ok := valueSize(val); ok && !comb.size.Contains(valueset.Int(n)) {
			return fail(ConstSize)
		}
	}
	if n, ok := intBound(val); ok && anyContains(comb.exclInts, n) {
		return fail(ConstVal)
	}
	if x, ok := realBound(val); ok && anyContains(comb.exclReals, x) {
		return fail(ConstVal)
	}
	if k, _, ok := keyElem(val); ok && anyContains(comb.exclKeys, k) {
		return fail(ConstVal)
	}
	if n, ok := valueSize(val); ok && anyContains(comb.exclSize, valueset.Int(n)) {
		return fail(ConstSize)
	}
	if comb.chars != nil && !comb.chars.Extensible {
		if s, ok := val.(StrValue); ok {
			for _, r := range string(s) {
				if !comb.chars.Contains(valueset.Char(r)) {
					return fail(ConstAlphabet)
				}
			}
		}
	}
	return nil
}

// valueSize returns the length SIZE constraints measure: characters,
// bits, octets or items.
func valueSize(val Value) (int64, bool) {
	switch val := val.(type) {
	case StrValue:
		return int64(utf8.RuneCountInString(string(val))), true
	case BitStrValue:
		return int64(len(val)), true
	case OctStrValue:
		return int64(len(val) / 2), true
	case SeqOfValue:
		return int64(len(val)), true
	}
	return 0, false
}

// tableKeys warns when a table constraint maps one key value to two
// different open types. Only keys given by a sibling component are
// checked.
func (v *verifier) tableKeys(ct *Object) {
	for _, comp := range ct.Comps {
		if comp.Type != TypeOpen || comp.Ref == nil || len(comp.Ref.Path) != 1 {
			continue
		}
		for _, c := range comp.Const {
			if c.Kind != ConstTable || len(c.At) != 1 || c.Tab == nil || c.Tab.Set == nil {
				continue
			}
			key := ct.Component(c.At[0])
			if key == nil || key.Ref == nil || len(key.Ref.Path) != 1 {
				continue
			}
			v.checkKeys(c.Tab.Set, key.Ref.Path[0], comp.Ref.Path[0])
		}
	}
}

func (v *verifier) checkKeys(set *ValueSet, keyField, typeField string) {
	types := make(map[valueset.Key]*Object)
	warned := make(map[valueset.Key]bool)
	for _, elem := range set.All() {
		obj, ok := elem.(ClassValue)
		if !ok {
			continue
		}
		var keyObj, typeObj *Object
		for _, f := range obj.Fields {
			switch f.Name {
			case keyField:
				keyObj = f.Obj
			case typeField:
				typeObj = f.Obj
			}
		}
		if keyObj == nil || keyObj.Val == nil || typeObj == nil {
			continue
		}
		key := valueKey(keyObj.Val)
		prev, dup := types[key]
		if !dup {
			types[key] = typeObj
			continue
		}
		if !sameType(prev, typeObj) && !warned[key] {
			warned[key] = true
			v.g.warn(warnDuplicateTableKey(v.object, keyObj.Val.String()))
		}
	}
}
