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
	"errors"
	"strconv"
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
	"go.asn1c.org/asn1c/valueset"
)

// parseValue parses a value of type typ at the start of text and returns
// the value and the text left over.
func (ctx *Context) parseValue(typ *Object, text string) (Value, string, error) {
	text = strings.TrimSpace(text)
	if name, rest, ok := syntax.ValueRef(text); ok && !strings.HasPrefix(rest, ".") {
		if p := ctx.param(name); p != nil {
			if p.Kind != ParamValue {
				return nil, "", errWrongMode(name, ModeValue, paramMode(p.Kind))
			}
			ctx.refer(p)
			return RefValue{Ref: ref.NewParam(ref.KindValueRef, p.ref)}, rest, nil
		}
	}
	if typ.Ref != nil && typ.Ref.IsParam() {
		return nil, "", errNotSupported("Value of a formal parameter type", text)
	}
	ct, err := ctx.g.contentOf(typ)
	if err != nil {
		return nil, "", err
	}

	v, rest, handled, err := ctx.parseTypedValue(ct, text)
	if err != nil {
		return nil, "", err
	}
	if handled {
		return v, rest, nil
	}
	v, rest, ok, err := ctx.parseValueRef(text)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", errExpectedValue(ct.Type, text)
	}
	if v, ok = conform(ct.Type, v); !ok {
		return nil, "", errExpectedValue(ct.Type, text)
	}
	return v, rest, nil
}

// parseTypedValue parses the value notations specific to the native type
// of ct. handled is false when text is none of them, usually because it is
// a value reference.
func (ctx *Context) parseTypedValue(ct *Object, text string) (v Value, rest string, handled bool, err error) {
	switch ct.Type {
	case TypeInteger:
		if digits, rest, ok := syntax.Number(text); ok {
			n, err := parseInt(digits)
			return IntValue(n), rest, true, err
		}
		if name, rest, ok := syntax.ValueRef(text); ok && !strings.HasPrefix(rest, ".") {
			if n, ok := ct.NamedValue(name); ok {
				return IntValue(n), rest, true, nil
			}
		}

	case TypeReal:
		return parseReal(text)

	case TypeBoolean:
		if rest, ok := syntax.Word(text, "TRUE"); ok {
			return BoolValue(true), rest, true, nil
		}
		if rest, ok := syntax.Word(text, "FALSE"); ok {
			return BoolValue(false), rest, true, nil
		}

	case TypeNull:
		if rest, ok := syntax.Word(text, "NULL"); ok {
			return NullValue{}, rest, true, nil
		}

	case TypeEnumerated:
		if name, rest, ok := syntax.ValueRef(text); ok && !strings.HasPrefix(rest, ".") {
			if _, ok := ct.NamedValue(name); ok {
				return EnumValue(name), rest, true, nil
			}
		}

	case TypeBitString:
		if bits, rest, ok := syntax.BString(text); ok {
			return BitStrValue(bits), rest, true, nil
		}
		if hex, rest, ok := syntax.HString(text); ok {
			return BitStrValue(hexToBits(hex)), rest, true, nil
		}
		if strings.HasPrefix(text, "{") {
			return parseNamedBits(ct, text)
		}

	case TypeOctetString:
		if hex, rest, ok := syntax.HString(text); ok {
			return OctStrValue(hex), rest, true, nil
		}
		if bits, rest, ok := syntax.BString(text); ok {
			return OctStrValue(bitsToHex(bits)), rest, true, nil
		}

	case TypeObjectIdentifier, TypeRelativeOID:
		if strings.HasPrefix(text, "{") {
			inner, rest, err := syntax.ExtractCurly(text)
			if err != nil {
				return nil, "", true, errSyntax(err)
			}
			arcs, err := parseOIDArcs(inner, ctx.oidPrefix)
			return OIDValue(arcs), rest, true, err
		}

	case TypeSequence, TypeSet:
		if strings.HasPrefix(text, "{") {
			return ctx.parseSeqValue(ct, text)
		}

	case TypeSequenceOf, TypeSetOf:
		if strings.HasPrefix(text, "{") {
			return ctx.parseSeqOfValue(ct, text)
		}

	case TypeChoice:
		if name, after, ok := syntax.ValueRef(text); ok {
			if after, ok := syntax.Symbol(after, ":"); ok {
				return ctx.parseChoiceValue(ct, name, after)
			}
		}

	case TypeClass:
		if strings.HasPrefix(text, "{") {
			v, rest, err := ctx.parseClassValue(ct, text)
			return v, rest, true, err
		}

	case TypeOpen, TypeAny:
		if _, _, ok := syntax.TypeRef(text); ok {
			return ctx.parseOpenValue(text)
		}

	case TypeExternal, TypeEmbeddedPDV, TypeCharacterString, TypeUnknown:
		if strings.HasPrefix(text, "{") {
			return nil, "", true, errNotSupported("Value notation of "+ct.Type.String(), text)
		}

	default:
		if ct.Type.IsString() {
			return parseStringValue(text)
		}
	}
	return nil, text, false, nil
}

// parseValueRef resolves "[Module.]value{.&field}" to the value it names.
func (ctx *Context) parseValueRef(text string) (Value, string, bool, error) {
	name, rest, ok := syntax.Ident(text)
	if !ok {
		return nil, text, false, nil
	}
	module := ""
	if syntax.IsUpper(name) {
		if !strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, ".&") {
			return nil, text, false, nil
		}
		second, after, ok := syntax.ValueRef(rest[1:])
		if !ok {
			return nil, text, false, nil
		}
		module, name, rest = name, second, after
	}
	var path []string
	for strings.HasPrefix(rest, ".&") {
		field, after, ok := syntax.FieldRef(rest[1:])
		if !ok {
			return nil, "", false, errExpectedValue(TypeUnknown, text)
		}
		path = append(path, field)
		rest = after
	}
	if module == "" && ctx.param(name) != nil {
		return nil, "", false, errNotSupported("Field of a formal parameter in a value", text)
	}

	e, err := ctx.lookup(module, name)
	if err != nil {
		return nil, "", false, err
	}
	if e.mode != ModeValue {
		return nil, "", false, errWrongMode(e.name, ModeValue, e.mode)
	}
	if e.params != "" {
		return nil, "", false, errNotSupported("Parameterized value reference", text)
	}
	target, err := ctx.g.compiled(e.refName())
	if err != nil {
		return nil, "", false, err
	}
	r := ref.New(ref.KindValueRef, e.mod.Name, e.name)
	if len(path) > 0 {
		setting, err := ctx.g.objectField(target, path)
		if err != nil {
			return nil, "", false, err
		}
		if setting.Mode != ModeValue {
			return nil, "", false, errWrongMode(e.name+".&"+strings.Join(path, ".&"), ModeValue, setting.Mode)
		}
		target = setting
		r = ref.New(ref.KindClassValueFieldRef, e.mod.Name, e.name, path...)
	}
	if target.Val == nil {
		return nil, "", false, errObj("value " + target.QualifiedName() + " has no value")
	}
	if ctx.root != nil {
		ctx.root.addRef(r)
	}
	return target.Val, rest, true, nil
}

// conform checks that a referenced value fits a native type, converting
// INTEGER values used as REAL.
func conform(typ NativeType, v Value) (Value, bool) {
	switch typ {
	case TypeOpen, TypeAny:
		return v, true
	}
	switch v := v.(type) {
	case IntValue:
		switch typ {
		case TypeInteger:
			return v, true
		case TypeReal:
			return RealValue(valueset.RealFromInt(int64(v))), true
		}
	case RealValue:
		return v, typ == TypeReal
	case BoolValue:
		return v, typ == TypeBoolean
	case NullValue:
		return v, typ == TypeNull
	case EnumValue:
		return v, typ == TypeEnumerated
	case BitStrValue:
		return v, typ == TypeBitString
	case OctStrValue:
		return v, typ == TypeOctetString
	case OIDValue:
		return v, typ == TypeObjectIdentifier || typ == TypeRelativeOID
	case StrValue:
		return v, typ.IsString()
	case SeqValue:
		return v, typ == TypeSequence || typ == TypeSet
	case SeqOfValue:
		return v, typ.IsList()
	case ChoiceValue:
		return v, typ == TypeChoice
	case ClassValue:
		return v, typ == TypeClass
	}
	return nil, false
}

func parseReal(text string) (Value, string, bool, error) {
	specials := []struct {
		word    string
		special valueset.Special
	}{
		{"PLUS-INFINITY", valueset.SpecialPlusInfinity},
		{"MINUS-INFINITY", valueset.SpecialMinusInfinity},
		{"NOT-A-NUMBER", valueset.SpecialNaN},
	}
	for _, sp := range specials {
		if rest, ok := syntax.Word(text, sp.word); ok {
			return RealValue(valueset.Real{Special: sp.special}), rest, true, nil
		}
	}
	if lit, rest, ok := syntax.RealLit(text); ok {
		r, ok := valueset.ParseReal(lit)
		if !ok {
			return nil, "", true, errIntegerOverflow(lit)
		}
		return RealValue(r), rest, true, nil
	}
	if digits, rest, ok := syntax.Number(text); ok {
		n, err := parseInt(digits)
		return RealValue(valueset.RealFromInt(n)), rest, true, err
	}
	if !strings.HasPrefix(text, "{") {
		return nil, text, false, nil
	}

	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	parts := syntax.SplitTop(inner, ',')
	if len(parts) != 3 {
		return nil, "", true, errExpectedValue(TypeReal, text)
	}
	var nums [3]int64
	for ii, word := range []string{"mantissa", "base", "exponent"} {
		part, _ := syntax.Word(parts[ii], word)
		digits, after, ok := syntax.Number(part)
		if !ok || after != "" {
			return nil, "", true, errExpectedValue(TypeReal, text)
		}
		if nums[ii], err = parseInt(digits); err != nil {
			return nil, "", true, err
		}
	}
	if nums[1] != 2 && nums[1] != 10 {
		return nil, "", true, errExpectedValue(TypeReal, text)
	}
	return RealValue(valueset.Real{Mantissa: nums[0], Base: nums[1], Exponent: nums[2]}), rest, true, nil
}

func parseNamedBits(ct *Object, text string) (Value, string, bool, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	var set []int64
	width := int64(0)
	for _, name := range syntax.SplitTop(inner, ',') {
		bit, ok := ct.NamedValue(name)
		if !ok {
			return nil, "", true, errUnknownIdentifier(TypeBitString, name)
		}
		set = append(set, bit)
		width = max(width, bit+1)
	}
	bits := []byte(strings.Repeat("0", int(width)))
	for _, bit := range set {
		bits[bit] = '1'
	}
	return BitStrValue(bits), rest, true, nil
}

func hexToBits(hex string) string {
	var buf strings.Builder
	for ii := 0; ii < len(hex); ii++ {
		n, _ := strconv.ParseUint(hex[ii:ii+1], 16, 8)
		buf.WriteString(strconv.FormatUint(n|0x10, 2)[1:])
	}
	return buf.String()
}

// bitsToHex pads bits with zeros to a whole number of octets.
func bitsToHex(bits string) string {
	if pad := len(bits) % 8; pad != 0 {
		bits += strings.Repeat("0", 8-pad)
	}
	var buf strings.Builder
	for ii := 0; ii < len(bits); ii += 4 {
		n, _ := strconv.ParseUint(bits[ii:ii+4], 2, 8)
		buf.WriteString(strings.ToUpper(strconv.FormatUint(n, 16)))
	}
	return buf.String()
}

func parseStringValue(text string) (Value, string, bool, error) {
	s, rest, ok, err := syntax.CString(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	if ok {
		return StrValue(s), rest, true, nil
	}
	if !strings.HasPrefix(text, "{") {
		return nil, text, false, nil
	}
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	var buf strings.Builder
	for _, part := range syntax.SplitTop(inner, ',') {
		s, after, ok, err := syntax.CString(part)
		if err != nil {
			return nil, "", true, errSyntax(err)
		}
		if !ok || after != "" {
			return nil, "", true, errNotSupported("Character string value notation", text)
		}
		buf.WriteString(s)
	}
	return StrValue(buf.String()), rest, true, nil
}

func (ctx *Context) parseSeqValue(ct *Object, text string) (Value, string, bool, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	given := make(map[string]Value)
	for _, item := range syntax.SplitTop(inner, ',') {
		name, vtext, ok := syntax.ValueRef(item)
		if !ok {
			return nil, "", true, errExpectedValue(ct.Type, item)
		}
		comp := ct.Component(name)
		if comp == nil {
			return nil, "", true, errNoField(ct.QualifiedName(), name)
		}
		if _, dup := given[name]; dup {
			return nil, "", true, errDuplicateComponent(name)
		}
		mark := ctx.pushPath(Name(name))
		v, after, err := ctx.parseValue(comp, vtext)
		ctx.restorePath(mark)
		if err != nil {
			return nil, "", true, err
		}
		if strings.TrimSpace(after) != "" {
			return nil, "", true, errTrailing(after)
		}
		given[name] = v
	}

	var out SeqValue
	for _, comp := range ct.Comps {
		v, ok := given[comp.Name]
		if !ok {
			if !comp.Optional && comp.Default == nil && !ct.isExtension(comp.Name) {
				return nil, "", true, errMissingComponent(comp.Name)
			}
			continue
		}
		out = append(out, FieldValue{Name: comp.Name, Value: v})
	}
	for gi, group := range ct.Groups {
		var missing []string
		for _, name := range group {
			if _, ok := given[name]; !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 && len(missing) < len(group) {
			return nil, "", true, errGroupPresence(gi, missing[0])
		}
	}
	return out, rest, true, nil
}

func (ctx *Context) parseSeqOfValue(ct *Object, text string) (Value, string, bool, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", true, errSyntax(err)
	}
	if ct.Item == nil {
		return nil, "", true, errObj("list type " + ct.QualifiedName() + " has no item")
	}
	out := SeqOfValue{}
	for ii, item := range syntax.SplitTop(inner, ',') {
		mark := ctx.pushPath(Index(ii))
		v, after, err := ctx.parseValue(ct.Item, item)
		ctx.restorePath(mark)
		if err != nil {
			return nil, "", true, err
		}
		if strings.TrimSpace(after) != "" {
			return nil, "", true, errTrailing(after)
		}
		out = append(out, v)
	}
	return out, rest, true, nil
}

func (ctx *Context) parseChoiceValue(ct *Object, alt, text string) (Value, string, bool, error) {
	comp := ct.Component(alt)
	if comp == nil {
		return nil, "", true, errNoField(ct.QualifiedName(), alt)
	}
	defer ctx.restorePath(ctx.pushPath(Name(alt)))
	v, rest, err := ctx.parseValue(comp, text)
	if err != nil {
		return nil, "", true, err
	}
	return ChoiceValue{Alt: alt, Value: v}, rest, true, nil
}

// parseOpenValue reads "Type : value".
func (ctx *Context) parseOpenValue(text string) (Value, string, bool, error) {
	typ := ctx.newObject("", ModeType)
	rest, err := ctx.parseType(typ, text)
	if err != nil {
		return nil, "", true, err
	}
	rest, ok := syntax.Symbol(rest, ":")
	if !ok {
		return nil, "", true, errExpectedValue(TypeOpen, text)
	}
	v, rest, err := ctx.parseValue(typ, rest)
	if err != nil {
		return nil, "", true, err
	}
	return OpenValue{Type: typ, Value: v}, rest, true, nil
}

// oidPrefix resolves the leading value reference of an OBJECT IDENTIFIER
// value.
func (ctx *Context) oidPrefix(name string) ([]uint64, error) {
	v, rest, ok, err := ctx.parseValueRef(name)
	if err != nil {
		return nil, err
	}
	oid, isOID := v.(OIDValue)
	if !ok || !isOID || rest != "" {
		return nil, errUnknownIdentifier(TypeObjectIdentifier, name)
	}
	return oid, nil
}

var (
	oidRoots = map[string]uint64{
		"itu-t": 0, "ccitt": 0, "iso": 1, "joint-iso-itu-t": 2, "joint-iso-ccitt": 2,
	}
	oidITU = map[string]uint64{
		"recommendation": 0, "question": 1, "administration": 2,
		"network-operator": 3, "identified-organization": 4,
	}
	oidISO = map[string]uint64{
		"standard": 0, "registration-authority": 1, "member-body": 2,
		"identified-organization": 3,
	}
)

func wellKnownArc(prefix []uint64, name string) (uint64, bool) {
	var names map[string]uint64
	switch {
	case len(prefix) == 0:
		names = oidRoots
	case len(prefix) == 1 && prefix[0] == 0:
		names = oidITU
	case len(prefix) == 1 && prefix[0] == 1:
		names = oidISO
	}
	arc, ok := names[name]
	return arc, ok
}

// parseOIDArcs reads the components of an OBJECT IDENTIFIER value: numbers,
// "name(number)" forms, well-known arc names, and a leading value
// reference resolved by lookup.
func parseOIDArcs(text string, lookup func(name string) ([]uint64, error)) ([]uint64, error) {
	var arcs []uint64
	rest := strings.TrimSpace(text)
	for rest != "" {
		if digits, after, ok := syntax.Number(rest); ok {
			arc, err := parseArc(digits)
			if err != nil {
				return nil, err
			}
			arcs = append(arcs, arc)
			rest = after
			continue
		}
		name, after, ok := syntax.Ident(rest)
		if !ok {
			return nil, errExpectedValue(TypeObjectIdentifier, text)
		}
		rest = after
		if strings.HasPrefix(rest, "(") {
			inner, after, err := syntax.ExtractParen(rest)
			if err != nil {
				return nil, errSyntax(err)
			}
			arc, err := parseArc(strings.TrimSpace(inner))
			if err != nil {
				return nil, err
			}
			arcs = append(arcs, arc)
			rest = after
			continue
		}
		if arc, ok := wellKnownArc(arcs, name); ok {
			arcs = append(arcs, arc)
			continue
		}
		if len(arcs) == 0 && lookup != nil {
			prefix, err := lookup(name)
			if err != nil {
				return nil, err
			}
			arcs = append(arcs, prefix...)
			continue
		}
		return nil, errUnknownIdentifier(TypeObjectIdentifier, name)
	}
	return arcs, nil
}

func parseArc(digits string) (uint64, error) {
	arc, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errIntegerOverflow(digits)
		}
		return 0, errExpectedValue(TypeObjectIdentifier, digits)
	}
	return arc, nil
}
