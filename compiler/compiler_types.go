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
	"slices"
	"strconv"
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

type tagSpec struct {
	class    TagClass
	number   string
	explicit bool
	implicit bool
}

var tagClasses = []struct {
	word  string
	class TagClass
}{
	{"UNIVERSAL", TagUniversal},
	{"APPLICATION", TagApplication},
	{"PRIVATE", TagPrivate},
}

// scanTag reads "[CLASS number] IMPLICIT|EXPLICIT" at the start of text.
func scanTag(text string) (*tagSpec, string, error) {
	inner, rest, err := syntax.ExtractSquare(text)
	if err != nil {
		return nil, text, errSyntax(err)
	}
	spec := &tagSpec{}
	for _, tc := range tagClasses {
		if after, ok := syntax.Word(inner, tc.word); ok {
			spec.class, inner = tc.class, after
			break
		}
	}
	spec.number = strings.TrimSpace(inner)
	if spec.number == "" || strings.ContainsAny(spec.number, " :") {
		return nil, text, errInvalidTag(text)
	}
	if after, ok := syntax.Word(rest, "IMPLICIT"); ok {
		spec.implicit, rest = true, after
	} else if after, ok := syntax.Word(rest, "EXPLICIT"); ok {
		spec.explicit, rest = true, after
	}
	return spec, rest, nil
}

// needsExplicit reports whether a tag on typ must be explicit whatever the
// tagging environment says.
func needsExplicit(typ NativeType) bool {
	switch typ {
	case TypeChoice, TypeOpen, TypeAny, TypeUnknown:
		return true
	}
	return false
}

func (s *tagSpec) mode(mod *Module, typ NativeType) TagMode {
	switch {
	case s.explicit || needsExplicit(typ):
		return TagExplicit
	case s.implicit || mod.TagDefault != TagsExplicit:
		return TagImplicit
	}
	return TagExplicit
}

func (s *tagSpec) resolve(mod *Module, typ NativeType) *Tag {
	return &Tag{Class: s.class, Mode: s.mode(mod, typ)}
}

// resolveTag evaluates the tag number: a literal, a formal value
// parameter, or an INTEGER value reference.
func (ctx *Context) resolveTag(spec *tagSpec, typ NativeType) (*Tag, error) {
	tag := spec.resolve(ctx.mod, typ)
	if isDigits(spec.number) {
		v, err := parseInt(spec.number)
		if err != nil {
			return nil, err
		}
		tag.Value = v
		return tag, nil
	}
	if p := ctx.param(spec.number); p != nil {
		if p.Kind != ParamValue {
			return nil, errInvalidTag(spec.number)
		}
		tag.Param = p.ref
		ctx.refer(p, Name("tag"), Index(0))
		return tag, nil
	}
	v, rest, err := ctx.parseValue(ctx.g.intType, spec.number)
	if err != nil {
		return nil, err
	}
	iv, ok := v.(IntValue)
	if !ok || rest != "" || iv < 0 {
		return nil, errInvalidTag(spec.number)
	}
	tag.Value = int64(iv)
	return tag, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for ii := 0; ii < len(s); ii++ {
		if s[ii] < '0' || s[ii] > '9' {
			return false
		}
	}
	return true
}

func parseInt(digits string) (int64, error) {
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, errIntegerOverflow(digits)
		}
		return 0, errExpectedValue(TypeInteger, digits)
	}
	return v, nil
}

// matchNative matches a native type keyword. SEQUENCE and SET followed by
// OF, SIZE or a constraint are the list types.
func matchNative(text string) (NativeType, string, bool) {
	for typ := TypeNull; typ <= TypeClass; typ++ {
		switch typ {
		case TypeSequenceOf, TypeSetOf, TypeOpen:
			continue
		}
		rest, ok := syntax.Word(text, nativeTypes[typ].keyword)
		if !ok {
			continue
		}
		if typ == TypeSequence || typ == TypeSet {
			if hasWord(rest, "OF") || hasWord(rest, "SIZE") || strings.HasPrefix(rest, "(") {
				if typ == TypeSequence {
					return TypeSequenceOf, rest, true
				}
				return TypeSetOf, rest, true
			}
		}
		return typ, rest, true
	}
	return TypeUnknown, text, false
}

// parseType parses a type at the start of text into o: tag, native type
// and content or reference, then constraints. It returns the text left
// over, such as OPTIONAL or DEFAULT clauses of a component.
func (ctx *Context) parseType(o *Object, text string) (string, error) {
	text = strings.TrimSpace(text)
	var spec *tagSpec
	if strings.HasPrefix(text, "[") && !strings.HasPrefix(text, "[[") {
		var err error
		if spec, text, err = scanTag(text); err != nil {
			return "", err
		}
		typ, _, _ := matchNative(text)
		if o.Tag, err = ctx.resolveTag(spec, typ); err != nil {
			return "", err
		}
	}
	rest, err := ctx.parseTypeBody(o, text)
	if err != nil {
		return "", err
	}
	if spec != nil {
		o.Tag.Mode = spec.mode(ctx.mod, o.Type)
	}
	return ctx.parseConstraints(o, rest)
}

func (ctx *Context) parseTypeBody(o *Object, text string) (string, error) {
	if typ, rest, ok := matchNative(text); ok {
		o.Type = typ
		o.content = true
		return ctx.parseContent(o, rest)
	}
	if rest, ok := syntax.Word(text, "INSTANCE OF"); ok {
		return ctx.parseInstanceOf(o, rest)
	}
	if name, rest, ok := syntax.ValueRef(text); ok {
		if after, ok := syntax.Symbol(rest, "<"); ok {
			return ctx.parseSelection(o, name, after)
		}
	}
	return ctx.parseTypeRef(o, text)
}

func (ctx *Context) parseContent(o *Object, rest string) (string, error) {
	switch o.Type {
	case TypeInteger, TypeBitString:
		if strings.HasPrefix(rest, "{") {
			return ctx.parseNamedNumbers(o, rest)
		}
	case TypeEnumerated:
		return ctx.parseEnumerated(o, rest)
	case TypeSequence, TypeSet, TypeChoice:
		return ctx.parseConstructed(o, rest)
	case TypeSequenceOf, TypeSetOf:
		return ctx.parseList(o, rest)
	case TypeClass:
		return ctx.parseClass(o, rest)
	case TypeAny:
		if after, ok := syntax.Word(rest, "DEFINED BY"); ok {
			if _, after, ok := syntax.ValueRef(after); ok {
				return after, nil
			}
			return "", errExpectedType(rest)
		}
	}
	return rest, nil
}

// scanReference reads "[Module.]name{.&field}".
func scanReference(text string) (module, name string, path []string, rest string, err error) {
	name, rest, ok := syntax.Ident(text)
	if !ok {
		return "", "", nil, text, errExpectedType(text)
	}
	if syntax.IsUpper(name) && strings.HasPrefix(rest, ".") && !strings.HasPrefix(rest, ".&") {
		second, after, ok := syntax.Ident(rest[1:])
		if ok {
			module, name, rest = name, second, after
		}
	}
	for strings.HasPrefix(rest, ".&") {
		field, after, ok := syntax.FieldRef(rest[1:])
		if !ok {
			return "", "", nil, text, errExpectedType(text)
		}
		path = append(path, field)
		rest = after
	}
	return module, name, path, rest, nil
}

func (ctx *Context) parseTypeRef(o *Object, text string) (string, error) {
	module, name, path, rest, err := scanReference(text)
	if err != nil {
		return "", err
	}
	if module == "" {
		if p := ctx.param(name); p != nil {
			return ctx.parseParamRef(o, p, path, rest)
		}
	}
	if !syntax.IsUpper(name) && len(path) == 0 {
		return "", errExpectedType(text)
	}
	e, err := ctx.lookup(module, name)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(rest, "{") && len(path) == 0 {
		return ctx.parseInstance(o, e, rest)
	}
	if e.params != "" {
		return "", errParamCount(e.name, len(syntax.SplitTop(e.params, ',')), 0)
	}

	if len(path) > 0 {
		return rest, ctx.resolveFieldType(o, e, path)
	}

	if e == ctx.entry && len(ctx.path) == 0 {
		return "", errSelfReference(e.qualifiedName())
	}
	if e.mode != ModeType {
		return "", errWrongMode(e.name, ModeType, e.mode)
	}
	target, err := ctx.header(e)
	if err != nil {
		return "", err
	}
	o.Ref = ref.New(ref.KindTypeRef, e.mod.Name, e.name)
	o.Type = target.Type
	inheritTag(o, target.Tag)
	o.addRef(o.Ref)
	return rest, nil
}

func inheritTag(o *Object, tag *Tag) {
	if o.Tag != nil || tag == nil {
		return
	}
	cp := *tag
	cp.Auto = false
	o.Tag = &cp
}

// resolveFieldType handles "CLASS.&field" (a class field type) and
// "object.&Field" (a type setting of an information object).
func (ctx *Context) resolveFieldType(o *Object, e *entry, path []string) error {
	target, err := ctx.g.compiled(e.refName())
	if err != nil {
		return err
	}
	if e.mode == ModeValue {
		setting, err := ctx.g.objectField(target, path)
		if err != nil {
			return err
		}
		if setting.Mode != ModeType {
			return errWrongMode(e.name+".&"+strings.Join(path, ".&"), ModeType, setting.Mode)
		}
		o.Ref = ref.New(ref.KindClassValueFieldRef, e.mod.Name, e.name, path...)
		o.Type = setting.Type
		inheritTag(o, setting.Tag)
		o.addRef(o.Ref)
		return nil
	}
	if target.Type != TypeClass {
		return errNotClass(e.qualifiedName())
	}
	field, err := ctx.g.classField(target, path)
	if err != nil {
		return err
	}
	o.Ref = ref.New(ref.KindClassFieldRef, e.mod.Name, e.name, path...)
	applyFieldType(o, field)
	o.addRef(o.Ref)
	return nil
}

// applyFieldType sets the type of an object typed by a class field.
func applyFieldType(o *Object, field *Object) {
	switch field.field {
	case FieldType, FieldVariableValue, FieldVariableValueSet:
		o.Type = TypeOpen
	case FieldObject, FieldObjectSet:
		o.Type = TypeClass
	default:
		o.Type = field.Type
		inheritTag(o, field.Tag)
	}
}

func (ctx *Context) parseParamRef(o *Object, p *Param, path []string, rest string) (string, error) {
	kind := ref.KindTypeRef
	switch {
	case p.Kind == ParamType && len(path) > 0:
		kind = ref.KindClassFieldRef
	case p.Kind == ParamValue && len(path) > 0:
		kind = ref.KindClassValueFieldRef
	case p.Kind != ParamType:
		return "", errWrongMode(p.Name, ModeType, paramMode(p.Kind))
	}
	if strings.HasPrefix(rest, "{") {
		return "", errNotSupported("Parameterized formal parameter", p.Name+rest)
	}
	o.Ref = ref.NewParam(kind, p.ref, path...)
	o.Type = TypeUnknown
	ctx.refer(p)
	return rest, nil
}

func paramMode(kind ParamKind) Mode {
	switch kind {
	case ParamValue:
		return ModeValue
	case ParamSet:
		return ModeSet
	}
	return ModeType
}

// parseInstance instantiates the parameterized definition of e with the
// actual parameters at the start of text, and merges the instance into o.
func (ctx *Context) parseInstance(o *Object, e *entry, text string) (string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return "", errSyntax(err)
	}
	if e.params == "" {
		return "", errNotParameterized(e.qualifiedName())
	}
	if e.mode != ModeType {
		return "", errNotSupported("Instantiation of a parameterized "+e.mode.String(), text)
	}
	tmpl, err := ctx.g.compiled(e.refName())
	if err != nil {
		return "", err
	}
	inst, err := ctx.instantiate(tmpl, syntax.SplitTop(inner, ','))
	if err != nil {
		return "", err
	}
	o.Ref = ref.New(ref.KindTypeRef, e.mod.Name, e.name)
	inheritContent(o, inst)
	o.Const = append(o.Const, inst.Const...)
	inheritTag(o, inst.Tag)
	for _, r := range inst.Refs {
		o.addRef(r)
	}
	o.addRef(o.Ref)
	return rest, nil
}

// parseSelection handles selection types "alt < Type", possibly chained.
func (ctx *Context) parseSelection(o *Object, first, text string) (string, error) {
	alts := []string{first}
	for {
		name, rest, ok := syntax.ValueRef(text)
		if !ok {
			break
		}
		after, ok := syntax.Symbol(rest, "<")
		if !ok {
			break
		}
		alts = append(alts, name)
		text = after
	}
	slices.Reverse(alts)

	module, name, path, rest, err := scanReference(text)
	if err != nil {
		return "", err
	}
	if len(path) > 0 || !syntax.IsUpper(name) {
		return "", errExpectedType(text)
	}
	e, err := ctx.lookup(module, name)
	if err != nil {
		return "", err
	}
	if e.mode != ModeType {
		return "", errWrongMode(e.name, ModeType, e.mode)
	}
	o.Ref = ref.New(ref.KindChoiceComponentRef, e.mod.Name, e.name, alts...)
	alt, err := ctx.g.getTypeRef(o)
	if err != nil {
		return "", err
	}
	o.Type = alt.Type
	inheritTag(o, alt.Tag)
	o.addRef(o.Ref)
	return rest, nil
}

// parseInstanceOf builds the SEQUENCE that "INSTANCE OF Class" stands for.
func (ctx *Context) parseInstanceOf(o *Object, text string) (string, error) {
	module, name, path, rest, err := scanReference(text)
	if err != nil {
		return "", err
	}
	if len(path) > 0 {
		return "", errExpectedType(text)
	}
	e, err := ctx.lookup(module, name)
	if err != nil {
		return "", err
	}
	class, err := ctx.header(e)
	if err != nil {
		return "", err
	}
	if class.Type != TypeClass {
		return "", errNotClass(e.qualifiedName())
	}

	o.Type = TypeSequence
	o.content = true
	o.Ref = ref.New(ref.KindInstanceOfRef, e.mod.Name, e.name)
	if o.Tag == nil {
		o.Tag = &Tag{Value: TypeExternal.Universal(), Class: TagUniversal, Mode: TagImplicit}
	}
	typeID := ctx.newObject("type-id", ModeType)
	typeID.Type = TypeObjectIdentifier
	typeID.Ref = ref.New(ref.KindClassFieldRef, e.mod.Name, e.name, "id")
	typeID.Parent = o
	value := ctx.newObject("value", ModeType)
	value.Type = TypeOpen
	value.Ref = ref.New(ref.KindClassFieldRef, e.mod.Name, e.name, "Type")
	value.Tag = &Tag{Value: 0, Class: TagContext, Mode: TagExplicit}
	value.Parent = o
	o.Comps = []*Object{typeID, value}
	o.Root = []string{"type-id", "value"}
	o.addRef(o.Ref)
	return rest, nil
}
