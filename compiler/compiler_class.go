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
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

// parseClass reads "{ fields } [WITH SYNTAX { ... }]" after CLASS.
func (ctx *Context) parseClass(o *Object, text string) (string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return "", errSyntax(err)
	}
	for _, item := range syntax.SplitTop(inner, ',') {
		field, err := ctx.parseClassField(o, item)
		if err != nil {
			return "", err
		}
		if o.Field(field.Name) != nil {
			return "", errDuplicateComponent("&" + field.Name)
		}
		o.Fields = append(o.Fields, field)
	}
	if after, ok := syntax.Word(rest, "WITH SYNTAX"); ok {
		sinner, after, err := syntax.ExtractCurly(after)
		if err != nil {
			return "", errSyntax(err)
		}
		if o.Syntax, err = parseSyntaxGroup(o, sinner); err != nil {
			return "", err
		}
		rest = after
	}
	return rest, nil
}

func hasModifier(text string) bool {
	return hasWord(text, "UNIQUE") || hasWord(text, "OPTIONAL") || hasWord(text, "DEFAULT")
}

// parseClassField reads one field specification. The case of the field
// name and what follows it select the field kind.
func (ctx *Context) parseClassField(o *Object, item string) (*Object, error) {
	name, rest, ok := syntax.FieldRef(item)
	if !ok {
		return nil, errClassField(item)
	}
	field := ctx.newObject(name, ModeType)
	field.Parent = o
	defer ctx.restorePath(ctx.pushPath(Name("cont"), Name(name)))

	upper := syntax.IsUpper(name)
	switch {
	case upper && (rest == "" || hasModifier(rest)):
		field.field = FieldType
		field.Type = TypeOpen
		field.content = true
	case strings.HasPrefix(rest, "&"):
		target, after, ok := syntax.FieldRef(rest)
		if !ok {
			return nil, errClassField(item)
		}
		field.Ref = ref.New(ref.KindClassInternRef, o.Module, o.Name, target)
		field.Type = TypeOpen
		field.content = true
		if upper {
			field.field, field.Mode = FieldVariableValueSet, ModeSet
		} else {
			field.field, field.Mode = FieldVariableValue, ModeValue
		}
		rest = after
	default:
		after, err := ctx.parseType(field, rest)
		if err != nil {
			return nil, err
		}
		rest = after
		isClass := field.Type == TypeClass
		switch {
		case upper && isClass:
			field.field, field.Mode = FieldObjectSet, ModeSet
		case upper:
			field.field, field.Mode = FieldFixedValueSet, ModeSet
		case isClass:
			field.field, field.Mode = FieldObject, ModeValue
		default:
			field.field, field.Mode = FieldFixedValue, ModeValue
		}
	}

	for rest != "" {
		if after, ok := syntax.Word(rest, "UNIQUE"); ok {
			field.Unique, rest = true, after
		} else if after, ok := syntax.Word(rest, "OPTIONAL"); ok {
			field.Optional, rest = true, after
		} else if after, ok := syntax.Word(rest, "DEFAULT"); ok {
			mark := ctx.pushPath(Name("default"))
			v, after, err := ctx.parseFieldDefault(field, after)
			ctx.restorePath(mark)
			if err != nil {
				return nil, err
			}
			field.Default, rest = v, after
		} else {
			return nil, errClassField(rest)
		}
	}
	return field, nil
}

func (ctx *Context) parseFieldDefault(field *Object, text string) (Value, string, error) {
	switch field.field {
	case FieldType:
		typ := ctx.newObject(field.Name, ModeType)
		rest, err := ctx.parseType(typ, text)
		if err != nil {
			return nil, "", err
		}
		return OpenValue{Type: typ}, rest, nil
	case FieldFixedValue, FieldObject:
		return ctx.parseValue(field, text)
	case FieldFixedValueSet, FieldObjectSet:
		set, rest, err := ctx.parseSetSetting(field, text)
		if err != nil {
			return nil, "", err
		}
		return SetValue{Set: set}, rest, nil
	}
	return nil, "", errNotSupported("DEFAULT of a "+field.field.String()+" field", text)
}

// parseSyntaxGroup reads a WITH SYNTAX grammar: words, commas, field
// placeholders and optional groups in square brackets.
func parseSyntaxGroup(class *Object, text string) (*SyntaxGroup, error) {
	group := &SyntaxGroup{}
	rest := strings.TrimSpace(text)
	for rest != "" {
		switch rest[0] {
		case '[':
			inner, after, err := syntax.ExtractSquare(rest)
			if err != nil {
				return nil, errSyntax(err)
			}
			sub, err := parseSyntaxGroup(class, inner)
			if err != nil {
				return nil, err
			}
			group.Items = append(group.Items, SyntaxItem{Group: sub})
			rest = after
		case '&':
			name, after, ok := syntax.FieldRef(rest)
			if !ok || class.Field(name) == nil {
				return nil, errWithSyntax(rest)
			}
			group.Items = append(group.Items, SyntaxItem{Field: name})
			rest = after
		case ',':
			group.Items = append(group.Items, SyntaxItem{Word: ","})
			rest, _ = syntax.Symbol(rest, ",")
		default:
			word, after, ok := syntax.Ident(rest)
			if !ok {
				return nil, errWithSyntax(rest)
			}
			group.Items = append(group.Items, SyntaxItem{Word: word})
			rest = after
		}
	}
	if len(group.Items) == 0 {
		return nil, errWithSyntax(text)
	}
	return group, nil
}

// parseClassValue reads an information object "{ ... }" of class, in the
// class's defined syntax or in the default "&field setting" syntax.
func (ctx *Context) parseClassValue(class *Object, text string) (Value, string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, "", errSyntax(err)
	}
	settings := make(map[string]*Object)
	if class.Syntax != nil {
		after, matched, err := ctx.matchSyntax(class, class.Syntax, inner, 0, settings)
		if err != nil {
			return nil, "", err
		}
		if !matched || strings.TrimSpace(after) != "" {
			return nil, "", errClassValue(inner)
		}
	} else {
		for _, item := range syntax.SplitTop(inner, ',') {
			name, stext, ok := syntax.FieldRef(item)
			if !ok {
				return nil, "", errClassValue(item)
			}
			field := class.Field(name)
			if field == nil {
				return nil, "", errNoField(class.QualifiedName(), "&"+name)
			}
			setting, after, err := ctx.parseFieldSetting(class, field, stext, settings)
			if err != nil {
				return nil, "", err
			}
			if strings.TrimSpace(after) != "" {
				return nil, "", errClassValue(after)
			}
			settings[name] = setting
		}
	}

	cv := ClassValue{Class: class}
	for _, field := range class.Fields {
		setting, ok := settings[field.Name]
		switch {
		case ok:
		case field.Default != nil:
			setting = defaultSetting(field)
		case field.Optional:
			continue
		default:
			if err := ctx.soft(errMissingField(class.QualifiedName(), "&"+field.Name)); err != nil {
				return nil, "", err
			}
			continue
		}
		cv.Fields = append(cv.Fields, ClassField{Name: field.Name, Obj: setting})
	}
	return cv, rest, nil
}

// soft reports a verification failure that warn-only mode downgrades,
// holding the warning back until the assignment compiles.
func (ctx *Context) soft(err error) error {
	var cerr *Error
	if !ctx.g.opts.warnOnly || !errors.As(err, &cerr) {
		return err
	}
	if cerr.object == "" {
		cerr.object = ctx.entry.qualifiedName()
	}
	ctx.warn(warnFromError(cerr))
	return nil
}

func defaultSetting(field *Object) *Object {
	if v, ok := field.Default.(OpenValue); ok {
		return v.Type
	}
	setting := &Object{
		ID:     field.ID,
		Name:   field.Name,
		Module: field.Module,
		Mode:   field.Mode,
	}
	copyType(setting, field)
	if v, ok := field.Default.(SetValue); ok {
		setting.Set = v.Set
	} else {
		setting.Val = field.Default
	}
	return setting
}

// copyType makes dst denote the same type as src.
func copyType(dst, src *Object) {
	dst.Ref, dst.Tag, dst.Type, dst.Const = src.Ref, src.Tag, src.Type, src.Const
	if src.content {
		inheritContent(dst, src)
	}
}

// matchSyntax matches text against a defined syntax group. A group nested
// in square brackets that does not match is absent; at the top level any
// mismatch is an error.
func (ctx *Context) matchSyntax(class *Object, group *SyntaxGroup, text string, depth int, settings map[string]*Object) (string, bool, error) {
	rest := text
	for _, item := range group.Items {
		switch {
		case item.Group != nil:
			after, matched, err := ctx.matchSyntax(class, item.Group, rest, depth+1, settings)
			if err != nil {
				return "", false, err
			}
			if matched {
				rest = after
			}
		case item.Field != "":
			field := class.Field(item.Field)
			if strings.TrimSpace(rest) == "" {
				if depth > 0 {
					return text, false, nil
				}
				return "", false, errClassValue(text)
			}
			setting, after, err := ctx.parseFieldSetting(class, field, rest, settings)
			if err != nil {
				return "", false, err
			}
			settings[field.Name] = setting
			rest = after
		default:
			var after string
			var ok bool
			if item.Word == "," {
				after, ok = syntax.Symbol(rest, ",")
			} else {
				after, ok = syntax.Word(rest, item.Word)
			}
			if !ok {
				if depth > 0 {
					return text, false, nil
				}
				return "", false, errClassValue(rest)
			}
			rest = after
		}
	}
	return rest, true, nil
}

// parseFieldSetting parses the setting of one field of an information
// object. Variable-type value fields take their type from the type field
// set earlier in the same object.
func (ctx *Context) parseFieldSetting(class, field *Object, text string, settings map[string]*Object) (*Object, string, error) {
	if name, rest, ok := syntax.Ident(text); ok && ctx.param(name) != nil && !strings.HasPrefix(rest, ".") {
		return nil, "", errNotSupported("Formal parameter in an information object", text)
	}
	setting := ctx.newObject(field.Name, field.Mode)
	switch field.field {
	case FieldType:
		rest, err := ctx.parseType(setting, text)
		return setting, rest, err

	case FieldFixedValue, FieldObject:
		v, rest, err := ctx.parseValue(field, text)
		if err != nil {
			return nil, "", err
		}
		copyType(setting, field)
		setting.Val = v
		return setting, rest, nil

	case FieldVariableValue, FieldVariableValueSet:
		typ := settings[field.Ref.Path[0]]
		if typ == nil {
			return nil, "", errClassValue(text)
		}
		copyType(setting, typ)
		if field.field == FieldVariableValueSet {
			set, rest, err := ctx.parseSetSetting(typ, text)
			setting.Set = set
			return setting, rest, err
		}
		v, rest, err := ctx.parseValue(typ, text)
		setting.Val = v
		return setting, rest, err

	case FieldFixedValueSet, FieldObjectSet:
		set, rest, err := ctx.parseSetSetting(field, text)
		if err != nil {
			return nil, "", err
		}
		copyType(setting, field)
		setting.Set = set
		return setting, rest, nil
	}
	return nil, "", errClassField(field.Name)
}

// parseSetSetting reads an inline set "{ ... }" or a reference to a value
// set or object set.
func (ctx *Context) parseSetSetting(typ *Object, text string) (*ValueSet, string, error) {
	if strings.HasPrefix(text, "{") {
		inner, rest, err := syntax.ExtractCurly(text)
		if err != nil {
			return nil, "", errSyntax(err)
		}
		set, err := ctx.parseSetBody(typ, inner)
		return set, rest, err
	}
	module, name, path, rest, err := scanReference(text)
	if err != nil {
		return nil, "", err
	}
	if len(path) > 0 || !syntax.IsUpper(name) {
		return nil, "", errClassValue(text)
	}
	set, err := ctx.setRef(module, name)
	return set, rest, err
}

// setRef returns the value set or object set assigned to a name.
func (ctx *Context) setRef(module, name string) (*ValueSet, error) {
	e, err := ctx.lookup(module, name)
	if err != nil {
		return nil, err
	}
	if e.mode != ModeSet {
		return nil, errWrongMode(e.name, ModeSet, e.mode)
	}
	if e.params != "" {
		return nil, errNotSupported("Parameterized set reference", name)
	}
	target, err := ctx.g.compiled(e.refName())
	if err != nil {
		return nil, err
	}
	if ctx.root != nil {
		ctx.root.addRef(ref.New(ref.KindSetRef, e.mod.Name, e.name))
	}
	return target.Set, nil
}

// parseValueSet reads the "{ ... }" right-hand side of a value set or
// object set assignment.
func (ctx *Context) parseValueSet(typ *Object, text string) (*ValueSet, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, errSyntax(err)
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errTrailing(rest)
	}
	return ctx.parseSetBody(typ, inner)
}

func (ctx *Context) parseSetBody(typ *Object, inner string) (*ValueSet, error) {
	if typ.Ref != nil && typ.Ref.IsParam() {
		return nil, errNotSupported("Set of a formal parameter type", inner)
	}
	ct, err := ctx.g.contentOf(typ)
	if err != nil {
		return nil, err
	}
	if ct.Type == TypeClass {
		return ctx.parseObjectSet(ct, inner)
	}
	return ctx.parseElementSet(typ, inner)
}

// splitRootExt splits "root, ..., ext" at its top-level extension marker.
func splitRootExt(text string) (root, ext string, extensible bool, err error) {
	parts := syntax.SplitTop(text, ',')
	isMarker := func(s string) bool { return strings.HasPrefix(s, "...") }
	switch {
	case len(parts) == 0:
		return "", "", false, nil
	case len(parts) == 1 && isMarker(parts[0]):
		return "", "", true, nil
	case len(parts) == 1:
		return parts[0], "", false, nil
	case len(parts) == 2 && isMarker(parts[0]):
		return "", parts[1], true, nil
	case len(parts) == 2 && isMarker(parts[1]):
		return parts[0], "", true, nil
	case len(parts) == 3 && isMarker(parts[1]):
		return parts[0], parts[2], true, nil
	}
	return "", "", false, errConstraint(text)
}

// splitUnion splits an element set at its top-level "|" and UNION.
func splitUnion(text string) []string {
	var out []string
	for _, part := range syntax.SplitTop(text, '|') {
		for _, item := range syntax.SplitTopWord(part, "UNION") {
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// parseObjectSet reads the elements of an object set of class: objects,
// object set references, formal parameters and inline objects.
func (ctx *Context) parseObjectSet(class *Object, text string) (*ValueSet, error) {
	rootText, extText, extensible, err := splitRootExt(text)
	if err != nil {
		return nil, err
	}
	set := &ValueSet{Extensible: extensible}
	for _, domain := range []struct {
		name string
		text string
		dst  *[]Value
	}{
		{"root", rootText, &set.Root},
		{"ext", extText, &set.Ext},
	} {
		for _, elem := range splitUnion(domain.text) {
			mark := ctx.pushPath(Name(domain.name), Index(len(*domain.dst)))
			values, err := ctx.parseObjectElement(class, elem)
			ctx.restorePath(mark)
			if err != nil {
				return nil, err
			}
			*domain.dst = append(*domain.dst, values...)
		}
	}
	return set, nil
}

func (ctx *Context) parseObjectElement(class *Object, text string) ([]Value, error) {
	if strings.HasPrefix(text, "{") {
		if class == nil {
			return nil, errNotSupported("Inline object of an unknown class", text)
		}
		v, rest, err := ctx.parseClassValue(class, text)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(rest) != "" {
			return nil, errTrailing(rest)
		}
		return []Value{v}, nil
	}
	module, name, path, rest, err := scanReference(text)
	if err != nil {
		return nil, errConstraint(text)
	}
	if strings.TrimSpace(rest) != "" || len(path) > 0 {
		return nil, errNotSupported("Object set element", text)
	}
	if module == "" {
		if p := ctx.param(name); p != nil {
			kind := ref.KindValueRef
			if p.Kind == ParamSet {
				kind = ref.KindSetRef
			} else if p.Kind != ParamValue {
				return nil, errWrongMode(name, ModeSet, paramMode(p.Kind))
			}
			ctx.refer(p)
			return []Value{RefValue{Ref: ref.NewParam(kind, p.ref)}}, nil
		}
	}
	if syntax.IsUpper(name) {
		set, err := ctx.setRef(module, name)
		if err != nil {
			return nil, err
		}
		return set.All(), nil
	}
	v, _, _, err := ctx.parseValueRef(text)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(ClassValue); !ok {
		return nil, errExpectedValue(TypeClass, text)
	}
	return []Value{v}, nil
}
