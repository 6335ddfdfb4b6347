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
	"strings"

	"go.asn1c.org/asn1c/syntax"
)

const listItemName = "_item_"

// parseNamedNumbers reads the "{ name(n), ... }" list of an INTEGER or a
// BIT STRING.
func (ctx *Context) parseNamedNumbers(o *Object, text string) (string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return "", errSyntax(err)
	}
	used := make(map[int64]string)
	for _, item := range syntax.SplitTop(inner, ',') {
		name, v, numbered, err := ctx.parseNamedNumber(item)
		if err != nil {
			return "", err
		}
		if !numbered || (o.Type == TypeBitString && v < 0) {
			return "", errExpectedValue(o.Type, item)
		}
		if _, ok := o.NamedValue(name); ok {
			return "", errDuplicateNamed(name)
		}
		if _, ok := used[v]; ok {
			return "", errDuplicateNumber(name, v)
		}
		used[v] = name
		o.Named = append(o.Named, NamedNumber{Name: name, Value: v})
	}
	return rest, nil
}

// parseNamedNumber reads "name" or "name(number)", where number may be a
// value reference.
func (ctx *Context) parseNamedNumber(item string) (string, int64, bool, error) {
	name, rest, ok := syntax.ValueRef(item)
	if !ok {
		return "", 0, false, errComponent(item)
	}
	if strings.TrimSpace(rest) == "" {
		return name, 0, false, nil
	}
	inner, after, err := syntax.ExtractParen(rest)
	if err != nil {
		return "", 0, false, errSyntax(err)
	}
	if strings.TrimSpace(after) != "" {
		return "", 0, false, errComponent(item)
	}
	v, after, err := ctx.parseValue(ctx.g.intType, inner)
	if err != nil {
		return "", 0, false, err
	}
	iv, ok := v.(IntValue)
	if !ok || strings.TrimSpace(after) != "" {
		return "", 0, false, errExpectedValue(TypeInteger, inner)
	}
	return name, int64(iv), true, nil
}

// parseEnumerated reads the items of an ENUMERATED. Unnumbered items get
// the lowest unused non-negative number, root items first, and Named ends
// up sorted by number.
func (ctx *Context) parseEnumerated(o *Object, text string) (string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return "", errSyntax(err)
	}
	o.Extensible = ctx.mod.ExtImplied

	type enumItem struct {
		name     string
		value    int64
		numbered bool
		ext      bool
	}
	var items []enumItem
	used := make(map[int64]bool)
	ext := false
	for _, part := range syntax.SplitTop(inner, ',') {
		if strings.HasPrefix(part, "...") {
			if ext {
				return "", errComponent(part)
			}
			ext = true
			o.Extensible = true
			continue
		}
		name, v, numbered, err := ctx.parseNamedNumber(part)
		if err != nil {
			return "", err
		}
		if slices.ContainsFunc(items, func(it enumItem) bool { return it.name == name }) {
			return "", errDuplicateNamed(name)
		}
		if numbered {
			if used[v] {
				return "", errDuplicateNumber(name, v)
			}
			used[v] = true
		}
		items = append(items, enumItem{name, v, numbered, ext})
	}
	if len(items) == 0 {
		return "", errExpectedType(text)
	}

	next := int64(0)
	for _, pass := range []bool{false, true} {
		for ii := range items {
			if items[ii].ext != pass || items[ii].numbered {
				continue
			}
			for used[next] {
				next++
			}
			items[ii].value = next
			used[next] = true
		}
	}

	rootMax := int64(-1)
	for _, it := range items {
		if !it.ext {
			rootMax = max(rootMax, it.value)
		}
	}
	for _, it := range items {
		o.Named = append(o.Named, NamedNumber{Name: it.name, Value: it.value})
		if it.ext {
			o.Ext = append(o.Ext, it.name)
			if it.value < rootMax {
				ctx.warn(warnExtensionNumbering(ctx.entry.qualifiedName(), it.name))
			}
		} else {
			o.Root = append(o.Root, it.name)
		}
	}
	slices.SortStableFunc(o.Named, func(a, b NamedNumber) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return rest, nil
}

// parseConstructed reads the components of a SEQUENCE, SET or CHOICE:
// root components, an extension marker, extension additions and extension
// groups, and an optional second marker returning to the root.
func (ctx *Context) parseConstructed(o *Object, text string) (string, error) {
	inner, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return "", errSyntax(err)
	}
	o.Extensible = ctx.mod.ExtImplied

	manual := make(map[*Object]bool)
	markers := 0
	for _, item := range syntax.SplitTop(inner, ',') {
		inExt := markers == 1
		switch {
		case strings.HasPrefix(item, "..."):
			markers++
			if markers > 2 {
				return "", errComponent(item)
			}
			o.Extensible = true
		case strings.HasPrefix(item, "[["):
			if !inExt {
				return "", errComponent(item)
			}
			names, err := ctx.parseGroup(o, item, manual)
			if err != nil {
				return "", err
			}
			if o.Type != TypeChoice {
				o.Groups = append(o.Groups, names)
			}
		case strings.HasPrefix(item, "COMPONENTS"):
			after, ok := syntax.Word(item, "COMPONENTS OF")
			if !ok || o.Type == TypeChoice {
				return "", errComponent(item)
			}
			comps, err := ctx.componentsOf(o, after)
			if err != nil {
				return "", err
			}
			for _, comp := range comps {
				if err := addComponent(o, comp, inExt); err != nil {
					return "", err
				}
			}
		default:
			comp, tagged, err := ctx.parseComponent(o, item)
			if err != nil {
				return "", err
			}
			if err := addComponent(o, comp, inExt); err != nil {
				return "", err
			}
			manual[comp] = tagged
		}
	}

	ctx.autoTag(o, manual)
	if err := ctx.g.checkCanonical(o); err != nil {
		return "", err
	}
	return rest, nil
}

func addComponent(o *Object, comp *Object, ext bool) error {
	if o.Component(comp.Name) != nil {
		return errDuplicateComponent(comp.Name)
	}
	o.Comps = append(o.Comps, comp)
	if ext {
		o.Ext = append(o.Ext, comp.Name)
	} else {
		o.Root = append(o.Root, comp.Name)
	}
	return nil
}

// parseComponent reads "name Type [OPTIONAL | DEFAULT value]". It reports
// whether the component text carries its own tag.
func (ctx *Context) parseComponent(o *Object, item string) (*Object, bool, error) {
	name, typeText, ok := syntax.ValueRef(item)
	if !ok {
		return nil, false, errComponent(item)
	}
	comp := ctx.newObject(name, ModeType)
	comp.Parent = o
	defer ctx.restorePath(ctx.pushComponent(name))

	tagged := strings.HasPrefix(typeText, "[")
	rest, err := ctx.parseType(comp, typeText)
	if err != nil {
		return nil, false, err
	}
	if after, ok := syntax.Word(rest, "OPTIONAL"); ok {
		comp.Optional = true
		rest = after
	} else if after, ok := syntax.Word(rest, "DEFAULT"); ok {
		mark := ctx.pushPath(Name("default"))
		v, after, err := ctx.parseValue(comp, after)
		ctx.restorePath(mark)
		if err != nil {
			return nil, false, err
		}
		comp.Default = v
		rest = after
	}
	if o.Type == TypeChoice && (comp.Optional || comp.Default != nil) {
		return nil, false, errComponent(item)
	}
	if strings.TrimSpace(rest) != "" {
		return nil, false, errComponent(rest)
	}
	return comp, tagged, nil
}

// parseGroup reads an extension group "[[ [version:] components ]]" and
// returns the names of its members.
func (ctx *Context) parseGroup(o *Object, item string, manual map[*Object]bool) ([]string, error) {
	if !strings.HasSuffix(item, "]]") || len(item) < 4 {
		return nil, errComponent(item)
	}
	inner := strings.TrimSpace(item[2 : len(item)-2])
	if digits, after, ok := syntax.Number(inner); ok {
		if after, ok := syntax.Symbol(after, ":"); ok && !strings.HasPrefix(digits, "-") {
			inner = after
		}
	}
	var names []string
	for _, part := range syntax.SplitTop(inner, ',') {
		comp, tagged, err := ctx.parseComponent(o, part)
		if err != nil {
			return nil, err
		}
		if err := addComponent(o, comp, true); err != nil {
			return nil, err
		}
		manual[comp] = tagged
		names = append(names, comp.Name)
	}
	if len(names) == 0 {
		return nil, errComponent(item)
	}
	return names, nil
}

// componentsOf copies the root components of the SEQUENCE or SET type
// named by text.
func (ctx *Context) componentsOf(o *Object, text string) ([]*Object, error) {
	tmp := ctx.newObject(o.Name, ModeType)
	rest, err := ctx.parseType(tmp, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errComponent(rest)
	}
	if tmp.Ref != nil && tmp.Ref.IsParam() {
		return nil, errNotSupported("COMPONENTS OF a formal parameter", text)
	}
	ct, err := ctx.g.contentOf(tmp)
	if err != nil {
		return nil, err
	}
	if ct.Type != o.Type {
		return nil, errComponent("COMPONENTS OF " + text)
	}
	var out []*Object
	for _, comp := range ct.Comps {
		if ct.isExtension(comp.Name) {
			continue
		}
		cp := *comp
		cp.ID = ctx.g.nextID()
		cp.Parent = o
		out = append(out, &cp)
	}
	for _, r := range tmp.Refs {
		o.addRef(r)
	}
	return out, nil
}

// parseList reads "[SIZE (...) | (...)] OF [name] Type" after SEQUENCE or
// SET.
func (ctx *Context) parseList(o *Object, text string) (string, error) {
	rest := text
	if after, ok := syntax.Word(rest, "SIZE"); ok {
		inner, after, err := syntax.ExtractParen(after)
		if err != nil {
			return "", errSyntax(err)
		}
		if err := ctx.addConstraint(o, "SIZE ("+inner+")"); err != nil {
			return "", err
		}
		rest = after
	} else if strings.HasPrefix(rest, "(") {
		after, err := ctx.parseConstraints(o, rest)
		if err != nil {
			return "", err
		}
		rest = after
	}
	rest, ok := syntax.Word(rest, "OF")
	if !ok {
		return "", errExpectedType(text)
	}

	name := listItemName
	if ident, after, ok := syntax.ValueRef(rest); ok && after != "" &&
		!strings.HasPrefix(after, ".") && !strings.HasPrefix(after, "<") {
		name, rest = ident, after
	}
	item := ctx.newObject(name, ModeType)
	item.Parent = o
	defer ctx.restorePath(ctx.pushPath(Name("cont")))
	rest, err := ctx.parseType(item, rest)
	if err != nil {
		return "", err
	}
	o.Item = item
	return rest, nil
}

// autoTag numbers the components of a SEQUENCE, SET or CHOICE of an
// AUTOMATIC TAGS module, unless one of the first three components carries
// its own tag.
func (ctx *Context) autoTag(o *Object, manual map[*Object]bool) {
	if ctx.mod.TagDefault != TagsAutomatic {
		return
	}
	for _, comp := range o.Comps[:min(3, len(o.Comps))] {
		if manual[comp] {
			return
		}
	}
	used := make(map[int64]bool)
	for _, comp := range o.Comps {
		if manual[comp] && comp.Tag.Class == TagContext && comp.Tag.Param == nil {
			used[comp.Tag.Value] = true
		}
	}
	next := int64(0)
	for _, comp := range o.Comps {
		if manual[comp] {
			continue
		}
		for used[next] {
			next++
		}
		mode := TagImplicit
		if needsExplicit(comp.Type) {
			mode = TagExplicit
		}
		comp.Tag = &Tag{Value: next, Class: TagContext, Mode: mode, Auto: true}
		next++
	}
}

type tagKey struct {
	class TagClass
	value int64
}

func (k tagKey) String() string {
	return fmt.Sprintf("[%s %d]", k.class, k.value)
}

// leafTags returns the tags that may start an encoding of o, expanding
// untagged CHOICE types into their alternatives. known is false when a tag
// cannot be determined (open types, formal parameters).
func (g *Graph) leafTags(o *Object, seen map[int]bool) (tags []tagKey, known bool, err error) {
	if o.Tag != nil {
		if o.Tag.Param != nil {
			return nil, false, nil
		}
		return []tagKey{{o.Tag.Class, o.Tag.Value}}, true, nil
	}
	switch o.Type {
	case TypeOpen, TypeAny, TypeUnknown, TypeClass:
		return nil, false, nil
	case TypeChoice:
		if o.Ref != nil && o.Ref.IsParam() {
			return nil, false, nil
		}
		ct, err := g.contentOf(o)
		if err != nil {
			return nil, false, err
		}
		if seen[ct.ID] {
			return nil, true, nil
		}
		seen[ct.ID] = true
		for _, alt := range ct.Comps {
			sub, ok, err := g.leafTags(alt, seen)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			tags = append(tags, sub...)
		}
		return tags, true, nil
	}
	return []tagKey{{TagUniversal, o.Type.Universal()}}, true, nil
}

// checkCanonical rejects component lists a decoder could not tell apart
// by tag: CHOICE alternatives and SET components must have distinct tags,
// and so must every run of consecutive optional SEQUENCE root components.
func (g *Graph) checkCanonical(o *Object) error {
	switch o.Type {
	case TypeChoice, TypeSet:
		return g.distinctTags(o.Comps, func(a, b string) error {
			return errDuplicateTag(o.Type, a, b)
		})
	case TypeSequence:
		var run []*Object
		flush := func() error {
			err := g.distinctTags(run, errAmbiguousOptional)
			run = nil
			return err
		}
		for _, comp := range o.Comps {
			if !o.isExtension(comp.Name) && (comp.Optional || comp.Default != nil) {
				run = append(run, comp)
				continue
			}
			if err := flush(); err != nil {
				return err
			}
		}
		return flush()
	}
	return nil
}

func (g *Graph) distinctTags(comps []*Object, conflict func(a, b string) error) error {
	owner := make(map[tagKey]string)
	for _, comp := range comps {
		tags, known, err := g.leafTags(comp, make(map[int]bool))
		if err != nil {
			return err
		}
		if !known {
			continue
		}
		for _, tag := range tags {
			if prev, ok := owner[tag]; ok && prev != comp.Name {
				return conflict(prev, comp.Name)
			}
			owner[tag] = comp.Name
		}
	}
	return nil
}

// checkCanonicalDeep runs checkCanonical over o and every nested type.
func (g *Graph) checkCanonicalDeep(o *Object) error {
	if o.Type.IsConstructed() && len(o.Comps) > 0 {
		if err := g.checkCanonical(o); err != nil {
			return err
		}
	}
	for _, comp := range o.Comps {
		if err := g.checkCanonicalDeep(comp); err != nil {
			return err
		}
	}
	if o.Item != nil {
		return g.checkCanonicalDeep(o.Item)
	}
	return nil
}
