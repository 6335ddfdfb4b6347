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
	"slices"
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

// parseConstraints parses every "( ... )" constraint following a type.
func (ctx *Context) parseConstraints(o *Object, text string) (string, error) {
	rest := strings.TrimSpace(text)
	for strings.HasPrefix(rest, "(") {
		inner, after, err := syntax.ExtractParen(rest)
		if err != nil {
			return "", errSyntax(err)
		}
		if err := ctx.addConstraint(o, inner); err != nil {
			return "", err
		}
		rest = after
	}
	return rest, nil
}

// addConstraint parses one constraint specification into o.Const.
func (ctx *Context) addConstraint(o *Object, text string) error {
	consts, err := ctx.parseConstraint(o, text, o.Const)
	if err != nil {
		return err
	}
	o.Const = consts
	return nil
}

type constraintItem struct {
	kind ConstKind
	body string
	text string
	excl bool
}

var constraintKeywords = []struct {
	word string
	kind ConstKind
}{
	{"SIZE", ConstSize},
	{"FROM", ConstAlphabet},
	{"WITH COMPONENTS", ConstWithComps},
	{"WITH COMPONENT", ConstWithComp},
	{"CONTAINING", ConstContaining},
	{"ENCODED BY", ConstEncodedBy},
	{"PATTERN", ConstPattern},
	{"CONSTRAINED BY", ConstConstrainedBy},
	{"SETTINGS", ConstSettings},
}

// elementKind tells the constraint kind of one element from its leading
// keyword.
func elementKind(text string) constraintItem {
	for _, kw := range constraintKeywords {
		if after, ok := syntax.Word(text, kw.word); ok {
			return constraintItem{kind: kw.kind, body: after, text: text}
		}
	}
	if after, ok := syntax.Word(text, "ALL EXCEPT"); ok {
		return constraintItem{kind: ConstVal, body: after, text: text, excl: true}
	}
	if strings.HasPrefix(text, "(") {
		inner, rest, err := syntax.ExtractParen(text)
		if err == nil && strings.TrimSpace(rest) == "" && isSingleElement(inner) {
			return elementKind(strings.TrimSpace(inner))
		}
	}
	return constraintItem{kind: ConstVal, body: text, text: text}
}

func isSingleElement(text string) bool {
	return len(syntax.SplitTop(text, ',')) == 1 &&
		len(splitUnion(text)) == 1 &&
		len(splitIntersection(text)) == 1
}

// splitIntersection splits an element at its top-level "^" and
// INTERSECTION.
func splitIntersection(text string) []string {
	var out []string
	for _, part := range syntax.SplitTop(text, '^') {
		for _, item := range syntax.SplitTopWord(part, "INTERSECTION") {
			if item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func splitException(text string) (string, string) {
	idx := syntax.IndexTop(text, "!")
	if idx < 0 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+1:])
}

// unionItems classifies the items of a union. Every item must be of the
// same kind and none may be an intersection.
func unionItems(text string, union []string) ([]constraintItem, error) {
	var items []constraintItem
	for _, part := range union {
		if len(splitIntersection(part)) > 1 {
			return nil, errNotSupported("Intersection inside a union", text)
		}
		item := elementKind(part)
		if len(items) > 0 && item.kind != items[0].kind {
			return nil, errUnionKinds(text)
		}
		items = append(items, item)
	}
	return items, nil
}

// rootGroups turns the root of a constraint into groups of items, one
// group per resulting constraint. A lone intersection yields one
// constraint per operand.
func rootGroups(text string) ([][]constraintItem, error) {
	union := splitUnion(text)
	if len(union) == 1 {
		var groups [][]constraintItem
		for _, part := range splitIntersection(union[0]) {
			groups = append(groups, []constraintItem{elementKind(part)})
		}
		return groups, nil
	}
	if len(union) == 0 {
		return nil, nil
	}
	items, err := unionItems(text, union)
	if err != nil {
		return nil, err
	}
	return [][]constraintItem{items}, nil
}

// parseConstraint parses one constraint specification of typ and appends
// the resulting constraints to list. The current path addresses the owner
// of list.
func (ctx *Context) parseConstraint(typ *Object, text string, list []*Constraint) ([]*Constraint, error) {
	text, exc := splitException(text)
	if isTableTarget(typ) && strings.HasPrefix(text, "{") {
		mark := ctx.pushPath(Name("const"), Index(len(list)))
		c, err := ctx.parseTable(typ, text)
		ctx.restorePath(mark)
		if err != nil {
			return nil, err
		}
		c.Exc = exc
		return append(list, c), nil
	}
	if typ.Ref != nil && typ.Ref.IsParam() {
		return nil, errNotSupported("Constraint on a formal parameter", text)
	}

	rootText, extText, extensible, err := splitRootExt(text)
	if err != nil {
		return nil, err
	}
	groups, err := rootGroups(rootText)
	if err != nil {
		return nil, err
	}

	start := len(list)
	var fresh []*Constraint
	for _, group := range groups {
		c := &Constraint{Kind: group[0].kind, Excl: group[0].excl}
		idx := start + len(fresh)
		list = append(list, c)
		fresh = append(fresh, c)
		for _, item := range group {
			if err := ctx.fillConstraint(typ, c, idx, "root", item); err != nil {
				return nil, err
			}
		}
	}
	if !extensible {
		if len(fresh) == 0 {
			return nil, errConstraint(text)
		}
		if exc != "" {
			fresh[0].Exc = exc
		}
		return list, nil
	}

	extUnion := splitUnion(extText)
	extItems, err := unionItems(extText, extUnion)
	if err != nil {
		return nil, err
	}
	kind := ConstVal
	if len(extItems) > 0 {
		kind = extItems[0].kind
	}
	idx := slices.IndexFunc(fresh, func(c *Constraint) bool { return c.Kind == kind })
	if idx < 0 {
		list = append(list, &Constraint{Kind: kind})
		fresh = append(fresh, list[len(list)-1])
		idx = len(fresh) - 1
	}
	for _, c := range fresh {
		c.Extensible = true
	}
	for _, item := range extItems {
		if err := ctx.fillConstraint(typ, fresh[idx], start+idx, "ext", item); err != nil {
			return nil, err
		}
	}
	if exc != "" {
		fresh[0].Exc = exc
	}
	return list, nil
}

// fillConstraint adds one element of the given kind to c, the idx-th
// constraint of the current owner.
func (ctx *Context) fillConstraint(typ *Object, c *Constraint, idx int, domain string, item constraintItem) error {
	switch item.kind {
	case ConstVal:
		return ctx.addElement(typ, c, idx, domain, item.body)

	case ConstSize, ConstAlphabet:
		inner, rest, err := syntax.ExtractParen(item.body)
		if err != nil {
			return errSyntax(err)
		}
		if strings.TrimSpace(rest) != "" {
			return errConstraint(item.text)
		}
		elemType := typ
		if item.kind == ConstSize {
			elemType = ctx.g.intType
		}
		rootText, extText, extensible, err := splitRootExt(inner)
		if err != nil {
			return err
		}
		for _, el := range splitUnion(rootText) {
			if err := ctx.addElement(elemType, c, idx, domain, el); err != nil {
				return err
			}
		}
		if extensible {
			c.Extensible = true
			for _, el := range splitUnion(extText) {
				if err := ctx.addElement(elemType, c, idx, "ext", el); err != nil {
					return err
				}
			}
		}
		return nil

	case ConstContaining:
		obj := ctx.newObject("", ModeType)
		mark := ctx.pushPath(Name("const"), Index(idx), Name("containing"))
		rest, err := ctx.parseType(obj, item.body)
		ctx.restorePath(mark)
		if err != nil {
			return err
		}
		c.Containing = obj
		if after, ok := syntax.Word(rest, "ENCODED BY"); ok {
			v, after, err := ctx.parseValue(ctx.g.oidType, after)
			if err != nil {
				return err
			}
			c.EncodedBy, rest = v, after
		}
		if strings.TrimSpace(rest) != "" {
			return errConstraint(rest)
		}
		return nil

	case ConstEncodedBy:
		v, rest, err := ctx.parseValue(ctx.g.oidType, item.body)
		if err != nil {
			return err
		}
		if strings.TrimSpace(rest) != "" {
			return errConstraint(rest)
		}
		c.EncodedBy = v
		c.Text = item.text
		return nil

	case ConstWithComps:
		return ctx.parseWithComponents(typ, c, idx, item.body)
	}
	c.Text = item.text
	return nil
}

func (ctx *Context) addElement(typ *Object, c *Constraint, idx int, domain, text string) error {
	dst := &c.Root
	if domain == "ext" {
		dst = &c.Ext
	}
	mark := ctx.pushPath(Name("const"), Index(idx), Name(domain), Index(len(*dst)))
	defer ctx.restorePath(mark)
	elems, err := ctx.parseElement(typ, text)
	if err != nil {
		return err
	}
	*dst = append(*dst, elems...)
	return nil
}

// parseElement parses a value, a range, a value set reference or an
// included type.
func (ctx *Context) parseElement(typ *Object, text string) ([]Value, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "(") {
		inner, rest, err := syntax.ExtractParen(text)
		if err == nil && strings.TrimSpace(rest) == "" {
			if !isSingleElement(inner) {
				return nil, errNotSupported("Nested constraint expression", text)
			}
			return ctx.parseElement(typ, inner)
		}
	}
	if after, ok := syntax.Word(text, "INCLUDES"); ok {
		return ctx.includedType(after)
	}
	if idx := syntax.IndexTop(text, ".."); idx >= 0 {
		r, err := ctx.parseRange(typ, text[:idx], text[idx+2:])
		if err != nil {
			return nil, err
		}
		return []Value{r}, nil
	}

	if module, name, path, rest, err := scanReference(text); err == nil &&
		strings.TrimSpace(rest) == "" && len(path) == 0 && syntax.IsUpper(name) {
		if module == "" {
			if p := ctx.param(name); p != nil {
				switch p.Kind {
				case ParamSet:
					ctx.refer(p)
					return []Value{RefValue{Ref: ref.NewParam(ref.KindSetRef, p.ref)}}, nil
				case ParamType:
					return nil, errNotSupported("Type inclusion of a formal parameter", text)
				}
			}
		}
		e, err := ctx.lookup(module, name)
		switch {
		case err != nil && module != "":
			return nil, err
		case err != nil:
			// a keyword value such as TRUE
		case e.mode == ModeSet:
			set, err := ctx.setRef(module, name)
			if err != nil {
				return nil, err
			}
			return []Value{SetValue{Set: set}}, nil
		case e.mode == ModeType:
			return ctx.includedType(text)
		}
	}

	v, rest, err := ctx.parseValue(typ, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errConstraint(text)
	}
	return []Value{v}, nil
}

func (ctx *Context) parseRange(typ *Object, lbText, ubText string) (Value, error) {
	var r RangeValue
	lbText = strings.TrimSpace(lbText)
	ubText = strings.TrimSpace(ubText)
	if after, ok := strings.CutSuffix(lbText, "<"); ok {
		r.LbExcl, lbText = true, strings.TrimSpace(after)
	}
	if after, ok := strings.CutPrefix(ubText, "<"); ok {
		r.UbExcl, ubText = true, strings.TrimSpace(after)
	}
	bound := func(text, seg, unbounded string) (Value, bool, error) {
		if text == unbounded {
			return nil, true, nil
		}
		mark := ctx.pushPath(Name(seg))
		defer ctx.restorePath(mark)
		v, rest, err := ctx.parseValue(typ, text)
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(rest) != "" {
			return nil, false, errConstraint(text)
		}
		return v, false, nil
	}
	var err error
	if r.Lb, r.NoLb, err = bound(lbText, "lb", "MIN"); err != nil {
		return nil, err
	}
	if r.Ub, r.NoUb, err = bound(ubText, "ub", "MAX"); err != nil {
		return nil, err
	}
	return r, nil
}

// includedType returns the value constraint elements of a type used as a
// constraint element.
func (ctx *Context) includedType(text string) ([]Value, error) {
	tmp := ctx.newObject("", ModeType)
	rest, err := ctx.parseType(tmp, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errConstraint(text)
	}
	consts, err := ctx.g.effectiveConstraints(tmp)
	if err != nil {
		return nil, err
	}
	for _, r := range tmp.Refs {
		ctx.root.addRef(r)
	}
	var vals []*Constraint
	for _, c := range consts {
		if c.Kind == ConstVal && !c.Excl {
			vals = append(vals, c)
		}
	}
	switch len(vals) {
	case 0:
		return []Value{RangeValue{NoLb: true, NoUb: true}}, nil
	case 1:
		return slices.Clone(vals[0].Root), nil
	}
	return nil, errNotSupported("Inclusion of a type with several value constraints", text)
}

// parseWithComponents reads "{ [..., ] name [(constraint)] [presence], ... }".
// Component constraints are annotations; the component list of the type
// is left as it is.
func (ctx *Context) parseWithComponents(typ *Object, c *Constraint, idx int, body string) error {
	inner, rest, err := syntax.ExtractCurly(body)
	if err != nil {
		return errSyntax(err)
	}
	if strings.TrimSpace(rest) != "" {
		return errConstraint(rest)
	}
	ct, err := ctx.g.contentOf(typ)
	if err != nil {
		return err
	}
	if !ct.Type.IsConstructed() {
		return errConstraintKind(ConstWithComps, ct.Type)
	}
	for ii, item := range syntax.SplitTop(inner, ',') {
		if strings.HasPrefix(item, "...") {
			if ii != 0 {
				return errConstraint(item)
			}
			c.Partial = true
			continue
		}
		name, after, ok := syntax.ValueRef(item)
		if !ok {
			return errConstraint(item)
		}
		comp := ct.Component(name)
		if comp == nil {
			return errNoField(ct.QualifiedName(), name)
		}
		if slices.ContainsFunc(c.Comps, func(cc *CompConstraint) bool { return cc.Name == name }) {
			return errDuplicateComponent(name)
		}
		cc := &CompConstraint{Name: name}
		c.Comps = append(c.Comps, cc)

		mark := ctx.pushPath(Name("const"), Index(idx), Name("comps"), Name(name))
		for strings.HasPrefix(after, "(") {
			cinner, a2, err := syntax.ExtractParen(after)
			if err != nil {
				ctx.restorePath(mark)
				return errSyntax(err)
			}
			if cc.Const, err = ctx.parseConstraint(comp, cinner, cc.Const); err != nil {
				ctx.restorePath(mark)
				return err
			}
			after = a2
		}
		ctx.restorePath(mark)

		for _, p := range []Presence{PresencePresent, PresenceAbsent, PresenceOptional} {
			if a2, ok := syntax.Word(after, p.String()); ok {
				cc.Presence, after = p, a2
				break
			}
		}
		if strings.TrimSpace(after) != "" {
			return errConstraint(item)
		}
	}
	return nil
}

func isTableTarget(typ *Object) bool {
	if typ.Type == TypeOpen {
		return true
	}
	if typ.Ref == nil {
		return false
	}
	switch typ.Ref.Kind {
	case ref.KindClassFieldRef, ref.KindInstanceOfRef:
		return true
	}
	return false
}

// parseTable reads "{ObjectSet}" or "{ObjectSet}{@path}".
func (ctx *Context) parseTable(typ *Object, text string) (*Constraint, error) {
	setText, rest, err := syntax.ExtractCurly(text)
	if err != nil {
		return nil, errSyntax(err)
	}
	c := &Constraint{Kind: ConstTable}
	if c.Tab, err = ctx.tableSet(typ, setText); err != nil {
		return nil, err
	}
	if strings.HasPrefix(rest, "{") {
		atText, after, err := syntax.ExtractCurly(rest)
		if err != nil {
			return nil, errSyntax(err)
		}
		paths := syntax.SplitTop(atText, ',')
		if len(paths) != 1 {
			return nil, errNotSupported("Table constraint with several component relations", atText)
		}
		if c.At, err = ctx.resolveAt(paths[0]); err != nil {
			return nil, err
		}
		rest = after
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errConstraint(rest)
	}
	return c, nil
}

// tableSet builds the CLASS set object a table constraint links to.
func (ctx *Context) tableSet(typ *Object, setText string) (*Object, error) {
	tab := ctx.newObject("", ModeSet)
	tab.Type = TypeClass
	if name, rest, ok := syntax.TypeRef(setText); ok && strings.TrimSpace(rest) == "" {
		if p := ctx.param(name); p != nil {
			if p.Kind != ParamSet {
				return nil, errWrongMode(name, ModeSet, paramMode(p.Kind))
			}
			tab.Ref = ref.NewParam(ref.KindSetRef, p.ref)
			ctx.refer(p, Name("tab"))
			return tab, nil
		}
	}
	tab.content = true
	class, err := ctx.tableClass(typ)
	if err != nil {
		return nil, err
	}
	mark := ctx.pushPath(Name("tab"), Name("set"))
	defer ctx.restorePath(mark)
	if tab.Set, err = ctx.parseObjectSet(class, setText); err != nil {
		return nil, err
	}
	return tab, nil
}

// tableClass returns the class governing a table-constrained type, or nil
// when it cannot be known before instantiation.
func (ctx *Context) tableClass(typ *Object) (*Object, error) {
	r := typ.Ref
	if r == nil || r.IsParam() || len(r.Path) > 1 {
		return nil, nil
	}
	switch r.Kind {
	case ref.KindClassFieldRef, ref.KindInstanceOfRef:
		target, err := ctx.g.compiled(r.Called)
		if err != nil {
			return nil, err
		}
		ct, err := ctx.g.contentOf(target)
		if err != nil {
			return nil, err
		}
		if ct.Type == TypeClass {
			return ct, nil
		}
	}
	return nil, nil
}

// resolveAt turns "@a.b" into the absolute component path [a b] and
// "@.a" into a path relative to the component being parsed: every leading
// dot climbs one level.
func (ctx *Context) resolveAt(text string) ([]string, error) {
	p, ok := strings.CutPrefix(strings.TrimSpace(text), "@")
	if !ok {
		return nil, errTablePath(strings.TrimSpace(text))
	}
	orig := p
	var base []string
	if strings.HasPrefix(p, ".") {
		dots := len(p) - len(strings.TrimLeft(p, "."))
		n := len(ctx.names) - dots
		if n < 0 {
			return nil, errTablePath(orig)
		}
		base = slices.Clone(ctx.names[:n])
		p = p[dots:]
	}
	segs := strings.Split(p, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, errTablePath(orig)
		}
	}
	return append(base, segs...), nil
}

// parseElementSet reads the elements of a value set of typ. Each element
// is a value, a range, a value set reference or an included type.
func (ctx *Context) parseElementSet(typ *Object, text string) (*ValueSet, error) {
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
			if len(splitIntersection(elem)) > 1 {
				return nil, errNotSupported("Intersection in a value set", elem)
			}
			if item := elementKind(elem); item.kind != ConstVal || item.excl {
				return nil, errNotSupported("Constraint in a value set", elem)
			}
			mark := ctx.pushPath(Name(domain.name), Index(len(*domain.dst)))
			values, err := ctx.parseElement(typ, elem)
			ctx.restorePath(mark)
			if err != nil {
				return nil, err
			}
			*domain.dst = append(*domain.dst, values...)
		}
	}
	return set, nil
}
