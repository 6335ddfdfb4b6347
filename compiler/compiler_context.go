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
)

// Context is the namespace of the assignment being compiled: its module,
// the formal parameters in scope and the path from the assignment root to
// the part being parsed.
type Context struct {
	g      *Graph
	mod    *Module
	entry  *entry
	root   *Object
	scopes [][]*Param
	path   Path
	// names holds the component names along path, for table constraint
	// "@" paths.
	names []string
	// warnings are kept back until the assignment compiles.
	warnings []*Warning
}

func (ctx *Context) warn(w *Warning) {
	ctx.warnings = append(ctx.warnings, w)
}

type pathMark struct {
	path  int
	names int
}

// pushPath extends the current path. Callers restore it with
// "defer ctx.restorePath(ctx.pushPath(...))".
func (ctx *Context) pushPath(segs ...PathSeg) pathMark {
	mark := pathMark{len(ctx.path), len(ctx.names)}
	ctx.path = append(ctx.path, segs...)
	return mark
}

// pushComponent enters a named component of a SEQUENCE, SET or CHOICE.
func (ctx *Context) pushComponent(name string) pathMark {
	mark := ctx.pushPath(Name("cont"), Name(name))
	ctx.names = append(ctx.names, name)
	return mark
}

func (ctx *Context) restorePath(mark pathMark) {
	ctx.path = ctx.path[:mark.path]
	ctx.names = ctx.names[:mark.names]
}

func (ctx *Context) pushScope(params []*Param) func() {
	ctx.scopes = append(ctx.scopes, params)
	return func() { ctx.scopes = ctx.scopes[:len(ctx.scopes)-1] }
}

// param returns the formal parameter in scope named name, innermost first.
func (ctx *Context) param(name string) *Param {
	for ii := len(ctx.scopes) - 1; ii >= 0; ii-- {
		for _, p := range ctx.scopes[ii] {
			if p.Name == name {
				return p
			}
		}
	}
	return nil
}

// refer records the current path as a referrer of p.
func (ctx *Context) refer(p *Param, segs ...PathSeg) {
	path := slices.Concat(ctx.path, Path(segs))
	p.Referrers = appendPath(p.Referrers, path)
}

func appendPath(paths []Path, path Path) []Path {
	for _, existing := range paths {
		if existing.Equal(path) {
			return paths
		}
	}
	return append(paths, slices.Clone(path))
}

func (ctx *Context) newObject(name string, mode Mode) *Object {
	return &Object{
		ID:     ctx.g.nextID(),
		Name:   name,
		Module: ctx.mod.Name,
		Mode:   mode,
	}
}

// lookup finds the entry name refers to from the current module: a local
// assignment, an import, or a built-in class. A non-empty module selects
// an external reference "Module.name".
func (ctx *Context) lookup(module, name string) (*entry, error) {
	if module != "" && module != ctx.mod.Name {
		mod := ctx.g.modules[module]
		if mod == nil {
			if module == builtinModule {
				mod = ctx.g.builtin
			} else {
				return nil, errUnknownModule(module)
			}
		}
		e := mod.entries[name]
		if e == nil {
			return nil, errUndefined(module + "." + name)
		}
		if !mod.exports(name) {
			return nil, errNotExported(module, name)
		}
		return e, nil
	}
	if e := ctx.mod.entries[name]; e != nil {
		return e, nil
	}
	if source, ok := ctx.mod.Imports[name]; ok {
		return ctx.g.resolveImport(source, name, make(map[string]bool))
	}
	if ctx.g.builtin != nil && ctx.mod != ctx.g.builtin {
		if e := ctx.g.builtin.entries[name]; e != nil {
			return e, nil
		}
	}
	return nil, errUndefined(name)
}

// header returns what a nested type reference needs of its target: the
// compiled object, the root being compiled on direct recursion, or a
// header-only stub when the target text starts with a native type.
func (ctx *Context) header(e *entry) (*Object, error) {
	if e.obj != nil {
		return e.obj, nil
	}
	if e == ctx.entry && ctx.root != nil {
		return ctx.root, nil
	}
	if stub := ctx.g.peek(e); stub != nil {
		return stub, nil
	}
	return nil, errLink(e.refName())
}

// peek builds a stub for an uncompiled, non-parameterized type assignment
// whose text starts, after an optional tag, with a native type keyword.
func (g *Graph) peek(e *entry) *Object {
	if e.mode != ModeType || e.params != "" {
		return nil
	}
	text := e.rhs
	var spec *tagSpec
	if strings.HasPrefix(text, "[") {
		var err error
		spec, text, err = scanTag(text)
		if err != nil || spec.number == "" || !isDigits(spec.number) {
			return nil
		}
	}
	typ, _, ok := matchNative(text)
	if !ok {
		return nil
	}
	var number int64
	if spec != nil {
		var err error
		if number, err = parseInt(spec.number); err != nil {
			// the entry reports the overflow when it compiles
			return nil
		}
	}
	stub := &Object{
		ID:     g.nextID(),
		Name:   e.name,
		Module: e.mod.Name,
		Mode:   ModeType,
		Type:   typ,
		stub:   true,
	}
	if spec != nil {
		stub.Tag = spec.resolve(e.mod, typ)
		stub.Tag.Value = number
	}
	return stub
}

// getTypeRef follows the reference of o one step.
func (g *Graph) getTypeRef(o *Object) (*Object, error) {
	r := o.Ref
	if r == nil {
		return nil, nil
	}
	if r.IsParam() {
		return nil, errNotSupported("Use of formal parameter '"+r.Param.Name+"' before instantiation", "")
	}
	target, err := g.compiled(r.Called)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case ref.KindTypeRef, ref.KindValueRef, ref.KindSetRef, ref.KindInstanceOfRef:
		return target, nil
	case ref.KindClassFieldRef, ref.KindClassInternRef:
		return g.classField(target, r.Path)
	case ref.KindClassValueFieldRef:
		return g.objectField(target, r.Path)
	case ref.KindChoiceComponentRef:
		cur := target
		for _, alt := range r.Path {
			ct, err := g.contentOf(cur)
			if err != nil {
				return nil, err
			}
			if ct.Type != TypeChoice {
				return nil, errNotChoice(cur.QualifiedName())
			}
			comp := ct.Component(alt)
			if comp == nil {
				return nil, errNoField(cur.QualifiedName(), alt)
			}
			cur = comp
		}
		return cur, nil
	}
	return nil, errObj("unknown reference kind " + r.Kind.String())
}

// compiled returns the compiled object of a qualified name, or a LinkError.
func (g *Graph) compiled(name ref.Name) (*Object, error) {
	e := g.entry(name)
	if e == nil {
		return nil, errUndefined(name.String())
	}
	if e.obj == nil {
		return nil, errLink(name)
	}
	return e.obj, nil
}

// classField walks a field path through a class: every hop but the last
// must be an object or object set field, whose governor is the next class.
func (g *Graph) classField(class *Object, path []string) (*Object, error) {
	cur := class
	for ii, name := range path {
		ct, err := g.contentOf(cur)
		if err != nil {
			return nil, err
		}
		if ct.Type != TypeClass {
			return nil, errNotClass(cur.QualifiedName())
		}
		field := ct.Field(name)
		if field == nil {
			return nil, errNoField(cur.QualifiedName(), "&"+name)
		}
		if ii == len(path)-1 {
			return field, nil
		}
		if field.field != FieldObject && field.field != FieldObjectSet {
			return nil, errNoField(field.QualifiedName(), "&"+path[ii+1])
		}
		cur = field
	}
	return cur, nil
}

// objectField walks a field path through an information object value.
func (g *Graph) objectField(obj *Object, path []string) (*Object, error) {
	cur := obj
	for _, name := range path {
		cv, ok := cur.Val.(ClassValue)
		if !ok {
			return nil, errNotClass(cur.QualifiedName())
		}
		var setting *Object
		for _, f := range cv.Fields {
			if f.Name == name {
				setting = f.Obj
			}
		}
		if setting == nil {
			return nil, errNoField(cur.QualifiedName(), "&"+name)
		}
		cur = setting
	}
	return cur, nil
}

// getRefChain returns o followed by every object reached by following
// references until one has none.
func (g *Graph) getRefChain(o *Object) ([]*Object, error) {
	chain := []*Object{o}
	seen := map[int]bool{o.ID: true}
	for cur := o; cur.Ref != nil && !cur.Ref.IsParam(); {
		next, err := g.getTypeRef(cur)
		if err != nil {
			return nil, err
		}
		if next == o {
			return nil, errSelfReference(o.QualifiedName())
		}
		if seen[next.ID] {
			return nil, errRefCycle(chainNames(append(chain, next)))
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next
	}
	return chain, nil
}

func chainNames(chain []*Object) []string {
	names := make([]string, len(chain))
	for ii, o := range chain {
		names[ii] = o.QualifiedName()
	}
	return names
}

// contentOf returns the first object of the reference chain of o that
// holds its own type content.
func (g *Graph) contentOf(o *Object) (*Object, error) {
	if g.cache != nil {
		if ct, ok := g.cache[o.ID]; ok {
			return ct, nil
		}
	}
	seen := map[int]bool{}
	cur := o
	for !cur.content {
		if cur.Ref == nil {
			return nil, errObj("object " + cur.QualifiedName() + " has neither content nor reference")
		}
		if seen[cur.ID] {
			return nil, errRefCycle([]string{o.QualifiedName(), cur.QualifiedName()})
		}
		seen[cur.ID] = true
		next, err := g.getTypeRef(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if g.cache != nil {
		g.cache[o.ID] = cur
	}
	return cur, nil
}

// effectiveConstraints returns the constraints of o followed by those
// inherited along its reference chain.
func (g *Graph) effectiveConstraints(o *Object) ([]*Constraint, error) {
	out := slices.Clone(o.Const)
	seen := map[int]bool{o.ID: true}
	for cur := o; !cur.content && cur.Ref != nil; {
		next, err := g.getTypeRef(cur)
		if err != nil {
			return nil, err
		}
		if seen[next.ID] {
			break
		}
		seen[next.ID] = true
		out = append(out, next.Const...)
		cur = next
	}
	return out, nil
}

func (g *Graph) compileEntry(e *entry) (*Object, error) {
	ctx := &Context{g: g, mod: e.mod, entry: e}
	obj, err := ctx.compileAssignment()
	if err != nil {
		return nil, err
	}
	g.warnings = append(g.warnings, ctx.warnings...)
	return obj, nil
}

// compileAssignment builds the object of the current entry from its raw
// text. Every attempt starts from scratch.
func (ctx *Context) compileAssignment() (*Object, error) {
	e := ctx.entry
	root := ctx.newObject(e.name, e.mode)
	ctx.root = root

	if e.params != "" {
		params, err := ctx.parseFormals(e.params)
		if err != nil {
			return nil, err
		}
		root.Params = params
		defer ctx.pushScope(params)()
	}

	typeText := e.rhs
	if e.mode != ModeType {
		typeText = e.gov
	}
	rest, err := ctx.parseType(root, typeText)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, errTrailing(rest)
	}
	if e.mode == ModeType && root.Ref != nil && !root.content && !root.Ref.IsParam() {
		if err := ctx.inheritAlias(root); err != nil {
			return nil, err
		}
	}

	switch e.mode {
	case ModeValue:
		defer ctx.restorePath(ctx.pushPath(Name("val")))
		v, rest, err := ctx.parseValue(root, e.rhs)
		if err != nil {
			return nil, err
		}
		if rest != "" {
			return nil, errTrailing(rest)
		}
		root.Val = v
	case ModeSet:
		defer ctx.restorePath(ctx.pushPath(Name("set")))
		set, err := ctx.parseValueSet(root, e.rhs)
		if err != nil {
			return nil, err
		}
		root.Set = set
	}
	reparent(root)
	return root, nil
}

// inheritAlias copies the content of the type a top-level alias refers to.
func (ctx *Context) inheritAlias(o *Object) error {
	target, err := ctx.g.getTypeRef(o)
	if err != nil {
		return err
	}
	ct, err := ctx.g.contentOf(target)
	if err != nil {
		return err
	}
	consts, err := ctx.g.effectiveConstraints(target)
	if err != nil {
		return err
	}
	inheritContent(o, ct)
	o.Const = append(o.Const, consts...)
	return nil
}

// inheritContent copies the type content of src into dst. Lists are shared
// until reparent runs.
func inheritContent(dst, src *Object) {
	dst.Type = src.Type
	dst.Named = src.Named
	dst.Comps = src.Comps
	dst.Item = src.Item
	dst.Fields = src.Fields
	dst.Syntax = src.Syntax
	dst.Root = src.Root
	dst.Ext = src.Ext
	dst.Extensible = src.Extensible
	dst.Groups = src.Groups
	dst.content = true
}

// reparent makes o the parent of all of its direct children, copying the
// children that still belong to another object.
func reparent(o *Object) {
	own := func(child *Object) *Object {
		if child == nil || child.Parent == o {
			return child
		}
		cp := *child
		cp.Parent = o
		return &cp
	}
	if len(o.Comps) > 0 {
		comps := make([]*Object, len(o.Comps))
		for ii, comp := range o.Comps {
			comps[ii] = own(comp)
		}
		o.Comps = comps
	}
	if len(o.Fields) > 0 {
		fields := make([]*Object, len(o.Fields))
		for ii, field := range o.Fields {
			fields[ii] = own(field)
		}
		o.Fields = fields
	}
	o.Item = own(o.Item)
}
