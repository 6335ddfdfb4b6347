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
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

// parseFormals reads the formal parameter list of a parameterized
// assignment: "Type", "Governor : value" or "Governor : ValueSet".
func (ctx *Context) parseFormals(text string) ([]*Param, error) {
	items := syntax.SplitTop(text, ',')
	if len(items) == 0 {
		return nil, errParams(text)
	}
	var params []*Param
	for _, item := range items {
		p := &Param{}
		govText, name, hasGov := strings.Cut(item, ":")
		if !hasGov {
			name = govText
		}
		name = strings.TrimSpace(name)
		ident, rest, ok := syntax.Ident(name)
		if !ok || strings.TrimSpace(rest) != "" {
			return nil, errParams(item)
		}
		for _, prev := range params {
			if prev.Name == ident {
				return nil, errDuplicateNamed(ident)
			}
		}
		p.Name = ident
		p.ref = &ref.Param{Name: ident}

		switch {
		case !hasGov && syntax.IsUpper(ident):
			p.Kind = ParamType
		case !hasGov:
			return nil, errParams(item)
		default:
			p.Kind = ParamValue
			if syntax.IsUpper(ident) {
				p.Kind = ParamSet
			}
			govText = strings.TrimSpace(govText)
			for _, prev := range params {
				if gname, grest, ok := syntax.Ident(govText); ok && gname == prev.Name && strings.TrimSpace(grest) == "" {
					return nil, errNotSupported("Governor given by a formal parameter", item)
				}
			}
			gov := ctx.newObject("", ModeType)
			rest, err := ctx.parseType(gov, govText)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(rest) != "" {
				return nil, errParams(item)
			}
			p.Governor = gov
		}
		params = append(params, p)
	}
	return params, nil
}

// instantiate copies tmpl along the referrers of its formal parameters and
// substitutes the actual parameters at those spots. The current path is
// the spot of the instance within the assignment being compiled.
func (ctx *Context) instantiate(tmpl *Object, actuals []string) (*Object, error) {
	if len(actuals) != len(tmpl.Params) {
		return nil, errParamCount(tmpl.QualifiedName(), len(tmpl.Params), len(actuals))
	}
	var paths []Path
	for _, p := range tmpl.Params {
		paths = append(paths, p.Referrers...)
	}
	inst := newCloner(ctx.g).cloneAlong(tmpl, paths)
	inst.Params = nil

	for ii, p := range tmpl.Params {
		actual := strings.TrimSpace(actuals[ii])
		if actual == "" {
			return nil, errParams(tmpl.QualifiedName())
		}
		for _, rp := range p.Referrers {
			if err := ctx.substitute(inst, p, rp, actual); err != nil {
				return nil, err
			}
		}
	}

	if !inst.content {
		ct, err := ctx.g.contentOf(inst)
		if err != nil {
			return nil, err
		}
		consts, err := ctx.g.effectiveConstraints(inst)
		if err != nil {
			return nil, err
		}
		inheritContent(inst, ct)
		inst.Const = consts
		if inst.Tag == nil && ct.Tag != nil {
			tag := *ct.Tag
			inst.Tag = &tag
		}
	}
	reparent(inst)
	if err := ctx.g.checkCanonicalDeep(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// substitute puts one actual parameter at the referrer path rp of inst.
func (ctx *Context) substitute(inst *Object, p *Param, rp Path, actual string) error {
	slot, err := inst.Get(rp)
	if err != nil {
		return err
	}
	mark := ctx.pushPath(rp...)
	defer ctx.restorePath(mark)

	switch slot := slot.(type) {
	case *Object:
		if slot.Ref == nil || slot.Ref.Param != p.ref {
			return errParamReferrer(p.Name, rp)
		}
		if p.Kind == ParamSet {
			return ctx.substituteTable(inst, slot, p, actual)
		}
		return ctx.substituteType(inst, slot, actual)

	case *ref.Param:
		if p.Kind != ParamValue {
			return errParamReferrer(p.Name, rp)
		}
		v, err := ctx.parseActualValue(p, actual)
		if err != nil {
			return err
		}
		if rv, ok := v.(RefValue); ok {
			tagged, err := inst.Get(rp[:len(rp)-1])
			if err != nil {
				return err
			}
			tagged.(*Tag).Param = rv.Ref.Param
			return nil
		}
		n, ok := v.(IntValue)
		if !ok || n < 0 {
			return errInvalidTag(actual)
		}
		return inst.SetPath(rp, int64(n))

	case RefValue:
		var v Value
		if p.Kind == ParamSet {
			v, err = ctx.parseActualSet(p, actual)
		} else {
			v, err = ctx.parseActualValue(p, actual)
		}
		if err != nil {
			return err
		}
		return inst.SetPath(rp, v)
	}
	return errParamReferrer(p.Name, rp)
}

// substituteType fills a placeholder object with the parsed actual type.
// The placeholder keeps its own tag and constraints.
func (ctx *Context) substituteType(inst, ph *Object, actual string) error {
	text := actual
	for _, hop := range ph.Ref.Path {
		text += ".&" + hop
	}
	tmp := ctx.newObject("", ModeType)
	rest, err := ctx.parseType(tmp, text)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rest) != "" {
		return errTrailing(rest)
	}
	ph.Ref = tmp.Ref
	ph.Type = tmp.Type
	if tmp.content {
		inheritContent(ph, tmp)
	}
	ph.Const = append(ph.Const, tmp.Const...)
	if ph.Tag == nil && tmp.Tag != nil {
		tag := *tmp.Tag
		ph.Tag = &tag
	}
	for _, r := range tmp.Refs {
		ph.addRef(r)
		inst.addRef(r)
	}
	return nil
}

// substituteTable replaces the object set a table constraint links to.
func (ctx *Context) substituteTable(inst, ph *Object, p *Param, actual string) error {
	if name, rest, ok := syntax.TypeRef(actual); ok && strings.TrimSpace(rest) == "" {
		if outer := ctx.param(name); outer != nil {
			if outer.Kind != ParamSet {
				return errWrongMode(name, ModeSet, paramMode(outer.Kind))
			}
			ph.Ref = ref.NewParam(ref.KindSetRef, outer.ref)
			ctx.refer(outer)
			return nil
		}
	}
	defer ctx.restorePath(ctx.pushPath(Name("set")))
	set, err := ctx.actualSet(p, actual)
	if err != nil {
		return err
	}
	ph.Ref = nil
	ph.Set = set
	ph.content = true
	return nil
}

func (ctx *Context) parseActualValue(p *Param, actual string) (Value, error) {
	v, rest, err := ctx.parseValue(p.Governor, actual)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, errTrailing(rest)
	}
	return v, nil
}

// parseActualSet returns a set actual as the value replacing a set slot:
// a SetValue, or a RefValue when an outer formal is passed through.
func (ctx *Context) parseActualSet(p *Param, actual string) (Value, error) {
	if name, rest, ok := syntax.TypeRef(actual); ok && strings.TrimSpace(rest) == "" {
		if outer := ctx.param(name); outer != nil {
			if outer.Kind != ParamSet {
				return nil, errWrongMode(name, ModeSet, paramMode(outer.Kind))
			}
			ctx.refer(outer)
			return RefValue{Ref: ref.NewParam(ref.KindSetRef, outer.ref)}, nil
		}
	}
	set, err := ctx.actualSet(p, actual)
	if err != nil {
		return nil, err
	}
	return SetValue{Set: set}, nil
}

// actualSet parses "{ ... }" or a set reference against the governor of p.
func (ctx *Context) actualSet(p *Param, actual string) (*ValueSet, error) {
	if strings.HasPrefix(actual, "{") {
		return ctx.parseValueSet(p.Governor, actual)
	}
	module, name, path, rest, err := scanReference(actual)
	if err != nil {
		return nil, err
	}
	if len(path) > 0 || strings.TrimSpace(rest) != "" || !syntax.IsUpper(name) {
		return nil, errNotSupported("Set actual parameter", actual)
	}
	return ctx.setRef(module, name)
}
