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
	"maps"
	"slices"
	"strconv"
	"strings"
)

// PathSeg is one step of a Path: an attribute or component name, or an
// index into a list.
type PathSeg struct {
	name    string
	index   int
	isIndex bool
}

func Name(name string) PathSeg {
	return PathSeg{name: name}
}

func Index(index int) PathSeg {
	return PathSeg{index: index, isIndex: true}
}

func (s PathSeg) IsIndex() bool {
	return s.isIndex
}

func (s PathSeg) Name() string {
	return s.name
}

func (s PathSeg) Index() int {
	return s.index
}

func (s PathSeg) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return "'" + s.name + "'"
}

// Path addresses any attribute of an object or of its descendants, for
// example ['cont', 'a', 'const', 0, 'root', 0, 'lb'].
//
// Object attributes are 'cont', 'const', 'tag', 'val', 'set', 'default'
// and 'ref'. 'cont' is followed by a component or field name, except on
// SEQUENCE OF and SET OF where it leads to the item. Constraints expose
// 'root', 'ext', 'tab', 'containing' and 'comps'; value sets 'root' and
// 'ext'; ranges 'lb' and 'ub'; tags index 0 for their number.
type Path []PathSeg

// ParsePath builds a path from names and integer indices.
func ParsePath(segs ...any) Path {
	out := make(Path, len(segs))
	for ii, seg := range segs {
		switch seg := seg.(type) {
		case int:
			out[ii] = Index(seg)
		case string:
			out[ii] = Name(seg)
		case PathSeg:
			out[ii] = seg
		default:
			panic("ParsePath: segment must be a string or an int")
		}
	}
	return out
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for ii, seg := range p {
		parts[ii] = seg.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

func (p Path) HasSuffix(suffix ...PathSeg) bool {
	if len(suffix) > len(p) {
		return false
	}
	return slices.Equal(p[len(p)-len(suffix):], suffix)
}

// Get returns the attribute at path: an *Object, *Constraint,
// *CompConstraint, *ValueSet, *Tag, Value, int64 (tag number) or
// *ref.Param (parameterized tag number).
func (o *Object) Get(path Path) (any, error) {
	var cur any = o
	for rest := path; len(rest) > 0; {
		next, n, err := step(cur, rest)
		if err != nil {
			return nil, errInvalidPath(path)
		}
		cur, rest = next, rest[n:]
	}
	return cur, nil
}

// step descends one level from cur. It returns the child and the number of
// segments consumed.
func step(cur any, path Path) (any, int, error) {
	seg := path[0]
	switch cur := cur.(type) {
	case *Object:
		if seg.isIndex {
			break
		}
		switch seg.name {
		case "cont":
			if cur.Type.IsList() {
				if cur.Item == nil {
					break
				}
				return cur.Item, 1, nil
			}
			if len(path) < 2 || path[1].isIndex {
				break
			}
			if cur.Type == TypeClass {
				if field := cur.Field(path[1].name); field != nil {
					return field, 2, nil
				}
				break
			}
			if comp := cur.Component(path[1].name); comp != nil {
				return comp, 2, nil
			}
		case "const":
			if len(path) < 2 || !path[1].isIndex || path[1].index >= len(cur.Const) {
				break
			}
			return cur.Const[path[1].index], 2, nil
		case "tag":
			if cur.Tag != nil {
				return cur.Tag, 1, nil
			}
		case "val":
			return cur.Val, 1, nil
		case "set":
			if cur.Set != nil {
				return cur.Set, 1, nil
			}
		case "default":
			return cur.Default, 1, nil
		case "ref":
			return cur.Ref, 1, nil
		}
	case *Tag:
		if seg.isIndex && seg.index == 0 {
			if cur.Param != nil {
				return cur.Param, 1, nil
			}
			return cur.Value, 1, nil
		}
	case *Constraint:
		switch {
		case seg.name == "root" || seg.name == "ext":
			list := cur.Root
			if seg.name == "ext" {
				list = cur.Ext
			}
			if len(path) < 2 || !path[1].isIndex || path[1].index >= len(list) {
				break
			}
			return list[path[1].index], 2, nil
		case seg.name == "tab" && cur.Tab != nil:
			return cur.Tab, 1, nil
		case seg.name == "containing" && cur.Containing != nil:
			return cur.Containing, 1, nil
		case seg.name == "comps" && len(path) >= 2:
			for _, cc := range cur.Comps {
				if cc.Name == path[1].name {
					return cc, 2, nil
				}
			}
		}
	case *CompConstraint:
		if seg.name == "const" && len(path) >= 2 && path[1].isIndex &&
			path[1].index < len(cur.Const) {
			return cur.Const[path[1].index], 2, nil
		}
	case *ValueSet:
		if seg.name == "root" || seg.name == "ext" {
			list := cur.Root
			if seg.name == "ext" {
				list = cur.Ext
			}
			if len(path) >= 2 && path[1].isIndex && path[1].index < len(list) {
				return list[path[1].index], 2, nil
			}
		}
	case Value:
		if child, ok := valueChild(cur, seg); ok {
			return child, 1, nil
		}
	}
	return nil, 0, errInvalidPath(path)
}

func valueChild(v Value, seg PathSeg) (Value, bool) {
	switch v := v.(type) {
	case RangeValue:
		switch {
		case seg.name == "lb" && !v.NoLb:
			return v.Lb, true
		case seg.name == "ub" && !v.NoUb:
			return v.Ub, true
		}
	case SeqValue:
		for _, fv := range v {
			if !seg.isIndex && fv.Name == seg.name {
				return fv.Value, true
			}
		}
	case SeqOfValue:
		if seg.isIndex && seg.index < len(v) {
			return v[seg.index], true
		}
	case ChoiceValue:
		if !seg.isIndex && seg.name == v.Alt {
			return v.Value, true
		}
	}
	return nil, false
}

// withChild returns a copy of v with the child at seg replaced.
func withChild(v Value, seg PathSeg, child Value) (Value, bool) {
	switch v := v.(type) {
	case RangeValue:
		switch seg.name {
		case "lb":
			v.Lb, v.NoLb = child, false
			return v, true
		case "ub":
			v.Ub, v.NoUb = child, false
			return v, true
		}
	case SeqValue:
		out := slices.Clone(v)
		for ii := range out {
			if !seg.isIndex && out[ii].Name == seg.name {
				out[ii].Value = child
				return out, true
			}
		}
	case SeqOfValue:
		if seg.isIndex && seg.index < len(v) {
			out := slices.Clone(v)
			out[seg.index] = child
			return out, true
		}
	case ChoiceValue:
		if !seg.isIndex && seg.name == v.Alt {
			v.Value = child
			return v, true
		}
	}
	return nil, false
}

// setValuePath replaces the value addressed by path below v.
func setValuePath(v Value, path Path, x Value) (Value, bool) {
	if len(path) == 0 {
		return x, true
	}
	child, ok := valueChild(v, path[0])
	if !ok {
		return nil, false
	}
	newChild, ok := setValuePath(child, path[1:], x)
	if !ok {
		return nil, false
	}
	return withChild(v, path[0], newChild)
}

// SetPath replaces the attribute at path. Objects on the way are mutated in
// place: callers clone them first with cloneAlong.
func (o *Object) SetPath(path Path, x any) error {
	var parent any = o
	for rest := path; len(rest) > 0; {
		done, err := setDirect(parent, rest, x)
		if err != nil {
			return errInvalidPath(path)
		}
		if done {
			return nil
		}
		next, n, err := step(parent, rest)
		if err != nil || n == len(rest) {
			return errInvalidPath(path)
		}
		if _, isValue := next.(Value); isValue || next == nil {
			// values are immutable, rebuild from the holder
			return setInValue(parent, rest[:n], rest[n:], x, path)
		}
		parent, rest = next, rest[n:]
	}
	return errInvalidPath(path)
}

// setDirect handles paths whose last hop is an attribute of parent.
func setDirect(parent any, rest Path, x any) (bool, error) {
	switch p := parent.(type) {
	case *Object:
		switch {
		case len(rest) == 1:
			switch rest[0].name {
			case "cont":
				item, ok := x.(*Object)
				if !ok || !p.Type.IsList() {
					return true, errObj("")
				}
				p.Item = item
				return true, nil
			case "tag":
				tag, ok := x.(*Tag)
				if !ok {
					return true, errObj("")
				}
				p.Tag = tag
				return true, nil
			case "val":
				v, ok := x.(Value)
				if !ok {
					return true, errObj("")
				}
				p.Val = v
				return true, nil
			case "default":
				v, ok := x.(Value)
				if !ok {
					return true, errObj("")
				}
				p.Default = v
				return true, nil
			case "set":
				s, ok := x.(*ValueSet)
				if !ok {
					return true, errObj("")
				}
				p.Set = s
				return true, nil
			}
		case len(rest) == 2 && rest[0].name == "cont" && !rest[1].isIndex:
			obj, ok := x.(*Object)
			if !ok {
				return true, errObj("")
			}
			list := &p.Comps
			if p.Type == TypeClass {
				list = &p.Fields
			}
			for ii, comp := range *list {
				if comp.Name == rest[1].name {
					(*list)[ii] = obj
					return true, nil
				}
			}
			return true, errObj("")
		case len(rest) == 2 && rest[0].name == "const" && rest[1].isIndex:
			c, ok := x.(*Constraint)
			if !ok || rest[1].index >= len(p.Const) {
				return true, errObj("")
			}
			p.Const[rest[1].index] = c
			return true, nil
		}
	case *Tag:
		if len(rest) == 1 && rest[0].isIndex && rest[0].index == 0 {
			switch v := x.(type) {
			case int64:
				p.Value, p.Param = v, nil
			case IntValue:
				p.Value, p.Param = int64(v), nil
			default:
				return true, errObj("")
			}
			return true, nil
		}
	case *Constraint:
		switch {
		case len(rest) == 1 && rest[0].name == "tab":
			obj, ok := x.(*Object)
			if !ok {
				return true, errObj("")
			}
			p.Tab = obj
			return true, nil
		case len(rest) == 1 && rest[0].name == "containing":
			obj, ok := x.(*Object)
			if !ok {
				return true, errObj("")
			}
			p.Containing = obj
			return true, nil
		case len(rest) == 2 && (rest[0].name == "root" || rest[0].name == "ext") && rest[1].isIndex:
			v, ok := x.(Value)
			list := p.Root
			if rest[0].name == "ext" {
				list = p.Ext
			}
			if !ok || rest[1].index >= len(list) {
				return true, errObj("")
			}
			list[rest[1].index] = v
			return true, nil
		}
	case *ValueSet:
		if len(rest) == 2 && (rest[0].name == "root" || rest[0].name == "ext") && rest[1].isIndex {
			v, ok := x.(Value)
			list := p.Root
			if rest[0].name == "ext" {
				list = p.Ext
			}
			if !ok || rest[1].index >= len(list) {
				return true, errObj("")
			}
			list[rest[1].index] = v
			return true, nil
		}
	}
	return false, nil
}

// setInValue replaces a value nested below the value held at holderPath
// of holder.
func setInValue(holder any, holderPath, valuePath Path, x any, full Path) error {
	v, ok := x.(Value)
	if !ok {
		return errInvalidPath(full)
	}
	cur, _, err := step(holder, holderPath)
	if err != nil {
		return errInvalidPath(full)
	}
	curValue, _ := cur.(Value)
	newValue, ok := setValuePath(curValue, valuePath, v)
	if !ok {
		return errInvalidPath(full)
	}
	if done, err := setDirect(holder, holderPath, newValue); !done || err != nil {
		return errInvalidPath(full)
	}
	return nil
}

// cloner copies objects along paths, sharing everything off the paths.
type cloner struct {
	g     *Graph
	fresh map[any]bool
}

func newCloner(g *Graph) *cloner {
	return &cloner{g: g, fresh: make(map[any]bool)}
}

func (c *cloner) object(o *Object) *Object {
	if c.fresh[o] {
		return o
	}
	cp := *o
	cp.ID = c.g.nextID()
	cp.Comps = slices.Clone(o.Comps)
	cp.Fields = slices.Clone(o.Fields)
	cp.Const = slices.Clone(o.Const)
	cp.Refs = maps.Clone(o.Refs)
	if o.Tag != nil {
		tag := *o.Tag
		cp.Tag = &tag
	}
	c.fresh[&cp] = true
	return &cp
}

func (c *cloner) constraint(k *Constraint) *Constraint {
	if c.fresh[k] {
		return k
	}
	cp := *k
	cp.Root = slices.Clone(k.Root)
	cp.Ext = slices.Clone(k.Ext)
	cp.Comps = slices.Clone(k.Comps)
	c.fresh[&cp] = true
	return &cp
}

func (c *cloner) valueSet(s *ValueSet) *ValueSet {
	if c.fresh[s] {
		return s
	}
	cp := &ValueSet{
		Root:       slices.Clone(s.Root),
		Ext:        slices.Clone(s.Ext),
		Extensible: s.Extensible,
	}
	c.fresh[cp] = true
	return cp
}

// cloneAlong copies root and every object, constraint and value set
// addressed along each path, so that Set on those paths never mutates the
// original.
func (c *cloner) cloneAlong(root *Object, paths []Path) *Object {
	out := c.object(root)
	for _, path := range paths {
		c.walk(out, path)
	}
	return out
}

func (c *cloner) walk(cur any, path Path) {
	for len(path) > 0 {
		seg := path[0]
		switch p := cur.(type) {
		case *Object:
			switch {
			case seg.name == "cont" && p.Type.IsList() && p.Item != nil:
				item := c.object(p.Item)
				item.Parent = p
				p.Item = item
				cur, path = item, path[1:]
				continue
			case seg.name == "cont" && len(path) >= 2:
				list := p.Comps
				if p.Type == TypeClass {
					list = p.Fields
				}
				for ii, comp := range list {
					if comp.Name == path[1].name {
						cp := c.object(comp)
						cp.Parent = p
						list[ii] = cp
						cur = cp
						break
					}
				}
				path = path[2:]
				continue
			case seg.name == "const" && len(path) >= 2 && path[1].index < len(p.Const):
				k := c.constraint(p.Const[path[1].index])
				p.Const[path[1].index] = k
				cur, path = k, path[2:]
				continue
			case seg.name == "set" && p.Set != nil:
				p.Set = c.valueSet(p.Set)
				cur, path = p.Set, path[1:]
				continue
			}
		case *Constraint:
			switch {
			case seg.name == "tab" && p.Tab != nil:
				p.Tab = c.object(p.Tab)
				cur, path = p.Tab, path[1:]
				continue
			case seg.name == "containing" && p.Containing != nil:
				p.Containing = c.object(p.Containing)
				cur, path = p.Containing, path[1:]
				continue
			case seg.name == "comps" && len(path) >= 2:
				for ii, cc := range p.Comps {
					if cc.Name == path[1].name {
						cp := *cc
						cp.Const = slices.Clone(cc.Const)
						p.Comps[ii] = &cp
						cur = &cp
						break
					}
				}
				path = path[2:]
				continue
			}
		case *CompConstraint:
			if seg.name == "const" && len(path) >= 2 && path[1].index < len(p.Const) {
				k := c.constraint(p.Const[path[1].index])
				p.Const[path[1].index] = k
				cur, path = k, path[2:]
				continue
			}
		}
		// tags are copied with their object, values are immutable
		return
	}
}
