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

// Package ref describes how one ASN.1 definition points to another.
package ref

import (
	"fmt"
	"slices"
	"strings"
)

type Kind uint8

const (
	KindTypeRef Kind = iota + 1
	KindClassFieldRef
	KindClassInternRef
	KindClassValueFieldRef
	KindChoiceComponentRef
	KindInstanceOfRef
	KindValueRef
	KindSetRef
)

var kindNames = map[Kind]string{
	KindTypeRef:            "TypeRef",
	KindClassFieldRef:      "ClassFieldRef",
	KindClassInternRef:     "ClassInternRef",
	KindClassValueFieldRef: "ClassValueFieldRef",
	KindChoiceComponentRef: "ChoiceComponentRef",
	KindInstanceOfRef:      "InstanceOfRef",
	KindValueRef:           "ValueRef",
	KindSetRef:             "SetRef",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Name is a fully qualified definition name.
type Name struct {
	Module string
	Name   string
}

func (n Name) String() string {
	if n.Module == "" {
		return n.Name
	}
	return n.Module + "." + n.Name
}

// Param is a formal parameter placeholder. References to a parameter are
// identified by the *Param pointer, not by name.
type Param struct {
	Name string
}

// Ref points from one definition to another, optionally through a path of
// field or alternative names (for example "&Type" then "&id", or a chain of
// CHOICE alternatives).
type Ref struct {
	Kind   Kind
	Called Name
	Param  *Param
	Path   []string
}

func New(kind Kind, module, name string, path ...string) *Ref {
	return &Ref{
		Kind:   kind,
		Called: Name{Module: module, Name: name},
		Path:   path,
	}
}

func NewParam(kind Kind, param *Param, path ...string) *Ref {
	return &Ref{
		Kind:   kind,
		Called: Name{Name: param.Name},
		Param:  param,
		Path:   path,
	}
}

func (r *Ref) IsParam() bool {
	return r.Param != nil
}

// Equal reports whether both references point to the same target through
// the same path. A parameter reference is only equal to itself.
func (r *Ref) Equal(other *Ref) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil || r.Param != nil || other.Param != nil {
		return false
	}
	return r.Kind == other.Kind &&
		r.Called == other.Called &&
		slices.Equal(r.Path, other.Path)
}

// Key returns a map key consistent with Equal for non-parameter references.
// Parameter references key on the parameter name.
func (r *Ref) Key() string {
	if r.Param != nil {
		return "\x00param\x00" + r.Param.Name
	}
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s",
		r.Kind, r.Called.Module, r.Called.Name, strings.Join(r.Path, "\x00"))
}

// Copy duplicates the path and shares the called name and parameter.
func (r *Ref) Copy() *Ref {
	if r == nil {
		return nil
	}
	out := *r
	out.Path = slices.Clone(r.Path)
	return &out
}

func (r *Ref) String() string {
	if r == nil {
		return "<nil>"
	}
	var buf strings.Builder
	if r.Param != nil {
		buf.WriteString("{" + r.Param.Name + "}")
	} else {
		buf.WriteString(r.Called.String())
	}
	sep := "."
	if r.Kind == KindChoiceComponentRef {
		sep = "<"
	}
	for _, hop := range r.Path {
		buf.WriteString(sep)
		buf.WriteString(hop)
	}
	return buf.String()
}
