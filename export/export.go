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

// Package export converts compiled ASN.1 modules into a language-agnostic
// JSON document for code generators.
//
// The document layout is fixed by the CUE contract in schema.cue, and
// [Validate] checks a document against it.
package export

import (
	"encoding/json"
	"slices"

	"go.asn1c.org/asn1c/compiler"
)

type Document struct {
	Modules  []*Module     `json:"modules"`
	Warnings []*Diagnostic `json:"warnings,omitempty"`
}

type Diagnostic struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
	Object  string `json:"object,omitempty"`
}

type Module struct {
	Name                 string            `json:"name"`
	OID                  []uint64          `json:"oid,omitempty"`
	TagDefault           string            `json:"tag_default"`
	ExtensibilityImplied bool              `json:"extensibility_implied,omitempty"`
	ExportsAll           bool              `json:"exports_all"`
	Exports              []string          `json:"exports,omitempty"`
	Imports              map[string]string `json:"imports,omitempty"`
	Definitions          []*Definition     `json:"definitions"`
}

type Definition struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Params []*Param `json:"params,omitempty"`
	Node   *Node    `json:"node"`
}

type Param struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Governor  *Node    `json:"governor,omitempty"`
	Referrers []string `json:"referrers"`
}

type Node struct {
	Type        string        `json:"type"`
	Name        string        `json:"name,omitempty"`
	Ref         string        `json:"ref,omitempty"`
	Tag         *Tag          `json:"tag,omitempty"`
	Named       []*Named      `json:"named,omitempty"`
	Root        []string      `json:"root,omitempty"`
	Ext         []string      `json:"ext,omitempty"`
	Extensible  bool          `json:"extensible,omitempty"`
	Groups      [][]string    `json:"groups,omitempty"`
	Components  []*Node       `json:"components,omitempty"`
	Item        *Node         `json:"item,omitempty"`
	Fields      []*Node       `json:"fields,omitempty"`
	FieldKind   string        `json:"field_kind,omitempty"`
	Syntax      string        `json:"syntax,omitempty"`
	Constraints []*Constraint `json:"constraints,omitempty"`
	Value       string        `json:"value,omitempty"`
	Set         string        `json:"set,omitempty"`
	Optional    bool          `json:"optional,omitempty"`
	Default     string        `json:"default,omitempty"`
	Unique      bool          `json:"unique,omitempty"`
}

type Tag struct {
	Class  string `json:"class"`
	Number int64  `json:"number"`
	Param  string `json:"param,omitempty"`
	Mode   string `json:"mode"`
	Auto   bool   `json:"auto,omitempty"`
}

type Named struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type Constraint struct {
	Kind       string            `json:"kind"`
	Excl       bool              `json:"excl,omitempty"`
	Root       []string          `json:"root,omitempty"`
	Ext        []string          `json:"ext,omitempty"`
	Extensible bool              `json:"extensible,omitempty"`
	Table      *Node             `json:"table,omitempty"`
	At         []string          `json:"at,omitempty"`
	Exception  string            `json:"exception,omitempty"`
	Containing *Node             `json:"containing,omitempty"`
	EncodedBy  string            `json:"encoded_by,omitempty"`
	Partial    bool              `json:"partial,omitempty"`
	Components []*CompConstraint `json:"components,omitempty"`
	Text       string            `json:"text,omitempty"`
}

type CompConstraint struct {
	Name        string        `json:"name"`
	Presence    string        `json:"presence,omitempty"`
	Constraints []*Constraint `json:"constraints,omitempty"`
}

// FromResult builds the document for the modules compiled by result,
// together with its warnings.
func FromResult(result *compiler.Result) *Document {
	doc := FromModules(result.Modules()...)
	for _, warn := range result.Warnings {
		doc.Warnings = append(doc.Warnings, &Diagnostic{
			Code:    warn.Code(),
			Message: warn.Message(),
			Object:  warn.Object(),
		})
	}
	return doc
}

func FromModules(mods ...*compiler.Module) *Document {
	doc := &Document{Modules: make([]*Module, 0, len(mods))}
	for _, mod := range mods {
		doc.Modules = append(doc.Modules, exportModule(mod))
	}
	return doc
}

// Marshal renders doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "\t")
}

func exportModule(mod *compiler.Module) *Module {
	out := &Module{
		Name:                 mod.Name,
		OID:                  mod.OID,
		TagDefault:           mod.TagDefault.String(),
		ExtensibilityImplied: mod.ExtImplied,
		ExportsAll:           mod.Exports == nil,
		Exports:              mod.Exports,
		Definitions:          []*Definition{},
	}
	if len(mod.Imports) > 0 {
		out.Imports = make(map[string]string, len(mod.Imports))
		for name, from := range mod.Imports {
			out.Imports[name] = from
		}
	}
	for _, name := range mod.Names() {
		obj := mod.Object(name)
		if obj == nil {
			continue
		}
		def := &Definition{
			Name: name,
			Kind: definitionKind(obj),
			Node: exportNode(obj),
		}
		for _, p := range obj.Params {
			param := &Param{
				Name:      p.Name,
				Kind:      p.Kind.String(),
				Referrers: make([]string, len(p.Referrers)),
			}
			if p.Governor != nil {
				param.Governor = exportNode(p.Governor)
			}
			for ii, path := range p.Referrers {
				param.Referrers[ii] = path.String()
			}
			def.Params = append(def.Params, param)
		}
		out.Definitions = append(out.Definitions, def)
	}
	return out
}

func definitionKind(obj *compiler.Object) string {
	switch {
	case obj.IsParameterized():
		return "template"
	case obj.Mode == compiler.ModeType && obj.Type == compiler.TypeClass:
		return "class"
	}
	return obj.Mode.String()
}

func exportNode(obj *compiler.Object) *Node {
	node := &Node{
		Type:       obj.Type.String(),
		Root:       obj.Root,
		Ext:        obj.Ext,
		Extensible: obj.Extensible,
		Groups:     obj.Groups,
		Optional:   obj.Optional,
		Unique:     obj.Unique,
	}
	if obj.Parent != nil {
		node.Name = obj.Name
	}
	if obj.Ref != nil {
		node.Ref = obj.Ref.String()
	}
	if obj.Tag != nil {
		node.Tag = &Tag{
			Class:  obj.Tag.Class.String(),
			Number: obj.Tag.Value,
			Mode:   obj.Tag.Mode.String(),
			Auto:   obj.Tag.Auto,
		}
		if obj.Tag.Param != nil {
			node.Tag.Param = obj.Tag.Param.Name
		}
	}
	for _, nn := range obj.Named {
		node.Named = append(node.Named, &Named{Name: nn.Name, Value: nn.Value})
	}
	for _, comp := range obj.Comps {
		node.Components = append(node.Components, exportNode(comp))
	}
	if obj.Item != nil {
		node.Item = exportNode(obj.Item)
	}
	for _, field := range obj.Fields {
		fieldNode := exportNode(field)
		fieldNode.FieldKind = field.FieldKind().String()
		node.Fields = append(node.Fields, fieldNode)
	}
	if obj.Syntax != nil {
		node.Syntax = obj.Syntax.String()
	}
	for _, c := range obj.Const {
		node.Constraints = append(node.Constraints, exportConstraint(c))
	}
	if obj.Val != nil {
		node.Value = obj.Val.String()
	}
	if obj.Set != nil {
		node.Set = compiler.SetValue{Set: obj.Set}.String()
	}
	if obj.Default != nil {
		node.Default = obj.Default.String()
	}
	return node
}

func exportConstraint(c *compiler.Constraint) *Constraint {
	out := &Constraint{
		Kind:       c.Kind.String(),
		Excl:       c.Excl,
		Root:       valueStrings(c.Root),
		Ext:        valueStrings(c.Ext),
		Extensible: c.Extensible,
		At:         slices.Clone(c.At),
		Exception:  c.Exc,
		Partial:    c.Partial,
		Text:       c.Text,
	}
	if c.Tab != nil {
		out.Table = exportNode(c.Tab)
	}
	if c.Containing != nil {
		out.Containing = exportNode(c.Containing)
	}
	if c.EncodedBy != nil {
		out.EncodedBy = c.EncodedBy.String()
	}
	for _, cc := range c.Comps {
		comp := &CompConstraint{Name: cc.Name}
		if cc.Presence != compiler.PresenceUnset {
			comp.Presence = cc.Presence.String()
		}
		for _, inner := range cc.Const {
			comp.Constraints = append(comp.Constraints, exportConstraint(inner))
		}
		out.Components = append(out.Components, comp)
	}
	return out
}

func valueStrings(values []compiler.Value) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for ii, v := range values {
		out[ii] = v.String()
	}
	return out
}
