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

// Package asntext renders compiled ASN.1 modules as indented text, one
// attribute per line. The output is deterministic and is used for golden
// test files and the "dump" command.
package asntext

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"go.asn1c.org/asn1c/compiler"
)

func Encode(mods ...*compiler.Module) string {
	var buf strings.Builder
	EncodeTo(&buf, mods...)
	return buf.String()
}

func EncodeTo(w io.Writer, mods ...*compiler.Module) error {
	e := encoder{w: w}
	for _, mod := range mods {
		if e.err != nil {
			break
		}
		e.visitModule(mod)
	}
	return e.err
}

// EncodeObject renders the attributes of a single object, without the
// enclosing block.
func EncodeObject(obj *compiler.Object) string {
	var buf strings.Builder
	e := encoder{w: &buf}
	e.visitObject(obj)
	return buf.String()
}

type encoder struct {
	w      io.Writer
	indent int
	err    error
}

func (e *encoder) line(s string) {
	if e.err != nil {
		return
	}
	if indent := strings.Repeat("\t", e.indent); indent != "" {
		if _, err := io.WriteString(e.w, indent); err != nil {
			e.err = err
			return
		}
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		e.err = err
		return
	}
	if _, err := io.WriteString(e.w, "\n"); err != nil {
		e.err = err
		return
	}
}

func (e *encoder) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *encoder) block(header string, body func()) {
	e.line(header + " {")
	e.indent += 1
	body()
	e.indent -= 1
	e.line("}")
}

func (e *encoder) list(name string, items []string) {
	if len(items) == 0 {
		return
	}
	e.linef("%s = [", name)
	e.indent += 1
	for _, item := range items {
		e.line(quote(item))
	}
	e.indent -= 1
	e.line("]")
}

func (e *encoder) flag(name string, set bool) {
	if set {
		e.linef("%s = .true", name)
	}
}

func (e *encoder) visitModule(mod *compiler.Module) {
	e.block("module "+quote(mod.Name), func() {
		e.linef("tag_default = .%s", mod.TagDefault)
		e.flag("extensibility_implied", mod.ExtImplied)
		if len(mod.OID) > 0 {
			e.linef("oid = %s", quote(compiler.OIDValue(mod.OID).String()))
		}
		e.list("exports", mod.Exports)
		imports := make([]string, 0, len(mod.Imports))
		for name := range mod.Imports {
			imports = append(imports, name)
		}
		slices.Sort(imports)
		for _, name := range imports {
			e.linef("import %s = %s", quote(name), quote(mod.Imports[name]))
		}
		for _, name := range mod.Names() {
			obj := mod.Object(name)
			if obj == nil {
				continue
			}
			e.block(section(obj)+" "+quote(name), func() {
				e.visitObject(obj)
			})
		}
	})
}

func section(obj *compiler.Object) string {
	switch {
	case obj.IsParameterized():
		return "template"
	case obj.Mode == compiler.ModeType && obj.Type == compiler.TypeClass:
		return "class"
	}
	return obj.Mode.String()
}

func enumName(s fmt.Stringer) string {
	return "." + strings.ReplaceAll(s.String(), " ", "_")
}

func (e *encoder) visitObject(obj *compiler.Object) {
	e.linef("type = %s", enumName(obj.Type))
	if obj.Ref != nil {
		e.linef("ref = %s", quote(obj.Ref.String()))
	}
	if obj.Tag != nil {
		e.linef("tag = %s", quote(obj.Tag.String()))
		e.flag("tag_auto", obj.Tag.Auto)
	}
	for _, p := range obj.Params {
		e.block("param "+quote(p.Name), func() {
			e.linef("kind = .%s", p.Kind)
			if p.Governor != nil {
				e.block("governor", func() {
					e.visitObject(p.Governor)
				})
			}
			referrers := make([]string, len(p.Referrers))
			for ii, path := range p.Referrers {
				referrers[ii] = path.String()
			}
			e.list("referrers", referrers)
		})
	}
	for _, nn := range obj.Named {
		e.linef("named %s = %d", quote(nn.Name), nn.Value)
	}
	e.list("root", obj.Root)
	e.list("ext", obj.Ext)
	e.flag("extensible", obj.Extensible)
	for _, group := range obj.Groups {
		e.list("group", group)
	}
	for _, comp := range obj.Comps {
		e.block("component "+quote(comp.Name), func() {
			e.visitObject(comp)
		})
	}
	if obj.Item != nil {
		e.block("item "+quote(obj.Item.Name), func() {
			e.visitObject(obj.Item)
		})
	}
	for _, field := range obj.Fields {
		e.block("field "+quote(field.Name), func() {
			e.linef("field_kind = %s", quote(field.FieldKind().String()))
			e.visitObject(field)
		})
	}
	if obj.Syntax != nil {
		e.linef("syntax = %s", quote(obj.Syntax.String()))
	}
	for _, c := range obj.Const {
		e.block("constraint", func() {
			e.visitConstraint(c)
		})
	}
	if obj.Val != nil {
		e.linef("value = %s", quote(obj.Val.String()))
	}
	if obj.Set != nil {
		e.linef("set = %s", quote(compiler.SetValue{Set: obj.Set}.String()))
	}
	e.flag("optional", obj.Optional)
	if obj.Default != nil {
		e.linef("default = %s", quote(obj.Default.String()))
	}
	e.flag("unique", obj.Unique)
}

func (e *encoder) visitConstraint(c *compiler.Constraint) {
	e.linef("kind = %s", enumName(c.Kind))
	e.flag("excl", c.Excl)
	e.list("root", valueStrings(c.Root))
	e.list("ext", valueStrings(c.Ext))
	e.flag("extensible", c.Extensible)
	if c.Tab != nil {
		e.block("table", func() {
			e.visitObject(c.Tab)
		})
	}
	if len(c.At) > 0 {
		e.linef("at = %s", quote(strings.Join(c.At, ".")))
	}
	if c.Exc != "" {
		e.linef("exception = %s", quote(c.Exc))
	}
	if c.Containing != nil {
		e.block("containing", func() {
			e.visitObject(c.Containing)
		})
	}
	if c.EncodedBy != nil {
		e.linef("encoded_by = %s", quote(c.EncodedBy.String()))
	}
	e.flag("partial", c.Partial)
	for _, cc := range c.Comps {
		e.block("component "+quote(cc.Name), func() {
			if cc.Presence != compiler.PresenceUnset {
				e.linef("presence = .%s", cc.Presence)
			}
			for _, inner := range cc.Const {
				e.block("constraint", func() {
					e.visitConstraint(inner)
				})
			}
		})
	}
	if c.Text != "" {
		e.linef("text = %s", quote(c.Text))
	}
}

func valueStrings(values []compiler.Value) []string {
	out := make([]string, len(values))
	for ii, v := range values {
		out[ii] = v.String()
	}
	return out
}

func quote(text string) string {
	var buf strings.Builder
	buf.WriteByte('"')
	for _, c := range text {
		if c == '\\' || c == '"' {
			buf.WriteByte('\\')
			buf.WriteRune(c)
			continue
		}
		if c == '\t' {
			buf.WriteString("\\t")
			continue
		}
		if c == '\n' {
			buf.WriteString("\\n")
			continue
		}
		if c < 0x20 || c == 0x7F {
			fmt.Fprintf(&buf, "\\x%02X", c)
			continue
		}
		buf.WriteRune(c)
	}
	buf.WriteByte('"')
	return buf.String()
}
