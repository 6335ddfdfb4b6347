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

// Command asn1c-codegen-go is a codegen plugin that emits Go type
// declarations for compiled ASN.1 modules.
//
// Built for GOOS=wasip1 it is loaded by "asn1c codegen". Built natively it
// compiles the ASN.1 files named on its command line and prints the
// generated source, which is handy when working on the generator itself.
package main

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"unicode"

	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/codegen"
)

const defaultPackage = "asn1"

func generate(request *codegen.Request) (*codegen.Response, error) {
	pkg := request.Options["package"]
	if pkg == "" {
		pkg = defaultPackage
	}
	if !isGoIdent(pkg) {
		return nil, fmt.Errorf("invalid Go package name %q", pkg)
	}

	g := &generator{
		pkg:   pkg,
		types: make(map[string]*export.Definition),
		names: make(map[string]string),
	}
	for _, mod := range request.Document.Modules {
		for _, def := range mod.Definitions {
			if def.Kind == "type" {
				g.types[mod.Name+"."+def.Name] = def
			}
		}
	}

	response := &codegen.Response{}
	for _, mod := range request.Document.Modules {
		src, err := g.module(mod)
		if err != nil {
			return nil, err
		}
		response.Files = append(response.Files, &codegen.OutputFile{
			Path:    []string{fileName(mod.Name)},
			Content: src,
		})
	}
	return response, nil
}

type generator struct {
	pkg   string
	types map[string]*export.Definition
	// Go name -> qualified ASN.1 name that claimed it
	names map[string]string

	buf strings.Builder
}

func (g *generator) printf(format string, a ...any) {
	fmt.Fprintf(&g.buf, format, a...)
}

func (g *generator) claim(goName, asnName string) error {
	if prev, ok := g.names[goName]; ok && prev != asnName {
		return fmt.Errorf("%s and %s both map to Go name %s", prev, asnName, goName)
	}
	g.names[goName] = asnName
	return nil
}

func (g *generator) module(mod *export.Module) ([]byte, error) {
	g.buf.Reset()
	g.printf("// Code generated by asn1c-codegen-go. DO NOT EDIT.\n")
	g.printf("// Source module: %s\n\n", mod.Name)
	g.printf("package %s\n", g.pkg)

	for _, def := range mod.Definitions {
		qualified := mod.Name + "." + def.Name
		var err error
		switch def.Kind {
		case "type":
			err = g.typeDecl(qualified, def)
		case "value":
			err = g.valueDecl(qualified, def)
		}
		if err != nil {
			return nil, err
		}
	}

	src, err := format.Source([]byte(g.buf.String()))
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", mod.Name, err)
	}
	return src, nil
}

func (g *generator) typeDecl(qualified string, def *export.Definition) error {
	name := goName(def.Name)
	if err := g.claim(name, qualified); err != nil {
		return err
	}
	node := def.Node

	g.printf("\n// %s is the ASN.1 type %s.\n", name, qualified)
	g.printf("type %s %s\n", name, g.goType(node, false))

	if len(node.Named) > 0 && (node.Type == "INTEGER" || node.Type == "ENUMERATED") {
		g.printf("\nconst (\n")
		for _, nn := range node.Named {
			constName := name + goName(nn.Name)
			if err := g.claim(constName, qualified+"."+nn.Name); err != nil {
				return err
			}
			g.printf("%s %s = %d\n", constName, name, nn.Value)
		}
		g.printf(")\n")
	}
	return nil
}

func (g *generator) valueDecl(qualified string, def *export.Definition) error {
	node := def.Node
	if node.Value == "" {
		return nil
	}
	var typeName string
	if target := g.refType(node); target != nil {
		typeName = goName(target.Name)
	}

	var expr string
	switch node.Type {
	case "INTEGER":
		if _, err := strconv.ParseInt(node.Value, 10, 64); err != nil {
			return nil
		}
		expr = node.Value
	case "ENUMERATED":
		target := g.refType(node)
		if target == nil {
			return nil
		}
		expr = typeName + goName(node.Value)
	case "BOOLEAN":
		expr = strings.ToLower(node.Value)
	case "OBJECT IDENTIFIER", "RELATIVE-OID":
		arcs, ok := oidArcs(node.Value)
		if !ok {
			return nil
		}
		name := goName(def.Name)
		if err := g.claim(name, qualified); err != nil {
			return err
		}
		g.printf("\nvar %s = []uint64{%s}\n", name, strings.Join(arcs, ", "))
		return nil
	default:
		text, ok := asnString(node.Value)
		if !ok {
			return nil
		}
		expr = strconv.Quote(text)
	}

	name := goName(def.Name)
	if err := g.claim(name, qualified); err != nil {
		return err
	}
	if typeName != "" {
		g.printf("\nconst %s %s = %s\n", name, typeName, expr)
	} else {
		g.printf("\nconst %s = %s\n", name, expr)
	}
	return nil
}

// refType returns the type definition node refers to by name, if any.
func (g *generator) refType(node *export.Node) *export.Definition {
	if node.Ref == "" || strings.Count(node.Ref, ".") != 1 {
		return nil
	}
	return g.types[node.Ref]
}

func (g *generator) goType(node *export.Node, optional bool) string {
	if target := g.refType(node); target != nil {
		return pointerIf(optional, goName(target.Name))
	}
	switch node.Type {
	case "BOOLEAN":
		return pointerIf(optional, "bool")
	case "INTEGER", "ENUMERATED":
		return pointerIf(optional, "int64")
	case "REAL":
		return pointerIf(optional, "float64")
	case "NULL":
		return pointerIf(optional, "struct{}")
	case "OBJECT IDENTIFIER", "RELATIVE-OID":
		return "[]uint64"
	case "BIT STRING", "OCTET STRING":
		return "[]byte"
	case "SEQUENCE OF", "SET OF":
		if node.Item == nil {
			return "[][]byte"
		}
		return "[]" + g.goType(node.Item, false)
	case "SEQUENCE", "SET":
		return pointerIf(optional, g.structType(node, false))
	case "CHOICE":
		return pointerIf(optional, g.structType(node, true))
	}
	if isStringType(node.Type) {
		return pointerIf(optional, "string")
	}
	// open types, ANY, EXTERNAL and other types without a natural Go
	// representation carry their encoded form
	return "[]byte"
}

func (g *generator) structType(node *export.Node, choice bool) string {
	if len(node.Components) == 0 {
		return "struct{}"
	}
	var buf strings.Builder
	buf.WriteString("struct {\n")
	for _, comp := range node.Components {
		optional := choice || comp.Optional || comp.Default != ""
		fmt.Fprintf(&buf, "%s %s", goName(comp.Name), g.goType(comp, optional))
		if tag := structTag(comp); tag != "" {
			fmt.Fprintf(&buf, " `asn1:%q`", tag)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.String()
}

// structTag renders the encoding/asn1 field options of comp.
func structTag(comp *export.Node) string {
	var opts []string
	if comp.Optional {
		opts = append(opts, "optional")
	}
	if comp.Tag != nil && comp.Tag.Param == "" {
		switch comp.Tag.Class {
		case "APPLICATION":
			opts = append(opts, "application")
		case "PRIVATE":
			opts = append(opts, "private")
		}
		if comp.Tag.Mode == "EXPLICIT" {
			opts = append(opts, "explicit")
		}
		opts = append(opts, fmt.Sprintf("tag:%d", comp.Tag.Number))
	}
	if comp.Default != "" {
		if _, err := strconv.ParseInt(comp.Default, 10, 64); err == nil {
			opts = append(opts, "default:"+comp.Default)
		}
	}
	switch comp.Type {
	case "UTF8String":
		opts = append(opts, "utf8")
	case "IA5String":
		opts = append(opts, "ia5")
	case "PrintableString":
		opts = append(opts, "printable")
	case "NumericString":
		opts = append(opts, "numeric")
	case "UTCTime":
		opts = append(opts, "utc")
	case "GeneralizedTime":
		opts = append(opts, "generalized")
	case "SET", "SET OF":
		opts = append(opts, "set")
	}
	return strings.Join(opts, ",")
}

func pointerIf(optional bool, goType string) string {
	if optional {
		return "*" + goType
	}
	return goType
}

func isStringType(asnType string) bool {
	switch asnType {
	case "ObjectDescriptor", "UTCTime", "GeneralizedTime":
		return true
	}
	return strings.HasSuffix(asnType, "String") && asnType != "CHARACTER STRING"
}

// goName converts an ASN.1 identifier to an exported Go identifier:
// "id-ce-keyUsage" becomes "IdCeKeyUsage".
func goName(name string) string {
	var buf strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	}) {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		buf.WriteString(string(runes))
	}
	return buf.String()
}

func isGoIdent(s string) bool {
	if s == "" {
		return false
	}
	for ii, r := range s {
		if r == '_' || unicode.IsLetter(r) || (ii > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func fileName(module string) string {
	return strings.ToLower(strings.ReplaceAll(module, "-", "_")) + ".go"
}

// oidArcs extracts the numeric arcs of an OID value rendered as
// "{ 1 3 6 1 }".
func oidArcs(value string) ([]string, bool) {
	inner, ok := strings.CutPrefix(value, "{")
	if !ok {
		return nil, false
	}
	inner, ok = strings.CutSuffix(inner, "}")
	if !ok {
		return nil, false
	}
	arcs := strings.Fields(inner)
	for _, arc := range arcs {
		if _, err := strconv.ParseUint(arc, 10, 64); err != nil {
			return nil, false
		}
	}
	return arcs, len(arcs) > 0
}

// asnString unquotes an ASN.1 character string literal, where an embedded
// quote is written twice.
func asnString(value string) (string, bool) {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return "", false
	}
	return strings.ReplaceAll(value[1:len(value)-1], `""`, `"`), true
}
