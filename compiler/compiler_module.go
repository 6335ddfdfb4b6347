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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

// Module is one "Name DEFINITIONS ::= BEGIN ... END" block.
type Module struct {
	Name       string
	OID        []uint64
	OIDText    string
	Source     string
	TagDefault TagDefault
	ExtImplied bool
	// Exports is nil when the module exports everything.
	Exports []string
	// Imports maps each imported symbol to its source module.
	Imports map[string]string

	assigns []*entry
	entries map[string]*entry

	types   []*Object
	sets    []*Object
	values  []*Object
	classes []*Object
	params  []*Object
}

// Names returns the assignment names in declaration order.
func (m *Module) Names() []string {
	out := make([]string, len(m.assigns))
	for ii, e := range m.assigns {
		out[ii] = e.name
	}
	return out
}

// Object returns the compiled object assigned to name, or nil.
func (m *Module) Object(name string) *Object {
	if e := m.entries[name]; e != nil {
		return e.obj
	}
	return nil
}

func (m *Module) Types() []*Object   { return m.types }
func (m *Module) Sets() []*Object    { return m.sets }
func (m *Module) Values() []*Object  { return m.values }
func (m *Module) Classes() []*Object { return m.classes }

// Params returns the parameterized definitions. They are templates and
// appear in no other index.
func (m *Module) Params() []*Object { return m.params }

func (m *Module) exports(name string) bool {
	return m.Exports == nil || slices.Contains(m.Exports, name)
}

func (m *Module) classify() {
	m.types, m.sets, m.values, m.classes, m.params = nil, nil, nil, nil, nil
	for _, e := range m.assigns {
		obj := e.obj
		if obj == nil {
			// outside the load list and never needed
			continue
		}
		switch {
		case obj.IsParameterized():
			m.params = append(m.params, obj)
		case obj.Mode == ModeType && obj.Type == TypeClass:
			m.classes = append(m.classes, obj)
		case obj.Mode == ModeType:
			m.types = append(m.types, obj)
		case obj.Mode == ModeValue:
			m.values = append(m.values, obj)
		case obj.Mode == ModeSet:
			m.sets = append(m.sets, obj)
		}
	}
}

// entry is one assignment of a module and its compilation state.
type entry struct {
	mod    *Module
	name   string
	params string
	gov    string
	rhs    string
	mode   Mode

	obj     *Object
	queued  bool
	waitFor ref.Name
}

func (e *entry) qualifiedName() string {
	return e.mod.Name + "." + e.name
}

func (e *entry) refName() ref.Name {
	return ref.Name{Module: e.mod.Name, Name: e.name}
}

func (g *Graph) loadSources(srcs []Source) ([]*Module, error) {
	var mods []*Module
	for _, src := range srcs {
		text, err := syntax.CleanText(src.Text)
		if err != nil {
			return nil, errSyntax(err)
		}
		blocks, err := syntax.ExtractModules(text)
		if err != nil {
			return nil, errSyntax(err)
		}
		for _, block := range blocks {
			mod, err := g.loadModule(block)
			if err != nil {
				return nil, withObject(err, block.Name)
			}
			mod.Source = src.Name
			mods = append(mods, mod)
		}
	}
	for _, mod := range mods {
		g.checkImports(mod)
	}
	return mods, nil
}

func (g *Graph) loadModule(block syntax.ModuleText) (*Module, error) {
	if _, dup := g.modules[block.Name]; dup {
		return nil, errDuplicateModule(block.Name)
	}
	mod := &Module{
		Name:    block.Name,
		OIDText: block.OID,
		Imports: make(map[string]string),
		entries: make(map[string]*entry),
	}
	if block.OID != "" {
		if arcs, err := parseOIDArcs(block.OID, nil); err == nil {
			mod.OID = arcs
		}
	}
	if err := mod.parseHeader(block.Header); err != nil {
		return nil, err
	}
	if g.opts.autoTags {
		mod.TagDefault = TagsAutomatic
	}
	if g.opts.extImplied {
		mod.ExtImplied = true
	}

	preamble, assigns, err := syntax.SplitAssignments(block.Body)
	if err != nil {
		return nil, errSyntax(err)
	}
	if err := mod.parsePreamble(preamble); err != nil {
		return nil, err
	}
	for _, assign := range assigns {
		e, err := parseLHS(assign)
		if err != nil {
			return nil, err
		}
		if _, dup := mod.entries[e.name]; dup {
			return nil, errDuplicateDefinition(e.name)
		}
		e.mod = mod
		mod.entries[e.name] = e
		mod.assigns = append(mod.assigns, e)
	}

	g.modules[mod.Name] = mod
	g.order = append(g.order, mod)
	g.log.log(slog.LevelDebug, "loaded module",
		slog.String("module", mod.Name),
		slog.Int("assignments", len(mod.assigns)),
		slog.Int("imports", len(mod.Imports)))
	return mod, nil
}

// parseHeader reads the tag default and extensibility clauses between
// DEFINITIONS and "::=".
func (mod *Module) parseHeader(header string) error {
	rest := header
	for rest != "" {
		var ok bool
		switch {
		case hasWord(rest, "EXPLICIT"):
			rest, _ = syntax.Word(rest, "EXPLICIT")
			mod.TagDefault = TagsExplicit
		case hasWord(rest, "IMPLICIT"):
			rest, _ = syntax.Word(rest, "IMPLICIT")
			mod.TagDefault = TagsImplicit
		case hasWord(rest, "AUTOMATIC"):
			rest, _ = syntax.Word(rest, "AUTOMATIC")
			mod.TagDefault = TagsAutomatic
		case hasWord(rest, "EXTENSIBILITY IMPLIED"):
			rest, _ = syntax.Word(rest, "EXTENSIBILITY IMPLIED")
			mod.ExtImplied = true
			continue
		case hasWord(rest, "INSTRUCTIONS"):
			// encoding reference default, e.g. "XER INSTRUCTIONS"
			return nil
		default:
			if _, after, isIdent := syntax.TypeRef(rest); isIdent && hasWord(after, "INSTRUCTIONS") {
				return nil
			}
			return errModuleHeader(header)
		}
		if rest, ok = syntax.Word(rest, "TAGS"); !ok {
			return errModuleHeader(header)
		}
	}
	return nil
}

func hasWord(text, word string) bool {
	_, ok := syntax.Word(text, word)
	return ok
}

// parsePreamble reads the EXPORTS and IMPORTS clauses.
func (mod *Module) parsePreamble(preamble string) error {
	rest := preamble
	for rest != "" {
		switch {
		case hasWord(rest, "EXPORTS"):
			rest, _ = syntax.Word(rest, "EXPORTS")
			end := strings.IndexByte(rest, ';')
			if end < 0 {
				return errExports(rest)
			}
			if err := mod.parseExports(rest[:end]); err != nil {
				return err
			}
			rest = strings.TrimSpace(rest[end+1:])
		case hasWord(rest, "IMPORTS"):
			rest, _ = syntax.Word(rest, "IMPORTS")
			end := strings.IndexByte(rest, ';')
			if end < 0 {
				return errImports(rest)
			}
			if err := mod.parseImports(rest[:end]); err != nil {
				return err
			}
			rest = strings.TrimSpace(rest[end+1:])
		default:
			return errTrailing(rest)
		}
	}
	return nil
}

func (mod *Module) parseExports(text string) error {
	text = strings.TrimSpace(text)
	if rest, ok := syntax.Word(text, "ALL"); ok && rest == "" {
		return nil
	}
	mod.Exports = []string{}
	if text == "" {
		return nil
	}
	for _, item := range strings.Split(text, ",") {
		name, rest, ok := syntax.Ident(stripParamMarker(item))
		if !ok || rest != "" {
			return errExports(item)
		}
		mod.Exports = append(mod.Exports, name)
	}
	return nil
}

// parseImports reads "a, B FROM Mod1 {oid} C{} FROM Mod2 WITH SUCCESSORS".
func (mod *Module) parseImports(text string) error {
	rest := strings.TrimSpace(text)
	var symbols []string
	for rest != "" {
		if after, ok := syntax.Word(rest, "FROM"); ok {
			source, after, ok := syntax.TypeRef(after)
			if !ok {
				return errImports(rest)
			}
			if strings.HasPrefix(after, "{") {
				_, after2, err := syntax.ExtractCurly(after)
				if err != nil {
					return errSyntax(err)
				}
				after = after2
			}
			for _, word := range []string{"WITH SUCCESSORS", "WITH DESCENDANTS"} {
				after, _ = syntax.Word(after, word)
			}
			if len(symbols) == 0 {
				return errImports(rest)
			}
			for _, sym := range symbols {
				mod.Imports[sym] = source
			}
			symbols = symbols[:0]
			rest = after
			continue
		}
		name, after, ok := syntax.Ident(rest)
		if !ok {
			return errImports(rest)
		}
		after = stripParamMarker(after)
		symbols = append(symbols, name)
		after, _ = syntax.Symbol(after, ",")
		rest = after
	}
	if len(symbols) > 0 {
		return errImports(strings.Join(symbols, ", "))
	}
	return nil
}

// stripParamMarker drops the "{}" following a parameterized symbol in
// IMPORTS and EXPORTS lists.
func stripParamMarker(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := syntax.Symbol(text, "{"); ok {
		if rest, ok := syntax.Symbol(rest, "}"); ok {
			return rest
		}
	}
	if strings.HasSuffix(text, "{}") {
		return strings.TrimSpace(strings.TrimSuffix(text, "{}"))
	}
	return text
}

// checkImports warns about symbols imported from a known module that
// neither defines nor re-imports them.
func (g *Graph) checkImports(mod *Module) {
	for _, name := range sortedKeys(mod.Imports) {
		src := g.modules[mod.Imports[name]]
		if src == nil {
			continue
		}
		if _, ok := src.entries[name]; ok {
			continue
		}
		if _, ok := src.Imports[name]; ok {
			continue
		}
		g.warn(warnImportUndefined(mod.Name, src.Name, name))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// parseLHS splits the left-hand side of an assignment into its name,
// formal parameter list and governor, and derives the assignment mode.
func parseLHS(assign syntax.Assignment) (*entry, error) {
	name, rest, ok := syntax.Ident(assign.LHS)
	if !ok {
		return nil, errInvalidLHS(assign.LHS)
	}
	e := &entry{name: name, rhs: assign.RHS}
	if strings.HasPrefix(rest, "{") {
		params, after, err := syntax.ExtractCurly(rest)
		if err != nil {
			return nil, errSyntax(err)
		}
		e.params, rest = params, after
	}
	e.gov = strings.TrimSpace(rest)
	switch {
	case e.gov == "" && syntax.IsUpper(name):
		e.mode = ModeType
	case e.gov == "":
		return nil, errInvalidLHS(assign.LHS)
	case syntax.IsUpper(name):
		e.mode = ModeSet
	default:
		e.mode = ModeValue
	}
	return e, nil
}

// resolveImport finds the entry a module imports name from, following
// re-exports through intermediate modules.
func (g *Graph) resolveImport(source, name string, seen map[string]bool) (*entry, error) {
	if seen[source] {
		return nil, errUndefined(name)
	}
	seen[source] = true
	src := g.modules[source]
	if src == nil {
		return nil, errUnknownModule(source)
	}
	if e, ok := src.entries[name]; ok {
		if !src.exports(name) {
			return nil, errNotExported(source, name)
		}
		return e, nil
	}
	if next, ok := src.Imports[name]; ok {
		if !src.exports(name) {
			return nil, errNotExported(source, name)
		}
		return g.resolveImport(next, name, seen)
	}
	return nil, errUndefined(name)
}

const builtinModule = "ASN1-BUILTIN"

const builtinText = `ASN1-BUILTIN DEFINITIONS ::= BEGIN
TYPE-IDENTIFIER ::= CLASS {
  &id OBJECT IDENTIFIER UNIQUE,
  &Type
} WITH SYNTAX { &Type IDENTIFIED BY &id }
ABSTRACT-SYNTAX ::= CLASS {
  &id OBJECT IDENTIFIER UNIQUE,
  &Type,
  &property BIT STRING { handles-invalid-encodings(0) } DEFAULT {}
} WITH SYNTAX { &Type IDENTIFIED BY &id [HAS PROPERTY &property] }
END`

// loadBuiltins compiles the classes every module can use without importing
// them.
func (g *Graph) loadBuiltins() {
	text, err := syntax.CleanText(builtinText)
	if err != nil {
		panic(err)
	}
	blocks, err := syntax.ExtractModules(text)
	if err != nil {
		panic(err)
	}
	mod, err := g.loadModule(blocks[0])
	if err != nil {
		panic(err)
	}
	// built-ins are looked up by fallback, never by name
	delete(g.modules, mod.Name)
	g.order = g.order[:len(g.order)-1]
	g.builtin = mod
	for _, e := range mod.assigns {
		e.queued = true
	}
	if err := g.run(mod.assigns); err != nil {
		panic(err)
	}
	mod.classify()
}

// ParseOrderFile reads a compilation order: one "Module.Name" entry per
// line. Blank lines and lines starting with '#' are skipped.
func ParseOrderFile(r io.Reader) ([]ObjectName, error) {
	var order []ObjectName
	err := scanEntries(r, func(name ObjectName) {
		order = append(order, name)
	})
	return order, err
}

// ParseLoadFile reads a load list in the same format as an order file and
// groups the names by module.
func ParseLoadFile(r io.Reader) (map[string][]string, error) {
	loadList := make(map[string][]string)
	err := scanEntries(r, func(name ObjectName) {
		loadList[name.Module] = append(loadList[name.Module], name.Name)
	})
	if err != nil {
		return nil, err
	}
	return loadList, nil
}

func scanEntries(r io.Reader, fn func(ObjectName)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		module, name, ok := strings.Cut(line, ".")
		if !ok || module == "" || name == "" || strings.ContainsAny(line, " \t") {
			return errEntryLine(lineNo, line)
		}
		fn(ObjectName{Module: module, Name: name})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading entry list: %w", err)
	}
	return nil
}
