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

package compiler_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/encoding/asntext"
	"go.asn1c.org/asn1c/internal/testutil"
)

func sources(texts ...string) []compiler.Source {
	srcs := make([]compiler.Source, len(texts))
	for ii, text := range texts {
		srcs[ii] = compiler.Source{Name: "input.asn", Text: text}
	}
	return srcs
}

func mustCompile(t *testing.T, opts []compiler.CompileOption, texts ...string) *compiler.Result {
	t.Helper()
	result, err := compiler.Compile(sources(texts...), opts...)
	testutil.AssertNoError(t, err)
	return result
}

func mustObject(t *testing.T, result *compiler.Result, module, name string) *compiler.Object {
	t.Helper()
	mod := result.Module(module)
	if mod == nil {
		t.Fatalf("module %q not compiled", module)
	}
	obj := mod.Object(name)
	if obj == nil {
		t.Fatalf("%s.%s not compiled", module, name)
	}
	return obj
}

func TestConstrainedInteger(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		Foo ::= INTEGER (1..10)
		END`)

	foo := mustObject(t, result, "M", "Foo")
	testutil.ExpectEq(t, compiler.ModeType, foo.Mode)
	testutil.ExpectEq(t, compiler.TypeInteger, foo.Type)

	consts := foo.Constraints(compiler.ConstVal)
	testutil.AssertEq(t, 1, len(consts))
	testutil.AssertEq(t, 1, len(consts[0].Root))
	testutil.ExpectEq[compiler.Value](t, compiler.RangeValue{
		Lb: compiler.IntValue(1),
		Ub: compiler.IntValue(10),
	}, consts[0].Root[0])
	testutil.ExpectFalse(t, consts[0].Extensible)

	testutil.ExpectSliceEq(t, []string{"Foo"}, result.Module("M").Names())
	testutil.ExpectEq(t, 1, len(result.Module("M").Types()))
	testutil.ExpectEq(t, 0, len(result.Warnings))
}

func TestEnumeratedValue(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		Bar ::= ENUMERATED { x, y, z }
		myBar Bar ::= y
		END`)

	myBar := mustObject(t, result, "M", "myBar")
	testutil.ExpectEq(t, compiler.ModeValue, myBar.Mode)
	testutil.ExpectEq(t, compiler.TypeEnumerated, myBar.Type)
	testutil.ExpectEq[compiler.Value](t, compiler.EnumValue("y"), myBar.Val)
	testutil.ExpectEq(t, "M.Bar", myBar.Ref.String())
	testutil.ExpectSliceEq(t, []string{"x", "y", "z"}, mustObject(t, result, "M", "Bar").Root)
	testutil.ExpectEq(t, 1, len(result.Module("M").Values()))
}

func TestEnumeratedNumbering(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		E ::= ENUMERATED { a, b(5), c, ... }
		END`)

	e := mustObject(t, result, "M", "E")
	testutil.ExpectSliceEq(t, []compiler.NamedNumber{
		{Name: "a", Value: 0},
		{Name: "c", Value: 1},
		{Name: "b", Value: 5},
	}, e.Named)
	testutil.ExpectSliceEq(t, []string{"a", "b", "c"}, e.Root)
	testutil.ExpectEq(t, 0, len(e.Ext))
	testutil.ExpectTrue(t, e.Extensible)

	n, ok := e.NamedValue("c")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, int64(1), n)
}

func TestCrossModuleDeferral(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	result := mustCompile(t, []compiler.CompileOption{compiler.WithLogger(logger)}, `
		M1 DEFINITIONS ::= BEGIN
		IMPORTS X FROM M2;
		Y ::= INTEGER (0..7)
		A ::= X
		END`, `
		M2 DEFINITIONS ::= BEGIN
		IMPORTS Y FROM M1;
		X ::= Y
		END`)

	a := mustObject(t, result, "M1", "A")
	testutil.ExpectEq(t, compiler.TypeInteger, a.Type)
	testutil.ExpectEq(t, "M2.X", a.Ref.String())
	consts := a.Constraints(compiler.ConstVal)
	testutil.AssertEq(t, 1, len(consts))
	testutil.ExpectEq(t, "0..7", consts[0].Root[0].String())

	testutil.ExpectTrue(t, strings.Contains(logs.String(), "msg=deferred object=M1.A waiting_for=M2.X"))
	testutil.ExpectTrue(t, strings.Contains(logs.String(), "msg=\"verified module\" module=M2"))

	chain, err := result.Graph().RefChain(a)
	testutil.AssertNoError(t, err)
	names := make([]string, len(chain))
	for ii, obj := range chain {
		names[ii] = obj.QualifiedName()
	}
	testutil.ExpectSliceEq(t, []string{"M1.A", "M2.X", "M1.Y"}, names)
}

func TestFixpointPasses(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	result := mustCompile(t, []compiler.CompileOption{compiler.WithLogger(logger)}, `
		M DEFINITIONS ::= BEGIN
		A ::= B
		B ::= C
		C ::= D
		D ::= INTEGER
		END`)

	testutil.ExpectEq(t, compiler.TypeInteger, mustObject(t, result, "M", "A").Type)
	passes := strings.Count(logs.String(), `msg="compilation pass"`)
	testutil.ExpectEq(t, 3, passes)
	testutil.ExpectTrue(t, passes <= len(result.Module("M").Names()))
	testutil.ExpectTrue(t, strings.Contains(logs.String(), "pass=1 pending=4"))
	testutil.ExpectTrue(t, strings.Contains(logs.String(), "pass=2 pending=2"))
	testutil.ExpectTrue(t, strings.Contains(logs.String(), "pass=3 pending=1"))
}

func TestAutomaticTags(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS AUTOMATIC TAGS ::= BEGIN
		Auto ::= CHOICE { x INTEGER, y BOOLEAN, z Inner }
		Inner ::= CHOICE { p NULL }
		Manual ::= SEQUENCE { a INTEGER, b [5] BOOLEAN, c NULL }
		END`)

	auto := mustObject(t, result, "M", "Auto")
	for ii, name := range []string{"x", "y"} {
		tag := auto.Component(name).Tag
		testutil.AssertTrue(t, tag != nil)
		testutil.ExpectEq(t, int64(ii), tag.Value)
		testutil.ExpectEq(t, compiler.TagContext, tag.Class)
		testutil.ExpectEq(t, compiler.TagImplicit, tag.Mode)
		testutil.ExpectTrue(t, tag.Auto)
	}
	// a CHOICE is always tagged explicitly
	testutil.ExpectEq(t, "[2] EXPLICIT", auto.Component("z").Tag.String())

	manual := mustObject(t, result, "M", "Manual")
	testutil.ExpectTrue(t, manual.Component("a").Tag == nil)
	testutil.ExpectEq(t, "[5] IMPLICIT", manual.Component("b").Tag.String())
	testutil.ExpectFalse(t, manual.Component("b").Tag.Auto)
	testutil.ExpectTrue(t, manual.Component("c").Tag == nil)
}

func TestAutomaticTagsOption(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, []compiler.CompileOption{compiler.WithAutomaticTags()}, `
		M DEFINITIONS EXPLICIT TAGS ::= BEGIN
		S ::= SEQUENCE { a INTEGER OPTIONAL, b INTEGER OPTIONAL }
		END`)

	testutil.ExpectEq(t, compiler.TagsAutomatic, result.Module("M").TagDefault)
	s := mustObject(t, result, "M", "S")
	testutil.ExpectEq(t, "[1] IMPLICIT", s.Component("b").Tag.String())
}

func TestAmbiguousOptionalWithoutTags(t *testing.T) {
	t.Parallel()
	_, err := compiler.Compile(sources(`
		M DEFINITIONS ::= BEGIN
		S ::= SEQUENCE { a INTEGER OPTIONAL, b INTEGER OPTIONAL }
		END`))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, compiler.KindText, cerr.Kind())
	testutil.ExpectEq(t, "M.S", cerr.Object())
}

func TestValueParameterSubstitution(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		Seq { INTEGER : low } ::= SEQUENCE { a INTEGER (low..100) }
		S5 ::= Seq { 5 }
		END`)

	tmpl := mustObject(t, result, "M", "Seq")
	testutil.ExpectTrue(t, tmpl.IsParameterized())
	testutil.AssertEq(t, 1, len(tmpl.Params))
	testutil.ExpectEq(t, compiler.ParamValue, tmpl.Params[0].Kind)
	testutil.AssertEq(t, 1, len(tmpl.Params[0].Referrers))
	testutil.ExpectEq(t,
		"['cont', 'a', 'const', 0, 'root', 0, 'lb']",
		tmpl.Params[0].Referrers[0].String())

	s5 := mustObject(t, result, "M", "S5")
	testutil.ExpectFalse(t, s5.IsParameterized())
	got, err := s5.Get(compiler.ParsePath("cont", "a", "const", 0, "root", 0))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, compiler.RangeValue{
		Lb: compiler.IntValue(5),
		Ub: compiler.IntValue(100),
	}, got)

	// the template keeps its placeholder
	placeholder, err := tmpl.Get(tmpl.Params[0].Referrers[0])
	testutil.AssertNoError(t, err)
	_, isRef := placeholder.(compiler.RefValue)
	testutil.ExpectTrue(t, isRef)

	mod := result.Module("M")
	testutil.ExpectEq(t, 1, len(mod.Params()))
	testutil.ExpectEq(t, 1, len(mod.Types()))
}

func TestParameterPassThrough(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		Inner { INTEGER : m } ::= SEQUENCE { a INTEGER (0..m) }
		Outer { INTEGER : n } ::= SEQUENCE { x Inner { n } }
		O ::= Outer { 5 }
		END`)

	inner := mustObject(t, result, "M", "Inner")
	testutil.AssertEq(t, 1, len(inner.Params[0].Referrers))
	testutil.ExpectEq(t,
		"['cont', 'a', 'const', 0, 'root', 0, 'ub']",
		inner.Params[0].Referrers[0].String())

	// the formal of Outer replaces the formal of Inner inside x
	outer := mustObject(t, result, "M", "Outer")
	testutil.ExpectTrue(t, outer.IsParameterized())
	testutil.AssertEq(t, 1, len(outer.Params[0].Referrers))
	testutil.ExpectEq(t,
		"['cont', 'x', 'cont', 'a', 'const', 0, 'root', 0, 'ub']",
		outer.Params[0].Referrers[0].String())
	placeholder, err := outer.Get(outer.Params[0].Referrers[0])
	testutil.AssertNoError(t, err)
	_, isRef := placeholder.(compiler.RefValue)
	testutil.ExpectTrue(t, isRef)

	o := mustObject(t, result, "M", "O")
	testutil.ExpectFalse(t, o.IsParameterized())
	got, err := o.Get(compiler.ParsePath("cont", "x", "cont", "a", "const", 0, "root", 0))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, compiler.RangeValue{
		Lb: compiler.IntValue(0),
		Ub: compiler.IntValue(5),
	}, got)
}

func TestTypeParameterTag(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS IMPLICIT TAGS ::= BEGIN
		Tagged { INTEGER : n, T } ::= SEQUENCE { item [n] T }
		Seven ::= Tagged { 7, BOOLEAN }
		END`)

	item := mustObject(t, result, "M", "Seven").Component("item")
	testutil.AssertTrue(t, item != nil)
	testutil.ExpectEq(t, compiler.TypeBoolean, item.Type)
	// a tag on a formal parameter type is explicit
	testutil.ExpectEq(t, "[7] EXPLICIT", item.Tag.String())
}

func TestSelfReference(t *testing.T) {
	t.Parallel()
	_, err := compiler.Compile(sources(`
		M DEFINITIONS ::= BEGIN
		A ::= A
		END`))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5014), cerr.Code())
	testutil.ExpectEq(t, "M.A", cerr.Object())
	testutil.ExpectEq(t, "E5014: M.A: Definition 'M.A' refers to itself", cerr.Error())
}

func TestReferenceCycle(t *testing.T) {
	t.Parallel()
	_, err := compiler.Compile(sources(`
		M DEFINITIONS ::= BEGIN
		A ::= B
		B ::= C
		C ::= A
		END`))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5015), cerr.Code())
	testutil.ExpectEq(t, "Reference cycle: M.A -> M.B -> M.C -> M.A", cerr.Message())
	testutil.ExpectFalse(t, compiler.IsKind(err, compiler.KindStall))
}

func TestWithSyntaxOptionalGroups(t *testing.T) {
	t.Parallel()
	class := `
		OPERATION ::= CLASS {
			&code INTEGER UNIQUE,
			&Arg OPTIONAL,
			&Res OPTIONAL
		} WITH SYNTAX { [ARGUMENT &Arg [RESULT &Res]] CODE &code }
	`
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN`+class+`
		full OPERATION ::= { ARGUMENT INTEGER RESULT BOOLEAN CODE 1 }
		noResult OPERATION ::= { ARGUMENT INTEGER CODE 2 }
		bare OPERATION ::= { CODE 3 }
		END`)

	settings := func(name string) []string {
		cv, ok := mustObject(t, result, "M", name).Val.(compiler.ClassValue)
		testutil.AssertTrue(t, ok)
		var names []string
		for _, f := range cv.Fields {
			names = append(names, f.Name)
		}
		return names
	}
	testutil.ExpectSliceEq(t, []string{"code", "Arg", "Res"}, settings("full"))
	testutil.ExpectSliceEq(t, []string{"code", "Arg"}, settings("noResult"))
	testutil.ExpectSliceEq(t, []string{"code"}, settings("bare"))

	// a mismatch outside any optional group is an error
	_, err := compiler.Compile(sources(`
		M DEFINITIONS ::= BEGIN`+class+`
		broken OPERATION ::= { ARGUMENT INTEGER }
		END`))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5032), cerr.Code())
	testutil.ExpectEq(t, "M.broken", cerr.Object())
}

func TestObjectPaths(t *testing.T) {
	t.Parallel()
	result := mustCompile(t, nil, `
		M DEFINITIONS ::= BEGIN
		S ::= SEQUENCE { a [3] INTEGER (1..10), b BOOLEAN DEFAULT TRUE }
		END`)
	s := mustObject(t, result, "M", "S")

	ub := compiler.ParsePath("cont", "a", "const", 0, "root", 0, "ub")
	got, err := s.Get(ub)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, compiler.IntValue(10), got)

	testutil.AssertNoError(t, s.SetPath(ub, compiler.IntValue(20)))
	got, err = s.Get(ub)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, compiler.IntValue(20), got)

	tagNum, err := s.Get(compiler.ParsePath("cont", "a", "tag", 0))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, int64(3), tagNum)

	def, err := s.Get(compiler.ParsePath("cont", "b", "default"))
	testutil.AssertNoError(t, err)
	testutil.ExpectEq[any](t, compiler.BoolValue(true), def)

	_, err = s.Get(compiler.ParsePath("cont", "missing"))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, compiler.KindObj, cerr.Kind())

	err = s.SetPath(compiler.ParsePath("cont", "a", "tag"), "not a tag")
	testutil.ExpectTrue(t, compiler.IsKind(err, compiler.KindObj))
}

func TestWarnOnlyValueConstraint(t *testing.T) {
	t.Parallel()
	text := `
		M DEFINITIONS ::= BEGIN
		big INTEGER (0..10) ::= 20
		END`

	_, err := compiler.Compile(sources(text))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5040), cerr.Code())

	result := mustCompile(t, []compiler.CompileOption{compiler.WithWarnOnly()}, text)
	testutil.AssertEq(t, 1, len(result.Warnings))
	warn := result.Warnings[0]
	testutil.ExpectEq(t, uint32(6040), warn.Code())
	testutil.ExpectEq(t, "M.big", warn.Object())
	testutil.ExpectEq(t, "Value 20 does not satisfy the VAL constraint", warn.Message())
	testutil.ExpectEq[compiler.Value](t, compiler.IntValue(20), mustObject(t, result, "M", "big").Val)
}

func TestLoadList(t *testing.T) {
	t.Parallel()
	loadList, err := compiler.ParseLoadFile(strings.NewReader("M.A\n"))
	testutil.AssertNoError(t, err)

	result := mustCompile(t, []compiler.CompileOption{compiler.WithLoadList(loadList)}, `
		M DEFINITIONS ::= BEGIN
		A ::= B
		B ::= INTEGER
		C ::= BOOLEAN
		END`)

	mod := result.Module("M")
	testutil.ExpectTrue(t, mod.Object("A") != nil)
	// compiled on demand
	testutil.ExpectTrue(t, mod.Object("B") != nil)
	testutil.ExpectTrue(t, mod.Object("C") == nil)
	testutil.ExpectEq(t, 2, len(mod.Types()))
}

func TestOrderIndependence(t *testing.T) {
	t.Parallel()
	text := `
		M DEFINITIONS ::= BEGIN
		A ::= SEQUENCE { b B, c C }
		B ::= C
		C ::= INTEGER (0..3)
		v A ::= { b 1, c 2 }
		END`

	order, err := compiler.ParseOrderFile(strings.NewReader("# leaves first\nM.C\n\nM.B\n"))
	testutil.AssertNoError(t, err)
	testutil.ExpectSliceEq(t, []compiler.ObjectName{
		{Module: "M", Name: "C"},
		{Module: "M", Name: "B"},
	}, order)

	plain := mustCompile(t, nil, text)
	ordered := mustCompile(t, []compiler.CompileOption{compiler.WithOrder(order)}, text)
	uncached := mustCompile(t, []compiler.CompileOption{compiler.WithCaching(false)}, text)
	want := asntext.Encode(plain.Modules()...)
	testutil.ExpectNoDiff(t, want, asntext.Encode(ordered.Modules()...))
	testutil.ExpectNoDiff(t, want, asntext.Encode(uncached.Modules()...))
}

func TestEntryFileErrors(t *testing.T) {
	t.Parallel()
	_, err := compiler.ParseOrderFile(strings.NewReader("M.A\nnot-an-entry\n"))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5041), cerr.Code())
	testutil.ExpectEq(t, "Malformed entry on line 2", cerr.Message())

	_, err = compiler.ParseLoadFile(strings.NewReader("M.A B\n"))
	testutil.ExpectTrue(t, compiler.IsKind(err, compiler.KindText))
}

func TestGraphAcrossRuns(t *testing.T) {
	t.Parallel()
	g := compiler.NewGraph()

	first, err := g.Compile(sources(`
		Base DEFINITIONS ::= BEGIN
		Id ::= INTEGER (0..65535)
		END`))
	testutil.AssertNoError(t, err)
	testutil.AssertEq(t, 1, len(first.Modules()))

	second, err := g.Compile(sources(`
		User DEFINITIONS ::= BEGIN
		IMPORTS Id FROM Base;
		Key ::= SEQUENCE { id Id }
		END`))
	testutil.AssertNoError(t, err)
	testutil.AssertEq(t, 1, len(second.Modules()))
	testutil.ExpectEq(t, "User", second.Modules()[0].Name)
	testutil.ExpectTrue(t, second.Module("Base") != nil)
	testutil.ExpectEq(t, 2, len(g.Modules()))

	id := mustObject(t, second, "User", "Key").Component("id")
	ct, err := g.Resolve(id)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "Base.Id", ct.QualifiedName())

	_, err = g.Compile(sources(`
		Base DEFINITIONS ::= BEGIN
		Other ::= NULL
		END`))
	cerr := testutil.AssertErrorAs[*compiler.Error](t, err)
	testutil.ExpectEq(t, uint32(5001), cerr.Code())
}
