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

package syntax_test

import (
	"testing"

	"go.asn1c.org/asn1c/internal/testutil"
	"go.asn1c.org/asn1c/syntax"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	src := "M DEFINITIONS ::= BEGIN -- header comment\n" +
		"\n" +
		"   A ::= INTEGER /* block /* nested */ */ (1..10)\n" +
		"  s UTF8String ::= \"a -- not a comment\"\n" +
		"END\n"
	got, err := syntax.CleanText(src)
	testutil.AssertNoError(t, err)
	testutil.ExpectNoDiff(t, ""+
		"M DEFINITIONS ::= BEGIN\n"+
		"A ::= INTEGER (1..10)\n"+
		"s UTF8String ::= \"a -- not a comment\"\n"+
		"END", got)
}

func TestCleanTextInlineComment(t *testing.T) {
	t.Parallel()

	got, err := syntax.CleanText("a -- one -- b")
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "a b", got)
}

func TestCleanTextErrors(t *testing.T) {
	t.Parallel()

	_, err := syntax.CleanText("A ::= INTEGER /* open")
	synErr := testutil.AssertErrorAs[*syntax.Error](t, err)
	testutil.ExpectEq(t, uint32(1000), synErr.Code())

	_, err = syntax.CleanText(`s UTF8String ::= "open`)
	synErr = testutil.AssertErrorAs[*syntax.Error](t, err)
	testutil.ExpectEq(t, uint32(1001), synErr.Code())
}

func TestExtractBrackets(t *testing.T) {
	t.Parallel()

	inner, rest, err := syntax.ExtractCurly(`{ a {b}, c "}" } (SIZE(1))`)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, `a {b}, c "}"`, inner)
	testutil.ExpectEq(t, "(SIZE(1))", rest)

	_, _, err = syntax.ExtractParen("(a (b)")
	synErr := testutil.AssertErrorAs[*syntax.Error](t, err)
	testutil.ExpectEq(t, uint32(1002), synErr.Code())

	_, _, err = syntax.ExtractSquare("a]")
	synErr = testutil.AssertErrorAs[*syntax.Error](t, err)
	testutil.ExpectEq(t, uint32(1003), synErr.Code())
}

func TestSplitTop(t *testing.T) {
	t.Parallel()

	got := syntax.SplitTop(`a INTEGER (1..2), b SEQUENCE { x X, y Y }, c "x,y"`, ',')
	testutil.ExpectSliceEq(t, []string{
		"a INTEGER (1..2)",
		"b SEQUENCE { x X, y Y }",
		`c "x,y"`,
	}, got)

	testutil.ExpectEq(t, 0, len(syntax.SplitTop("  ", ',')))
}

func TestSplitTopWord(t *testing.T) {
	t.Parallel()

	got := syntax.SplitTopWord("A UNION B UNIONS (C UNION D) UNION E", "UNION")
	testutil.ExpectSliceEq(t, []string{"A", "B UNIONS (C UNION D)", "E"}, got)
}

func TestIndexTop(t *testing.T) {
	t.Parallel()

	testutil.ExpectEq(t, 14, syntax.IndexTop("{ a ::= b } x ::= y", "::="))
	testutil.ExpectEq(t, -1, syntax.IndexTop("(a..b)", ".."))
}

func TestExtractModules(t *testing.T) {
	t.Parallel()

	text := "M1 { iso 1 } DEFINITIONS AUTOMATIC TAGS ::= BEGIN\n" +
		"A ::= INTEGER\n" +
		"END\n" +
		"M2 DEFINITIONS ::= BEGIN\n" +
		"B ::= SEQUENCE { end-of-list BOOLEAN }\n" +
		"END"
	mods, err := syntax.ExtractModules(text)
	testutil.AssertNoError(t, err)
	testutil.AssertEq(t, 2, len(mods))

	testutil.ExpectEq(t, "M1", mods[0].Name)
	testutil.ExpectEq(t, "iso 1", mods[0].OID)
	testutil.ExpectEq(t, "AUTOMATIC TAGS", mods[0].Header)
	testutil.ExpectEq(t, "A ::= INTEGER", mods[0].Body)

	testutil.ExpectEq(t, "M2", mods[1].Name)
	testutil.ExpectEq(t, "", mods[1].OID)
	testutil.ExpectEq(t, "B ::= SEQUENCE { end-of-list BOOLEAN }", mods[1].Body)

	_, err = syntax.ExtractModules("A ::= INTEGER")
	synErr := testutil.AssertErrorAs[*syntax.Error](t, err)
	testutil.ExpectEq(t, uint32(1004), synErr.Code())
}

func TestSplitAssignments(t *testing.T) {
	t.Parallel()

	body := "IMPORTS X FROM M2;\n" +
		"A ::= INTEGER\n" +
		"b A ::= 5\n" +
		"Seq {\nT\n} ::= SEQUENCE {\na T,\nb BOOLEAN\n}\n" +
		"id-x OBJECT IDENTIFIER\n::= { iso 3 }"
	preamble, assigns, err := syntax.SplitAssignments(body)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "IMPORTS X FROM M2;", preamble)
	testutil.AssertEq(t, 4, len(assigns))

	testutil.ExpectEq(t, "A", assigns[0].LHS)
	testutil.ExpectEq(t, "INTEGER", assigns[0].RHS)
	testutil.ExpectEq(t, "b A", assigns[1].LHS)
	testutil.ExpectEq(t, "5", assigns[1].RHS)
	testutil.ExpectEq(t, "Seq {\nT\n}", assigns[2].LHS)
	testutil.ExpectEq(t, "SEQUENCE {\na T,\nb BOOLEAN\n}", assigns[2].RHS)
	testutil.ExpectEq(t, "id-x OBJECT IDENTIFIER", assigns[3].LHS)
	testutil.ExpectEq(t, "{ iso 3 }", assigns[3].RHS)
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	ident, rest, ok := syntax.Ident("my-Ident-1 rest")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "my-Ident-1", ident)
	testutil.ExpectEq(t, "rest", rest)

	_, _, ok = syntax.TypeRef("lower")
	testutil.ExpectFalse(t, ok)
	_, _, ok = syntax.ValueRef("Upper")
	testutil.ExpectFalse(t, ok)

	field, rest, ok := syntax.FieldRef("&Type.&id")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "Type", field)
	testutil.ExpectEq(t, ".&id", rest)

	rest, ok = syntax.Word("OCTET  STRING (SIZE(4))", "OCTET STRING")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "(SIZE(4))", rest)
	_, ok = syntax.Word("SEQUENCES", "SEQUENCE")
	testutil.ExpectFalse(t, ok)

	testutil.ExpectTrue(t, syntax.IsAllUpper("TYPE-IDENTIFIER"))
	testutil.ExpectFalse(t, syntax.IsAllUpper("Type"))
}

func TestNumbers(t *testing.T) {
	t.Parallel()

	digits, rest, ok := syntax.Number("-12..40")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "-12", digits)
	testutil.ExpectEq(t, "..40", rest)

	_, _, ok = syntax.Number("1.5")
	testutil.ExpectFalse(t, ok)

	lit, _, ok := syntax.RealLit("1.5e-3,")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "1.5e-3", lit)

	_, _, ok = syntax.RealLit("1..2")
	testutil.ExpectFalse(t, ok)
}

func TestStrings(t *testing.T) {
	t.Parallel()

	value, rest, ok, err := syntax.CString(`"say ""hi""" ,`)
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, `say "hi"`, value)
	testutil.ExpectEq(t, ",", rest)

	bits, _, ok := syntax.BString("'0101 1'B")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "01011", bits)

	hex, _, ok := syntax.HString("'0a FF'H")
	testutil.ExpectTrue(t, ok)
	testutil.ExpectEq(t, "0AFF", hex)
}
