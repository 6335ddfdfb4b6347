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
	"testing"
	"unicode/utf8"

	"go.asn1c.org/asn1c/internal/testutil"
	"go.asn1c.org/asn1c/ref"
)

func loadTestModule(t *testing.T, g *Graph, text string) *Module {
	t.Helper()
	mods, err := g.loadSources([]Source{{Name: "input.asn", Text: text}})
	testutil.AssertNoError(t, err)
	testutil.AssertEq(t, 1, len(mods))
	return mods[0]
}

func TestRunStalled(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	mod := loadTestModule(t, g, `
		M DEFINITIONS ::= BEGIN
		A ::= HeldA
		B ::= HeldB
		HeldA ::= X
		HeldB ::= X
		X ::= INTEGER
		END`)

	// queued elsewhere, so nothing in this run can pick them up
	mod.entries["HeldA"].queued = true
	mod.entries["HeldB"].queued = true

	err := g.run([]*entry{mod.entries["A"], mod.entries["B"]})
	cerr := testutil.AssertErrorAs[*Error](t, err)
	testutil.ExpectEq(t, KindStall, cerr.Kind())
	testutil.ExpectEq(t, uint32(5400), cerr.Code())
	testutil.ExpectEq(t, "Compilation stalled, unresolved definitions: M.A, M.B", cerr.Message())
	testutil.ExpectSliceEq(t, []ref.Name{
		{Module: "M", Name: "A"},
		{Module: "M", Name: "B"},
	}, cerr.Pending())
	testutil.ExpectEq(t, ref.Name{Module: "M", Name: "HeldA"}, mod.entries["A"].waitFor)
}

func TestPeekTagNumber(t *testing.T) {
	t.Parallel()
	g := NewGraph()
	mod := loadTestModule(t, g, `
		M DEFINITIONS ::= BEGIN
		Small ::= [APPLICATION 5] INTEGER
		Huge ::= [99999999999999999999] INTEGER
		END`)

	stub := g.peek(mod.entries["Small"])
	testutil.AssertTrue(t, stub != nil)
	testutil.ExpectEq(t, TypeInteger, stub.Type)
	testutil.ExpectEq(t, int64(5), stub.Tag.Value)

	testutil.ExpectTrue(t, g.peek(mod.entries["Huge"]) == nil)
}

func TestResidualText(t *testing.T) {
	t.Parallel()
	testutil.ExpectEq(t, "A ::= INTEGER", residual("A  ::=\n\tINTEGER"))

	long := strings.Repeat("a", maxErrorText-1) + "é tail"
	got := residual(long)
	testutil.ExpectTrue(t, utf8.ValidString(got))
	testutil.ExpectEq(t, strings.Repeat("a", maxErrorText-1)+"...", got)

	ascii := strings.Repeat("b", maxErrorText+10)
	testutil.ExpectEq(t, strings.Repeat("b", maxErrorText)+"...", residual(ascii))
}
