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

package ref_test

import (
	"testing"

	"go.asn1c.org/asn1c/internal/testutil"
	"go.asn1c.org/asn1c/ref"
)

func TestEqual(t *testing.T) {
	t.Parallel()

	a := ref.New(ref.KindClassFieldRef, "M", "CLS", "&id")
	b := ref.New(ref.KindClassFieldRef, "M", "CLS", "&id")
	c := ref.New(ref.KindClassFieldRef, "M", "CLS", "&Type")
	d := ref.New(ref.KindTypeRef, "M", "CLS", "&id")

	testutil.ExpectTrue(t, a.Equal(b))
	testutil.ExpectEq(t, a.Key(), b.Key())
	testutil.ExpectFalse(t, a.Equal(c))
	testutil.ExpectFalse(t, a.Equal(d))
	testutil.ExpectTrue(t, a.Key() != d.Key())
}

func TestParamEqual(t *testing.T) {
	t.Parallel()

	p := &ref.Param{Name: "T"}
	a := ref.NewParam(ref.KindTypeRef, p)
	b := ref.NewParam(ref.KindTypeRef, p)
	named := ref.New(ref.KindTypeRef, "", "T")

	testutil.ExpectTrue(t, a.Equal(a))
	testutil.ExpectFalse(t, a.Equal(b))
	testutil.ExpectFalse(t, a.Equal(named))
	testutil.ExpectFalse(t, named.Equal(a))

	// keyed on the parameter name, distinct from any real reference
	testutil.ExpectEq(t, a.Key(), b.Key())
	testutil.ExpectTrue(t, a.Key() != named.Key())
}

func TestCopy(t *testing.T) {
	t.Parallel()

	a := ref.New(ref.KindClassFieldRef, "M", "CLS", "&Type")
	b := a.Copy()
	testutil.ExpectTrue(t, a.Equal(b))

	b.Path[0] = "&id"
	testutil.ExpectEq(t, "&Type", a.Path[0])
	testutil.ExpectEq(t, a.Called, b.Called)
}

func TestString(t *testing.T) {
	t.Parallel()

	testutil.ExpectEq(t, "M.CLS.&Type.&id",
		ref.New(ref.KindClassFieldRef, "M", "CLS", "&Type", "&id").String())
	testutil.ExpectEq(t, "M.Alts<a<b",
		ref.New(ref.KindChoiceComponentRef, "M", "Alts", "a", "b").String())
	testutil.ExpectEq(t, "{T}",
		ref.NewParam(ref.KindTypeRef, &ref.Param{Name: "T"}).String())
}
