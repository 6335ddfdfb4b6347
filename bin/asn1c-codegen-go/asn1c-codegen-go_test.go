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

package main

import (
	"regexp"
	"testing"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/codegen"
	"go.asn1c.org/asn1c/internal/testutil"
)

func request(t *testing.T, options map[string]string, texts ...string) *codegen.Request {
	t.Helper()
	var srcs []compiler.Source
	for ii, text := range texts {
		srcs = append(srcs, compiler.Source{Name: string(rune('a'+ii)) + ".asn", Text: text})
	}
	result, err := compiler.Compile(srcs)
	testutil.AssertNoError(t, err)
	return &codegen.Request{
		Language: "go",
		Options:  options,
		Document: export.FromResult(result),
	}
}

const certModule = `
Cert-Types DEFINITIONS AUTOMATIC TAGS ::= BEGIN

Version ::= INTEGER { v1(0), v2(1), v3(2) }

Color ::= ENUMERATED { red, green, blue(5) }

Record ::= SEQUENCE {
    version Version,
    serial-number INTEGER,
    name UTF8String,
    data OCTET STRING OPTIONAL,
    tags SEQUENCE OF IA5String
}

Choice ::= CHOICE {
    n INTEGER,
    s PrintableString
}

favorite Color ::= green
max-size INTEGER ::= 64
greeting UTF8String ::= "say ""hi"""
id-cert OBJECT IDENTIFIER ::= { 1 2 840 }

END
`

func TestGenerate(t *testing.T) {
	t.Parallel()

	response, err := generate(request(t, map[string]string{"package": "certs"}, certModule))
	testutil.AssertNoError(t, err)
	testutil.AssertEq(t, 1, len(response.Files))
	testutil.ExpectSliceEq(t, []string{"cert_types.go"}, response.Files[0].Path)

	src := string(response.Files[0].Content)
	for _, pattern := range []string{
		`(?m)^// Code generated by asn1c-codegen-go\. DO NOT EDIT\.$`,
		`(?m)^package certs$`,
		`(?m)^type Version int64$`,
		`(?m)^\s+VersionV3\s+Version = 2$`,
		`(?m)^\s+ColorBlue\s+Color = 5$`,
		`(?m)^\s+Version\s+Version\s+` + "`" + `asn1:"tag:0"` + "`$",
		`(?m)^\s+SerialNumber\s+int64\s+` + "`" + `asn1:"tag:1"` + "`$",
		`(?m)^\s+Name\s+string\s+` + "`" + `asn1:"tag:2,utf8"` + "`$",
		`(?m)^\s+Data\s+\[\]byte\s+` + "`" + `asn1:"optional,tag:3"` + "`$",
		`(?m)^\s+Tags\s+\[\]string\s+` + "`" + `asn1:"tag:4"` + "`$",
		`(?m)^\s+N\s+\*int64\s+` + "`" + `asn1:"tag:0"` + "`$",
		`(?m)^\s+S\s+\*string\s+` + "`" + `asn1:"tag:1,printable"` + "`$",
		`(?m)^const Favorite Color = ColorGreen$`,
		`(?m)^const MaxSize = 64$`,
		`(?m)^const Greeting = "say \\"hi\\""$`,
		`(?m)^var IdCert = \[\]uint64\{1, 2, 840\}$`,
	} {
		testutil.ExpectMatch(t, regexp.MustCompile(pattern), src)
	}
}

func TestGenerateDefaultPackage(t *testing.T) {
	t.Parallel()

	response, err := generate(request(t, nil, certModule))
	testutil.AssertNoError(t, err)
	testutil.ExpectMatch(t, regexp.MustCompile(`(?m)^package asn1$`), string(response.Files[0].Content))
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	_, err := generate(request(t, map[string]string{"package": "not-ident"}, certModule))
	testutil.AssertError(t, err)

	_, err = generate(request(t, nil,
		"A DEFINITIONS ::= BEGIN\nT ::= INTEGER\nEND\n",
		"B DEFINITIONS ::= BEGIN\nT ::= BOOLEAN\nEND\n",
	))
	testutil.AssertError(t, err)
	testutil.ExpectEq(t, "A.T and B.T both map to Go name T", err.Error())
}

func TestGoName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"id-ce-keyUsage": "IdCeKeyUsage",
		"Version":        "Version",
		"_item_":         "Item",
		"serial-number":  "SerialNumber",
	}
	for in, want := range tests {
		testutil.ExpectEq(t, want, goName(in))
	}
}
