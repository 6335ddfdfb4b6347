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

package asntext_test

import (
	"errors"
	"testing"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/encoding/asntext"
	"go.asn1c.org/asn1c/internal/testutil"
)

const listModule = `
M DEFINITIONS IMPLICIT TAGS EXTENSIBILITY IMPLIED ::= BEGIN
EXPORTS L;
L ::= SEQUENCE SIZE (1..4) OF INTEGER
greeting UTF8String ::= "say ""hi"""
END
`

func compileText(t *testing.T, text string) *compiler.Result {
	t.Helper()
	result, err := compiler.Compile([]compiler.Source{{Name: "input.asn", Text: text}})
	testutil.AssertNoError(t, err)
	return result
}

func TestEncodeModule(t *testing.T) {
	t.Parallel()
	result := compileText(t, listModule)

	expect := `module "M" {
	tag_default = .IMPLICIT
	extensibility_implied = .true
	exports = [
		"L"
	]
	type "L" {
		type = .SEQUENCE_OF
		item "_item_" {
			type = .INTEGER
		}
		constraint {
			kind = .SIZE
			root = [
				"1..4"
			]
		}
	}
	value "greeting" {
		type = .UTF8String
		value = "\"say \"\"hi\"\"\""
	}
}
`
	testutil.ExpectNoDiff(t, expect, asntext.Encode(result.Modules()...))
}

func TestEncodeObject(t *testing.T) {
	t.Parallel()
	result := compileText(t, `
M DEFINITIONS ::= BEGIN
Flags ::= BIT STRING { read(0), write(1) } (SIZE (2))
END
`)
	flags := result.Module("M").Object("Flags")

	expect := `type = .BIT_STRING
named "read" = 0
named "write" = 1
constraint {
	kind = .SIZE
	root = [
		"2"
	]
}
`
	testutil.ExpectNoDiff(t, expect, asntext.EncodeObject(flags))
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}

func TestEncodeToWriteError(t *testing.T) {
	t.Parallel()
	result := compileText(t, listModule)

	err := asntext.EncodeTo(failingWriter{}, result.Modules()...)
	testutil.ExpectTrue(t, errors.Is(err, errWrite))
}
