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

package export_test

import (
	"encoding/json"
	"testing"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/testutil"
)

const basicModule = `
Basic { iso(1) org(3) dod(6) internet(1) }
DEFINITIONS AUTOMATIC TAGS ::= BEGIN

Seq ::= SEQUENCE {
    a INTEGER (0..255),
    b BOOLEAN OPTIONAL,
    ...
}

Color ::= ENUMERATED { red, green, blue(5) }

favorite Color ::= green

END
`

const tableModule = `
Tab DEFINITIONS ::= BEGIN

ATTR ::= CLASS {
    &id INTEGER UNIQUE,
    &Type
} WITH SYNTAX { &Type IDENTIFIED BY &id }

Attrs ATTR ::= {
    { INTEGER IDENTIFIED BY 1 } |
    { BOOLEAN IDENTIFIED BY 2 } |
    { IA5String IDENTIFIED BY 1 }
}

Attr ::= SEQUENCE {
    id ATTR.&id ({Attrs}),
    value ATTR.&Type ({Attrs}{@id})
}

END
`

const paramsModule = `
Params DEFINITIONS ::= BEGIN
Wrapper {T} ::= SEQUENCE { item T }
IntWrapper ::= Wrapper {INTEGER}
END
`

func compileText(t *testing.T, text string) *compiler.Result {
	t.Helper()
	result, err := compiler.Compile([]compiler.Source{{Name: "input.asn", Text: text}})
	testutil.AssertNoError(t, err)
	return result
}

func TestMarshal(t *testing.T) {
	t.Parallel()
	result := compileText(t, basicModule)

	got, err := export.Marshal(export.FromResult(result))
	testutil.AssertNoError(t, err)

	expect := `{
	"modules": [
		{
			"name": "Basic",
			"oid": [
				1,
				3,
				6,
				1
			],
			"tag_default": "AUTOMATIC",
			"exports_all": true,
			"definitions": [
				{
					"name": "Seq",
					"kind": "type",
					"node": {
						"type": "SEQUENCE",
						"root": [
							"a",
							"b"
						],
						"extensible": true,
						"components": [
							{
								"type": "INTEGER",
								"name": "a",
								"tag": {
									"class": "CONTEXT",
									"number": 0,
									"mode": "IMPLICIT",
									"auto": true
								},
								"constraints": [
									{
										"kind": "VAL",
										"root": [
											"0..255"
										]
									}
								]
							},
							{
								"type": "BOOLEAN",
								"name": "b",
								"tag": {
									"class": "CONTEXT",
									"number": 1,
									"mode": "IMPLICIT",
									"auto": true
								},
								"optional": true
							}
						]
					}
				},
				{
					"name": "Color",
					"kind": "type",
					"node": {
						"type": "ENUMERATED",
						"named": [
							{
								"name": "red",
								"value": 0
							},
							{
								"name": "green",
								"value": 1
							},
							{
								"name": "blue",
								"value": 5
							}
						],
						"root": [
							"red",
							"green",
							"blue"
						]
					}
				},
				{
					"name": "favorite",
					"kind": "value",
					"node": {
						"type": "ENUMERATED",
						"ref": "Basic.Color",
						"value": "green"
					}
				}
			]
		}
	]
}`
	testutil.ExpectNoDiff(t, expect, string(got))
}

func TestValidateCompiled(t *testing.T) {
	t.Parallel()
	validator, err := export.NewValidator()
	testutil.AssertNoError(t, err)

	tests := []struct {
		name string
		text string
	}{
		{"basic", basicModule},
		{"table", tableModule},
		{"params", paramsModule},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			doc := export.FromResult(compileText(t, test.text))
			testutil.ExpectNoError(t, validator.Validate(doc))
		})
	}
}

func TestFromResultDetails(t *testing.T) {
	t.Parallel()

	doc := export.FromResult(compileText(t, tableModule))
	testutil.AssertEq(t, 1, len(doc.Modules))
	testutil.AssertEq(t, 1, len(doc.Warnings))
	testutil.ExpectEq(t, 6100, doc.Warnings[0].Code)
	testutil.ExpectEq(t, "Tab.Attr", doc.Warnings[0].Object)

	defs := doc.Modules[0].Definitions
	testutil.AssertEq(t, 3, len(defs))
	testutil.ExpectEq(t, "class", defs[0].Kind)
	testutil.ExpectEq(t, "set", defs[1].Kind)
	testutil.ExpectEq(t, "type", defs[2].Kind)

	class := defs[0].Node
	testutil.AssertEq(t, 2, len(class.Fields))
	testutil.ExpectEq(t, "fixed-type value", class.Fields[0].FieldKind)
	testutil.ExpectTrue(t, class.Fields[0].Unique)
	testutil.ExpectEq(t, "&Type IDENTIFIED BY &id", class.Syntax)

	value := defs[2].Node.Components[1]
	testutil.ExpectEq(t, "OPEN_TYPE", value.Type)
	testutil.AssertEq(t, 1, len(value.Constraints))
	testutil.ExpectEq(t, "TABLE", value.Constraints[0].Kind)
	testutil.ExpectSliceEq(t, []string{"id"}, value.Constraints[0].At)
	testutil.ExpectTrue(t, value.Constraints[0].Table != nil)

	doc = export.FromResult(compileText(t, paramsModule))
	defs = doc.Modules[0].Definitions
	testutil.ExpectEq(t, "template", defs[0].Kind)
	testutil.AssertEq(t, 1, len(defs[0].Params))
	testutil.ExpectEq(t, "type", defs[0].Params[0].Kind)
	testutil.ExpectSliceEq(t, []string{"['cont', 'item']"}, defs[0].Params[0].Referrers)
	testutil.ExpectEq(t, "Params.Wrapper", defs[1].Node.Ref)
	testutil.ExpectEq(t, "INTEGER", defs[1].Node.Components[0].Type)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()
	validator, err := export.NewValidator()
	testutil.AssertNoError(t, err)

	tests := []struct {
		name string
		json string
	}{
		{"not json", `{"modules": [`},
		{"missing modules", `{}`},
		{"unknown field", `{"modules": [], "extra": 1}`},
		{"bad tag default", `{"modules": [{
			"name": "M", "tag_default": "SOMETIMES",
			"exports_all": true, "definitions": []
		}]}`},
		{"missing definitions", `{"modules": [{
			"name": "M", "tag_default": "EXPLICIT", "exports_all": true
		}]}`},
		{"missing referrers", `{"modules": [{
			"name": "M", "tag_default": "EXPLICIT", "exports_all": true,
			"definitions": [{
				"name": "Wrap", "kind": "template",
				"params": [{"name": "T", "kind": "type"}],
				"node": {"type": "SEQUENCE"}
			}]
		}]}`},
		{"bad definition kind", `{"modules": [{
			"name": "M", "tag_default": "EXPLICIT", "exports_all": true,
			"definitions": [{"name": "A", "kind": "macro", "node": {"type": "INTEGER"}}]
		}]}`},
		{"bad tag class", `{"modules": [{
			"name": "M", "tag_default": "EXPLICIT", "exports_all": true,
			"definitions": [{"name": "A", "kind": "type", "node": {
				"type": "INTEGER",
				"tag": {"class": "GLOBAL", "number": 1, "mode": "IMPLICIT"}
			}}]
		}]}`},
		{"error code as warning", `{"modules": [], "warnings": [
			{"code": 5001, "message": "Duplicate module"}
		]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertError(t, validator.ValidateJSON([]byte(test.json)))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()
	validator, err := export.NewValidator()
	testutil.AssertNoError(t, err)

	doc := export.FromResult(compileText(t, basicModule))
	data, err := json.Marshal(doc)
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 0, len(validator.ValidationErrors(data)))
	testutil.ExpectNoError(t, export.Validate(data))

	errs := validator.ValidationErrors([]byte(`{"modules": [{"name": "M"}]}`))
	testutil.ExpectTrue(t, len(errs) > 0)
}
