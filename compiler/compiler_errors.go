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
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.asn1c.org/asn1c/ref"
	"go.asn1c.org/asn1c/syntax"
)

// Kind classifies compilation failures.
type Kind uint8

const (
	// KindText is malformed or self-contradictory input. Fatal.
	KindText Kind = iota + 1
	// KindLink is a dependency that is not compiled yet. The fixpoint loop
	// defers the definition to the next pass.
	KindLink
	// KindNotSupported is a recognized ASN.1 idiom that is not implemented.
	KindNotSupported
	// KindObj is an internal consistency violation.
	KindObj
	// KindStall is a fixpoint pass that resolved nothing.
	KindStall
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "TextError"
	case KindLink:
		return "LinkError"
	case KindNotSupported:
		return "NotSupportedError"
	case KindObj:
		return "ObjError"
	case KindStall:
		return "StallError"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// maxErrorText bounds the residual text carried by an Error.
const maxErrorText = 80

type Error struct {
	kind    Kind
	code    uint32
	message string
	object  string
	text    string
	waitFor ref.Name
	pending []ref.Name
	cause   error
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "E%d: ", err.code)
	if err.object != "" {
		buf.WriteString(err.object)
		buf.WriteString(": ")
	}
	buf.WriteString(err.message)
	if err.text != "" {
		fmt.Fprintf(&buf, ", at %q", err.text)
	}
	return buf.String()
}

func (err *Error) Unwrap() error {
	return err.cause
}

func (err *Error) Kind() Kind {
	return err.kind
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

// Object returns the fully qualified name of the definition being compiled
// when the error was raised.
func (err *Error) Object() string {
	return err.object
}

// Text returns the residual text where the error was detected, truncated.
func (err *Error) Text() string {
	return err.text
}

// Pending lists the definitions left unresolved by a stalled compilation.
func (err *Error) Pending() []ref.Name {
	return err.pending
}

func residual(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxErrorText {
		return text
	}
	cut := maxErrorText
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.kind == kind
}

func textError(code uint32, message, text string) *Error {
	return &Error{
		kind:    KindText,
		code:    code,
		message: message,
		text:    residual(text),
	}
}

func errSyntax(err error) error {
	var synErr *syntax.Error
	if errors.As(err, &synErr) {
		return &Error{
			kind:    KindText,
			code:    5000,
			message: synErr.Message(),
			text:    synErr.Text(),
			cause:   err,
		}
	}
	return err
}

func errDuplicateModule(name string) error {
	return textError(5001, fmt.Sprintf("Duplicate module %q", name), "")
}

func errDuplicateDefinition(name string) error {
	return textError(5002, fmt.Sprintf("Duplicate definition '%s'", name), "")
}

func errInvalidLHS(text string) error {
	return textError(5003, "Invalid left-hand side of assignment", text)
}

func errUndefined(name string) error {
	return textError(5004, fmt.Sprintf("Undefined reference '%s'", name), "")
}

func errUnknownModule(name string) error {
	return textError(5005, fmt.Sprintf("Unknown module %q", name), "")
}

func errNotExported(module, name string) error {
	return textError(5006, fmt.Sprintf(
		"Name '%s' is not exported by module %q", name, module,
	), "")
}

func errImports(text string) error {
	return textError(5007, "Invalid IMPORTS clause", text)
}

func errExports(text string) error {
	return textError(5008, "Invalid EXPORTS clause", text)
}

func errModuleHeader(text string) error {
	return textError(5009, "Invalid module header", text)
}

func errExpectedType(text string) error {
	return textError(5010, "Expected a type", text)
}

func errExpectedValue(typ NativeType, text string) error {
	return textError(5011, fmt.Sprintf("Invalid %s value", typ), text)
}

func errTrailing(text string) error {
	return textError(5012, "Unexpected trailing text", text)
}

func errInvalidTag(text string) error {
	return textError(5013, "Invalid tag", text)
}

func errSelfReference(name string) error {
	return textError(5014, fmt.Sprintf("Definition '%s' refers to itself", name), "")
}

func errRefCycle(names []string) error {
	return textError(5015, fmt.Sprintf(
		"Reference cycle: %s", strings.Join(names, " -> "),
	), "")
}

func errWrongMode(name string, want, got Mode) error {
	return textError(5016, fmt.Sprintf(
		"'%s' is a %s, expected a %s", name, got, want,
	), "")
}

func errNoField(container, field string) error {
	return textError(5017, fmt.Sprintf(
		"'%s' has no field or component '%s'", container, field,
	), "")
}

func errNotClass(name string) error {
	return textError(5018, fmt.Sprintf("'%s' is not an information object class", name), "")
}

func errNotChoice(name string) error {
	return textError(5019, fmt.Sprintf("'%s' is not a CHOICE", name), "")
}

func errDuplicateComponent(name string) error {
	return textError(5020, fmt.Sprintf("Duplicate component '%s'", name), "")
}

func errDuplicateNamed(name string) error {
	return textError(5021, fmt.Sprintf("Duplicate named value '%s'", name), "")
}

func errDuplicateNumber(name string, value int64) error {
	return textError(5022, fmt.Sprintf(
		"Named value '%s' reuses number %d", name, value,
	), "")
}

func errDuplicateTag(typ NativeType, a, b string) error {
	return textError(5023, fmt.Sprintf(
		"%s components '%s' and '%s' have the same tag", typ, a, b,
	), "")
}

func errAmbiguousOptional(a, b string) error {
	return textError(5024, fmt.Sprintf(
		"SEQUENCE optional components '%s' and '%s' have the same tag", a, b,
	), "")
}

func errComponent(text string) error {
	return textError(5025, "Invalid component", text)
}

func errMissingComponent(name string) error {
	return textError(5026, fmt.Sprintf("Missing mandatory component '%s'", name), "")
}

func errGroupPresence(group int, name string) error {
	return textError(5027, fmt.Sprintf(
		"Extension group %d is partially present, missing '%s'", group, name,
	), "")
}

func errUnknownIdentifier(typ NativeType, name string) error {
	return textError(5028, fmt.Sprintf("Unknown %s identifier '%s'", typ, name), "")
}

func errConstraint(text string) error {
	return textError(5029, "Invalid constraint", text)
}

func errClassField(text string) error {
	return textError(5030, "Invalid class field", text)
}

func errWithSyntax(text string) error {
	return textError(5031, "Invalid WITH SYNTAX specification", text)
}

func errClassValue(text string) error {
	return textError(5032, "Class value does not match the class syntax", text)
}

func errMissingField(class, field string) error {
	return textError(5033, fmt.Sprintf(
		"Class value of '%s' is missing mandatory field '%s'", class, field,
	), "")
}

func errParams(text string) error {
	return textError(5034, "Invalid parameter list", text)
}

func errParamCount(name string, want, got int) error {
	return textError(5035, fmt.Sprintf(
		"'%s' takes %d parameters, got %d", name, want, got,
	), "")
}

func errNotParameterized(name string) error {
	return textError(5036, fmt.Sprintf("'%s' is not parameterized", name), "")
}

func errTablePath(path string) error {
	return textError(5037, fmt.Sprintf("Invalid table constraint path '@%s'", path), "")
}

func errConstraintKind(kind ConstKind, typ NativeType) error {
	return textError(5038, fmt.Sprintf(
		"%s constraint does not apply to %s", kind, typ,
	), "")
}

func errEmptyConstraint(kind ConstKind) error {
	return textError(5039, fmt.Sprintf(
		"Combined %s constraints have an empty intersection", kind,
	), "")
}

func errValueConstraint(kind ConstKind, value string) error {
	return textError(5040, fmt.Sprintf(
		"Value %s does not satisfy the %s constraint", value, kind,
	), "")
}

func errEntryLine(line int, text string) error {
	return textError(5041, fmt.Sprintf("Malformed entry on line %d", line), text)
}

func errIntegerOverflow(text string) error {
	return &Error{
		kind:    KindNotSupported,
		code:    5200,
		message: "INTEGER value out of 64-bit range",
		text:    residual(text),
	}
}

func errNotSupported(what, text string) error {
	return &Error{
		kind:    KindNotSupported,
		code:    5201,
		message: fmt.Sprintf("%s is not supported", what),
		text:    residual(text),
	}
}

func errUnionKinds(text string) error {
	return &Error{
		kind:    KindNotSupported,
		code:    5202,
		message: "Union of constraints of different kinds is not supported",
		text:    residual(text),
	}
}

func errLink(target ref.Name) error {
	return &Error{
		kind:    KindLink,
		code:    5100,
		message: fmt.Sprintf("'%s' is not compiled yet", target),
		waitFor: target,
	}
}

func errObj(message string) error {
	return &Error{
		kind:    KindObj,
		code:    5300,
		message: message,
	}
}

func errInvalidPath(path Path) error {
	return &Error{
		kind:    KindObj,
		code:    5301,
		message: fmt.Sprintf("Invalid path %s", path),
	}
}

func errParamReferrer(param string, path Path) error {
	return &Error{
		kind:    KindObj,
		code:    5302,
		message: fmt.Sprintf(
			"Referrer %s of parameter '%s' does not hold the parameter", path, param,
		),
	}
}

func errStall(pending []ref.Name) error {
	names := make([]string, len(pending))
	for ii, name := range pending {
		names[ii] = name.String()
	}
	return &Error{
		kind: KindStall,
		code: 5400,
		message: fmt.Sprintf(
			"Compilation stalled, unresolved definitions: %s",
			strings.Join(names, ", "),
		),
		pending: pending,
	}
}

// withObject attaches the qualified name of the definition being compiled
// to err unless an inner definition already claimed it.
func withObject(err error, object string) error {
	var cerr *Error
	if errors.As(err, &cerr) && cerr.object == "" {
		cerr.object = object
	}
	return err
}
