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

package syntax

import (
	"fmt"
)

// maxErrorText bounds the residual text carried by an Error.
const maxErrorText = 80

type Error struct {
	code    uint32
	message string
	text    string
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	if err.text == "" {
		return fmt.Sprintf("E%d: %s", err.code, err.message)
	}
	return fmt.Sprintf("E%d: %s, at %q", err.code, err.message, err.text)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

// Text returns the residual text where the error was detected, truncated.
func (err *Error) Text() string {
	return err.text
}

func residual(text string) string {
	if len(text) > maxErrorText {
		return text[:maxErrorText] + "..."
	}
	return text
}

func errUnterminatedComment(text string) error {
	return &Error{
		code:    1000,
		message: "Unterminated block comment",
		text:    residual(text),
	}
}

func errUnterminatedString(text string) error {
	return &Error{
		code:    1001,
		message: "Unterminated character string literal",
		text:    residual(text),
	}
}

func errUnbalancedBracket(open byte, text string) error {
	return &Error{
		code:    1002,
		message: fmt.Sprintf("Unbalanced '%c' bracket", open),
		text:    residual(text),
	}
}

func errExpectedBracket(open byte, text string) error {
	return &Error{
		code:    1003,
		message: fmt.Sprintf("Expected '%c'", open),
		text:    residual(text),
	}
}

func errNoModule() error {
	return &Error{
		code:    1004,
		message: "No module definition found",
	}
}

func errModuleHeader(text string) error {
	return &Error{
		code:    1005,
		message: "Invalid module header",
		text:    residual(text),
	}
}

func errAssignment(text string) error {
	return &Error{
		code:    1006,
		message: "Invalid assignment, expected an identifier before '::='",
		text:    residual(text),
	}
}

func errTrailingText(text string) error {
	return &Error{
		code:    1007,
		message: "Unexpected text before the first assignment",
		text:    residual(text),
	}
}
