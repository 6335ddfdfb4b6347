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
	"fmt"
)

type Warning struct {
	code    uint32
	message string
	object  string
}

func (w *Warning) String() string {
	if w.object == "" {
		return fmt.Sprintf("W%d: %s", w.code, w.message)
	}
	return fmt.Sprintf("W%d: %s: %s", w.code, w.object, w.message)
}

func (w *Warning) Code() uint32 {
	return w.code
}

func (w *Warning) Message() string {
	return w.message
}

func (w *Warning) Object() string {
	return w.object
}

// warnFromError downgrades a soft verification failure.
func warnFromError(err *Error) *Warning {
	return &Warning{
		code:    err.code + 1000,
		message: err.message,
		object:  err.object,
	}
}

func warnDuplicateTableKey(object, key string) *Warning {
	return &Warning{
		code: 6100,
		message: fmt.Sprintf(
			"Table constraint key %s maps to different types", key,
		),
		object: object,
	}
}

func warnImportUndefined(module, source, name string) *Warning {
	return &Warning{
		code:    6101,
		message: fmt.Sprintf("Import '%s' is not defined in module %q", name, source),
		object:  module,
	}
}

func warnExtensionNumbering(object, name string) *Warning {
	return &Warning{
		code: 6103,
		message: fmt.Sprintf(
			"Extension item '%s' is numbered below a root item", name,
		),
		object: object,
	}
}
