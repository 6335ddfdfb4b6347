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
	"regexp"
	"strings"
)

var (
	reModuleStart = regexp.MustCompile(
		`([A-Z][A-Za-z0-9_]*(?:-[A-Za-z0-9_]+)*)\s*(\{[^{}]*\})?\s*DEFINITIONS\b`)
	reIdent    = regexp.MustCompile(`^[a-zA-Z](?:[a-zA-Z0-9_]|-[a-zA-Z0-9_])*`)
	reFieldRef = regexp.MustCompile(`^&[a-zA-Z](?:[a-zA-Z0-9_]|-[a-zA-Z0-9_])*`)
	reNumber   = regexp.MustCompile(`^-?[0-9]+`)
	reReal     = regexp.MustCompile(`^-?[0-9]+(?:\.[0-9]*)?(?:[eE][+-]?[0-9]+)?`)
	reBString  = regexp.MustCompile(`^'([01\s]*)'B`)
	reHString  = regexp.MustCompile(`^'([0-9A-Fa-f\s]*)'H`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Ident matches an identifier at the start of text.
func Ident(text string) (ident, rest string, ok bool) {
	text = trimLeft(text)
	m := reIdent.FindString(text)
	if m == "" {
		return "", text, false
	}
	return m, trimLeft(text[len(m):]), true
}

// TypeRef matches an identifier starting with an uppercase letter.
func TypeRef(text string) (ident, rest string, ok bool) {
	ident, rest, ok = Ident(text)
	if !ok || !IsUpper(ident) {
		return "", trimLeft(text), false
	}
	return ident, rest, true
}

// ValueRef matches an identifier starting with a lowercase letter.
func ValueRef(text string) (ident, rest string, ok bool) {
	ident, rest, ok = Ident(text)
	if !ok || IsUpper(ident) {
		return "", trimLeft(text), false
	}
	return ident, rest, true
}

// FieldRef matches "&name" and returns the name without the ampersand.
func FieldRef(text string) (name, rest string, ok bool) {
	text = trimLeft(text)
	m := reFieldRef.FindString(text)
	if m == "" {
		return "", text, false
	}
	return m[1:], trimLeft(text[len(m):]), true
}

func IsUpper(ident string) bool {
	return ident != "" && 'A' <= ident[0] && ident[0] <= 'Z'
}

// IsAllUpper reports whether ident is written in capitals only, the
// convention for keywords and information object class names.
func IsAllUpper(ident string) bool {
	for ii := 0; ii < len(ident); ii++ {
		c := ident[ii]
		if ('a' <= c && c <= 'z') || c == '_' {
			return false
		}
	}
	return IsUpper(ident)
}

// Word matches a keyword at the start of text. Multi-word keywords such as
// "OCTET STRING" match any whitespace between the words.
func Word(text, word string) (rest string, ok bool) {
	rest = trimLeft(text)
	for ii, part := range strings.Split(word, " ") {
		if ii > 0 {
			rest = trimLeft(rest)
		}
		if !strings.HasPrefix(rest, part) || identContinues(rest, len(part)) {
			return trimLeft(text), false
		}
		rest = rest[len(part):]
	}
	return trimLeft(rest), true
}

// Symbol matches punctuation at the start of text.
func Symbol(text, sym string) (rest string, ok bool) {
	text = trimLeft(text)
	if !strings.HasPrefix(text, sym) {
		return text, false
	}
	return trimLeft(text[len(sym):]), true
}

// Number matches a signed decimal integer literal that is not the integer
// part of a real literal. It returns the literal digits.
func Number(text string) (digits, rest string, ok bool) {
	text = trimLeft(text)
	m := reNumber.FindString(text)
	if m == "" {
		return "", text, false
	}
	after := text[len(m):]
	if len(after) > 1 && after[0] == '.' && after[1] != '.' {
		return "", text, false
	}
	if len(after) > 0 && (after[0] == 'e' || after[0] == 'E') {
		return "", text, false
	}
	return m, trimLeft(after), true
}

// RealLit matches a decimal literal containing a fraction or an exponent.
func RealLit(text string) (lit, rest string, ok bool) {
	text = trimLeft(text)
	m := reReal.FindString(text)
	if m == "" || !strings.ContainsAny(m, ".eE") {
		return "", text, false
	}
	if strings.HasSuffix(m, ".") && strings.HasPrefix(text[len(m):], ".") {
		// "1..2" is a range, not "1." followed by ".2"
		return "", text, false
	}
	return m, trimLeft(text[len(m):]), true
}

// CString matches a character string literal and returns its unescaped
// value. Whitespace adjacent to a line break inside the literal is removed.
func CString(text string) (value, rest string, ok bool, err error) {
	text = trimLeft(text)
	if len(text) == 0 || text[0] != '"' {
		return "", text, false, nil
	}
	end := skipString(text, 0)
	if end < 0 {
		return "", text, false, errUnterminatedString(text)
	}
	raw := strings.ReplaceAll(text[1:end-1], `""`, `"`)
	if strings.Contains(raw, "\n") {
		lines := strings.Split(raw, "\n")
		for ii := range lines {
			lines[ii] = strings.TrimSpace(lines[ii])
		}
		raw = strings.Join(lines, "")
	}
	return raw, trimLeft(text[end:]), true, nil
}

// BString matches a binary string literal 'xxx'B and returns its bits.
func BString(text string) (bits, rest string, ok bool) {
	text = trimLeft(text)
	m := reBString.FindStringSubmatch(text)
	if m == nil {
		return "", text, false
	}
	return reSpaces.ReplaceAllString(m[1], ""), trimLeft(text[len(m[0]):]), true
}

// HString matches a hexadecimal string literal 'xxx'H and returns its
// uppercased digits.
func HString(text string) (hex, rest string, ok bool) {
	text = trimLeft(text)
	m := reHString.FindStringSubmatch(text)
	if m == nil {
		return "", text, false
	}
	hex = strings.ToUpper(reSpaces.ReplaceAllString(m[1], ""))
	return hex, trimLeft(text[len(m[0]):]), true
}
