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

// Package syntax slices raw ASN.1 text into well-formed pieces.
//
// Nothing here understands ASN.1 semantics: the functions strip comments,
// normalize whitespace, extract balanced bracket blocks, split text at
// top-level separators and match lexical items at the start of a string.
// The compiler package drives these slicers while it parses definitions.
package syntax

import (
	"strings"
)

// CleanText removes comments and normalizes whitespace.
//
// Both "--" comments (ending at the next "--" or at end of line) and nested
// "/* */" comments are removed. Runs of horizontal whitespace collapse to a
// single space and blank lines are dropped, but line structure is kept:
// assignments are split on line boundaries. Character string literals are
// copied unchanged.
func CleanText(src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src))
	pendingSpace, pendingNewline := false, false
	flush := func() {
		if out.Len() > 0 {
			if pendingNewline {
				out.WriteByte('\n')
			} else if pendingSpace {
				out.WriteByte(' ')
			}
		}
		pendingSpace, pendingNewline = false, false
	}

	for ii := 0; ii < len(src); {
		c := src[ii]
		switch {
		case c == '"':
			end := skipString(src, ii)
			if end < 0 {
				return "", errUnterminatedString(src[ii:])
			}
			flush()
			out.WriteString(src[ii:end])
			ii = end
		case c == '-' && ii+1 < len(src) && src[ii+1] == '-':
			ii = skipLineComment(src, ii+2)
			pendingSpace = true
		case c == '/' && ii+1 < len(src) && src[ii+1] == '*':
			end := skipBlockComment(src, ii)
			if end < 0 {
				return "", errUnterminatedComment(src[ii:])
			}
			ii = end
			pendingSpace = true
		case c == '\n':
			pendingNewline = true
			ii++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			pendingSpace = true
			ii++
		default:
			flush()
			out.WriteByte(c)
			ii++
		}
	}
	return out.String(), nil
}

func skipLineComment(src string, ii int) int {
	for ii < len(src) && src[ii] != '\n' {
		if src[ii] == '-' && ii+1 < len(src) && src[ii+1] == '-' {
			return ii + 2
		}
		ii++
	}
	return ii
}

func skipBlockComment(src string, ii int) int {
	depth := 0
	for ii < len(src)-1 {
		switch {
		case src[ii] == '/' && src[ii+1] == '*':
			depth++
			ii += 2
		case src[ii] == '*' && src[ii+1] == '/':
			depth--
			ii += 2
			if depth == 0 {
				return ii
			}
		default:
			ii++
		}
	}
	return -1
}

// skipString returns the offset just past the string literal starting at
// text[start], or -1 when it is unterminated. A doubled quote is an escape.
func skipString(text string, start int) int {
	ii := start + 1
	for {
		off := strings.IndexByte(text[ii:], '"')
		if off < 0 {
			return -1
		}
		ii += off + 1
		if ii < len(text) && text[ii] == '"' {
			ii++
			continue
		}
		return ii
	}
}

func trimLeft(text string) string {
	return strings.TrimLeft(text, " \n")
}

// ExtractBrackets extracts the balanced block opened by the first character
// of text (after leading whitespace). It returns the trimmed inner text and
// the remaining text after the closing bracket.
func ExtractBrackets(text string, open, close byte) (inner, rest string, err error) {
	text = trimLeft(text)
	if len(text) == 0 || text[0] != open {
		return "", text, errExpectedBracket(open, text)
	}
	depth := 0
	for ii := 0; ii < len(text); ii++ {
		switch text[ii] {
		case '"':
			end := skipString(text, ii)
			if end < 0 {
				return "", text, errUnterminatedString(text[ii:])
			}
			ii = end - 1
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[1:ii]), trimLeft(text[ii+1:]), nil
			}
		}
	}
	return "", text, errUnbalancedBracket(open, text)
}

func ExtractCurly(text string) (inner, rest string, err error) {
	return ExtractBrackets(text, '{', '}')
}

func ExtractParen(text string) (inner, rest string, err error) {
	return ExtractBrackets(text, '(', ')')
}

func ExtractSquare(text string) (inner, rest string, err error) {
	return ExtractBrackets(text, '[', ']')
}

// scanTop calls fn for every byte of text that sits outside string literals
// and at bracket depth zero. Scanning stops when fn returns false.
func scanTop(text string, fn func(ii int) bool) {
	depth := 0
	for ii := 0; ii < len(text); ii++ {
		switch c := text[ii]; c {
		case '"':
			end := skipString(text, ii)
			if end < 0 {
				return
			}
			ii = end - 1
			continue
		case '(', '{', '[':
			depth++
			continue
		case ')', '}', ']':
			depth--
			continue
		}
		if depth == 0 && !fn(ii) {
			return
		}
	}
}

// SplitTop splits text at every top-level occurrence of sep. Parts are
// trimmed. Empty input yields no parts.
func SplitTop(text string, sep byte) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var parts []string
	start := 0
	scanTop(text, func(ii int) bool {
		if text[ii] == sep {
			parts = append(parts, strings.TrimSpace(text[start:ii]))
			start = ii + 1
		}
		return true
	})
	return append(parts, strings.TrimSpace(text[start:]))
}

// IndexTop returns the offset of the first top-level occurrence of s, or -1.
func IndexTop(text, s string) int {
	found := -1
	scanTop(text, func(ii int) bool {
		if strings.HasPrefix(text[ii:], s) {
			found = ii
			return false
		}
		return true
	})
	return found
}

// SplitTopWord splits text at every top-level occurrence of the keyword
// word. Keyword boundaries are respected, so "UNIONS" does not split on
// "UNION".
func SplitTopWord(text, word string) []string {
	var parts []string
	start := 0
	scanTop(text, func(ii int) bool {
		if ii < start {
			return true
		}
		if strings.HasPrefix(text[ii:], word) &&
			(ii == 0 || !isIdentByte(text[ii-1])) &&
			!identContinues(text, ii+len(word)) {
			parts = append(parts, strings.TrimSpace(text[start:ii]))
			start = ii + len(word)
		}
		return true
	})
	return append(parts, strings.TrimSpace(text[start:]))
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// identContinues reports whether an identifier would continue at text[ii].
func identContinues(text string, ii int) bool {
	if ii >= len(text) {
		return false
	}
	c := text[ii]
	if c == '-' {
		return ii+1 < len(text) && isIdentByte(text[ii+1]) && text[ii+1] != '-'
	}
	return isIdentByte(c)
}

// ModuleText is the raw text of one module definition.
type ModuleText struct {
	Name   string
	OID    string
	Header string
	Body   string
}

// ExtractModules finds every "Name {oid} DEFINITIONS ... ::= BEGIN ... END"
// block in cleaned text.
func ExtractModules(text string) ([]ModuleText, error) {
	var mods []ModuleText
	for {
		loc := reModuleStart.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		mod := ModuleText{Name: text[loc[2]:loc[3]]}
		if loc[4] >= 0 {
			mod.OID = strings.TrimSpace(text[loc[4]+1 : loc[5]-1])
		}
		rest := text[loc[1]:]
		assign := IndexTop(rest, "::=")
		if assign < 0 {
			return nil, errModuleHeader(text[loc[0]:])
		}
		mod.Header = strings.TrimSpace(rest[:assign])
		rest, ok := Word(rest[assign+3:], "BEGIN")
		if !ok {
			return nil, errModuleHeader(text[loc[0]:])
		}
		end := -1
		scanTop(rest, func(ii int) bool {
			if strings.HasPrefix(rest[ii:], "END") &&
				(ii == 0 || !isIdentByte(rest[ii-1])) &&
				!identContinues(rest, ii+3) {
				end = ii
				return false
			}
			return true
		})
		if end < 0 {
			return nil, errModuleHeader(text[loc[0]:])
		}
		mod.Body = strings.TrimSpace(rest[:end])
		mods = append(mods, mod)
		text = rest[end+3:]
	}
	if len(mods) == 0 {
		return nil, errNoModule()
	}
	return mods, nil
}

// Assignment is one "LHS ::= RHS" definition of a module body.
type Assignment struct {
	LHS string
	RHS string
}

// SplitAssignments splits a module body into its preamble (EXPORTS and
// IMPORTS clauses) and its ordered assignments.
//
// The left-hand side of an assignment starts at the beginning of the line
// holding "::=", extended backwards over any bracket block left open on
// earlier lines, and after any ';' ending the preamble.
func SplitAssignments(body string) (string, []Assignment, error) {
	var marks []int
	scanTop(body, func(ii int) bool {
		if strings.HasPrefix(body[ii:], "::=") {
			marks = append(marks, ii)
		}
		return true
	})
	if len(marks) == 0 {
		return body, nil, nil
	}

	starts := make([]int, len(marks))
	prevEnd := 0
	for kk, mark := range marks {
		start := lhsStart(body, mark)
		if start < prevEnd {
			start = prevEnd
		}
		starts[kk] = start
		prevEnd = mark + 3
	}

	assigns := make([]Assignment, 0, len(marks))
	for kk, mark := range marks {
		end := len(body)
		if kk+1 < len(marks) {
			end = starts[kk+1]
		}
		lhs := strings.TrimSpace(body[starts[kk]:mark])
		if lhs == "" {
			return "", nil, errAssignment(body[mark:])
		}
		assigns = append(assigns, Assignment{
			LHS: lhs,
			RHS: strings.TrimSpace(body[mark+3 : end]),
		})
	}
	return strings.TrimSpace(body[:starts[0]]), assigns, nil
}

// lhsStart walks back from a "::=" mark. A line holding nothing but the
// mark continues the previous line.
func lhsStart(body string, mark int) int {
	depth := 0
	for ii := mark - 1; ii >= 0; ii-- {
		switch body[ii] {
		case '}', ')', ']':
			depth++
		case '{', '(', '[':
			depth--
		case '\n':
			if depth <= 0 && strings.TrimSpace(body[ii+1:mark]) != "" {
				return ii + 1
			}
		case ';':
			if depth <= 0 {
				return ii + 1
			}
		}
	}
	return 0
}
