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

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"testing"
)

// Diagnostic is one entry of a diagnostics registry: a stable key naming an
// error or warning, its numeric code, and its message or message pattern.
type Diagnostic struct {
	Key     string
	Code    uint32
	Message string
	Pattern *regexp.Regexp
}

// LoadDiagnostics reads a JSON registry of error or warning codes. Keys
// starting with '_' reserve a code without describing it.
func LoadDiagnostics(testdata fs.FS, path string) (map[string]*Diagnostic, error) {
	type raw struct {
		Code    uint32 `json:"code"`
		Message string `json:"message"`
		Pattern string `json:"message_pattern"`
	}

	jsonData, err := fs.ReadFile(testdata, path)
	if err != nil {
		return nil, err
	}

	var rawDiags map[string]raw
	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	if err := decoder.Decode(&rawDiags); err != nil {
		return nil, err
	}

	out := make(map[string]*Diagnostic, len(rawDiags))
	codes := make(map[uint32]struct{}, len(rawDiags))
	for key, raw := range rawDiags {
		if raw.Code == 0 {
			if key[0] == '_' {
				continue
			}
			return nil, fmt.Errorf("diagnostic %q has no code", key)
		}
		if _, conflict := codes[raw.Code]; conflict {
			return nil, fmt.Errorf("duplicate diagnostic code %d", raw.Code)
		}
		codes[raw.Code] = struct{}{}
		if key[0] == '_' {
			continue
		}

		var pattern *regexp.Regexp
		if raw.Pattern != "" {
			pattern, err = regexp.Compile("(?i)" + raw.Pattern)
			if err != nil {
				return nil, err
			}
		}
		out[key] = &Diagnostic{
			Key:     key,
			Code:    raw.Code,
			Message: raw.Message,
			Pattern: pattern,
		}
	}
	return out, nil
}

// Expected is the outcome a test case declares: an optional fatal error
// with the object it names, and the warnings in emission order.
type Expected struct {
	Error    *Diagnostic
	Object   string
	Warnings []*Diagnostic
	Options  []string
}

func LoadExpected(
	t *testing.T,
	errs map[string]*Diagnostic,
	warnings map[string]*Diagnostic,
	testdata fs.FS,
	jsonPath string,
) *Expected {
	t.Helper()

	jsonData, err := fs.ReadFile(testdata, jsonPath)
	if err != nil {
		t.Fatal(err)
	}

	var raw struct {
		Error    string   `json:"error"`
		Object   string   `json:"object"`
		Warnings []string `json:"warnings"`
		Options  []string `json:"options"`
	}
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		t.Fatal(err)
	}

	out := &Expected{Object: raw.Object, Options: raw.Options}
	if raw.Error != "" {
		diag, ok := errs[raw.Error]
		if !ok {
			t.Fatalf("unknown error name %q", raw.Error)
		}
		out.Error = diag
	}
	for _, name := range raw.Warnings {
		diag, ok := warnings[name]
		if !ok {
			t.Fatalf("unknown warning name %q", name)
		}
		out.Warnings = append(out.Warnings, diag)
	}
	return out
}

// ExpectDiagnostic checks a code and message against a registry entry.
func ExpectDiagnostic(t *testing.T, want *Diagnostic, code uint32, message string) {
	t.Helper()
	ExpectEq(t, want.Code, code)
	if want.Pattern != nil {
		ExpectMatch(t, want.Pattern, message)
	} else if want.Message != "" {
		ExpectEq(t, want.Message, message)
	}
}
