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

package compiler_test

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"strings"
	"testing"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/encoding/asntext"
	"go.asn1c.org/asn1c/internal/testutil"
)

var (
	testdata       fs.FS
	schemaErrors   map[string]*testutil.Diagnostic
	schemaWarnings map[string]*testutil.Diagnostic
)

func init() {
	var err error
	testdata = os.DirFS("testdata")
	schemaErrors, err = testutil.LoadDiagnostics(testdata, "errors.json")
	if err != nil {
		panic(err)
	}
	schemaWarnings, err = testutil.LoadDiagnostics(testdata, "warnings.json")
	if err != nil {
		panic(err)
	}
}

func specTest(t *testing.T, testName string) {
	t.Parallel()

	expectErr := fmt.Sprintf("cases/%s/expect_err.json", testName)
	if _, err := fs.Stat(testdata, expectErr); err == nil {
		testExpectErr(t, testName, expectErr)
	} else {
		testExpectOK(t, testName)
	}
}

func testExpectOK(t *testing.T, testName string) {
	expectText, err := fs.ReadFile(testdata, fmt.Sprintf("cases/%s/expect_ok.txt", testName))
	testutil.AssertNoError(t, err)

	expect := &testutil.Expected{}
	expectPath := fmt.Sprintf("cases/%s/expect.json", testName)
	if _, err := fs.Stat(testdata, expectPath); err == nil {
		expect = testutil.LoadExpected(t, schemaErrors, schemaWarnings, testdata, expectPath)
	}

	result, err := compileTestInputs(t, testName, expect.Options)
	testutil.AssertNoError(t, err)

	for warn, expectWarn := range zip(result.Warnings, expect.Warnings) {
		if warn == nil {
			t.Errorf("expected warning %q (code %d)", expectWarn.Key, expectWarn.Code)
			continue
		}
		if expectWarn == nil {
			t.Errorf("unexpected warning %s", warn)
			continue
		}
		testutil.ExpectDiagnostic(t, expectWarn, warn.Code(), warn.Message())
	}

	gotText := asntext.Encode(result.Modules()...)
	testutil.ExpectNoDiff(t, string(expectText), gotText)
}

func testExpectErr(t *testing.T, testName string, expectErrPath string) {
	expect := testutil.LoadExpected(t, schemaErrors, schemaWarnings, testdata, expectErrPath)
	if expect.Error == nil {
		t.Fatalf("%s declares no error", expectErrPath)
	}

	_, err := compileTestInputs(t, testName, expect.Options)
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected error %q (code %d), got %v", expect.Error.Key, expect.Error.Code, err)
	}
	testutil.ExpectDiagnostic(t, expect.Error, cerr.Code(), cerr.Message())
	if expect.Object != "" {
		testutil.ExpectEq(t, expect.Object, cerr.Object())
	}
}

func caseOptions(t *testing.T, names []string) []compiler.CompileOption {
	var opts []compiler.CompileOption
	for _, name := range names {
		switch name {
		case "automatic-tags":
			opts = append(opts, compiler.WithAutomaticTags())
		case "extensibility-implied":
			opts = append(opts, compiler.WithExtensibilityImplied())
		case "warn-only":
			opts = append(opts, compiler.WithWarnOnly())
		default:
			t.Fatalf("unknown test option %q", name)
		}
	}
	return opts
}

func compileTestInputs(t *testing.T, testName string, options []string) (*compiler.Result, error) {
	dir := fmt.Sprintf("cases/%s", testName)
	entries, err := fs.ReadDir(testdata, dir)
	testutil.AssertNoError(t, err)

	var srcs []compiler.Source
	for _, fileEntry := range entries {
		fileName := fileEntry.Name()
		if !strings.HasSuffix(fileName, ".asn") {
			continue
		}
		text, err := fs.ReadFile(testdata, dir+"/"+fileName)
		testutil.AssertNoError(t, err)
		srcs = append(srcs, compiler.Source{Name: fileName, Text: string(text)})
	}
	if len(srcs) == 0 {
		t.Fatalf("no .asn inputs in %s", dir)
	}
	return compiler.Compile(srcs, caseOptions(t, options)...)
}

func TestCases(t *testing.T) {
	t.Parallel()

	testDirs, err := fs.ReadDir(testdata, "cases")
	testutil.AssertNoError(t, err)

	for _, testDir := range testDirs {
		if testDir.IsDir() {
			testName := testDir.Name()
			t.Run(testName, func(t *testing.T) {
				specTest(t, testName)
			})
		}
	}
}

func zip[X any, Y any](xs []*X, ys []*Y) iter.Seq2[*X, *Y] {
	maxLen := max(len(xs), len(ys))
	return func(yield func(x *X, y *Y) bool) {
		for ii := 0; ii < maxLen; ii++ {
			var ok bool
			if ii >= len(xs) {
				ok = yield(nil, ys[ii])
			} else if ii >= len(ys) {
				ok = yield(xs[ii], nil)
			} else {
				ok = yield(xs[ii], ys[ii])
			}
			if !ok {
				return
			}
		}
	}
}
