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
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/testutil"
)

const testModule = `M DEFINITIONS ::= BEGIN
A ::= INTEGER (0..7)
B ::= SEQUENCE { a A, b BOOLEAN }
END
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOutputFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format  string
		outPath string
		want    string
	}{
		{"", "", "text"},
		{"", "out.txt", "text"},
		{"", "out.json", "json"},
		{"json", "", "json"},
		{"asntext", "out.json", "text"},
	}
	for _, test := range tests {
		cmd := &cmdCompile{format: test.format, outPath: test.outPath}
		got, err := cmd.outputFormat()
		testutil.AssertNoError(t, err)
		testutil.ExpectEq(t, test.want, got)
	}

	_, err := (&cmdCompile{outPath: "out.bin"}).outputFormat()
	testutil.ExpectTrue(t, err != nil)
	_, err = (&cmdCompile{format: "xml"}).outputFormat()
	testutil.ExpectTrue(t, err != nil)
}

func TestCompileJSON(t *testing.T) {
	t.Parallel()
	srcPath := writeTemp(t, "m.asn", testModule)
	outPath := filepath.Join(t.TempDir(), "m.json")

	cmd := &cmdCompile{outPath: outPath}
	testutil.AssertEq(t, 0, cmd.run(context.Background(), []string{srcPath}))

	output, err := os.ReadFile(outPath)
	testutil.AssertNoError(t, err)
	testutil.ExpectNoError(t, export.Validate(output))
	testutil.ExpectTrue(t, strings.Contains(string(output), `"name": "B"`))
}

func TestCompileText(t *testing.T) {
	t.Parallel()
	srcPath := writeTemp(t, "m.asn", testModule)
	outPath := filepath.Join(t.TempDir(), "m.txt")

	cmd := &cmdCompile{outPath: outPath}
	testutil.AssertEq(t, 0, cmd.run(context.Background(), []string{srcPath}))

	output, err := os.ReadFile(outPath)
	testutil.AssertNoError(t, err)
	testutil.ExpectTrue(t, strings.HasPrefix(string(output), `module "M" {`))
}

func TestCheck(t *testing.T) {
	t.Parallel()
	good := writeTemp(t, "good.asn", testModule)
	bad := writeTemp(t, "bad.asn", "M DEFINITIONS ::= BEGIN\nA ::= B\nEND\n")

	testutil.ExpectEq(t, 0, (&cmdCheck{quiet: true}).run(context.Background(), []string{good}))
	testutil.ExpectEq(t, 1, (&cmdCheck{quiet: true}).run(context.Background(), []string{bad}))
	testutil.ExpectEq(t, 1, (&cmdCheck{quiet: true}).run(context.Background(), nil))
}

func TestCompileFlagsOptions(t *testing.T) {
	t.Parallel()
	orderPath := writeTemp(t, "order.txt", "# compile first\nM.B\n")
	loadPath := writeTemp(t, "load.txt", "M.A\nM.B\n")

	flags := &compileFlags{
		automaticTags: true,
		warnOnly:      true,
		orderPath:     orderPath,
		loadPath:      loadPath,
	}
	opts, err := flags.options()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, 4, len(opts))

	flags = &compileFlags{orderPath: writeTemp(t, "bad.txt", "not an entry\n")}
	_, err = flags.options()
	testutil.ExpectTrue(t, err != nil)

	flags = &compileFlags{loadPath: filepath.Join(t.TempDir(), "missing.txt")}
	_, err = flags.options()
	testutil.ExpectTrue(t, err != nil)
}

func TestPluginOptions(t *testing.T) {
	t.Parallel()

	cmd := &cmdCodegen{pluginArgs: []string{"package=asn1", "prefix="}}
	opts, err := cmd.pluginOptions()
	testutil.AssertNoError(t, err)
	testutil.ExpectEq(t, "asn1", opts["package"])
	testutil.ExpectEq(t, "", opts["prefix"])

	cmd = &cmdCodegen{pluginArgs: []string{"=x"}}
	_, err = cmd.pluginOptions()
	testutil.ExpectTrue(t, err != nil)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()
	compile := &cmdCompile{}
	root := newRootCommand(context.Background(), []command{compile, &cmdCheck{}})

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	testutil.ExpectSliceEq(t, []string{"check", "compile"}, names)
	testutil.ExpectTrue(t, root.Version != "")
	testutil.ExpectTrue(t, strings.Contains(root.Long, "WebAssembly"))

	logFormat := root.PersistentFlags().Lookup("log-format")
	testutil.AssertTrue(t, logFormat != nil)
	testutil.ExpectEq(t, "text", logFormat.DefValue)

	testutil.AssertNoError(t, root.PersistentFlags().Set("log-format", "json"))
	testutil.AssertNoError(t, root.PersistentPreRunE(root, nil))
	testutil.ExpectEq(t, "json", compile.logFormat)

	testutil.AssertNoError(t, root.PersistentFlags().Set("log-format", "xml"))
	testutil.ExpectTrue(t, root.PersistentPreRunE(root, nil) != nil)
}

func TestLogHandler(t *testing.T) {
	t.Parallel()
	var buf strings.Builder

	handler, err := newLogHandler(&buf, "json")
	testutil.AssertNoError(t, err)
	slog.New(handler).Debug("compilation pass", "pass", 1)
	testutil.ExpectTrue(t, strings.Contains(buf.String(), `"msg":"compilation pass"`))

	buf.Reset()
	handler, err = newLogHandler(&buf, "")
	testutil.AssertNoError(t, err)
	slog.New(handler).Debug("compilation pass", "pass", 1)
	testutil.ExpectTrue(t, strings.Contains(buf.String(), `msg="compilation pass" pass=1`))

	_, err = newLogHandler(&buf, "xml")
	testutil.ExpectTrue(t, err != nil)

	flags := &compileFlags{verbose: true, logFormat: "xml"}
	_, err = flags.options()
	testutil.ExpectTrue(t, err != nil)
}
