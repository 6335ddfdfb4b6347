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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"go.asn1c.org/asn1c/compiler"
)

// compileFlags are the compiler options shared by every command that reads
// ASN.1 sources.
type compileFlags struct {
	automaticTags        bool
	extensibilityImplied bool
	warnOnly             bool
	orderPath            string
	loadPath             string
	verbose              bool
	logFormat            string
}

func (f *compileFlags) setLogFormat(format string) {
	f.logFormat = format
}

// newLogHandler builds the handler of --verbose logs. An empty format
// means text.
func newLogHandler(w io.Writer, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

func (f *compileFlags) register(flags *pflag.FlagSet) {
	flags.BoolVar(&f.automaticTags, "automatic-tags", false, "Tag components as if every module had AUTOMATIC TAGS")
	flags.BoolVar(&f.extensibilityImplied, "extensibility-implied", false, "Treat every module as EXTENSIBILITY IMPLIED")
	flags.BoolVar(&f.warnOnly, "warn-only", false, "Report soft constraint errors as warnings")
	flags.StringVar(&f.orderPath, "order", "", "File listing Module.Name entries to compile first, one per line")
	flags.StringVar(&f.loadPath, "load", "", "File listing Module.Name entries to compile, one per line")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Log compiler progress to stderr")
}

func (f *compileFlags) options() ([]compiler.CompileOption, error) {
	var opts []compiler.CompileOption
	if f.automaticTags {
		opts = append(opts, compiler.WithAutomaticTags())
	}
	if f.extensibilityImplied {
		opts = append(opts, compiler.WithExtensibilityImplied())
	}
	if f.warnOnly {
		opts = append(opts, compiler.WithWarnOnly())
	}
	if f.orderPath != "" {
		order, err := parseFile(f.orderPath, compiler.ParseOrderFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compiler.WithOrder(order))
	}
	if f.loadPath != "" {
		loadList, err := parseFile(f.loadPath, compiler.ParseLoadFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compiler.WithLoadList(loadList))
	}
	if f.verbose {
		handler, err := newLogHandler(os.Stderr, f.logFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, compiler.WithLogger(slog.New(handler)))
	}
	return opts, nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	fp, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer fp.Close()
	parsed, err := parse(fp)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// compile reads every source path and compiles them together. Warnings and
// errors are printed to stderr; a nil result means the caller should exit
// with status 1.
func (f *compileFlags) compile(srcPaths []string) *compiler.Result {
	if len(srcPaths) == 0 {
		fmt.Fprintln(os.Stderr, "No ASN.1 source files given")
		return nil
	}
	opts, err := f.options()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil
	}

	srcs := make([]compiler.Source, 0, len(srcPaths))
	for _, srcPath := range srcPaths {
		text, err := os.ReadFile(srcPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		srcs = append(srcs, compiler.Source{Name: srcPath, Text: string(text)})
	}

	result, err := compiler.Compile(srcs, opts...)
	if result != nil {
		for _, warn := range result.Warnings {
			fmt.Fprintf(os.Stderr, "%v\n", warn)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil
	}
	return result
}

func writeOutput(outPath string, output []byte) int {
	if outPath == "" {
		if _, err := os.Stdout.Write(output); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	fp, err := os.OpenFile(outPath, openFlags, 0o666)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	_, writeErr := fp.Write(output)
	closeErr := fp.Close()
	if writeErr != nil {
		fmt.Fprintln(os.Stderr, writeErr)
		return 1
	}
	if closeErr != nil {
		fmt.Fprintln(os.Stderr, closeErr)
		return 1
	}
	return 0
}
