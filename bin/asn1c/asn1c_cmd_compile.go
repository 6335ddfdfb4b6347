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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"go.asn1c.org/asn1c/encoding/asntext"
	"go.asn1c.org/asn1c/export"
)

type cmdCompile struct {
	compileFlags
	outPath string
	format  string
}

func (*cmdCompile) help() *commandHelp {
	return &commandHelp{
		usage:   "compile [options] ASN1_SOURCE...",
		summary: "Compile ASN.1 modules and dump the result as text or JSON",
	}
}

func (cmd *cmdCompile) flags(flags *pflag.FlagSet) {
	cmd.compileFlags.register(flags)
	flags.StringVarP(&cmd.outPath, "output", "o", "", "Output file (default stdout)")
	flags.StringVarP(&cmd.format, "format", "f", "", "Output format: 'text' or 'json'")
}

func (cmd *cmdCompile) outputFormat() (string, error) {
	switch cmd.format {
	case "":
		switch filepath.Ext(cmd.outPath) {
		case ".json":
			return "json", nil
		case "", ".txt", ".asntext":
			return "text", nil
		}
		return "", fmt.Errorf("Can't guess output format of %q (choose 'text' or 'json')", cmd.outPath)
	case "text", "asntext":
		return "text", nil
	case "json":
		return "json", nil
	}
	return "", fmt.Errorf("Unsupported output format %q", cmd.format)
}

func (cmd *cmdCompile) run(ctx context.Context, argv []string) int {
	format, err := cmd.outputFormat()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result := cmd.compile(argv)
	if result == nil {
		return 1
	}

	var output []byte
	if format == "text" {
		output = []byte(asntext.Encode(result.Modules()...))
	} else {
		doc := export.FromResult(result)
		validator, err := export.NewValidator()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := validator.Validate(doc); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		output, err = export.Marshal(doc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		output = append(output, '\n')
	}
	return writeOutput(cmd.outPath, output)
}
