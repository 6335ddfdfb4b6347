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

	"github.com/spf13/pflag"
)

type cmdCheck struct {
	compileFlags
	quiet bool
}

func (*cmdCheck) help() *commandHelp {
	return &commandHelp{
		usage:   "check [options] ASN1_SOURCE...",
		summary: "Compile and verify ASN.1 modules without writing output",
	}
}

func (cmd *cmdCheck) flags(flags *pflag.FlagSet) {
	cmd.compileFlags.register(flags)
	flags.BoolVarP(&cmd.quiet, "quiet", "q", false, "Print nothing on success")
}

func (cmd *cmdCheck) run(ctx context.Context, argv []string) int {
	result := cmd.compile(argv)
	if result == nil {
		return 1
	}
	if !cmd.quiet {
		var objects int
		for _, mod := range result.Modules() {
			objects += len(mod.Names())
		}
		fmt.Fprintf(
			os.Stdout,
			"OK: %d modules, %d definitions, %d warnings\n",
			len(result.Modules()), objects, len(result.Warnings),
		)
	}
	return 0
}
