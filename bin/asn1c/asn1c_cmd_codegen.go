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
	"strings"

	"github.com/spf13/pflag"

	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/codegen"
)

type cmdCodegen struct {
	compileFlags
	outDir     string
	pluginPath string
	language   string
	pluginArgs []string
}

func (*cmdCodegen) help() *commandHelp {
	return &commandHelp{
		usage:   "codegen [options] ASN1_SOURCE...",
		summary: "Generate code for ASN.1 modules with a WebAssembly plugin",
	}
}

func (cmd *cmdCodegen) flags(flags *pflag.FlagSet) {
	cmd.compileFlags.register(flags)
	flags.StringVarP(&cmd.outDir, "output", "o", "", "Output directory")
	flags.StringVar(&cmd.pluginPath, "plugin-path", "", "Directories to search for plugins (default $"+codegen.PluginPathEnv+")")
	flags.StringVarP(&cmd.language, "language", "l", "go", "Target language, selects asn1c-codegen-LANGUAGE.wasm")
	flags.StringArrayVar(&cmd.pluginArgs, "opt", nil, "Plugin option as KEY=VALUE (repeatable)")
}

func (cmd *cmdCodegen) pluginOptions() (map[string]string, error) {
	if len(cmd.pluginArgs) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(cmd.pluginArgs))
	for _, opt := range cmd.pluginArgs {
		key, value, ok := strings.Cut(opt, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("Invalid plugin option %q (expected KEY=VALUE)", opt)
		}
		opts[key] = value
	}
	return opts, nil
}

func (cmd *cmdCodegen) run(ctx context.Context, argv []string) int {
	if cmd.outDir == "" {
		fmt.Fprintln(os.Stderr, "No output directory specified (set --output=)")
		return 1
	}
	pluginOpts, err := cmd.pluginOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pluginPath, err := codegen.Locate(cmd.pluginPath, cmd.language)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pluginBin, err := os.ReadFile(pluginPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	result := cmd.compile(argv)
	if result == nil {
		return 1
	}
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

	response, err := codegen.Run(ctx, pluginBin, &codegen.Request{
		Language: cmd.language,
		Options:  pluginOpts,
		Document: doc,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := os.MkdirAll(cmd.outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := codegen.WriteFiles(cmd.outDir, response); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
