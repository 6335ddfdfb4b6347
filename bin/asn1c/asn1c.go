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
	stdflag "flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

// logFormatSetter is implemented by commands that log compiler progress.
type logFormatSetter interface {
	setLogFormat(format string)
}

const rootLong = `asn1c compiles ASN.1 modules (X.680 through X.683) into a resolved
object graph. Parameterized types are instantiated, references followed,
tags assigned and constraints checked.

The graph can be printed as text or as a JSON document, and handed to a
code generator plugin built for WebAssembly.`

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

func newRootCommand(ctx context.Context, commands []command) *cobra.Command {
	var logFormat string
	asn1cCmd := &cobra.Command{
		Use:     "asn1c [options] COMMAND",
		Short:   "ASN.1 module compiler",
		Long:    rootLong,
		Version: version(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	asn1cCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Format of --verbose logs: text or json")
	asn1cCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if _, err := newLogHandler(os.Stderr, logFormat); err != nil {
			return err
		}
		for _, cmd := range commands {
			if setter, ok := cmd.(logFormatSetter); ok {
				setter.setLogFormat(logFormat)
			}
		}
		return nil
	}
	asn1cCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, asn1cCmd.UsageString())
		os.Exit(1)
		return nil
	}

	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			RunE: func(_ *cobra.Command, args []string) error {
				os.Exit(cmd.run(ctx, args))
				return nil
			},
		}
		asn1cCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}
	return asn1cCmd
}

func main() {
	asn1cCmd := newRootCommand(context.Background(), []command{
		&cmdCompile{},
		&cmdCheck{},
		&cmdCodegen{},
	})
	asn1cCmd.Flags().AddGoFlagSet(stdflag.CommandLine)
	asn1cCmd.ParseFlags(nil)
	if _, err := asn1cCmd.ExecuteC(); err != nil {
		os.Exit(1)
	}
}
