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

//go:build !wasip1

package main

import (
	"log"
	"os"

	"go.asn1c.org/asn1c/compiler"
	"go.asn1c.org/asn1c/export"
	"go.asn1c.org/asn1c/internal/codegen"
)

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		log.Fatalf("usage: %s ASN1_SOURCE...", os.Args[0])
	}

	var srcs []compiler.Source
	for _, srcPath := range args {
		text, err := os.ReadFile(srcPath)
		if err != nil {
			log.Fatalf("ReadFile(%q): %v", srcPath, err)
		}
		srcs = append(srcs, compiler.Source{Name: srcPath, Text: string(text)})
	}

	result, err := compiler.Compile(srcs)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	for _, warn := range result.Warnings {
		log.Printf("[WARN ] %v", warn)
	}

	response, err := generate(&codegen.Request{
		Language: "go",
		Document: export.FromResult(result),
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, file := range response.Files {
		if _, err := os.Stdout.Write(file.Content); err != nil {
			log.Fatal(err)
		}
	}
}
