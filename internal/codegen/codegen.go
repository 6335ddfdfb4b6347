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

// Package codegen runs code generator plugins compiled to WebAssembly.
//
// A plugin exports its linear memory as "memory" and two functions:
//
//	asn1c_codegen_allocate(size i32) -> ptr i32
//	asn1c_codegen_generate(request_ptr i32, request_len i32, response_ptr_ptr i32) -> rc i32
//
// The request is a JSON [Request]. The plugin stores the address of its
// response at response_ptr_ptr; the response is a little-endian u32 length
// followed by a JSON [Response] of that length. A non-zero rc reports
// failure, with the reason in [Response.Error].
package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wasm "github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"go.asn1c.org/asn1c/export"
)

const (
	memoryExport   = "memory"
	allocateExport = "asn1c_codegen_allocate"
	generateExport = "asn1c_codegen_generate"

	// PluginPathEnv lists plugin directories, separated like $PATH.
	PluginPathEnv = "ASN1C_CODEGEN_PLUGIN_PATH"
)

type Request struct {
	Language string            `json:"language"`
	Options  map[string]string `json:"options,omitempty"`
	Document *export.Document  `json:"document"`
}

type Response struct {
	Error string        `json:"error,omitempty"`
	Files []*OutputFile `json:"files,omitempty"`
}

type OutputFile struct {
	Path    []string `json:"path"`
	Content []byte   `json:"content"`
}

// PluginError is returned when a plugin reports failure.
type PluginError struct {
	Code    uint32
	Message string
}

func (e *PluginError) Error() string {
	msg := strings.TrimRight(e.Message, "\n")
	if msg == "" {
		return fmt.Sprintf("codegen plugin failed (rc=%d)", e.Code)
	}
	return fmt.Sprintf("codegen plugin failed (rc=%d): %s", e.Code, msg)
}

// Run instantiates pluginBin in a fresh interpreter runtime and sends it
// request. WASI is available to the plugin, and a reactor module's
// _initialize export runs before the first call.
func Run(ctx context.Context, pluginBin []byte, request *Request) (*Response, error) {
	requestBuf, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding codegen request: %w", err)
	}

	runtimeConfig := wasm.NewRuntimeConfigInterpreter()
	runtimeConfig = runtimeConfig.WithMemoryLimitPages(16384)
	runtime := wasm.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, err
	}
	pluginExe, err := runtime.CompileModule(ctx, pluginBin)
	if err != nil {
		return nil, fmt.Errorf("compiling codegen plugin: %w", err)
	}
	moduleConfig := wasm.NewModuleConfig().
		WithStartFunctions("_initialize").
		WithStderr(os.Stderr)
	plugin, err := runtime.InstantiateModule(ctx, pluginExe, moduleConfig)
	if err != nil {
		return nil, fmt.Errorf("instantiating codegen plugin: %w", err)
	}

	mem := plugin.ExportedMemory(memoryExport)
	if mem == nil {
		return nil, fmt.Errorf("codegen plugin does not export %s", memoryExport)
	}
	wasmAlloc := plugin.ExportedFunction(allocateExport)
	if wasmAlloc == nil {
		return nil, fmt.Errorf("codegen plugin does not export %s", allocateExport)
	}
	wasmGenerate := plugin.ExportedFunction(generateExport)
	if wasmGenerate == nil {
		return nil, fmt.Errorf("codegen plugin does not export %s", generateExport)
	}

	results, err := wasmAlloc.Call(ctx, uint64(len(requestBuf)))
	if err != nil {
		return nil, err
	}
	requestPtr := uint32(results[0])
	if !mem.Write(requestPtr, requestBuf) {
		return nil, errors.New("failed to write request message")
	}

	results, err = wasmAlloc.Call(ctx, 4)
	if err != nil {
		return nil, err
	}
	responsePtrPtr := uint32(results[0])

	results, err = wasmGenerate.Call(
		ctx,
		uint64(requestPtr),
		uint64(len(requestBuf)),
		uint64(responsePtrPtr),
	)
	if err != nil {
		return nil, err
	}
	rc := uint32(results[0])

	responsePtr, ok := mem.ReadUint32Le(responsePtrPtr)
	if !ok {
		return nil, errors.New("failed to read response message address")
	}
	responseLen, ok := mem.ReadUint32Le(responsePtr)
	if !ok {
		return nil, errors.New("failed to read response message length")
	}
	responseBuf, ok := mem.Read(responsePtr+4, responseLen)
	if !ok {
		return nil, errors.New("failed to read response message")
	}

	response := &Response{}
	if err := json.Unmarshal(responseBuf, response); err != nil {
		return nil, fmt.Errorf("decoding codegen response: %w", err)
	}
	if rc != 0 {
		return nil, &PluginError{Code: rc, Message: response.Error}
	}
	return response, nil
}

// Locate finds "asn1c-codegen-<language>.wasm" in pluginPath, or in
// $ASN1C_CODEGEN_PLUGIN_PATH when pluginPath is empty.
func Locate(pluginPath, language string) (string, error) {
	if pluginPath == "" {
		pluginPath = os.Getenv(PluginPathEnv)
	}
	if pluginPath == "" {
		return "", fmt.Errorf("No plugin path set, use --plugin-path= or $%s", PluginPathEnv)
	}
	basename := fmt.Sprintf("asn1c-codegen-%s.wasm", language)
	for _, dir := range filepath.SplitList(pluginPath) {
		candidate := filepath.Join(dir, basename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("Codegen plugin %s not found in plugin path", basename)
}

// OutputPath joins a plugin-provided relative path onto outDir. Paths that
// could escape outDir are rejected.
func OutputPath(outDir string, parts []string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("Invalid output path %#v: empty", parts)
	}
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("Invalid output path %#v: bad path component %q", parts, part)
		}
		if part[0] == '/' || filepath.IsAbs(part) {
			return "", fmt.Errorf("Invalid output path %#v: absolute path component %q", parts, part)
		}
		if strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("Invalid output path %#v: component %q contains a separator", parts, part)
		}
	}
	return filepath.Join(append([]string{outDir}, parts...)...), nil
}

// WriteFiles writes every file of response under outDir.
func WriteFiles(outDir string, response *Response) error {
	if len(response.Files) == 0 {
		return errors.New("Plugin did not generate any output files")
	}
	paths := make([]string, len(response.Files))
	for ii, file := range response.Files {
		outPath, err := OutputPath(outDir, file.Path)
		if err != nil {
			return err
		}
		paths[ii] = outPath
	}
	for ii, file := range response.Files {
		if err := os.MkdirAll(filepath.Dir(paths[ii]), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(paths[ii], file.Content, 0o644); err != nil {
			return err
		}
	}
	return nil
}
