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

//go:build wasip1

package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unsafe"

	"go.asn1c.org/asn1c/internal/codegen"
)

// Buffers handed to the host stay reachable until it is done with them.
var buffers = make(map[uint32][]byte)

func main() {}

//go:wasmexport asn1c_codegen_allocate
func codegenAllocate(size uint32) uint32 {
	return keep(make([]byte, size))
}

//go:wasmexport asn1c_codegen_deallocate
func codegenDeallocate(ptr uint32) {
	delete(buffers, ptr)
}

//go:wasmexport asn1c_codegen_generate
func codegenGenerate(requestPtr, requestLen, responsePtrPtr uint32) uint32 {
	requestBuf := buffers[requestPtr][:requestLen]

	rc := uint32(0)
	var response *codegen.Response
	request := &codegen.Request{}
	err := json.Unmarshal(requestBuf, request)
	if err == nil {
		response, err = generate(request)
	}
	if err != nil {
		rc = 1
		response = &codegen.Response{Error: fmt.Sprintf("%v", err)}
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		rc = 1
		responseJSON = []byte(`{"error": "failed to encode response"}`)
	}
	responseBuf := make([]byte, 4+len(responseJSON))
	binary.LittleEndian.PutUint32(responseBuf, uint32(len(responseJSON)))
	copy(responseBuf[4:], responseJSON)

	responsePtr := keep(responseBuf)
	binary.LittleEndian.PutUint32(buffers[responsePtrPtr][:4], responsePtr)
	return rc
}

func keep(buf []byte) uint32 {
	if len(buf) == 0 {
		buf = make([]byte, 1)
	}
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
	buffers[ptr] = buf
	return ptr
}
