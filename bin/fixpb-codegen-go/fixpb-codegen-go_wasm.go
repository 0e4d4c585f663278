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

//go:build tinygo

package main

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Live allocations, keyed by address, so the collector keeps them while
// the host holds the pointer.
var buffers = make(map[*uint8][]uint8)

func main() {}

func keep(buf []uint8) *uint8 {
	ptr := unsafe.SliceData(buf)
	buffers[ptr] = buf
	return ptr
}

//go:export fixpb_codegen_allocate
func fixpbCodegenAllocate(n uint32) *uint8 {
	if n == 0 || n > math.MaxInt32 {
		return nil
	}
	return keep(make([]uint8, int(n)))
}

//go:export fixpb_codegen_deallocate
func fixpbCodegenDeallocate(ptr *uint8) {
	delete(buffers, ptr)
}

//go:export fixpb_codegen_generate
func fixpbCodegenGenerate(reqPtr *uint8, respPtrPtr **uint8) uint32 {
	reqLen := binary.LittleEndian.Uint32(unsafe.Slice(reqPtr, 4))
	req := unsafe.Slice(reqPtr, 4+int(reqLen))

	resp, failed := handle(req)
	*respPtrPtr = keep(resp)
	if failed {
		return 1
	}
	return 0
}
