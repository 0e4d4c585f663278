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

package testutil

import (
	"cmp"
	"encoding/json"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"testing"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/types/descriptorpb"
)

// TestdataFS returns the testdata directory of the package under test.
func TestdataFS() fs.FS {
	return os.DirFS("testdata")
}

// LoadFileDescriptor reads a FileDescriptorProto in protobuf text format.
func LoadFileDescriptor(
	t *testing.T,
	testdata fs.FS,
	path string,
) *descriptorpb.FileDescriptorProto {
	t.Helper()
	text, err := fs.ReadFile(testdata, path)
	if err != nil {
		t.Fatal(err)
	}
	fd := &descriptorpb.FileDescriptorProto{}
	if err := prototext.Unmarshal(text, fd); err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	return fd
}

// ExpectedDiagnostic is one entry of an expect_err.json or
// expect_warn.json file.
type ExpectedDiagnostic struct {
	Code    uint32
	Locator string
	Pattern *regexp.Regexp
}

// LoadExpectedDiagnostics reads the diagnostics listed under key ("errors"
// or "warnings"), sorted by locator and then code.
func LoadExpectedDiagnostics(
	t *testing.T,
	testdata fs.FS,
	jsonPath string,
	key string,
) []*ExpectedDiagnostic {
	t.Helper()

	jsonData, err := fs.ReadFile(testdata, jsonPath)
	if err != nil {
		t.Fatal(err)
	}

	type rawDiagnostic struct {
		Code    uint32 `json:"code"`
		Locator string `json:"locator"`
		Pattern string `json:"message_pattern"`
	}
	var raw map[string][]rawDiagnostic
	if err := json.Unmarshal(jsonData, &raw); err != nil {
		t.Fatalf("%s: %v", jsonPath, err)
	}

	var out []*ExpectedDiagnostic
	for _, diag := range raw[key] {
		if diag.Code == 0 {
			t.Fatalf("%s: diagnostic without code", jsonPath)
		}
		expected := &ExpectedDiagnostic{
			Code:    diag.Code,
			Locator: diag.Locator,
		}
		if diag.Pattern != "" {
			expected.Pattern, err = regexp.Compile("(?i)" + diag.Pattern)
			if err != nil {
				t.Fatalf("%s: %v", jsonPath, err)
			}
		}
		out = append(out, expected)
	}

	slices.SortFunc(out, func(a, b *ExpectedDiagnostic) int {
		if x := cmp.Compare(a.Locator, b.Locator); x != 0 {
			return x
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}
