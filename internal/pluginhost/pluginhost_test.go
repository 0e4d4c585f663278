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

package pluginhost

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	t.Parallel()

	empty := t.TempDir()
	full := t.TempDir()
	want := filepath.Join(full, "fixpb-codegen-go.wasm")
	require.NoError(t, os.WriteFile(want, []byte("\x00asm"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(empty, "fixpb-codegen-go.wasm"), 0o755))

	got, err := Locate([]string{empty, full}, "go")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Locate([]string{empty}, "go")
	assert.ErrorContains(t, err, "fixpb-codegen-go.wasm not found")
}

func TestCheckOutputPath(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckOutputPath("demo/demo.fixpb.go"))
	for _, bad := range []string{
		"",
		"/etc/passwd",
		"../escape.go",
		"demo/./x.go",
		"demo//x.go",
		`demo\x.go`,
	} {
		assert.Error(t, CheckOutputPath(bad), bad)
	}
}

func TestLoadRejectsBadModules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := Load(ctx, []byte("not wasm"), Options{})
	assert.ErrorContains(t, err, "compiling plugin")

	// Header only: valid, but exports nothing.
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	_, err = Load(ctx, empty, Options{})
	assert.ErrorContains(t, err, "does not export "+ExportAllocate)

	_, err = LoadFile(ctx, filepath.Join(t.TempDir(), "missing.wasm"), Options{})
	assert.ErrorContains(t, err, "reading plugin")
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bad\uFFFDinput\nnext", sanitize("bad\x1binput\nnext"))
}
