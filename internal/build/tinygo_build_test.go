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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTinygoArgs(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "fixpb-codegen-go.wasm")
	args, err := tinygoArgs(buildOptions{
		output: out,
		pkg:    "./bin/fixpb-codegen-go",
		target: "wasm-unknown",
		opt:    "z",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"build",
		"-o=" + out,
		"-target=wasm-unknown",
		"-opt=z",
		"-no-debug",
		"./bin/fixpb-codegen-go",
	}, args)

	args, err = tinygoArgs(buildOptions{output: out, pkg: ".", target: "wasi", opt: "2", debug: true})
	require.NoError(t, err)
	assert.NotContains(t, args, "-no-debug")
	assert.Contains(t, args, "-target=wasi")
}

func TestTinygoArgsNeedsOutput(t *testing.T) {
	t.Parallel()

	_, err := tinygoArgs(buildOptions{pkg: "."})
	assert.ErrorContains(t, err, "no output path")
}
