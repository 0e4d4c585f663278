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

package layoutjson

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"go.fixpb.dev/fixpb/layout"
)

// Request asks a renderer plugin to generate code for one file.
type Request struct {
	File         *layout.File
	Dependencies []*layout.File
	// Parameters are renderer options passed through from the command
	// line, in "key=value" form.
	Parameters []string
}

type OutputFile struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// Response is a renderer's reply. A non-empty Error means generation
// failed and OutputFiles is ignored.
type Response struct {
	OutputFiles []OutputFile `json:"output_files,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type requestJSON struct {
	File         *fileJSON   `json:"file"`
	Dependencies []*fileJSON `json:"dependencies,omitempty"`
	Parameters   []string    `json:"parameters,omitempty"`
}

func (r *Request) MarshalJSON() ([]byte, error) {
	if r.File == nil {
		return nil, errors.New("layoutjson: request has no file")
	}
	out := requestJSON{
		File:       fromFile(r.File),
		Parameters: r.Parameters,
	}
	for _, dep := range r.Dependencies {
		out.Dependencies = append(out.Dependencies, fromFile(dep))
	}
	return json.Marshal(out)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var in requestJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.File == nil {
		return errors.New("layoutjson: request has no file")
	}
	file, err := in.File.toFile()
	if err != nil {
		return err
	}
	deps := make([]*layout.File, 0, len(in.Dependencies))
	for _, dep := range in.Dependencies {
		f, err := dep.toFile()
		if err != nil {
			return err
		}
		deps = append(deps, f)
	}
	*r = Request{File: file, Dependencies: deps, Parameters: in.Parameters}
	return nil
}

// Plugin messages cross the WASM boundary as a little-endian uint32
// length followed by that many bytes of JSON.

const frameHeaderLen = 4

// AppendFrame appends the framed JSON encoding of v to b.
func AppendFrame(b []byte, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return b, errors.Wrap(err, "layoutjson: encoding frame")
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(payload)))
	return append(b, payload...), nil
}

// FrameLen returns the total length of the frame at the start of b,
// header included.
func FrameLen(b []byte) (int, error) {
	if len(b) < frameHeaderLen {
		return 0, errors.New("layoutjson: truncated frame header")
	}
	return frameHeaderLen + int(binary.LittleEndian.Uint32(b)), nil
}

// DecodeFrame decodes the framed message at the start of b into v.
func DecodeFrame(b []byte, v any) error {
	n, err := FrameLen(b)
	if err != nil {
		return err
	}
	if len(b) < n {
		return errors.Newf("layoutjson: frame of %d bytes truncated to %d", n, len(b))
	}
	if err := json.Unmarshal(b[frameHeaderLen:n], v); err != nil {
		return errors.Wrap(err, "layoutjson: decoding frame")
	}
	return nil
}
