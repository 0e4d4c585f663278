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

package layout

import (
	"go.fixpb.dev/fixpb/encsize"
)

type OneOf struct {
	Name     string
	FullName string
	// Members are ordered by ascending tag.
	Members []*Field
	// Tag is the lowest member tag.
	Tag int32
	// Static is set when the members share overlapping storage.
	Static    bool
	Anonymous bool
	LongNames bool

	Size      encsize.Size
	SizeKnown bool
}

// Member returns the member with the given tag, or nil.
func (o *OneOf) Member(tag int32) *Field {
	for _, f := range o.Members {
		if f.Tag == tag {
			return f
		}
	}
	return nil
}

type Action uint8

const (
	Teardown Action = iota
	Construct
)

func (a Action) String() string {
	if a == Teardown {
		return "teardown"
	}
	return "construct"
}

type Step struct {
	Action Action
	Tag    int32
}

// Switch plans the storage transitions when the discriminant changes from
// one tag to another. Tag 0 means no member is active. Members without
// lifecycle produce no steps, and switching to the current member is a no-op.
func (o *OneOf) Switch(from, to int32) []Step {
	if from == to {
		return nil
	}
	var steps []Step
	if f := o.Member(from); f != nil && f.Lifecycle {
		steps = append(steps, Step{Teardown, from})
	}
	if f := o.Member(to); f != nil && f.Lifecycle {
		steps = append(steps, Step{Construct, to})
	}
	return steps
}
