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

package fixpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// SwitchOneof makes tag the active member of a one-of whose discriminant
// is *which. Selecting the member that is already active does nothing.
// Otherwise the previous member is torn down, the new member constructed,
// and the discriminant updated, in that order. Replacing a member that was
// set is reported to the hook as OneofOverwrite; it is not an error.
//
// teardown and construct may be nil when no member of the one-of owns
// resources.
func SwitchOneof(
	which *uint32,
	tag uint32,
	message string,
	teardown func(tag uint32),
	construct func(tag uint32),
	opts *ConvertOptions,
) {
	prev := *which
	if prev == tag {
		return
	}
	if prev != 0 {
		opts.report(Diagnostic{
			Kind:    OneofOverwrite,
			Message: message,
			Field:   numberName(protowire.Number(prev)),
			Reason:  "one-of member replaced by " + numberName(protowire.Number(tag)),
		})
		if teardown != nil {
			teardown(prev)
		}
	}
	if construct != nil && tag != 0 {
		construct(tag)
	}
	*which = tag
}
