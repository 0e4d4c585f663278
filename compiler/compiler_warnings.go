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

package compiler

import (
	"fmt"
)

type Warning struct {
	code    uint32
	message string
	locator Locator
}

func (w *Warning) String() string {
	return fmt.Sprintf("W%d: %s", w.code, w.message)
}

func (w *Warning) Code() uint32 {
	return w.code
}

func (w *Warning) Message() string {
	return w.message
}

func (w *Warning) Locator() Locator {
	return w.locator
}

// UnmatchedRule reports a side-file rule that matched no element of any
// file in a batch.
func UnmatchedRule(pattern, source string) *Warning {
	return &Warning{
		code:    4000,
		message: fmt.Sprintf("Rule %q (%s) did not match any element", pattern, source),
		locator: Locator{File: source},
	}
}

func warnExtensionSkipped(label string, loc Locator) *Warning {
	return &Warning{
		code: 4001,
		message: fmt.Sprintf(
			"Extension '%s' is %s; only optional extensions are generated",
			loc.Element(), label,
		),
		locator: loc,
	}
}

func warnDefaultIgnored(alloc string, loc Locator) *Warning {
	return &Warning{
		code: 4002,
		message: fmt.Sprintf(
			"Default value of field '%s' is ignored for %s allocation",
			loc.Element(), alloc,
		),
		locator: loc,
	}
}

func warnMessageSkipped(loc Locator) *Warning {
	return &Warning{
		code:    4003,
		message: fmt.Sprintf("Message '%s' is skipped", loc.Element()),
		locator: loc,
	}
}

func warnFieldIgnored(loc Locator) *Warning {
	return &Warning{
		code:    4004,
		message: fmt.Sprintf("Field '%s' is ignored", loc.Element()),
		locator: loc,
	}
}
