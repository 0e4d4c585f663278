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

package descriptor

import (
	"fmt"
)

type Error struct {
	code    uint32
	message string
	element string
}

var _ error = (*Error)(nil)

func (err *Error) Error() string {
	return fmt.Sprintf("E%d: %s", err.code, err.message)
}

func (err *Error) Code() uint32 {
	return err.code
}

func (err *Error) Message() string {
	return err.message
}

// Element is the full name of the descriptor element the error refers to.
func (err *Error) Element() string {
	return err.element
}

func errMissingFileName() error {
	return &Error{
		code:    2000,
		message: "File descriptor has no name",
	}
}

func errMissingName(kind, scope string) error {
	return &Error{
		code:    2001,
		message: fmt.Sprintf("Unnamed %s in %q", kind, scope),
		element: scope,
	}
}

func errInvalidTag(fullName string, tag int32) error {
	return &Error{
		code: 2002,
		message: fmt.Sprintf(
			"Field %q has tag %d, outside the valid range 1..%d",
			fullName, tag, MaxTag,
		),
		element: fullName,
	}
}

func errDuplicateTag(fullName, prev string, tag int32) error {
	return &Error{
		code: 2003,
		message: fmt.Sprintf(
			"Field %q reuses tag %d of field %q",
			fullName, tag, prev,
		),
		element: fullName,
	}
}

func errDuplicateFieldName(fullName string) error {
	return &Error{
		code:    2004,
		message: fmt.Sprintf("Duplicate field %q", fullName),
		element: fullName,
	}
}

func errGroupUnsupported(fullName string) error {
	return &Error{
		code:    2005,
		message: fmt.Sprintf("Field %q is a group, which is not supported", fullName),
		element: fullName,
	}
}

func errUnknownType(fullName string, typeCode int32) error {
	return &Error{
		code:    2006,
		message: fmt.Sprintf("Field %q has unknown type code %d", fullName, typeCode),
		element: fullName,
	}
}

func errMissingTypeName(fullName string) error {
	return &Error{
		code:    2007,
		message: fmt.Sprintf("Field %q does not name its message or enum type", fullName),
		element: fullName,
	}
}

func errInvalidOneOfIndex(fullName string, index int32) error {
	return &Error{
		code:    2008,
		message: fmt.Sprintf("Field %q refers to missing oneof #%d", fullName, index),
		element: fullName,
	}
}

func errEmptyEnum(fullName string) error {
	return &Error{
		code:    2009,
		message: fmt.Sprintf("Enum %q has no values", fullName),
		element: fullName,
	}
}
