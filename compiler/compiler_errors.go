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
	"strings"
)

// Locator identifies the schema element a diagnostic is about.
type Locator struct {
	File    string
	Message string
	Field   string
}

// Element returns the qualified name of the located element.
func (l Locator) Element() string {
	if l.Field == "" {
		return l.Message
	}
	if l.Message == "" {
		return l.Field
	}
	return l.Message + "." + l.Field
}

func (l Locator) String() string {
	elem := l.Element()
	if l.File == "" {
		return elem
	}
	if elem == "" {
		return l.File
	}
	return l.File + ": " + elem
}

type Error struct {
	code    uint32
	message string
	locator Locator
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

func (err *Error) Locator() Locator {
	return err.locator
}

func errInvalidDirective(element string, cause error, loc Locator) error {
	return &Error{
		code:    3000,
		message: fmt.Sprintf("Invalid directives on '%s': %v", element, cause),
		locator: loc,
	}
}

func errStaticWithoutBound(loc Locator) error {
	return &Error{
		code: 3001,
		message: fmt.Sprintf(
			"Field '%s' is declared static, but no max_size or max_count is given",
			loc.Element(),
		),
		locator: loc,
	}
}

func errKeyFieldOnNonMessage(loc Locator) error {
	return &Error{
		code: 3002,
		message: fmt.Sprintf(
			"Field '%s' names a key field, but its type is not a message",
			loc.Element(),
		),
		locator: loc,
	}
}

func errContainerOnNonRepeated(container string, loc Locator) error {
	return &Error{
		code: 3003,
		message: fmt.Sprintf(
			"Field '%s' selects container %s, but is not repeated",
			loc.Element(), container,
		),
		locator: loc,
	}
}

func errMapOnNonMessage(container string, loc Locator) error {
	return &Error{
		code: 3004,
		message: fmt.Sprintf(
			"Field '%s' selects keyed container %s, but its type is not a message",
			loc.Element(), container,
		),
		locator: loc,
	}
}

func errMapWithoutKey(container string, loc Locator) error {
	return &Error{
		code: 3005,
		message: fmt.Sprintf(
			"Field '%s' selects keyed container %s, but no key_field is given",
			loc.Element(), container,
		),
		locator: loc,
	}
}

func errKeyWithoutMap(key string, loc Locator) error {
	return &Error{
		code: 3006,
		message: fmt.Sprintf(
			"Field '%s' names key field '%s', but its container is not keyed",
			loc.Element(), key,
		),
		locator: loc,
	}
}

func errKeyFieldMissing(key, msgName string, loc Locator) error {
	return &Error{
		code: 3007,
		message: fmt.Sprintf(
			"Key field '%s' of field '%s' is not a field of message '%s'",
			key, loc.Element(), msgName,
		),
		locator: loc,
	}
}

func errKeyFieldRepeated(key, msgName string, loc Locator) error {
	return &Error{
		code: 3008,
		message: fmt.Sprintf(
			"Key field '%s' of field '%s' is repeated in message '%s'",
			key, loc.Element(), msgName,
		),
		locator: loc,
	}
}

func errKeyFieldInvalid(key, kind string, loc Locator) error {
	return &Error{
		code: 3009,
		message: fmt.Sprintf(
			"Key field '%s' of field '%s' has type %s; keys must be integers, enums or strings",
			key, loc.Element(), kind,
		),
		locator: loc,
	}
}

func errSequenceNeedsDynamicText(container string, loc Locator) error {
	return &Error{
		code: 3010,
		message: fmt.Sprintf(
			"Repeated string field '%s' in container %s requires dynamic_text",
			loc.Element(), container,
		),
		locator: loc,
	}
}

func errDynamicTextOnNonText(kind string, loc Locator) error {
	return &Error{
		code: 3011,
		message: fmt.Sprintf(
			"Field '%s' of type %s cannot use dynamic_text",
			loc.Element(), kind,
		),
		locator: loc,
	}
}

func errFixedLengthWithoutSize(loc Locator) error {
	return &Error{
		code: 3012,
		message: fmt.Sprintf(
			"Field '%s' is declared fixed length, but no max_size is given",
			loc.Element(),
		),
		locator: loc,
	}
}

func errFixedLengthOnNonBytes(kind string, loc Locator) error {
	return &Error{
		code: 3013,
		message: fmt.Sprintf(
			"Field '%s' of type %s cannot be fixed length; only bytes can",
			loc.Element(), kind,
		),
		locator: loc,
	}
}

func errFixedCountWithoutCount(loc Locator) error {
	return &Error{
		code: 3014,
		message: fmt.Sprintf(
			"Field '%s' is declared fixed count, but no max_count is given",
			loc.Element(),
		),
		locator: loc,
	}
}

func errCallbackInOneOf(oneof string, loc Locator) error {
	return &Error{
		code: 3015,
		message: fmt.Sprintf(
			"Field '%s' of one-of '%s' would be a callback; callbacks cannot be one-of members",
			loc.Element(), oneof,
		),
		locator: loc,
	}
}

func errIntSizeOnNonInteger(kind string, loc Locator) error {
	return &Error{
		code: 3016,
		message: fmt.Sprintf(
			"Field '%s' of type %s cannot set int_size",
			loc.Element(), kind,
		),
		locator: loc,
	}
}

func errUnknownBoundConstant(name string, loc Locator) error {
	return &Error{
		code: 3017,
		message: fmt.Sprintf(
			"Bound constant '%s' of field '%s' is not an enum value in scope",
			name, loc.Element(),
		),
		locator: loc,
	}
}

func errUnknownType(typeName string, loc Locator) error {
	return &Error{
		code: 3018,
		message: fmt.Sprintf(
			"Type '%s' of field '%s' is not defined in the file or its dependencies",
			typeName, loc.Element(),
		),
		locator: loc,
	}
}

func errSkippedType(typeName string, loc Locator) error {
	return &Error{
		code: 3018,
		message: fmt.Sprintf(
			"Type '%s' of field '%s' is a skipped message",
			typeName, loc.Element(),
		),
		locator: loc,
	}
}

func errValueCycle(path []string, loc Locator) error {
	return &Error{
		code: 3019,
		message: fmt.Sprintf(
			"Messages embed each other by value: %s",
			strings.Join(path, " -> "),
		),
		locator: loc,
	}
}

func errTooManyRequired(count int, loc Locator) error {
	return &Error{
		code: 3020,
		message: fmt.Sprintf(
			"Message '%s' has %d required fields; at most 64 are supported",
			loc.Element(), count,
		),
		locator: loc,
	}
}

func errFieldValueTooLarge(value uint64, loc Locator) error {
	return &Error{
		code: 3021,
		message: fmt.Sprintf(
			"Message '%s' has a tag or bound of %d, which exceeds the 32-bit descriptor width",
			loc.Element(), value,
		),
		locator: loc,
	}
}

func errConflictingDefinition(typeName string, loc Locator) error {
	return &Error{
		code: 3022,
		message: fmt.Sprintf(
			"Type '%s' of field '%s' has conflicting definitions in the dependencies",
			typeName, loc.Element(),
		),
		locator: loc,
	}
}

func errNonPositiveBound(what string, value int64, loc Locator) error {
	return &Error{
		code: 3023,
		message: fmt.Sprintf(
			"Field '%s' has %s %d; bounds must be positive",
			loc.Element(), what, value,
		),
		locator: loc,
	}
}

// DependencyFailed reports a file that was not compiled because a file it
// imports failed.
func DependencyFailed(file, dep string) *Error {
	return &Error{
		code:    3024,
		message: fmt.Sprintf("Dependency '%s' failed to compile", dep),
		locator: Locator{File: file},
	}
}
