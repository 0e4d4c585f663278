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
	"slices"

	"go.fixpb.dev/fixpb/layout"
)

// sortMessages orders messages so that each follows every message it embeds
// by value. Each round emits all messages whose dependencies are emitted, in
// declaration order. Leftover messages lie on or behind a value cycle.
func (c *compiler) sortMessages(msgs []*layout.Message) []*layout.Message {
	pending := make(map[string]map[string]bool, len(msgs))
	for _, msg := range msgs {
		deps := make(map[string]bool, len(msg.Deps))
		for _, dep := range msg.Deps {
			deps[dep] = true
		}
		pending[msg.FullName] = deps
	}

	order := make([]*layout.Message, 0, len(msgs))
	remaining := msgs
	for len(remaining) > 0 {
		var ready, blocked []*layout.Message
		for _, msg := range remaining {
			if len(pending[msg.FullName]) == 0 {
				ready = append(ready, msg)
			} else {
				blocked = append(blocked, msg)
			}
		}
		if len(ready) == 0 {
			c.reportCycle(blocked, pending)
			return nil
		}
		for _, msg := range ready {
			for _, other := range blocked {
				delete(pending[other.FullName], msg.FullName)
			}
		}
		order = append(order, ready...)
		remaining = blocked
	}
	return order
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

func (c *compiler) reportCycle(blocked []*layout.Message, pending map[string]map[string]bool) {
	byName := make(map[string]*layout.Message, len(blocked))
	for _, msg := range blocked {
		byName[msg.FullName] = msg
	}
	next := func(name string) []string {
		var out []string
		for _, dep := range byName[name].Deps {
			if pending[name][dep] {
				out = append(out, dep)
			}
		}
		return out
	}
	for _, msg := range blocked {
		if path := findCycle(msg.FullName, next); path != nil {
			c.err(errValueCycle(path, c.messageLocator(path[0])))
			return
		}
	}
}

// findCycle walks edges depth-first from start and returns the first cycle
// found, as a path that begins and ends with the same name.
func findCycle(start string, next func(string) []string) []string {
	states := make(map[string]visitState)
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		switch states[name] {
		case stateVisiting:
			idx := slices.Index(stack, name)
			return append(slices.Clone(stack[idx:]), name)
		case stateDone:
			return nil
		}
		states[name] = stateVisiting
		stack = append(stack, name)
		for _, dep := range next(name) {
			if path := visit(dep); path != nil {
				return path
			}
		}
		stack = stack[:len(stack)-1]
		states[name] = stateDone
		return nil
	}
	return visit(start)
}
