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
	"iter"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// List is the storage of a repeated field declared with the LIST
// container. The zero value is an empty list.
type List[T any] struct {
	list *doublylinkedlist.List
}

func (l *List[T]) lazy() *doublylinkedlist.List {
	if l.list == nil {
		l.list = doublylinkedlist.New()
	}
	return l.list
}

func (l *List[T]) Len() int {
	if l.list == nil {
		return 0
	}
	return l.list.Size()
}

func (l *List[T]) Append(v T) {
	l.lazy().Add(v)
}

func (l *List[T]) Get(idx int) (T, bool) {
	var zero T
	if l.list == nil {
		return zero, false
	}
	v, ok := l.list.Get(idx)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Set replaces the element at idx, reporting whether idx was in range.
func (l *List[T]) Set(idx int, v T) bool {
	if idx < 0 || idx >= l.Len() {
		return false
	}
	l.list.Set(idx, v)
	return true
}

func (l *List[T]) Remove(idx int) {
	if l.list != nil {
		l.list.Remove(idx)
	}
}

func (l *List[T]) Clear() {
	if l.list != nil {
		l.list.Clear()
	}
}

func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if l.list == nil {
			return
		}
		it := l.list.Iterator()
		for it.Next() {
			if !yield(it.Index(), it.Value().(T)) {
				return
			}
		}
	}
}

func (l *List[T]) Values() []T {
	out := make([]T, 0, l.Len())
	for _, v := range l.All() {
		out = append(out, v)
	}
	return out
}
