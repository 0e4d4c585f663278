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
	"cmp"
	"fmt"
	"iter"

	"github.com/emirpasic/gods/maps"
	"github.com/emirpasic/gods/maps/hashmap"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/maps/treemap"
)

// KeyedKind selects the behaviour of a Keyed container. Hash kinds iterate
// in no particular order, list kinds in insertion order, ordered kinds by
// key. Multi kinds keep every value stored under a key; the others keep
// the last.
type KeyedKind uint8

const (
	HashMap KeyedKind = iota + 1
	MultiHashMap
	HashMapList
	MultiHashMapList
	OrderedMap
	MultiOrderedMap
	HashSet
	MultiHashSet
	HashSetList
	MultiHashSetList
)

var keyedKindNames = [...]string{
	"", "HASH_MAP", "MULTI_HASH_MAP", "HASH_MAP_LIST", "MULTI_HASH_MAP_LIST",
	"ORDERED_MAP", "MULTI_ORDERED_MAP", "HASH_SET", "MULTI_HASH_SET",
	"HASH_SET_LIST", "MULTI_HASH_SET_LIST",
}

func (k KeyedKind) String() string {
	if k > 0 && int(k) < len(keyedKindNames) {
		return keyedKindNames[k]
	}
	return fmt.Sprintf("KeyedKind(%d)", uint8(k))
}

func (k KeyedKind) Multi() bool {
	switch k {
	case MultiHashMap, MultiHashMapList, MultiOrderedMap, MultiHashSet, MultiHashSetList:
		return true
	}
	return false
}

func (k KeyedKind) Ordered() bool {
	return k == OrderedMap || k == MultiOrderedMap
}

func (k KeyedKind) Listed() bool {
	switch k {
	case HashMapList, MultiHashMapList, HashSetList, MultiHashSetList:
		return true
	}
	return false
}

// Keyed is the storage of a repeated message field indexed by one of the
// message's own fields. Sets and maps share one representation: a set
// element is stored under its key like a map value.
type Keyed[K cmp.Ordered, V any] struct {
	kind  KeyedKind
	store maps.Map // K -> []V
	count int
}

func NewKeyed[K cmp.Ordered, V any](kind KeyedKind) *Keyed[K, V] {
	var store maps.Map
	switch {
	case kind.Ordered():
		store = treemap.NewWith(func(a, b interface{}) int {
			return cmp.Compare(a.(K), b.(K))
		})
	case kind.Listed():
		store = linkedhashmap.New()
	default:
		store = hashmap.New()
	}
	return &Keyed[K, V]{kind: kind, store: store}
}

func (m *Keyed[K, V]) Kind() KeyedKind {
	return m.kind
}

// Len returns the number of stored values, counting every value of a
// multi-valued key.
func (m *Keyed[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// LenAfter returns what Len would be after Put(key, ...). A single-valued
// kind does not grow when key is already present.
func (m *Keyed[K, V]) LenAfter(key K) int {
	if m == nil {
		return 1
	}
	if !m.kind.Multi() && m.Has(key) {
		return m.count
	}
	return m.count + 1
}

// Put stores v under key. Single-valued kinds replace any previous value
// and report true when they do.
func (m *Keyed[K, V]) Put(key K, v V) bool {
	prev := m.values(key)
	if m.kind.Multi() {
		m.store.Put(key, append(prev, v))
		m.count++
		return false
	}
	m.store.Put(key, []V{v})
	if len(prev) > 0 {
		return true
	}
	m.count++
	return false
}

func (m *Keyed[K, V]) values(key K) []V {
	if m == nil {
		return nil
	}
	v, ok := m.store.Get(key)
	if !ok {
		return nil
	}
	return v.([]V)
}

// Get returns the first value stored under key.
func (m *Keyed[K, V]) Get(key K) (V, bool) {
	if vs := m.values(key); len(vs) > 0 {
		return vs[0], true
	}
	var zero V
	return zero, false
}

// GetAll returns every value stored under key, in insertion order.
func (m *Keyed[K, V]) GetAll(key K) []V {
	return append([]V(nil), m.values(key)...)
}

func (m *Keyed[K, V]) Has(key K) bool {
	return len(m.values(key)) > 0
}

func (m *Keyed[K, V]) Remove(key K) {
	if vs := m.values(key); len(vs) > 0 {
		m.store.Remove(key)
		m.count -= len(vs)
	}
}

func (m *Keyed[K, V]) Clear() {
	if m == nil {
		return
	}
	m.store.Clear()
	m.count = 0
}

func (m *Keyed[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	raw := m.store.Keys()
	out := make([]K, len(raw))
	for ii, k := range raw {
		out[ii] = k.(K)
	}
	return out
}

// All yields every stored value with its key.
func (m *Keyed[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, key := range m.Keys() {
			for _, v := range m.values(key) {
				if !yield(key, v) {
					return
				}
			}
		}
	}
}
