// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"iter"
	"net/netip"

	"github.com/optionfactory/treebitmap/internal/uint128"
)

// Matches returns an iterator over all prefixes covering addr, in
// ascending order of prefix length, from the shortest match to the
// longest match. The last element is the LongestMatch.
func (t *Table[V]) Matches(addr netip.Addr) iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		if !addr.IsValid() {
			return
		}

		key, is4 := keyFromAddr(addr)

		t.trieByVersion(is4).eachMatch(key, func(bits int, val *V) bool {
			return yield(prefixFromKey(key, bits, is4), *val)
		})
	}
}

// All returns an iterator over all prefixes and values in the table,
// first IPv4 then IPv6, each in natural CIDR sort order:
// ascending address and for equal addresses ascending prefix length.
//
// Prefixes must not be inserted or removed during iteration, otherwise
// the behavior is undefined.
func (t *Table[V]) All() iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		_ = t.trie4.all(valueYield(true, yield)) &&
			t.trie6.all(valueYield(false, yield))
	}
}

// All4 is like [Table.All] but only for the IPv4 prefixes.
func (t *Table[V]) All4() iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		t.trie4.all(valueYield(true, yield))
	}
}

// All6 is like [Table.All] but only for the IPv6 prefixes.
func (t *Table[V]) All6() iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		t.trie6.all(valueYield(false, yield))
	}
}

// AllMut is like [Table.All], but yields pointers to the values in
// the table. The values may be modified, the set of prefixes must
// not be changed during iteration.
//
//	for _, val := range tbl.AllMut() {
//		*val += 10
//	}
func (t *Table[V]) AllMut() iter.Seq2[netip.Prefix, *V] {
	return func(yield func(netip.Prefix, *V) bool) {
		_ = t.trie4.all(pointerYield(true, yield)) &&
			t.trie6.all(pointerYield(false, yield))
	}
}

// Drain moves all prefixes and values out of the table and returns an
// iterator over them, in the same order as [Table.All].
// The table is empty when Drain returns, even if the iteration
// is stopped early or never started.
func (t *Table[V]) Drain() iter.Seq2[netip.Prefix, V] {
	trie4, trie6 := t.trie4, t.trie6
	t.trie4, t.trie6 = trie[V]{}, trie[V]{}

	return func(yield func(netip.Prefix, V) bool) {
		_ = trie4.all(valueYield(true, yield)) &&
			trie6.all(valueYield(false, yield))
	}
}

func valueYield[V any](is4 bool, yield func(netip.Prefix, V) bool) func(uint128.Uint128, int, *V) bool {
	return func(key uint128.Uint128, bits int, val *V) bool {
		return yield(prefixFromKey(key, bits, is4), *val)
	}
}

func pointerYield[V any](is4 bool, yield func(netip.Prefix, *V) bool) func(uint128.Uint128, int, *V) bool {
	return func(key uint128.Uint128, bits int, val *V) bool {
		return yield(prefixFromKey(key, bits, is4), val)
	}
}
