// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"net/netip"
)

// Table is an IPv4 and IPv6 routing table with payload V.
// The zero value is ready to use.
//
// The Table holds one tree bitmap per address family and dispatches
// every call by the family of the address. IPv4-mapped IPv6 addresses
// belong to the IPv6 table.
//
// The Table is safe for concurrent readers but not for concurrent readers
// and/or writers. Insert and Remove move the arenas of the whole family,
// every mutation needs exclusive access to the Table. A Table holds no
// external resources and may be handed over to another goroutine.
type Table[V any] struct {
	// the tree bitmaps, one per address family
	trie4 trie[V]
	trie6 trie[V]
}

// New returns an empty Table, same as new(Table[V]).
func New[V any]() *Table[V] {
	return new(Table[V])
}

// trieByVersion, trie getter for ip version.
func (t *Table[V]) trieByVersion(is4 bool) *trie[V] {
	if is4 {
		return &t.trie4
	}
	return &t.trie6
}

// Insert adds addr/bits to the table with value val. If the prefix is
// already present its value is replaced and the old value is returned
// with replaced set to true.
//
// It returns an error wrapping ErrInvalidPrefix if bits is out of range
// or addr has bits set behind the prefix length, the table is unchanged.
func (t *Table[V]) Insert(addr netip.Addr, bits int, val V) (old V, replaced bool, err error) {
	key, is4, err := normalize(addr, bits)
	if err != nil {
		return old, false, err
	}

	tr := t.trieByVersion(is4)
	tr.init(widthOf(is4))

	old, replaced = tr.insert(key, bits, val)
	return old, replaced, nil
}

// InsertPrefix is like Insert for a netip.Prefix.
func (t *Table[V]) InsertPrefix(pfx netip.Prefix, val V) (old V, replaced bool, err error) {
	return t.Insert(pfx.Addr(), pfx.Bits(), val)
}

// Remove deletes addr/bits from the table and returns its value and true.
// Removing a prefix not in the table is a no-op, ok is false.
//
// It returns an error wrapping ErrInvalidPrefix like Insert.
func (t *Table[V]) Remove(addr netip.Addr, bits int) (val V, ok bool, err error) {
	key, is4, err := normalize(addr, bits)
	if err != nil {
		return val, false, err
	}

	val, ok = t.trieByVersion(is4).remove(key, bits)
	return val, ok, nil
}

// ExactMatch returns the value of exactly addr/bits and true,
// or false if the prefix is not in the table.
//
// It returns an error wrapping ErrInvalidPrefix like Insert.
func (t *Table[V]) ExactMatch(addr netip.Addr, bits int) (val V, ok bool, err error) {
	p, err := t.ExactMatchMut(addr, bits)
	if err != nil || p == nil {
		return val, false, err
	}
	return *p, true, nil
}

// ExactMatchMut is like ExactMatch, but returns a pointer to the value
// in the table, or nil if the prefix is not in the table.
//
// The pointer is valid until the next Insert or Remove.
func (t *Table[V]) ExactMatchMut(addr netip.Addr, bits int) (*V, error) {
	key, is4, err := normalize(addr, bits)
	if err != nil {
		return nil, err
	}
	return t.trieByVersion(is4).exactMatch(key, bits), nil
}

// LongestMatch returns the longest prefix covering addr, the
// associated value and true, or false if no prefix matched.
func (t *Table[V]) LongestMatch(addr netip.Addr) (pfx netip.Prefix, val V, ok bool) {
	pfx, p, ok := t.LongestMatchMut(addr)
	if !ok {
		return pfx, val, false
	}
	return pfx, *p, true
}

// LongestMatchMut is like LongestMatch, but returns a pointer to the
// value in the table. The pointer is valid until the next Insert or Remove.
func (t *Table[V]) LongestMatchMut(addr netip.Addr) (pfx netip.Prefix, val *V, ok bool) {
	if !addr.IsValid() {
		return
	}

	key, is4 := keyFromAddr(addr)

	bits, val, ok := t.trieByVersion(is4).longestMatch(key)
	if !ok {
		return
	}
	return prefixFromKey(key, bits, is4), val, true
}

// AnyMatchedBy reports whether any prefix in the table overlaps the
// CIDR addr/bits, either a prefix covering it or a prefix within it.
// It's an early exit variant of Matches and the Subnets of addr/bits.
//
// The window is masked to bits, a bits value out of range is clamped
// to the address width. An invalid addr or negative bits is false.
func (t *Table[V]) AnyMatchedBy(addr netip.Addr, bits int) bool {
	if !addr.IsValid() || bits < 0 {
		return false
	}

	key, is4 := keyFromAddr(addr)
	bits = min(bits, widthOf(is4))

	return t.trieByVersion(is4).anyMatchedBy(key.Masked(bits), bits)
}

// Len returns the number of prefixes in the table.
func (t *Table[V]) Len() int {
	return t.trie4.size + t.trie6.size
}

// Len4 returns the number of IPv4 prefixes in the table.
func (t *Table[V]) Len4() int {
	return t.trie4.size
}

// Len6 returns the number of IPv6 prefixes in the table.
func (t *Table[V]) Len6() int {
	return t.trie6.size
}
