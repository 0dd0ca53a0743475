// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package golden implements a simple and slow route table, a slice of
// prefixes and values, as golden reference for the tree bitmap tests.
package golden

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"
)

// Table is the golden reference table.
type Table[V any] []Item[V]

// Item of the golden table.
type Item[V any] struct {
	Pfx netip.Prefix
	Val V
}

func (g Item[V]) String() string {
	return fmt.Sprintf("(%s, %v)", g.Pfx, g.Val)
}

// Insert adds pfx with val, returns the old value for a duplicate prefix.
func (t *Table[V]) Insert(pfx netip.Prefix, val V) (old V, replaced bool) {
	pfx = pfx.Masked()
	for i, item := range *t {
		if item.Pfx == pfx {
			old = item.Val
			(*t)[i].Val = val // de-dupe
			return old, true
		}
	}
	*t = append(*t, Item[V]{pfx, val})
	return old, false
}

// Remove deletes pfx and returns its value.
func (t *Table[V]) Remove(pfx netip.Prefix) (val V, exists bool) {
	pfx = pfx.Masked()
	for i, item := range *t {
		if item.Pfx == pfx {
			*t = slices.Delete(*t, i, i+1)
			return item.Val, true
		}
	}
	return val, false
}

// ExactMatch returns the value of pfx.
func (t Table[V]) ExactMatch(pfx netip.Prefix) (val V, ok bool) {
	pfx = pfx.Masked()
	for _, item := range t {
		if item.Pfx == pfx {
			return item.Val, true
		}
	}
	return val, false
}

// LongestMatch returns the longest prefix containing addr.
func (t Table[V]) LongestMatch(addr netip.Addr) (lpm netip.Prefix, val V, ok bool) {
	bestLen := -1

	for _, item := range t {
		if item.Pfx.Contains(addr) && item.Pfx.Bits() > bestLen {
			lpm = item.Pfx
			val = item.Val
			ok = true
			bestLen = item.Pfx.Bits()
		}
	}
	return lpm, val, ok
}

// Matches returns all prefixes containing addr, shortest first.
func (t Table[V]) Matches(addr netip.Addr) []netip.Prefix {
	var result []netip.Prefix

	for _, item := range t {
		if item.Pfx.Contains(addr) {
			result = append(result, item.Pfx)
		}
	}
	slices.SortFunc(result, func(a, b netip.Prefix) int {
		return cmp.Compare(a.Bits(), b.Bits())
	})
	return result
}

// AnyMatchedBy reports whether any prefix overlaps pfx.
func (t Table[V]) AnyMatchedBy(pfx netip.Prefix) bool {
	pfx = pfx.Masked()
	for _, item := range t {
		if item.Pfx.Overlaps(pfx) {
			return true
		}
	}
	return false
}

// AllSorted returns the prefixes in natural CIDR sort order,
// IPv4 before IPv6.
func (t Table[V]) AllSorted() []netip.Prefix {
	var result []netip.Prefix

	for _, item := range t {
		result = append(result, item.Pfx)
	}
	slices.SortFunc(result, CmpPrefix)
	return result
}

// CmpPrefix, helper function, compare func for prefix sort,
// all IPv4 before IPv6, then by address, then by bits.
func CmpPrefix(a, b netip.Prefix) int {
	if a.Addr().Is4() != b.Addr().Is4() {
		if a.Addr().Is4() {
			return -1
		}
		return 1
	}
	if cmp := a.Addr().Compare(b.Addr()); cmp != 0 {
		return cmp
	}
	return cmp.Compare(a.Bits(), b.Bits())
}
