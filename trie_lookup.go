// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"github.com/optionfactory/treebitmap/internal/bitmap"
	"github.com/optionfactory/treebitmap/internal/uint128"
)

// lookupMask returns the stride value at offset and the internal
// positions of all prefixes in the node covering the address.
//
// For a full stride the address may continue in the child at value,
// for a partial or empty last stride the descent stops here.
func (t *trie[V]) lookupMask(key uint128.Uint128, offset int) (value uint, mask bitmap.Bitmap, full bool) {
	rest := min(stride, t.width-offset)
	value = key.Bits(uint(offset), uint(rest))

	if rest == stride {
		return value, bitmap.PathMask(value), true
	}
	return value, bitmap.CoverMask(bitmap.PfxToIdx(uint(rest), value)), false
}

// longestMatch returns the length and a pointer to the value
// of the longest prefix covering key.
//
// At every node the deepest matching prefix in the stride is the
// top set bit of internal & mask, a match in a deeper node is always
// longer than all matches in the nodes above.
func (t *trie[V]) longestMatch(key uint128.Uint128) (bits int, val *V, ok bool) {
	if t.nodes == nil {
		return
	}

	n := 0
	offset := 0

	for {
		nd := &t.nodes[n]
		value, mask, full := t.lookupMask(key, offset)

		if top, found := (nd.internal & mask).Top(); found {
			depth, _ := bitmap.IdxToPfx(top)
			bits = offset + int(depth)
			val = &t.results[t.resultIndex(n, top)]
			ok = true
		}

		if !full || !nd.external.Test(value) {
			return
		}

		n = t.childIndex(n, value)
		offset += stride
	}
}

// eachMatch calls yield for every prefix covering key, from the
// shortest to the longest prefix. Stops early if yield returns false.
func (t *trie[V]) eachMatch(key uint128.Uint128, yield func(bits int, val *V) bool) bool {
	if t.nodes == nil {
		return true
	}

	n := 0
	offset := 0

	for {
		nd := &t.nodes[n]
		value, mask, full := t.lookupMask(key, offset)

		// ascending positions in the path are ascending depths
		for m := nd.internal & mask; !m.IsEmpty(); {
			idx, _ := m.First()
			m.Clear(idx)

			depth, _ := bitmap.IdxToPfx(idx)
			if !yield(offset+int(depth), &t.results[t.resultIndex(n, idx)]) {
				return false
			}
		}

		if !full || !nd.external.Test(value) {
			return true
		}

		n = t.childIndex(n, value)
		offset += stride
	}
}

// anyMatchedBy reports whether any prefix in the trie overlaps the
// prefix key/bits: a prefix covering it or a prefix covered by it.
// The key must be masked.
func (t *trie[V]) anyMatchedBy(key uint128.Uint128, bits int) bool {
	if t.nodes == nil {
		return false
	}

	n := 0
	offset := 0

	for bits-offset >= stride {
		nd := &t.nodes[n]
		v := key.Bits(uint(offset), stride)

		// shorter prefixes in this stride covering the window
		if nd.internal&bitmap.PathMask(v) != 0 {
			return true
		}

		if !nd.external.Test(v) {
			return false
		}

		n = t.childIndex(n, v)
		offset += stride
	}

	nd := &t.nodes[n]
	depth := uint(bits - offset)
	idx := bitmap.PfxToIdx(depth, key.Bits(uint(offset), depth))

	// prefixes covering the window or covered by the window in this stride
	if nd.internal&(bitmap.CoverMask(idx)|bitmap.SubtreeMask(idx)) != 0 {
		return true
	}

	// prefixes in the children below the window
	for _, v := range (nd.external & bitmap.ChildMask(idx)).All() {
		if t.hasPrefixes(t.childIndex(n, v)) {
			return true
		}
	}

	return false
}

// hasPrefixes reports whether any prefix is stored at or below node n.
func (t *trie[V]) hasPrefixes(n int) bool {
	nd := &t.nodes[n]
	if !nd.internal.IsEmpty() {
		return true
	}

	for _, v := range nd.external.All() {
		if t.hasPrefixes(t.childIndex(n, v)) {
			return true
		}
	}
	return false
}
