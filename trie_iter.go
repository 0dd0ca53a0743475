// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"github.com/optionfactory/treebitmap/internal/bitmap"
	"github.com/optionfactory/treebitmap/internal/uint128"
)

// all calls yield for every prefix in the trie in natural CIDR sort
// order, ascending address and for equal addresses ascending length.
// Stops early if yield returns false.
//
// The values may be modified through the pointer, the prefixes
// must not be changed during the walk.
func (t *trie[V]) all(yield func(key uint128.Uint128, bits int, val *V) bool) bool {
	if t.nodes == nil {
		return true
	}
	return t.walk(0, uint128.Uint128{}, 0, 0, 0, yield)
}

// walk the complete binary tree of node n in pre-order, starting at
// the prefix depth/value of the stride. The children hang below the
// last depth of the stride and are visited in stride value order,
// in between the prefixes of the stride.
//
//	0/0, 0/1, 0/2, 0/3, child 0, child 1, 2/3, child 2, child 3, 1/2, ...
//
// Subtrees without prefixes and children are skipped.
func (t *trie[V]) walk(n int, path uint128.Uint128, offset int, depth, value uint, yield func(uint128.Uint128, int, *V) bool) bool {
	nd := t.nodes[n]
	idx := bitmap.PfxToIdx(depth, value)

	if nd.internal.Test(idx) {
		key := path.SetBits(uint(offset), depth, value)
		if !yield(key, offset+int(depth), &t.results[t.resultIndex(n, idx)]) {
			return false
		}
	}

	if depth == stride-1 {
		for v := value << 1; v <= value<<1|1; v++ {
			if !nd.external.Test(v) {
				continue
			}
			child := t.childIndex(n, v)
			if !t.walk(child, path.SetBits(uint(offset), stride, v), offset+stride, 0, 0, yield) {
				return false
			}
		}
		return true
	}

	for v := value << 1; v <= value<<1|1; v++ {
		sub := bitmap.PfxToIdx(depth+1, v)
		if nd.internal&bitmap.SubtreeMask(sub) == 0 && nd.external&bitmap.ChildMask(sub) == 0 {
			continue
		}
		if !t.walk(n, path, offset, depth+1, v, yield) {
			return false
		}
	}
	return true
}
