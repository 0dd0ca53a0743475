// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"github.com/optionfactory/treebitmap/internal/bitmap"
	"github.com/optionfactory/treebitmap/internal/uint128"
)

const (
	stride = bitmap.Stride

	// max number of nodes on a path, the extra level holds
	// the host routes at depth 0 of the last node.
	maxTreeDepth = width6/stride + 1
)

// trie is the tree bitmap for one address family.
//
// The trie owns the node and the result arena exclusively,
// nodes[0] is the root node. The zero value is an empty trie,
// the root is created with the first insert.
type trie[V any] struct {
	nodes   []node
	results []V

	// address width in bits, 32 or 128
	width int

	// number of stored prefixes
	size int
}

// init the root node and the address width.
func (t *trie[V]) init(width int) {
	if t.nodes == nil {
		t.nodes = append(t.nodes, node{})
		t.width = width
	}
}

// insert val for the prefix key/bits. Returns the old value and true if
// the prefix was already present.
//
// The key must be normalized, bits <= width.
func (t *trie[V]) insert(key uint128.Uint128, bits int, val V) (old V, exists bool) {
	n := 0
	offset := 0

	// descend with full strides, create missing children on the way
	for bits-offset >= stride {
		v := key.Bits(uint(offset), stride)

		if t.nodes[n].external.Test(v) {
			n = t.childIndex(n, v)
		} else {
			n, _ = t.insertChild(n, v)
		}

		offset += stride
	}

	// the prefix terminates in this node
	depth := uint(bits - offset)
	idx := bitmap.PfxToIdx(depth, key.Bits(uint(offset), depth))

	if t.nodes[n].internal.Test(idx) {
		g := t.resultIndex(n, idx)
		old = t.results[g]
		t.results[g] = val
		return old, true
	}

	t.insertResult(n, idx, val)
	t.size++

	return old, false
}

// remove the prefix key/bits and return its value. Nodes left
// without prefixes and children are purged from the trie.
func (t *trie[V]) remove(key uint128.Uint128, bits int) (val V, exists bool) {
	if t.nodes == nil {
		return
	}

	// the traversed path, needed to purge dangling nodes
	var stack [maxTreeDepth]int
	var branch [maxTreeDepth]uint

	n := 0
	offset := 0
	depth := 0

	for bits-offset >= stride {
		v := key.Bits(uint(offset), stride)
		if !t.nodes[n].external.Test(v) {
			return
		}

		stack[depth] = n
		branch[depth] = v
		depth++

		n = t.childIndex(n, v)
		offset += stride
	}

	pfxDepth := uint(bits - offset)
	idx := bitmap.PfxToIdx(pfxDepth, key.Bits(uint(offset), pfxDepth))

	if !t.nodes[n].internal.Test(idx) {
		return
	}

	val = t.deleteResult(n, idx)
	t.size--

	// purge the dangling path bottom up, never the root
	for depth > 0 && t.nodes[n].isEmpty() {
		depth--

		g := t.deleteChild(stack[depth], branch[depth])

		// the arena has shrunk, correct the recorded path
		for k := range depth + 1 {
			if stack[k] > g {
				stack[k]--
			}
		}

		n = stack[depth]
	}

	return val, true
}

// exactMatch returns a pointer to the value of the prefix key/bits,
// or nil if the prefix is not in the trie. The pointer is valid
// until the next insert or remove.
func (t *trie[V]) exactMatch(key uint128.Uint128, bits int) *V {
	if t.nodes == nil {
		return nil
	}

	n := 0
	offset := 0

	for bits-offset >= stride {
		v := key.Bits(uint(offset), stride)
		if !t.nodes[n].external.Test(v) {
			return nil
		}

		n = t.childIndex(n, v)
		offset += stride
	}

	depth := uint(bits - offset)
	idx := bitmap.PfxToIdx(depth, key.Bits(uint(offset), depth))

	if !t.nodes[n].internal.Test(idx) {
		return nil
	}
	return &t.results[t.resultIndex(n, idx)]
}

// clone returns a copy of the trie, the values are copied with cloneFn.
func (t *trie[V]) clone(cloneFn func(V) V) trie[V] {
	c := trie[V]{
		width: t.width,
		size:  t.size,
	}

	if t.nodes == nil {
		return c
	}

	c.nodes = append(make([]node, 0, len(t.nodes)), t.nodes...)
	c.results = make([]V, len(t.results))
	for i, val := range t.results {
		c.results[i] = cloneFn(val)
	}

	return c
}
