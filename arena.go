// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"slices"

	"github.com/optionfactory/treebitmap/internal/bitmap"
)

// node of the tree bitmap.
//
// The children and the results of a node are not separate allocations,
// they are contiguous blocks in the node and result arena of the trie:
//
//	children: nodes[childOff : childOff+external.Size()]
//	results:  results[resultOff : resultOff+internal.Size()]
//
// The k-th set bit of the bitmap belongs to the k-th item of the block.
// The offset of an empty block is meaningless and reset on first use.
type node struct {
	internal bitmap.Bitmap // prefixes terminating in this stride
	external bitmap.Bitmap // children, by stride value

	resultOff uint32
	childOff  uint32
}

// isEmpty, no prefixes and no children.
func (n *node) isEmpty() bool {
	return n.internal.IsEmpty() && n.external.IsEmpty()
}

// childIndex returns the arena index of the child at external position i.
// Use it only after a successful test of the external bitmap.
func (t *trie[V]) childIndex(n int, i uint) int {
	nd := &t.nodes[n]
	return int(nd.childOff) + nd.external.Rank(i)
}

// resultIndex returns the arena index of the result at internal position i.
// Use it only after a successful test of the internal bitmap.
func (t *trie[V]) resultIndex(n int, i uint) int {
	nd := &t.nodes[n]
	return int(nd.resultOff) + nd.internal.Rank(i)
}

// insertChild creates an empty child node of n at external position i.
//
// All nodes behind the insertion point move one slot up, every other
// child offset at or behind the insertion point is incremented.
// Returns the arena index of the new child and the (maybe moved) index of n.
func (t *trie[V]) insertChild(n int, i uint) (child, parent int) {
	nd := &t.nodes[n]

	var g int
	if nd.external.IsEmpty() {
		// new block, append at the end of the arena
		g = len(t.nodes)
		nd.childOff = uint32(g)
	} else {
		g = int(nd.childOff) + nd.external.Rank(i)
	}
	nd.external.Set(i)

	for k := range t.nodes {
		if k != n && int(t.nodes[k].childOff) >= g {
			t.nodes[k].childOff++
		}
	}

	t.nodes = slices.Insert(t.nodes, g, node{})

	if n >= g {
		n++
	}
	return g, n
}

// deleteChild removes the child node of n at external position i,
// the inverse of insertChild. The child must not own any children
// or results. Returns the arena index the child was removed from.
func (t *trie[V]) deleteChild(n int, i uint) (g int) {
	nd := &t.nodes[n]
	g = int(nd.childOff) + nd.external.Rank(i)
	nd.external.Clear(i)

	t.nodes = slices.Delete(t.nodes, g, g+1)

	for k := range t.nodes {
		if int(t.nodes[k].childOff) > g {
			t.nodes[k].childOff--
		}
	}
	return g
}

// insertResult stores val for node n at internal position i, the
// position must be unset. Every other result offset at or behind the
// insertion point is incremented.
func (t *trie[V]) insertResult(n int, i uint, val V) {
	nd := &t.nodes[n]

	var g int
	if nd.internal.IsEmpty() {
		g = len(t.results)
		nd.resultOff = uint32(g)
	} else {
		g = int(nd.resultOff) + nd.internal.Rank(i)
	}
	nd.internal.Set(i)

	for k := range t.nodes {
		if k != n && int(t.nodes[k].resultOff) >= g {
			t.nodes[k].resultOff++
		}
	}

	t.results = slices.Insert(t.results, g, val)
}

// deleteResult removes and returns the value of node n at internal
// position i, the inverse of insertResult. The tail of the arena is zeroed.
func (t *trie[V]) deleteResult(n int, i uint) (val V) {
	nd := &t.nodes[n]
	g := int(nd.resultOff) + nd.internal.Rank(i)
	nd.internal.Clear(i)

	val = t.results[g]
	t.results = slices.Delete(t.results, g, g+1)

	for k := range t.nodes {
		if int(t.nodes[k].resultOff) > g {
			t.nodes[k].resultOff--
		}
	}
	return val
}
