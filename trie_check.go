// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/optionfactory/treebitmap/internal/bitmap"
	"github.com/pkg/errors"
)

// Verify checks the arena invariants of both address families and
// returns the first violation. A Table modified only through its
// methods always passes, Verify is meant for tests and tooling.
func (t *Table[V]) Verify() error {
	if err := t.trie4.check(); err != nil {
		return errors.WithMessage(err, "ipv4")
	}
	if err := t.trie6.check(); err != nil {
		return errors.WithMessage(err, "ipv6")
	}
	return nil
}

// check validates the arena invariants of the trie:
//
//   - every node but the root is owned by exactly one parent
//   - every result is owned by exactly one node
//   - the blocks are within the arenas
//   - no node below the root is empty
//   - no prefix or child exceeds the address width
//   - the size matches the number of results
func (t *trie[V]) check() error {
	if t.nodes == nil {
		if len(t.results) != 0 || t.size != 0 {
			return errors.Errorf("empty trie with %d results and size %d", len(t.results), t.size)
		}
		return nil
	}

	c := checker[V]{
		trie:         t,
		nodesOwned:   bitset.New(uint(len(t.nodes))),
		resultsOwned: bitset.New(uint(len(t.results))),
	}

	c.nodesOwned.Set(0)
	if err := c.checkRec(0, 0); err != nil {
		return err
	}

	if cnt := c.nodesOwned.Count(); cnt != uint(len(t.nodes)) {
		return errors.Errorf("%d of %d nodes are unreachable", uint(len(t.nodes))-cnt, len(t.nodes))
	}

	if cnt := c.resultsOwned.Count(); cnt != uint(len(t.results)) {
		return errors.Errorf("%d of %d results are not owned by any node", uint(len(t.results))-cnt, len(t.results))
	}

	if t.size != len(t.results) {
		return errors.Errorf("size %d, but %d results", t.size, len(t.results))
	}

	return nil
}

type checker[V any] struct {
	trie         *trie[V]
	nodesOwned   *bitset.BitSet
	resultsOwned *bitset.BitSet
}

func (c *checker[V]) checkRec(n int, offset int) error {
	t := c.trie
	nd := t.nodes[n]

	if n != 0 && nd.isEmpty() {
		return errors.Errorf("node %d at offset %d: dangling empty node", n, offset)
	}

	if nd.internal.Test(bitmap.InternalSize) {
		return errors.Errorf("node %d: invalid internal position %d", n, bitmap.InternalSize)
	}

	// prefixes and children must fit in the address width
	if rest := t.width - offset; rest < stride {
		if !nd.external.IsEmpty() {
			return errors.Errorf("node %d at offset %d: children behind the address width", n, offset)
		}
		for _, idx := range nd.internal.All() {
			if depth, _ := bitmap.IdxToPfx(idx); int(depth) > rest {
				return errors.Errorf("node %d at offset %d: prefix length %d exceeds width %d", n, offset, offset+int(depth), t.width)
			}
		}
	}

	if size := nd.internal.Size(); size > 0 {
		lo, hi := int(nd.resultOff), int(nd.resultOff)+size
		if hi > len(t.results) {
			return errors.Errorf("node %d: result block [%d:%d] out of bounds %d", n, lo, hi, len(t.results))
		}
		for g := lo; g < hi; g++ {
			if c.resultsOwned.Test(uint(g)) {
				return errors.Errorf("node %d: result %d is owned twice", n, g)
			}
			c.resultsOwned.Set(uint(g))
		}
	}

	if size := nd.external.Size(); size > 0 {
		lo, hi := int(nd.childOff), int(nd.childOff)+size
		if lo == 0 || hi > len(t.nodes) {
			return errors.Errorf("node %d: child block [%d:%d] out of bounds %d", n, lo, hi, len(t.nodes))
		}
		for g := lo; g < hi; g++ {
			if c.nodesOwned.Test(uint(g)) {
				return errors.Errorf("node %d: child %d is owned twice", n, g)
			}
			c.nodesOwned.Set(uint(g))
		}
		for g := lo; g < hi; g++ {
			if err := c.checkRec(g, offset+stride); err != nil {
				return err
			}
		}
	}

	return nil
}
