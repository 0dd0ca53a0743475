// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/optionfactory/treebitmap/internal/bitmap"
	"github.com/optionfactory/treebitmap/internal/tests/random"
)

func newTrie4() *trie[int] {
	t := new(trie[int])
	t.init(width4)
	return t
}

func TestTrieZeroValue(t *testing.T) {
	t.Parallel()

	var tr trie[int]
	if _, ok := tr.remove(key("10.0.0.0"), 8); ok {
		t.Errorf("remove on zero trie must fail")
	}
	if p := tr.exactMatch(key("10.0.0.0"), 8); p != nil {
		t.Errorf("exactMatch on zero trie must fail")
	}
	if _, _, ok := tr.longestMatch(key("10.0.0.0")); ok {
		t.Errorf("longestMatch on zero trie must fail")
	}
	if tr.anyMatchedBy(key("0.0.0.0"), 0) {
		t.Errorf("anyMatchedBy on zero trie must fail")
	}
	if err := tr.check(); err != nil {
		t.Errorf("check on zero trie: %v", err)
	}
}

func TestTrieRootPrefixes(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	// all prefixes shorter than a stride terminate in the root
	tr.insert(key("0.0.0.0"), 0, 0)
	tr.insert(key("128.0.0.0"), 1, 1)
	tr.insert(key("192.0.0.0"), 2, 2)
	tr.insert(key("224.0.0.0"), 3, 3)

	if len(tr.nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(tr.nodes))
	}

	root := tr.nodes[0]
	want := []uint{
		bitmap.PfxToIdx(0, 0),
		bitmap.PfxToIdx(1, 0b1),
		bitmap.PfxToIdx(2, 0b11),
		bitmap.PfxToIdx(3, 0b111),
	}
	if got := root.internal.All(); !slices.Equal(got, want) {
		t.Errorf("root internal bitmap %v, want %v", got, want)
	}

	// the k-th set bit owns the k-th result
	if !slices.Equal(tr.results, []int{0, 1, 2, 3}) {
		t.Errorf("results %v, want [0 1 2 3]", tr.results)
	}
}

func TestTrieStrideBoundary(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	// a /4 terminates at depth 0 of the child, not in the root
	tr.insert(key("160.0.0.0"), 4, 4)

	if len(tr.nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(tr.nodes))
	}
	if !tr.nodes[0].internal.IsEmpty() {
		t.Errorf("root must not hold the /4")
	}
	if !tr.nodes[0].external.Test(0xa) {
		t.Errorf("root must have the child 0xa")
	}
	if !tr.nodes[1].internal.Test(0) {
		t.Errorf("child must hold the /4 at position 0")
	}

	// host route, 8 levels down plus the host level
	tr.insert(key("160.1.2.3"), 32, 32)
	if len(tr.nodes) != 9 {
		t.Errorf("got %d nodes, want 9", len(tr.nodes))
	}
	if err := tr.check(); err != nil {
		t.Fatal(err)
	}
}

func TestTrieCompaction(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	// children of the root are inserted out of order, every
	// insert shifts the blocks of the nodes behind
	for _, s := range []string{"240.0.0.0", "16.0.0.0", "128.0.0.0", "0.0.0.0", "32.0.0.0"} {
		tr.insert(key(s), 12, 12)
		if err := tr.check(); err != nil {
			t.Fatalf("insert %s/12: %v", s, err)
		}
	}

	// the root child block is sorted by stride value
	root := tr.nodes[0]
	want := []uint{0x0, 0x1, 0x2, 0x8, 0xf}
	if got := root.external.All(); !slices.Equal(got, want) {
		t.Errorf("root external bitmap %v, want %v", got, want)
	}

	for k, v := range want {
		if g := tr.childIndex(0, v); g != int(root.childOff)+k {
			t.Errorf("child %#x at %d, want %d", v, g, int(root.childOff)+k)
		}
	}

	// remove in yet another order, dangling nodes are purged
	for _, s := range []string{"128.0.0.0", "240.0.0.0", "0.0.0.0", "32.0.0.0", "16.0.0.0"} {
		if _, ok := tr.remove(key(s), 12); !ok {
			t.Fatalf("remove %s/12 failed", s)
		}
		if err := tr.check(); err != nil {
			t.Fatalf("remove %s/12: %v", s, err)
		}
	}

	if len(tr.nodes) != 1 || len(tr.results) != 0 || tr.size != 0 {
		t.Errorf("empty trie has %d nodes, %d results, size %d", len(tr.nodes), len(tr.results), tr.size)
	}
}

func TestTrieResultShift(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	// results of different nodes interleave in the result arena
	tr.insert(key("10.0.0.0"), 8, 8)
	tr.insert(key("10.0.0.0"), 16, 16)
	tr.insert(key("0.0.0.0"), 0, 0)
	tr.insert(key("10.0.0.0"), 12, 12)
	tr.insert(key("8.0.0.0"), 6, 6)

	if err := tr.check(); err != nil {
		t.Fatal(err)
	}

	for _, bits := range []int{0, 8, 12, 16} {
		p := tr.exactMatch(key("10.0.0.0"), bits)
		if p == nil || *p != bits {
			t.Errorf("exactMatch 10.0.0.0/%d = %v, want %d", bits, p, bits)
		}
	}
	if p := tr.exactMatch(key("8.0.0.0"), 6); p == nil || *p != 6 {
		t.Errorf("exactMatch 8.0.0.0/6 = %v, want 6", p)
	}

	if val, ok := tr.remove(key("0.0.0.0"), 0); !ok || val != 0 {
		t.Errorf("remove 0.0.0.0/0 = (%d, %v)", val, ok)
	}
	if err := tr.check(); err != nil {
		t.Fatal(err)
	}
	if p := tr.exactMatch(key("10.0.0.0"), 12); p == nil || *p != 12 {
		t.Errorf("exactMatch 10.0.0.0/12 after shift = %v, want 12", p)
	}
}

func TestTrieInsertDuplicate(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	if _, exists := tr.insert(key("10.0.0.0"), 8, 1); exists {
		t.Errorf("first insert must not exist")
	}
	nodes := len(tr.nodes)

	old, exists := tr.insert(key("10.0.0.0"), 8, 2)
	if !exists || old != 1 {
		t.Errorf("insert duplicate = (%d, %v), want (1, true)", old, exists)
	}
	if len(tr.nodes) != nodes || tr.size != 1 {
		t.Errorf("replace must not change the trie shape")
	}
}

func TestTrieRemoveKeepsSharedPath(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	tr.insert(key("2.93.185.24"), 32, 1)
	tr.insert(key("2.93.200.133"), 32, 2)
	nodes := len(tr.nodes)

	// missing prefix on an existing path
	if _, ok := tr.remove(key("2.93.185.0"), 24); ok {
		t.Errorf("remove of missing prefix must fail")
	}
	if len(tr.nodes) != nodes {
		t.Errorf("failed remove changed the trie")
	}

	if _, ok := tr.remove(key("2.93.185.24"), 32); !ok {
		t.Fatalf("remove failed")
	}
	if err := tr.check(); err != nil {
		t.Fatal(err)
	}
	if p := tr.exactMatch(key("2.93.200.133"), 32); p == nil || *p != 2 {
		t.Errorf("sibling lost after remove")
	}

	if _, ok := tr.remove(key("2.93.200.133"), 32); !ok {
		t.Fatalf("remove failed")
	}
	if len(tr.nodes) != 1 {
		t.Errorf("got %d nodes, want only the root", len(tr.nodes))
	}
}

func TestTrieDeadNodeIsDeadEnd(t *testing.T) {
	t.Parallel()
	tr := newTrie4()

	tr.insert(key("10.0.0.0"), 8, 8)
	tr.insert(key("10.1.0.0"), 16, 16)

	// simulate an unpruned node: clear the prefix by hand
	n := tr.childIndex(0, 0x0)
	n = tr.childIndex(n, 0xa)
	n = tr.childIndex(n, 0x0)
	n = tr.childIndex(n, 0x1)
	tr.deleteResult(n, 0)
	tr.size--

	if !tr.nodes[n].isEmpty() {
		t.Fatalf("node must be empty")
	}

	bits, val, ok := tr.longestMatch(key("10.1.2.3"))
	if !ok || bits != 8 || *val != 8 {
		t.Errorf("longestMatch through dead node = (%d, %v, %v), want /8", bits, val, ok)
	}
	if tr.anyMatchedBy(key("10.1.0.0"), 16) != true {
		t.Errorf("anyMatchedBy must see the covering /8")
	}

	// the checker must report the dead node
	if err := tr.check(); err == nil {
		t.Errorf("check must fail for dangling empty node")
	}
}

func TestTrieRandomWorkload(t *testing.T) {
	t.Parallel()
	prng := rand.New(rand.NewPCG(42, 42))

	tr4, tr6 := newTrie4(), new(trie[int])
	tr6.init(width6)

	pfxs := random.Prefixes(prng, workLoadN())
	for i, pfx := range pfxs {
		k, is4 := keyFromAddr(pfx.Addr())
		tr := tr6
		if is4 {
			tr = tr4
		}
		tr.insert(k, pfx.Bits(), i)
	}

	if err := tr4.check(); err != nil {
		t.Fatal(err)
	}
	if err := tr6.check(); err != nil {
		t.Fatal(err)
	}

	prng.Shuffle(len(pfxs), func(i, j int) { pfxs[i], pfxs[j] = pfxs[j], pfxs[i] })

	for i, pfx := range pfxs {
		k, is4 := keyFromAddr(pfx.Addr())
		tr := tr6
		if is4 {
			tr = tr4
		}
		if _, ok := tr.remove(k, pfx.Bits()); !ok {
			t.Fatalf("remove %s failed", pfx)
		}

		// checking is O(n), only every few steps
		if i%17 == 0 {
			if err := tr.check(); err != nil {
				t.Fatalf("after remove %s: %v", pfx, err)
			}
		}
	}

	for _, tr := range []*trie[int]{tr4, tr6} {
		if len(tr.nodes) != 1 || len(tr.results) != 0 || tr.size != 0 {
			t.Errorf("drained trie has %d nodes, %d results, size %d", len(tr.nodes), len(tr.results), tr.size)
		}
	}
}

func TestTrieClone(t *testing.T) {
	t.Parallel()
	tr := newTrie4()
	tr.insert(key("10.0.0.0"), 8, 8)

	c := tr.clone(copyVal[int])
	c.insert(key("10.0.0.0"), 16, 16)
	*c.exactMatch(key("10.0.0.0"), 8) = 88

	if tr.size != 1 || *tr.exactMatch(key("10.0.0.0"), 8) != 8 {
		t.Errorf("clone is not independent of the source")
	}
	if err := c.check(); err != nil {
		t.Fatal(err)
	}
}
