// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

// Stats holds the sizes of the tree bitmap of one address family.
type Stats struct {
	Prefixes int // number of stored prefixes
	Nodes    int // number of trie nodes, including the root

	// allocated slots of the node and result arena
	NodeCap   int
	ResultCap int
}

// Stats returns the sizes of the IPv4 and IPv6 tree bitmaps.
func (t *Table[V]) Stats() (s4, s6 Stats) {
	return t.trie4.stats(), t.trie6.stats()
}

func (t *trie[V]) stats() Stats {
	return Stats{
		Prefixes:  t.size,
		Nodes:     len(t.nodes),
		NodeCap:   cap(t.nodes),
		ResultCap: cap(t.results),
	}
}
