// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package treebitmap provides an IPv4 and IPv6 routing table
// for longest-prefix-match lookups, implemented as tree bitmap.
//
// The tree bitmap is a multibit trie with a stride of 4 bits. Every
// node holds two bitmaps, the internal bitmap for the prefixes
// terminating in the stride and the external bitmap for the children.
// The children and the values of a node are not separate allocations,
// they are popcount compressed blocks in two arenas per address
// family, one for the nodes and one for the values. The nodes refer
// to their blocks by offset, there are no pointers in the trie.
//
// The arenas are kept dense, every insert and remove shifts the
// arena behind the changed slot. Lookups are a few bitmap operations
// per stride, updates are linear in the size of the arena.
// It suits read-heavy workloads like routing tables or packet filters.
//
// Besides the longest-prefix-match the Table supports exact matches,
// all matches of an address, an early exit test for overlapping
// prefixes and iteration in natural CIDR sort order.
//
// The Table is safe for concurrent readers, any writer needs
// exclusive access, see the concurrent example.
package treebitmap
