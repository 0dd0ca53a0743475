// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"fmt"
	"iter"
	"net/netip"
	"testing"

	"github.com/optionfactory/treebitmap/internal/uint128"
)

// this file contains helpers for other test functions

// workLoadN to adjust loops for tests with -short
func workLoadN() int {
	if testing.Short() {
		return 100
	}
	return 1_000
}

// abbreviation
var mpa = netip.MustParseAddr

// abbreviation and panic on non masked input
var mpp = func(s string) netip.Prefix {
	pfx := netip.MustParsePrefix(s)
	if pfx == pfx.Masked() {
		return pfx
	}
	panic(fmt.Sprintf("%s is not canonicalized as %s", s, pfx.Masked()))
}

// key returns the trie key of the address string.
func key(s string) uint128.Uint128 {
	k, _ := keyFromAddr(mpa(s))
	return k
}

// collect the prefixes of a Seq2.
func collect[V any](seq iter.Seq2[netip.Prefix, V]) []netip.Prefix {
	var pfxs []netip.Prefix
	for pfx := range seq {
		pfxs = append(pfxs, pfx)
	}
	return pfxs
}

// count the items of a Seq2.
func count[K, V any](seq iter.Seq2[K, V]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

// mustCheck fails the test if the arena invariants of tbl are broken.
func mustCheck[V any](t *testing.T, tbl *Table[V]) {
	t.Helper()
	if err := tbl.Verify(); err != nil {
		t.Fatal(err)
	}
}
