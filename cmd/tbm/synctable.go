// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package main

import (
	"net/netip"
	"sync/atomic"

	"github.com/optionfactory/treebitmap"
)

// SyncTable publishes a read-only table to concurrent readers.
//
// Readers load the current table lock free. A reload builds a complete
// new table and publishes it atomically, a published table is never
// modified, so there is no read-modify-write to serialize.
type SyncTable struct {
	atomic.Pointer[treebitmap.Table[string]]
}

// NewSyncTable publishes tbl, the caller must not modify tbl afterwards.
func NewSyncTable(tbl *treebitmap.Table[string]) *SyncTable {
	st := new(SyncTable)
	st.Store(tbl)
	return st
}

// Replace publishes tbl, the caller must not modify tbl afterwards.
func (st *SyncTable) Replace(tbl *treebitmap.Table[string]) {
	st.Store(tbl)
}

func (st *SyncTable) LongestMatch(ip netip.Addr) (netip.Prefix, string, bool) {
	return st.Load().LongestMatch(ip)
}

// Stats of the current table, for the metrics collector.
func (st *SyncTable) Stats() (s4, s6 treebitmap.Stats) {
	return st.Load().Stats()
}
