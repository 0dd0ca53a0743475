// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"net/netip"
	"strings"
)

// kid is a prefix in the CIDR coverage tree, the kids are the
// prefixes directly covered by it.
type kid[V any] struct {
	cidr netip.Prefix
	val  V
	kids []*kid[V]
}

// MarshalText implements the [encoding.TextMarshaler] interface,
// just a wrapper for [Table.Fprint].
func (t *Table[V]) MarshalText() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := t.Fprint(w); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// String returns a hierarchical tree diagram of the ordered CIDRs
// as string, just a wrapper for [Table.Fprint].
// If Fprint returns an error, String panics.
func (t *Table[V]) String() string {
	w := new(strings.Builder)
	if err := t.Fprint(w); err != nil {
		panic(err)
	}

	return w.String()
}

// Fprint writes a hierarchical tree diagram of the ordered CIDRs
// with default formatted payload V to w.
//
// The order from top to bottom is in ascending order of the prefix address
// and the subtree structure is determined by the CIDRs coverage.
//
//	▼
//	├─ 10.0.0.0/8 (V)
//	│  ├─ 10.0.0.0/24 (V)
//	│  └─ 10.0.1.0/24 (V)
//	├─ 127.0.0.0/8 (V)
//	│  └─ 127.0.0.1/32 (V)
//	└─ 192.168.0.0/16 (V)
//	   └─ 192.168.1.0/24 (V)
//	▼
//	└─ ::/0 (V)
//	   ├─ ::1/128 (V)
//	   ├─ 2000::/3 (V)
//	   │  └─ 2001:db8::/32 (V)
//	   └─ fe80::/10 (V)
func (t *Table[V]) Fprint(w io.Writer) error {
	if err := fprint(w, t.All4()); err != nil {
		return err
	}

	return fprint(w, t.All6())
}

// fprint writes the tree of one address family, nothing for an empty trie.
func fprint[V any](w io.Writer, seq iter.Seq2[netip.Prefix, V]) error {
	root := coverageTree(seq)
	if len(root.kids) == 0 {
		return nil
	}

	if _, err := fmt.Fprint(w, "▼\n"); err != nil {
		return err
	}

	return root.fprintRec(w, "")
}

// coverageTree hangs every prefix below its longest covering prefix.
// The prefixes must be in natural CIDR sort order, then all covering
// prefixes of the next one are on the stack.
func coverageTree[V any](seq iter.Seq2[netip.Prefix, V]) *kid[V] {
	root := new(kid[V])
	stack := []*kid[V]{root}

	for pfx, val := range seq {
		for len(stack) > 1 && !stack[len(stack)-1].cidr.Contains(pfx.Addr()) {
			stack = stack[:len(stack)-1]
		}

		k := &kid[V]{cidr: pfx, val: val}
		parent := stack[len(stack)-1]
		parent.kids = append(parent.kids, k)
		stack = append(stack, k)
	}

	return root
}

// fprintRec, the output is a hierarchical CIDR tree below this kid.
func (k *kid[V]) fprintRec(w io.Writer, pad string) error {
	// symbols used in tree
	glyphe := "├─ "
	spacer := "│  "

	for i, kid := range k.kids {
		// ... treat last kid special
		if i == len(k.kids)-1 {
			glyphe = "└─ "
			spacer = "   "
		}

		if _, err := fmt.Fprintf(w, "%s%s (%v)\n", pad+glyphe, kid.cidr, kid.val); err != nil {
			return err
		}

		if err := kid.fprintRec(w, pad+spacer); err != nil {
			return err
		}
	}

	return nil
}
