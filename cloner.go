// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

// Cloner is an interface that enables deep cloning of values of type V.
// If a value implements Cloner[V], Table.Clone will use its Clone
// method to perform deep copies.
type Cloner[V any] interface {
	Clone() V
}

// Clone returns a copy of the routing table.
// The payload of type V is shallow copied, but if type V implements
// the Cloner interface, the values are cloned.
//
// The arenas are plain slices without pointers between the nodes,
// a clone is a copy of two slices per address family.
func (t *Table[V]) Clone() *Table[V] {
	if t == nil {
		return nil
	}

	cloneFn := cloneFnFactory[V]()

	return &Table[V]{
		trie4: t.trie4.clone(cloneFn),
		trie6: t.trie6.clone(cloneFn),
	}
}

// cloneFnFactory returns cloneVal if V implements Cloner[V],
// otherwise copyVal.
func cloneFnFactory[V any]() func(V) V {
	var zero V
	// you can't assert directly on a type parameter
	if _, ok := any(zero).(Cloner[V]); ok {
		return cloneVal[V]
	}
	return copyVal[V]
}

// cloneVal returns a deep clone of val by calling its Clone method when
// val implements Cloner[V]. If the asserted Cloner is nil, val is
// returned unchanged.
func cloneVal[V any](val V) V {
	// you can't assert directly on a type parameter
	c, ok := any(val).(Cloner[V])
	if !ok || c == nil {
		return val
	}
	return c.Clone()
}

// copyVal just copies the value.
func copyVal[V any](val V) V {
	return val
}
