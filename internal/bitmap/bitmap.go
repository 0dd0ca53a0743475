// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package bitmap implements the node bitmaps of the tree bitmap and
// the mapping between prefixes in a stride and bitmap positions.
//
// A stride of 4 bits spans a complete binary tree (CBT) of prefixes
// with depths 0..3 within the node, numbered in level order:
//
//	depth 0:                   0
//	depth 1:           1               2
//	depth 2:       3       4       5       6
//	depth 3:     7   8   9  10  11  12  13  14
//
// PfxToIdx(depth, value) is 1<<depth - 1 + value. Prefixes with a
// length of exactly 4 bits are not part of the node, they terminate
// at depth 0 of the child node reached by the full stride value.
//
// The internal bitmap of a node records the terminating prefixes
// (positions 0..14), the external bitmap records the children
// (positions 0..15, the stride value itself).
//
// Rank translates a position into the offset of the popcount
// compressed result or child block of the node.
package bitmap

import (
	"fmt"
	"math/bits"
)

const (
	// Stride is the number of address bits consumed per trie level.
	Stride = 4

	// InternalSize is the number of internal bitmap positions.
	InternalSize = 1<<Stride - 1

	// ExternalSize is the number of external bitmap positions.
	ExternalSize = 1 << Stride
)

// Bitmap is a 16 bit wide bitmap, big enough for
// the internal and the external positions of a node.
type Bitmap uint16

func (b Bitmap) String() string {
	return fmt.Sprint(b.All())
}

// Set sets the bit at i.
func (b *Bitmap) Set(i uint) {
	*b |= 1 << (i & 15)
}

// Clear clears the bit at i.
func (b *Bitmap) Clear(i uint) {
	*b &^= 1 << (i & 15)
}

// Test if the bit at i is set.
func (b Bitmap) Test(i uint) bool {
	return b&(1<<(i&15)) != 0
}

// IsEmpty returns true if no bit is set.
func (b Bitmap) IsEmpty() bool {
	return b == 0
}

// Size is the number of set bits (popcount).
func (b Bitmap) Size() int {
	return bits.OnesCount16(uint16(b))
}

// Rank returns the number of set bits below i. This is the offset
// of the item for position i in the compressed block.
//
//	           ⬇
//	Bitmap: [0|1|0|0|1|1|0|...] <- positions 0..
//	Block:  [*|*|*]
//	           ⬆
//
//	Rank(4) = 1
func (b Bitmap) Rank(i uint) int {
	return bits.OnesCount16(uint16(b) & (1<<(i&15) - 1))
}

// Top returns the highest set bit along with an ok code.
func (b Bitmap) Top() (top uint, ok bool) {
	if b == 0 {
		return
	}
	return uint(bits.Len16(uint16(b))) - 1, true
}

// First returns the lowest set bit along with an ok code.
func (b Bitmap) First() (first uint, ok bool) {
	if b == 0 {
		return
	}
	return uint(bits.TrailingZeros16(uint16(b))), true
}

// All returns all set bits in ascending order.
func (b Bitmap) All() []uint {
	buf := make([]uint, 0, b.Size())
	for w := uint16(b); w != 0; w &= w - 1 {
		buf = append(buf, uint(bits.TrailingZeros16(w)))
	}
	return buf
}

// PfxToIdx maps the prefix with depth bits and value in the stride
// to the internal bitmap position.
//
//	example: 0b10/2 => 1<<2 - 1 + 2 => 5
func PfxToIdx(depth, value uint) uint {
	return 1<<depth - 1 + value
}

// IdxToPfx returns depth and value for the internal position idx.
// It's the inverse to PfxToIdx.
//
// It panics on invalid input.
func IdxToPfx(idx uint) (depth, value uint) {
	if idx >= InternalSize {
		panic(fmt.Sprintf("logic error, idx %d out of range", idx))
	}
	depth = uint(bits.Len(idx+1)) - 1
	value = idx + 1 - 1<<depth
	return
}

// ExternalIdx maps the full stride value to the external bitmap position.
func ExternalIdx(value uint) uint {
	return value
}

// CoverMask returns the internal positions of the prefix idx and
// all its ancestors within the stride, the prefixes covering idx.
func CoverMask(idx uint) Bitmap {
	return coverTbl[idx&15]
}

// PathMask returns the internal positions of all prefixes in the
// stride covering the full stride value, depth 0 up to depth 3.
func PathMask(value uint) Bitmap {
	return coverTbl[PfxToIdx(Stride-1, (value&15)>>1)]
}

// SubtreeMask returns the internal positions of the prefix idx and
// all its descendants within the stride, the prefixes covered by idx.
func SubtreeMask(idx uint) Bitmap {
	return subtreeTbl[idx&15]
}

// ChildMask returns the external positions of all children
// below the internal prefix idx.
func ChildMask(idx uint) Bitmap {
	return childTbl[idx&15]
}

// the precalculated masks, only index 0..14 is used,
// index 15 is the BCE slot and always empty.
var coverTbl, subtreeTbl, childTbl = func() (cover, subtree, child [16]Bitmap) {
	for idx := range uint(InternalSize) {
		depth, value := IdxToPfx(idx)

		// walk up to the root of the CBT
		for d := range depth + 1 {
			cover[idx].Set(PfxToIdx(d, value>>(depth-d)))
		}

		// all descendants within the stride
		for d := depth; d < Stride; d++ {
			shift := d - depth
			for v := value << shift; v < (value+1)<<shift; v++ {
				subtree[idx].Set(PfxToIdx(d, v))
			}
		}

		// all children below
		shift := Stride - depth
		for v := value << shift; v < (value+1)<<shift; v++ {
			child[idx].Set(ExternalIdx(v))
		}
	}
	return
}()
