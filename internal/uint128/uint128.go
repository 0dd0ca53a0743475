// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package uint128 implements the fixed width key used by the trie.
//
// Addresses of both families are stored left aligned, the most
// significant address bit is bit 127 of the key. An IPv4 address
// occupies the upper 32 bits of Hi, all bits behind the address
// width are zero. With this layout the stride extraction is the
// same for every address width.
package uint128

import "encoding/binary"

// Uint128, big endian, left aligned address key.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// From4 returns the left aligned key for an IPv4 address.
func From4(a [4]byte) Uint128 {
	return Uint128{Hi: uint64(binary.BigEndian.Uint32(a[:])) << 32}
}

// From16 returns the key for an IPv6 address.
func From16(a [16]byte) Uint128 {
	return Uint128{
		Hi: binary.BigEndian.Uint64(a[:8]),
		Lo: binary.BigEndian.Uint64(a[8:]),
	}
}

// As4 is the inverse of From4.
func (u Uint128) As4() (a [4]byte) {
	binary.BigEndian.PutUint32(a[:], uint32(u.Hi>>32))
	return
}

// As16 is the inverse of From16.
func (u Uint128) As16() (a [16]byte) {
	binary.BigEndian.PutUint64(a[:8], u.Hi)
	binary.BigEndian.PutUint64(a[8:], u.Lo)
	return
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool { return u.Hi|u.Lo == 0 }

// And returns u & m.
func (u Uint128) And(m Uint128) Uint128 {
	return Uint128{u.Hi & m.Hi, u.Lo & m.Lo}
}

// Or returns u | m.
func (u Uint128) Or(m Uint128) Uint128 {
	return Uint128{u.Hi | m.Hi, u.Lo | m.Lo}
}

// Not returns ^u.
func (u Uint128) Not() Uint128 {
	return Uint128{^u.Hi, ^u.Lo}
}

// Lsh returns u << n.
func (u Uint128) Lsh(n uint) Uint128 {
	switch {
	case n >= 128:
		return Uint128{}
	case n >= 64:
		return Uint128{Hi: u.Lo << (n - 64)}
	case n == 0:
		return u
	}
	return Uint128{Hi: u.Hi<<n | u.Lo>>(64-n), Lo: u.Lo << n}
}

// Rsh returns u >> n.
func (u Uint128) Rsh(n uint) Uint128 {
	switch {
	case n >= 128:
		return Uint128{}
	case n >= 64:
		return Uint128{Lo: u.Hi >> (n - 64)}
	case n == 0:
		return u
	}
	return Uint128{Hi: u.Hi >> n, Lo: u.Lo>>n | u.Hi<<(64-n)}
}

// Compare returns -1, 0 or +1.
func (u Uint128) Compare(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// Mask returns the netmask with the leading n bits set.
//
//	Mask(0)   = 0x0000...0000
//	Mask(4)   = 0xf000...0000
//	Mask(128) = 0xffff...ffff
func Mask(n int) Uint128 {
	if n <= 0 {
		return Uint128{}
	}
	return Uint128{^uint64(0), ^uint64(0)}.Lsh(uint(128 - min(n, 128)))
}

// Masked returns u with all bits behind the leading n bits cleared.
func (u Uint128) Masked(n int) Uint128 {
	return u.And(Mask(n))
}

// HostBitsSet reports whether any bit behind the leading n bits is set.
func (u Uint128) HostBitsSet(n int) bool {
	return !u.And(Mask(n).Not()).IsZero()
}

// Bits returns the n bits (n <= 64) at offset, counted from the MSB,
// as right aligned unsigned integer.
//
//	key:   1010_1100_0000 ...
//	Bits(4, 4) = 0b1100
func (u Uint128) Bits(offset, n uint) uint {
	if n == 0 {
		return 0
	}
	return uint(u.Lsh(offset).Hi >> (64 - n))
}

// SetBits returns u with the n bit wide value v ORed in at offset,
// counted from the MSB. Bits of v above n are ignored.
func (u Uint128) SetBits(offset, n uint, v uint) Uint128 {
	if n == 0 {
		return u
	}
	w := Uint128{Hi: uint64(v) << (64 - n)}
	return u.Or(w.Rsh(offset))
}
