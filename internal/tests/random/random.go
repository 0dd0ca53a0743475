// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package random generates random addresses and prefixes for tests.
package random

import (
	"math/rand/v2"
	"net/netip"
)

// Prefix returns a random masked IPv4 or IPv6 prefix.
func Prefix(prng *rand.Rand) netip.Prefix {
	if prng.IntN(2) == 1 {
		return Prefix4(prng)
	}
	return Prefix6(prng)
}

// Prefix4 returns a random masked IPv4 prefix.
func Prefix4(prng *rand.Rand) netip.Prefix {
	bits := prng.IntN(33)
	pfx, err := IP4(prng).Prefix(bits)
	if err != nil {
		panic(err)
	}
	return pfx
}

// Prefix6 returns a random masked IPv6 prefix.
func Prefix6(prng *rand.Rand) netip.Prefix {
	bits := prng.IntN(129)
	pfx, err := IP6(prng).Prefix(bits)
	if err != nil {
		panic(err)
	}
	return pfx
}

// IP returns a random IPv4 or IPv6 address.
func IP(prng *rand.Rand) netip.Addr {
	if prng.IntN(2) == 1 {
		return IP4(prng)
	}
	return IP6(prng)
}

// IP4 returns a random IPv4 address.
func IP4(prng *rand.Rand) netip.Addr {
	var b [4]byte
	for i := range b {
		b[i] = byte(prng.Uint32() & 0xff)
	}
	return netip.AddrFrom4(b)
}

// IP6 returns a random IPv6 address, never an IPv4-mapped address.
func IP6(prng *rand.Rand) netip.Addr {
	var b [16]byte
	for i := range b {
		b[i] = byte(prng.Uint32() & 0xff)
	}
	// 2000::/3, no 4in6
	b[0] = 0x20 | b[0]&0x1f
	return netip.AddrFrom16(b)
}

// Prefixes returns n distinct random prefixes of both families.
func Prefixes(prng *rand.Rand, n int) []netip.Prefix {
	seen := make(map[netip.Prefix]bool, n)
	pfxs := make([]netip.Prefix, 0, n)

	for len(pfxs) < n {
		pfx := Prefix(prng)
		if seen[pfx] {
			continue
		}
		seen[pfx] = true
		pfxs = append(pfxs, pfx)
	}
	return pfxs
}

// Nested returns n distinct prefixes of the family of base, all
// covered by base, to stress deep paths and shared nodes.
// n must be small compared to the number of prefixes covered by base.
func Nested(prng *rand.Rand, base netip.Prefix, n int) []netip.Prefix {
	width := base.Addr().BitLen()
	seen := make(map[netip.Prefix]bool, n)
	pfxs := make([]netip.Prefix, 0, n)

	for len(pfxs) < n {
		var ip netip.Addr
		if base.Addr().Is4() {
			ip = IP4(prng)
		} else {
			ip = IP6(prng)
		}

		// copy the base bits into the random address
		a := ip.As16()
		b := base.Addr().As16()
		off := 16 - width/8
		for i := range base.Bits() {
			byteIdx := off + i/8
			mask := byte(0x80) >> (i % 8)
			a[byteIdx] = a[byteIdx]&^mask | b[byteIdx]&mask
		}

		if base.Addr().Is4() {
			ip = netip.AddrFrom4([4]byte(a[12:]))
		} else {
			ip = netip.AddrFrom16(a)
		}

		bits := base.Bits() + prng.IntN(width-base.Bits()+1)
		pfx := netip.PrefixFrom(ip, bits).Masked()
		if seen[pfx] {
			continue
		}
		seen[pfx] = true
		pfxs = append(pfxs, pfx)
	}
	return pfxs
}
