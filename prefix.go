// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import (
	"net/netip"

	"github.com/optionfactory/treebitmap/internal/uint128"
	"github.com/pkg/errors"
)

// address widths of the families
const (
	width4 = 32
	width6 = 128
)

func widthOf(is4 bool) int {
	if is4 {
		return width4
	}
	return width6
}

// keyFromAddr returns the left aligned trie key of addr.
// IPv4-mapped IPv6 addresses are IPv6 addresses, they are not unmapped.
func keyFromAddr(addr netip.Addr) (key uint128.Uint128, is4 bool) {
	if addr.Is4() {
		return uint128.From4(addr.As4()), true
	}
	return uint128.From16(addr.As16()), false
}

// addrFromKey is the inverse of keyFromAddr, the zone is lost.
func addrFromKey(key uint128.Uint128, is4 bool) netip.Addr {
	if is4 {
		return netip.AddrFrom4(key.As4())
	}
	return netip.AddrFrom16(key.As16())
}

// prefixFromKey returns the CIDR for the key with bits, the key is masked.
func prefixFromKey(key uint128.Uint128, bits int, is4 bool) netip.Prefix {
	return netip.PrefixFrom(addrFromKey(key.Masked(bits), is4), bits)
}

// normalize checks addr/bits and returns the trie key.
//
// Host bits are not silently masked, a prefix with host bits set
// is a programming error at the call site.
func normalize(addr netip.Addr, bits int) (key uint128.Uint128, is4 bool, err error) {
	if !addr.IsValid() {
		return key, false, errors.WithMessage(ErrInvalidPrefix, "invalid address")
	}

	key, is4 = keyFromAddr(addr)
	width := widthOf(is4)

	if bits < 0 || bits > width {
		return key, is4, errors.WithMessagef(ErrInvalidPrefix, "%s/%d: prefix length out of range [0..%d]", addr, bits, width)
	}

	if key.HostBitsSet(bits) {
		return key, is4, errors.WithMessagef(ErrInvalidPrefix, "%s/%d: host bits set", addr, bits)
	}

	return key, is4, nil
}
