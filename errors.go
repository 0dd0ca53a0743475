// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

package treebitmap

import "github.com/pkg/errors"

// ErrInvalidPrefix is returned by Insert, Remove and the exact match
// methods if the prefix length exceeds the address width or the address
// has bits set behind the prefix length. The table is left unchanged.
//
// The returned errors wrap ErrInvalidPrefix, test with errors.Is.
var ErrInvalidPrefix = errors.New("invalid prefix")
