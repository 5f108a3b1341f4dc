// Copyright 2026 The streamlet Authors
// This file is part of the streamlet library.
//
// The streamlet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The streamlet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the streamlet library. If not, see <http://www.gnu.org/licenses/>.

// Package common holds the small cross-cutting types shared by every other
// package: the canonical block/message digest and the bounded cache
// wrapper used for URB duplicate suppression.
package common

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashLength is the size in bytes of a canonical digest. SHA-1 carries
// no security claim here; the digest is solely a duplicate-detection and
// content-addressing key.
const HashLength = sha1.Size

// Hash is the canonical raw-digest form used everywhere a block or
// message identity is needed. It is always the raw digest bytes, never a
// hex string, so there is exactly one canonical representation in the
// codebase.
type Hash [HashLength]byte

// ZeroHash is the reserved genesis sentinel: a block whose PreviousHash is
// ZeroHash with a single zero byte semantics (all-zero digest).
var ZeroHash = Hash{}

// BytesToHash copies b (truncated/zero-padded to HashLength) into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Sum computes the canonical digest of data.
func Sum(data []byte) Hash {
	return Hash(sha1.Sum(data))
}

// Bytes returns the raw digest bytes.
func (h Hash) Bytes() []byte { return h[:] }

// String renders a hex form for logging only; it is never used as the
// canonical identity.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the genesis sentinel.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}
