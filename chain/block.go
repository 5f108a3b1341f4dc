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

package chain

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ground-x/streamlet/common"
)

// Block is immutable once constructed: PreviousHash, Epoch, Length and
// Transactions never change after construction. Everything mutable about
// a block's place in the system (finalization, fork edges) is tracked
// separately by BlockChain, never on the Block value itself.
type Block struct {
	PreviousHash common.Hash
	Epoch        uint64
	Length       uint64
	Transactions []Transaction
}

// Genesis is the unique anchor block: PreviousHash is the zero sentinel,
// Epoch and Length are both zero. It carries no transactions.
func Genesis() *Block {
	return &Block{
		PreviousHash: common.ZeroHash,
		Epoch:        0,
		Length:       0,
		Transactions: nil,
	}
}

// IsGenesis reports whether b is the unique genesis block by identity
// (its defining property: a zero previous hash and zero epoch/length).
func (b *Block) IsGenesis() bool {
	return b.PreviousHash.IsZero() && b.Epoch == 0 && b.Length == 0
}

// String is a short log-friendly summary; it never participates in
// hashing or wire encoding.
func (b *Block) String() string {
	return fmt.Sprintf("Block{epoch=%d length=%d txs=%d hash=%s}",
		b.Epoch, b.Length, len(b.Transactions), b.Hash())
}

// Hash computes the canonical digest over the four immutable fields. The
// encoding here is hand-rolled rather than routed through the wire codec
// so the digest stays stable even if the wire format changes.
func (b *Block) Hash() common.Hash {
	return common.Sum(b.CanonicalBytes())
}

// CanonicalBytes returns the deterministic encoding of the four immutable
// fields that Hash is computed over. Exported so other packages (notably
// message.Message, whose PROPOSE/VOTE content is a Block) can fold a
// block into their own canonical encoding without re-deriving the digest
// through the wire codec.
func (b *Block) CanonicalBytes() []byte {
	buf := make([]byte, 0, 16+len(b.PreviousHash)+len(b.Transactions)*28)
	buf = append(buf, b.PreviousHash.Bytes()...)
	buf = appendUint64(buf, b.Epoch)
	buf = appendUint64(buf, b.Length)
	buf = appendUint64(buf, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		buf = appendUint32(buf, tx.Sender)
		buf = appendUint32(buf, tx.Receiver)
		buf = appendUint64(buf, tx.TxID)
		buf = appendUint64(buf, math.Float64bits(tx.Amount))
	}
	return buf
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
