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

// Package message defines the protocol envelope exchanged between nodes
// (PROPOSE, VOTE and ECHO) and the wire codec that frames it on a
// stream connection.
package message

import (
	"encoding/binary"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/common"
)

// Kind tags the payload carried by a Message.
type Kind uint8

const (
	// Propose carries a full Block: a leader's proposal for the current epoch.
	Propose Kind = iota + 1
	// Vote carries a Block identified by hash; its Transactions field is
	// irrelevant to voting and is not re-transmitted meaningfully (the
	// sender still fills it from its own pending copy, since Go has no
	// partial-struct wire elision without a second type).
	Vote
	// Echo wraps another Message verbatim, for uniform reliable broadcast.
	Echo
)

func (k Kind) String() string {
	switch k {
	case Propose:
		return "PROPOSE"
	case Vote:
		return "VOTE"
	case Echo:
		return "ECHO"
	default:
		return "UNKNOWN"
	}
}

// Message is the tagged envelope on the wire. Exactly one of Block/Inner
// is populated depending on Kind: Propose and Vote carry Block, Echo
// carries Inner. The recursive shape (Echo wraps Message) is modeled as
// an owned pointer rather than an interface; the only recursive case is
// one level deep in practice, since an ECHO never wraps another ECHO,
// and a pointer keeps gob encoding trivial.
type Message struct {
	Kind   Kind
	Block  *chain.Block
	Inner  *Message
	Sender uint32
}

// NewPropose builds a PROPOSE message.
func NewPropose(b *chain.Block, sender uint32) *Message {
	return &Message{Kind: Propose, Block: b, Sender: sender}
}

// NewVote builds a VOTE message referencing b by hash.
func NewVote(b *chain.Block, sender uint32) *Message {
	return &Message{Kind: Vote, Block: b, Sender: sender}
}

// NewEcho wraps inner for uniform reliable broadcast.
func NewEcho(inner *Message, sender uint32) *Message {
	return &Message{Kind: Echo, Inner: inner, Sender: sender}
}

// Hash computes the canonical digest over (Kind, canonical content
// bytes, Sender). It is stable across runs and hosts and used solely as
// a duplicate-detection key.
func (m *Message) Hash() common.Hash {
	return common.Sum(m.CanonicalBytes())
}

// CanonicalBytes returns the deterministic encoding Hash digests.
func (m *Message) CanonicalBytes() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(m.Kind))
	switch m.Kind {
	case Propose, Vote:
		if m.Block != nil {
			buf = append(buf, m.Block.CanonicalBytes()...)
		}
	case Echo:
		if m.Inner != nil {
			buf = append(buf, m.Inner.CanonicalBytes()...)
		}
	}
	var sender [4]byte
	binary.BigEndian.PutUint32(sender[:], m.Sender)
	buf = append(buf, sender[:]...)
	return buf
}
