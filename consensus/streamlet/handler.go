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

package streamlet

import (
	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/message"
	"github.com/ground-x/streamlet/metrics"
)

// broadcaster is the slice of URB that deliverHandler needs, kept as an
// interface so tests can exercise the vote-emission path without a real
// peer link.
type broadcaster interface {
	Broadcast(m *message.Message)
}

// deliverHandler reacts to URB-delivered messages: it is the DeliverFunc
// wired to this node's BlockChain and its own re-broadcast path.
type deliverHandler struct {
	bc     *chain.BlockChain
	urb    broadcaster
	selfID uint32
}

func newDeliverHandler(bc *chain.BlockChain, selfID uint32) *deliverHandler {
	return &deliverHandler{bc: bc, selfID: selfID}
}

// bind finishes wiring once the URB instance (which needs this handler's
// Deliver method) exists; see NewEngine for the ordering.
func (h *deliverHandler) bind(u broadcaster) {
	h.urb = u
}

// Deliver reacts to a URB-delivered message: a PROPOSE that strictly
// extends the current chain length is appended and voted for; a VOTE is
// recorded against its block's tally.
func (h *deliverHandler) Deliver(m *message.Message) {
	switch m.Kind {
	case message.Propose:
		metrics.ProposeCount.Inc(1)
		h.handlePropose(m.Block)
	case message.Vote:
		metrics.VoteCount.Inc(1)
		h.bc.AddVote(m.Block, m.Sender)
	default:
		logger.Warn("delivered message of unexpected kind", "kind", m.Kind)
	}
}

func (h *deliverHandler) handlePropose(b *chain.Block) {
	if b.Length <= h.bc.Length() {
		return
	}
	if !h.bc.AddBlock(b) {
		return
	}
	vote := message.NewVote(b, h.selfID)
	h.urb.Broadcast(vote)
}
