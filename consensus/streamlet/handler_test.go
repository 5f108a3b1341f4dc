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
	"testing"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroadcaster captures broadcasts without needing a real link, so
// handler logic can be tested in isolation.
type fakeBroadcaster struct {
	sent []*message.Message
}

func (f *fakeBroadcaster) Broadcast(m *message.Message) { f.sent = append(f.sent, m) }

func TestHandlerVotesForExtendingPropose(t *testing.T) {
	bc := chain.New(4)
	h := newDeliverHandler(bc, 1)
	fake := &fakeBroadcaster{}
	h.bind(fake)

	b := &chain.Block{PreviousHash: bc.GenesisHash(), Epoch: 1, Length: 1}
	h.Deliver(message.NewPropose(b, 2))

	_, ok := bc.PendingBlock(b.Hash())
	assert.True(t, ok)
	require.Len(t, fake.sent, 1)
	assert.Equal(t, message.Vote, fake.sent[0].Kind)
	assert.Equal(t, uint32(1), fake.sent[0].Sender)
}

func TestHandlerIgnoresProposeNotExtendingTip(t *testing.T) {
	bc := chain.New(4)
	h := newDeliverHandler(bc, 1)
	fake := &fakeBroadcaster{}
	h.bind(fake)

	stale := &chain.Block{PreviousHash: bc.GenesisHash(), Epoch: 1, Length: 0}
	h.Deliver(message.NewPropose(stale, 2))

	assert.Empty(t, fake.sent)
}

func TestHandlerRecordsVotes(t *testing.T) {
	bc := chain.New(4)
	h := newDeliverHandler(bc, 1)
	h.bind(&fakeBroadcaster{})

	b := &chain.Block{PreviousHash: bc.GenesisHash(), Epoch: 1, Length: 1}
	require.True(t, bc.AddBlock(b))

	h.Deliver(message.NewVote(b, 2))
	h.Deliver(message.NewVote(b, 3))
	assert.Equal(t, 2, bc.VoteCount(b.Hash()))
	// n=4: two voters are not strictly more than n/2.
	assert.False(t, bc.CheckNotarization(b))
}
