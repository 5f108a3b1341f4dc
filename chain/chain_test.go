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
	"testing"

	"github.com/ground-x/streamlet/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extend(parent *Block, epoch uint64) *Block {
	return &Block{
		PreviousHash: parent.Hash(),
		Epoch:        epoch,
		Length:       parent.Length + 1,
		Transactions: nil,
	}
}

func notarize(bc *BlockChain, b *Block, n int) {
	for i := 0; i < n; i++ {
		bc.AddVote(b, uint32(i))
	}
}

func TestGenesisNotarizedAndFinalized(t *testing.T) {
	bc := New(5)
	g := bc.FinalizedTip()
	assert.True(t, g.IsGenesis())
	assert.True(t, bc.CheckNotarization(g))
	assert.Equal(t, 1, len(bc.FinalizedChain()))
}

func TestAddVoteIdempotent(t *testing.T) {
	bc := New(5)
	b := extend(Genesis(), 1)
	bc.AddBlock(b)
	bc.AddVote(b, 2)
	bc.AddVote(b, 2)
	bc.AddVote(b, 2)
	assert.Equal(t, 1, bc.VoteCount(b.Hash()))
}

func TestNotarizationThreshold(t *testing.T) {
	// n=4 requires strictly >2 voters, i.e. 3.
	bc := New(4)
	b := extend(Genesis(), 1)
	bc.AddBlock(b)
	notarize(bc, b, 2)
	assert.False(t, bc.CheckNotarization(b))
	bc.AddVote(b, 99)
	assert.True(t, bc.CheckNotarization(b))
}

func TestDropsBlockWithUnresolvedParent(t *testing.T) {
	bc := New(5)
	orphan := &Block{PreviousHash: common.BytesToHash([]byte{0xAB}), Epoch: 5, Length: 1}
	ok := bc.AddBlock(orphan)
	assert.False(t, ok)
	_, found := bc.PendingBlock(orphan.Hash())
	assert.False(t, found)
}

func TestFinalizationOnNotarizedTriple(t *testing.T) {
	bc := New(5)
	g := Genesis()

	b1 := extend(g, 1)
	require.True(t, bc.AddBlock(b1))
	notarize(bc, b1, 3)

	b2 := extend(b1, 2)
	require.True(t, bc.AddBlock(b2))
	notarize(bc, b2, 3)

	b3 := extend(b2, 3)
	require.True(t, bc.AddBlock(b3))
	notarize(bc, b3, 3)

	bc.UpdateFinalization()

	fin := bc.FinalizedChain()
	// genesis, b1 finalized; b2,b3 remain pending (last two of the triple).
	require.Len(t, fin, 2)
	assert.Equal(t, g.Hash(), fin[0].Hash())
	assert.Equal(t, b1.Hash(), fin[1].Hash())

	_, stillPending := bc.PendingBlock(b2.Hash())
	assert.True(t, stillPending)
}

func TestFinalizationAdvancesAlongNotarizedRun(t *testing.T) {
	bc := New(5)
	parent := Genesis()
	var blocks []*Block
	for e := uint64(1); e <= 5; e++ {
		b := extend(parent, e)
		require.True(t, bc.AddBlock(b))
		notarize(bc, b, 3)
		blocks = append(blocks, b)
		parent = b
	}

	bc.UpdateFinalization()

	// The notarized run ends at epoch 5, so everything up to epoch 3
	// finalizes; epochs 4 and 5 stay pending.
	fin := bc.FinalizedChain()
	require.Len(t, fin, 4)
	assert.Equal(t, blocks[2].Hash(), fin[3].Hash())

	_, pending4 := bc.PendingBlock(blocks[3].Hash())
	_, pending5 := bc.PendingBlock(blocks[4].Hash())
	assert.True(t, pending4)
	assert.True(t, pending5)
}

func TestFinalizationPrunesLosingFork(t *testing.T) {
	bc := New(5)
	g := Genesis()

	// Winning fork: epochs 1,2,3, all notarized.
	b1 := extend(g, 1)
	require.True(t, bc.AddBlock(b1))
	notarize(bc, b1, 3)
	b2 := extend(b1, 2)
	require.True(t, bc.AddBlock(b2))
	notarize(bc, b2, 3)
	b3 := extend(b2, 3)
	require.True(t, bc.AddBlock(b3))
	notarize(bc, b3, 3)

	// Losing fork off genesis, never notarized.
	loser := &Block{PreviousHash: g.Hash(), Epoch: 2, Length: 1}
	require.True(t, bc.AddBlock(loser))

	bc.UpdateFinalization()

	require.Len(t, bc.FinalizedChain(), 2) // genesis, b1
	_, stillThere := bc.PendingBlock(loser.Hash())
	assert.False(t, stillThere, "blocks not descending from the finalized tip must be pruned")
}

func TestFinalizationSkippedWithoutConsecutiveEpochs(t *testing.T) {
	bc := New(5)
	g := Genesis()

	b1 := extend(g, 1)
	bc.AddBlock(b1)
	notarize(bc, b1, 3)

	// epoch gap: b2 should be epoch 2 for the triple to count, make it epoch 3.
	b2 := &Block{PreviousHash: b1.Hash(), Epoch: 3, Length: 2}
	bc.AddBlock(b2)
	notarize(bc, b2, 3)

	b3 := extend(b2, 4)
	bc.AddBlock(b3)
	notarize(bc, b3, 3)

	bc.UpdateFinalization()
	assert.Len(t, bc.FinalizedChain(), 1) // only genesis
}

func TestForksEnumeratesAllLeaves(t *testing.T) {
	bc := New(5)
	g := Genesis()
	a := extend(g, 1)
	b := extend(g, 2)
	bc.AddBlock(a)
	bc.AddBlock(b)

	forks := bc.GetForks()
	assert.Len(t, forks, 2)
}

func TestBestNotarizedParentFallsBackToTip(t *testing.T) {
	bc := New(5)
	a := extend(Genesis(), 1)
	bc.AddBlock(a) // not notarized
	best := bc.BestNotarizedParent()
	assert.True(t, best.IsGenesis())
}

func TestBestNotarizedParentPicksLongest(t *testing.T) {
	bc := New(5)
	g := Genesis()
	a := extend(g, 1)
	bc.AddBlock(a)
	notarize(bc, a, 3)

	b := extend(a, 2)
	bc.AddBlock(b)
	notarize(bc, b, 3)

	best := bc.BestNotarizedParent()
	assert.Equal(t, b.Hash(), best.Hash())
}
