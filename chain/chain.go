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
	"sync"

	"github.com/ground-x/streamlet/common"
	"github.com/ground-x/streamlet/log"
)

var logger = log.NewModuleLogger(log.ChainModule)

// node wraps a Block with the mutable adornments BlockChain tracks on its
// behalf: finalization status and the fork-tree children edges. Block
// itself stays immutable; only this wrapper mutates.
type node struct {
	block       *Block
	hash        common.Hash
	isFinalized bool
	children    []common.Hash
}

// BlockChain is the per-node fork-tracking chain: the set of blocks
// descending from the finalized tip, their accumulated votes, and the
// append-only finalized prefix. All exported methods are safe for
// concurrent use; every mutation is serialized by a single mutex guarding
// the whole aggregate. Locked entry points never call each other while
// holding the lock; they share unexported, lock-free helpers instead.
type BlockChain struct {
	mu sync.Mutex

	numNodes uint32 // total participant count n, for the >n/2 notarization threshold

	genesisHash common.Hash
	pending     map[common.Hash]*node
	finalized   []*Block // ordered, genesis first, append-only
	votes       map[common.Hash]map[uint32]struct{}
	lastBlock   *Block
}

// New creates a chain seeded with the genesis block, for a network of
// numNodes participants.
func New(numNodes uint32) *BlockChain {
	g := Genesis()
	gh := g.Hash()
	bc := &BlockChain{
		numNodes:    numNodes,
		genesisHash: gh,
		pending:     make(map[common.Hash]*node),
		votes:       make(map[common.Hash]map[uint32]struct{}),
		lastBlock:   g,
	}
	bc.pending[gh] = &node{block: g, hash: gh, isFinalized: true}
	bc.finalized = []*Block{g}
	return bc
}

// GenesisHash returns the hash of the anchor block.
func (bc *BlockChain) GenesisHash() common.Hash {
	return bc.genesisHash
}

// Length reports the length of the most recently appended block, used
// only for chain-length reporting (e.g. to decide whether an incoming
// PROPOSE strictly extends the tip).
func (bc *BlockChain) Length() uint64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.lastBlock.Length
}

// AddBlock attaches b to the fork tree. The parent is looked up by
// PreviousHash among pending blocks; a block whose parent cannot be
// resolved is dropped, since it cannot extend any fork rooted at the
// finalized tip. Returns false if the block was dropped.
func (bc *BlockChain) AddBlock(b *Block) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	h := b.Hash()
	if _, exists := bc.pending[h]; exists {
		return true // already known; idempotent
	}
	parent, ok := bc.pending[b.PreviousHash]
	if !ok {
		logger.Warn("dropping block with unresolved parent", "hash", h, "previous", b.PreviousHash)
		return false
	}

	bc.pending[h] = &node{block: b, hash: h}
	parent.children = append(parent.children, h)
	bc.lastBlock = b
	return true
}

// AddVote records voter as having voted for block (set semantics: calling
// this twice with the same voter for the same block has no additional
// effect, satisfying idempotence).
func (bc *BlockChain) AddVote(block *Block, voter uint32) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.addVoteLocked(block.Hash(), voter)
}

func (bc *BlockChain) addVoteLocked(h common.Hash, voter uint32) {
	set, ok := bc.votes[h]
	if !ok {
		set = make(map[uint32]struct{})
		bc.votes[h] = set
	}
	set[voter] = struct{}{}
}

// VoteCount reports how many distinct voters have been recorded for the
// block with hash h.
func (bc *BlockChain) VoteCount(h common.Hash) int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.votes[h])
}

// CheckNotarization reports whether block is notarized: genesis always
// is; any other block needs strictly more than n/2 distinct voters.
func (bc *BlockChain) CheckNotarization(block *Block) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.isNotarizedLocked(block.Hash(), block.IsGenesis())
}

func (bc *BlockChain) isNotarizedLocked(h common.Hash, isGenesis bool) bool {
	if isGenesis || h == bc.genesisHash {
		return true
	}
	return len(bc.votes[h]) > int(bc.numNodes)/2
}

// Fork is a single root-to-leaf path through the pending tree. The root
// (genesis, or the current finalized tip after pruning) is included as
// the first element.
type Fork []*Block

// GetForks enumerates every maximal root-to-leaf path in the pending
// tree. Roots are the finalized tip (genesis initially, or whatever
// stabilizeForkLocked last promoted); leaves are nodes with no children.
func (bc *BlockChain) GetForks() []Fork {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.getForksLocked()
}

func (bc *BlockChain) getForksLocked() []Fork {
	root := bc.finalized[len(bc.finalized)-1].Hash()
	var forks []Fork
	var walk func(h common.Hash, path Fork)
	walk = func(h common.Hash, path Fork) {
		n, ok := bc.pending[h]
		if !ok {
			return
		}
		path = append(path, n.block)
		if len(n.children) == 0 {
			fork := make(Fork, len(path))
			copy(fork, path)
			forks = append(forks, fork)
			return
		}
		for _, c := range n.children {
			walk(c, path)
		}
	}
	walk(root, nil)
	return forks
}

// UpdateFinalization scans every fork for three consecutive, consecutively
// epoched, notarized blocks and promotes a prefix of the longest such
// fork to the finalized chain via stabilizeForkLocked.
func (bc *BlockChain) UpdateFinalization() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	forks := bc.getForksLocked()
	var best Fork
	var bestIdx int
	for _, fork := range forks {
		idx, ok := findNotarizedTriple(fork, bc)
		if !ok {
			continue
		}
		if best == nil || len(fork) > len(best) {
			best, bestIdx = fork, idx
		}
	}
	if best == nil {
		return
	}
	bc.stabilizeForkLocked(best, bestIdx)
}

// findNotarizedTriple returns the largest index i such that fork[i],
// fork[i+1], fork[i+2] are all notarized with strictly consecutive
// epochs. Scanning from the leaf end matters: the triple anchored at
// genesis exists in every healthy fork, and stabilizing on it would
// never advance the finalized chain past the anchor.
func findNotarizedTriple(fork Fork, bc *BlockChain) (int, bool) {
	for i := len(fork) - 3; i >= 0; i-- {
		a, b, c := fork[i], fork[i+1], fork[i+2]
		if b.Epoch != a.Epoch+1 || c.Epoch != b.Epoch+1 {
			continue
		}
		if !bc.isNotarizedLocked(a.Hash(), a.IsGenesis()) {
			continue
		}
		if !bc.isNotarizedLocked(b.Hash(), b.IsGenesis()) {
			continue
		}
		if !bc.isNotarizedLocked(c.Hash(), c.IsGenesis()) {
			continue
		}
		return i, true
	}
	return 0, false
}

// stabilizeForkLocked finalizes fork[0:tripleIdx+1] (all but the last two
// blocks of the triple-anchored fork, i.e. up to and including the first
// block of the notarized triple) and rebuilds pending to hold only
// descendants of the new finalized tip.
func (bc *BlockChain) stabilizeForkLocked(fork Fork, tripleIdx int) {
	toFinalize := fork[:tripleIdx+1]

	already := make(map[common.Hash]bool, len(bc.finalized))
	for _, b := range bc.finalized {
		already[b.Hash()] = true
	}

	for _, b := range toFinalize {
		h := b.Hash()
		if already[h] {
			continue
		}
		if n, ok := bc.pending[h]; ok {
			n.isFinalized = true
		}
		bc.finalized = append(bc.finalized, b)
		already[h] = true
	}

	newTip := bc.finalized[len(bc.finalized)-1].Hash()
	keep := make(map[common.Hash]*node)
	var collect func(h common.Hash)
	collect = func(h common.Hash) {
		n, ok := bc.pending[h]
		if !ok {
			return
		}
		keep[h] = n
		for _, c := range n.children {
			collect(c)
		}
	}
	collect(newTip)
	bc.pending = keep
}

// FinalizedChain returns a copy of the ordered, append-only finalized
// prefix, genesis first.
func (bc *BlockChain) FinalizedChain() []*Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	out := make([]*Block, len(bc.finalized))
	copy(out, bc.finalized)
	return out
}

// FinalizedTip returns the last finalized block.
func (bc *BlockChain) FinalizedTip() *Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.finalized[len(bc.finalized)-1]
}

// PendingBlock looks up a block by hash among the blocks descending from
// the finalized tip (forks still being voted on).
func (bc *BlockChain) PendingBlock(h common.Hash) (*Block, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	n, ok := bc.pending[h]
	if !ok {
		return nil, false
	}
	return n.block, true
}

// BestNotarizedParent implements the leader's parent-selection rule:
// argmax over notarized pending blocks of Length, ties broken by
// insertion order (map iteration over pending is unordered, so ties are
// broken by preferring the first-seen candidate in a stable scan of
// finalized-tip-rooted forks, which walks children in append order).
// Falls back to the finalized tip if no pending block is notarized.
func (bc *BlockChain) BestNotarizedParent() *Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	tip := bc.finalized[len(bc.finalized)-1]
	best := tip
	var visit func(h common.Hash)
	visit = func(h common.Hash) {
		n, ok := bc.pending[h]
		if !ok {
			return
		}
		if !n.block.IsGenesis() && bc.isNotarizedLocked(h, false) && n.block.Length > best.Length {
			best = n.block
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(tip.Hash())
	return best
}

// CountNotarizedPending counts non-genesis pending blocks that are
// currently notarized, the signal a recovering node uses to decide it
// has observed enough live consensus activity to rejoin.
func (bc *BlockChain) CountNotarizedPending() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	count := 0
	for h, n := range bc.pending {
		if n.block.IsGenesis() {
			continue
		}
		if bc.isNotarizedLocked(h, false) {
			count++
		}
	}
	return count
}

// Stats is a point-in-time operational summary, for logging and gauges.
type Stats struct {
	PendingCount    int
	ForkCount       int
	FinalizedLength int
}

func (bc *BlockChain) StatsSnapshot() Stats {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return Stats{
		PendingCount:    len(bc.pending),
		ForkCount:       len(bc.getForksLocked()),
		FinalizedLength: len(bc.finalized),
	}
}
