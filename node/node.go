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

// Package node is the supervisor that wires one participant's chain,
// peer link, and consensus engine together and runs it to completion:
// a single type the command-line entrypoint constructs and starts.
package node

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/config"
	"github.com/ground-x/streamlet/consensus/streamlet"
	"github.com/ground-x/streamlet/log"
	"github.com/ground-x/streamlet/metrics"
	"github.com/ground-x/streamlet/networks/p2p"
	"github.com/pkg/errors"
)

var logger = log.NewModuleLogger(log.NodeModule)

// Node owns every subsystem one participant needs: its view of the
// chain, its peer connections, its consensus engine, and a small pending
// transaction buffer the engine drains at leader time.
type Node struct {
	id     uint32
	bc     *chain.BlockChain
	link   *p2p.Link
	engine *streamlet.Engine

	txMu    sync.Mutex
	pending []chain.Transaction

	genCancel context.CancelFunc
}

// New builds a Node from a loaded Config for participant id. It does not
// start any goroutines; call Start for that.
func New(id uint32, cfg *config.Config) (*Node, error) {
	if _, ok := cfg.PeerByID(id); !ok {
		return nil, errors.Errorf("node: id %d is not listed in the configured node roster", id)
	}

	peers := make(map[uint32]p2p.Addr, len(cfg.Nodes))
	for _, p := range cfg.Nodes {
		peers[p.ID] = p2p.Addr{ID: p.ID, Host: p.Host, Port: p.Port}
	}

	numNodes := uint32(len(cfg.Nodes))
	bc := chain.New(numNodes)
	link := p2p.New(id, peers[id].String(), peers, 256)

	n := &Node{id: id, bc: bc, link: link}
	link.SetTxnSink(n.SubmitTransaction)

	dedupWindow := cfg.DedupWindow
	if dedupWindow <= 0 {
		dedupWindow = 200
	}
	engineCfg := streamlet.Config{
		SelfID:            id,
		NumNodes:          numNodes,
		EpochDuration:     cfg.EpochDuration(),
		Seed:              cfg.Seed,
		StartTime:         cfg.StartTime,
		ConfusionStart:    cfg.ConfusionStart,
		ConfusionDuration: cfg.ConfusionDuration,
		DedupWindow:       dedupWindow,
	}
	n.engine = streamlet.NewEngine(engineCfg, bc, link, n.drainPendingTx)
	return n, nil
}

// Start opens the peer link and launches the consensus engine and the
// synthetic transaction generator, which lets a freshly launched network
// produce non-empty blocks without an external client. genInterval <= 0
// disables the generator.
func (n *Node) Start(ctx context.Context, reconnectEvery, genInterval time.Duration) error {
	if err := n.link.Start(ctx, reconnectEvery); err != nil {
		return err
	}
	n.engine.Start(ctx)
	metrics.RegisterChainStats(n.bc)

	genCtx, cancel := context.WithCancel(ctx)
	n.genCancel = cancel
	go n.runTxGenerator(genCtx, genInterval)

	logger.Info("node started", "id", n.id, "peers", n.link.PeerCount())
	return nil
}

// Stop tears the node down in reverse order of startup.
func (n *Node) Stop() {
	if n.genCancel != nil {
		n.genCancel()
	}
	n.engine.Stop()
	n.link.Close()
}

// Chain exposes the underlying BlockChain for inspection (tests, status
// reporting).
func (n *Node) Chain() *chain.BlockChain {
	return n.bc
}

// State reports the node's current startup/recovery state.
func (n *Node) State() streamlet.NodeState {
	return n.engine.State()
}

// SubmitTransaction enqueues a transaction for inclusion in a future
// proposal this node leads.
func (n *Node) SubmitTransaction(tx chain.Transaction) {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	n.pending = append(n.pending, tx)
}

// drainPendingTx snapshots and clears the buffer; it is the
// streamlet.PendingTxSource the engine calls at leader time.
func (n *Node) drainPendingTx() []chain.Transaction {
	n.txMu.Lock()
	defer n.txMu.Unlock()
	if len(n.pending) == 0 {
		return nil
	}
	out := n.pending
	n.pending = nil
	return out
}

// runTxGenerator periodically synthesizes a transaction so a freshly
// launched network has something to propose without an external client;
// it stops as soon as ctx is cancelled.
func (n *Node) runTxGenerator(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r := rand.New(rand.NewSource(int64(n.id) + 1))
	var nextID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			nextID++
			n.SubmitTransaction(chain.Transaction{
				Sender:   n.id,
				Receiver: uint32(r.Intn(1 << 8)),
				TxID:     nextID,
				Amount:   r.Float64() * 100,
			})
		}
	}
}
