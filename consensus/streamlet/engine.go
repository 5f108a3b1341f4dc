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
	"context"
	"sync"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/networks/p2p"
)

// PendingTxSource snapshots and clears whatever transactions this node
// wants included in its next proposal. The node supervisor owns the
// actual buffer; the engine only ever calls this at leader time.
// Transactions are drained, not peeked, so none are proposed twice.
type PendingTxSource func() []chain.Transaction

// Engine is the wired-up consensus participant: the chain it maintains,
// the peer link it gossips over, the URB layer built on top of that
// link, and the wall-clock epoch loop driving leader election. It owns
// every moving part of one node's consensus participation and exposes
// only Start/Stop.
type Engine struct {
	cfg        Config
	bc         *chain.BlockChain
	link       *p2p.Link
	urb        *URB
	dispatcher *dispatcher
	handler    *deliverHandler

	pendingTx PendingTxSource
	txMu      sync.Mutex

	state stateHolder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine wires an Engine for one node. link must already be
// constructed (but not yet Start-ed) with this node's peer set.
func NewEngine(cfg Config, bc *chain.BlockChain, link *p2p.Link, pendingTx PendingTxSource) *Engine {
	e := &Engine{cfg: cfg, bc: bc, link: link, pendingTx: pendingTx}
	e.handler = newDeliverHandler(bc, cfg.SelfID)
	e.urb = NewURB(link, cfg.SelfID, cfg.DedupWindow, e.handler.Deliver)
	e.handler.bind(e.urb)
	e.dispatcher = newDispatcher(link.Inbound(), e.urb, e.inConfusionPeriodNow)
	return e
}

func (e *Engine) inConfusionPeriodNow() bool {
	return e.cfg.InConfusionPeriod(e.currentEpochEstimate())
}

// currentEpochEstimate derives the epoch index purely from wall clock,
// for use by the confusion-period predicate which must be evaluatable
// from the dispatcher goroutine without touching the epoch loop's state.
func (e *Engine) currentEpochEstimate() uint64 {
	elapsed := time.Since(e.cfg.StartTime)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed/e.cfg.EpochDuration) + 1
}

// drainPendingTx snapshots and clears the pending transaction buffer via
// the supplied source, defending against a nil source (tests that don't
// care about transaction content).
func (e *Engine) drainPendingTx() []chain.Transaction {
	if e.pendingTx == nil {
		return nil
	}
	e.txMu.Lock()
	defer e.txMu.Unlock()
	return e.pendingTx()
}

// State reports the node's current startup/recovery state.
func (e *Engine) State() NodeState {
	return e.state.Load()
}

// Start launches the dispatcher and the epoch loop. It returns once both
// goroutines are running; Stop (or ctx cancellation) tears them down.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.dispatcher.run(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.runLoop(ctx)
	}()
}

// Stop cancels the engine's context and waits for both goroutines to
// exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// runLoop is the top-level state machine: wait for the network's
// scheduled start, or recognize a late/restarted start as recovery, then
// run the epoch loop forever.
func (e *Engine) runLoop(ctx context.Context) {
	now := time.Now()
	var epoch uint64
	if now.Before(e.cfg.StartTime) {
		e.state.Store(StateWaiting)
		if !e.sleepUntil(ctx, e.cfg.StartTime) {
			return
		}
		e.state.Store(StateRunning)
		epoch = 1
	} else {
		e.state.Store(StateRecovered)
		elapsed := now.Sub(e.cfg.StartTime)
		epoch = uint64(elapsed/e.cfg.EpochDuration) + 1
		logger.Info("starting in recovered mode", "epoch", epoch)
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.runEpoch(ctx, epoch)
		epoch++
	}
}
