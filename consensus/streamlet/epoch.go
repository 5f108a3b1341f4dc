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
	"math/rand"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/message"
	"github.com/ground-x/streamlet/metrics"
)

// electLeader picks epoch e's leader. Outside a confusion period it uses
// a dedicated PRNG seeded from cfg.Seed and e, so every honest node
// computes the same leader without any message exchange. The global
// math/rand source must never be used here: leader choice has to depend
// purely on (seed, epoch), not on draw order across unrelated call
// sites. Inside a scheduled confusion period, leader choice is
// round-robin instead, so controlled leader-failure scenarios are
// reproducible independent of the PRNG.
func electLeader(cfg Config, e uint64) uint32 {
	if cfg.InConfusionPeriod(e) {
		return uint32(e % uint64(cfg.NumNodes))
	}
	src := rand.NewSource(int64(cfg.Seed + e))
	r := rand.New(src)
	return uint32(r.Intn(int(cfg.NumNodes)))
}

// runEpoch executes one iteration of the epoch loop: wait for the epoch
// boundary, act as leader if elected, then sleep out whatever remains of
// epoch_duration before re-checking finalization and recovery status.
func (e *Engine) runEpoch(ctx context.Context, epoch uint64) {
	if !e.sleepUntil(ctx, e.epochBoundary(epoch)) {
		return
	}
	workStart := time.Now()
	metrics.EpochCount.Inc(1)

	leader := electLeader(e.cfg, epoch)
	if leader == e.cfg.SelfID && e.state.Load() == StateRunning {
		metrics.LeaderCount.Inc(1)
		e.leaderPhase(epoch)
	}

	e.sleepRemainder(ctx, workStart)

	e.bc.UpdateFinalization()
	if e.state.Load() == StateRecovered && e.bc.CountNotarizedPending() >= recoveryNotarizedThreshold {
		logger.Info("recovered node resuming normal participation", "epoch", epoch)
		e.state.Store(StateRunning)
	}
}

func (e *Engine) epochBoundary(epoch uint64) time.Time {
	return e.cfg.StartTime.Add(time.Duration(epoch) * e.cfg.EpochDuration)
}

// sleepUntil blocks until t or ctx cancellation, returning false on
// cancellation.
func (e *Engine) sleepUntil(ctx context.Context, t time.Time) bool {
	wait := time.Until(t)
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) sleepRemainder(ctx context.Context, workStart time.Time) {
	remaining := e.cfg.EpochDuration - time.Since(workStart)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// leaderPhase builds and broadcasts this epoch's proposal: extend the
// best notarized pending block (or the finalized tip if none is
// notarized) with a freshly drained batch of pending transactions.
func (e *Engine) leaderPhase(epoch uint64) {
	parent := e.bc.BestNotarizedParent()
	txs := e.drainPendingTx()

	b := &chain.Block{
		PreviousHash: parent.Hash(),
		Epoch:        epoch,
		Length:       parent.Length + 1,
		Transactions: txs,
	}
	logger.Info("proposing block", "epoch", epoch, "length", b.Length, "txs", len(txs))
	e.urb.Broadcast(message.NewPropose(b, e.cfg.SelfID))
}
