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

import "sync/atomic"

// NodeState is the node's position in the startup/recovery state
// machine: a node either waits for the scheduled start time, runs
// normally, or, if it started (or restarted) after the network was
// already underway, runs in a degraded "recovered" mode that still
// records blocks and votes but does not propose until it has seen
// enough live consensus activity to trust its own view of the chain.
type NodeState int32

const (
	StateWaiting NodeState = iota
	StateRunning
	StateRecovered
)

func (s NodeState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRunning:
		return "running"
	case StateRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// recoveryNotarizedThreshold is how many non-genesis notarized pending
// blocks a recovered node must observe before it trusts its view enough
// to start proposing when elected leader.
const recoveryNotarizedThreshold = 3

type stateHolder struct {
	v int32
}

func (h *stateHolder) Load() NodeState {
	return NodeState(atomic.LoadInt32(&h.v))
}

func (h *stateHolder) Store(s NodeState) {
	atomic.StoreInt32(&h.v, int32(s))
}
