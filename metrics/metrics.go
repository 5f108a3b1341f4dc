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

// Package metrics registers the operational counters and gauges a
// running node exposes through the go-metrics default registry.
package metrics

import (
	"time"

	"github.com/ground-x/streamlet/chain"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	EpochCount       = gometrics.NewRegisteredCounter("streamlet/epoch", nil)
	LeaderCount      = gometrics.NewRegisteredCounter("streamlet/leader", nil)
	ProposeCount     = gometrics.NewRegisteredCounter("streamlet/propose", nil)
	VoteCount        = gometrics.NewRegisteredCounter("streamlet/vote", nil)
	URBDeliverCount  = gometrics.NewRegisteredCounter("streamlet/urb/deliver", nil)
	FinalizedLength  = gometrics.NewRegisteredGauge("streamlet/chain/finalized", nil)
	PendingBlockSize = gometrics.NewRegisteredGauge("streamlet/chain/pending", nil)
	ForkCount        = gometrics.NewRegisteredGauge("streamlet/chain/forks", nil)
)

// RegisterChainStats starts a background goroutine that periodically
// samples bc's stats into the chain gauges above. There is nothing to
// stop; the goroutine lives as long as the process.
func RegisterChainStats(bc *chain.BlockChain) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := bc.StatsSnapshot()
			FinalizedLength.Update(int64(stats.FinalizedLength))
			PendingBlockSize.Update(int64(stats.PendingCount))
			ForkCount.Update(int64(stats.ForkCount))
		}
	}()
}
