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

// Package streamlet implements the Streamlet-style epoch consensus
// engine: uniform reliable broadcast, the wall-clock epoch driver,
// leader election, and the confusion-period testing mode. A message
// dispatcher feeds a single-threaded state machine; gossip duplicates
// are suppressed with a bounded ARC window.
package streamlet

import "time"

// Config is the per-node consensus configuration.
type Config struct {
	SelfID            uint32
	NumNodes          uint32
	EpochDuration     time.Duration
	Seed              uint64
	StartTime         time.Time
	ConfusionStart    uint64 // epoch index, >= 1
	ConfusionDuration uint64 // 0 disables
	DedupWindow       int    // URB dedup window size
}

// InConfusionPeriod reports whether epoch e falls within the
// administrator-scheduled confusion window.
func (c Config) InConfusionPeriod(e uint64) bool {
	if c.ConfusionDuration == 0 {
		return false
	}
	return e >= c.ConfusionStart && e < c.ConfusionStart+c.ConfusionDuration
}
