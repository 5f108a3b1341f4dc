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

// Transaction is the immutable unit of work packed into blocks. TxID is
// unique per Sender only, so (Sender, TxID) is the natural key, not TxID
// alone. Transactions are produced by the workload generator (node
// package) and consumed exactly once when a leader packs a block.
type Transaction struct {
	Sender   uint32
	Receiver uint32
	TxID     uint64
	Amount   float64
}
