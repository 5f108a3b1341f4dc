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

package node

import (
	"testing"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(selfPort uint16) *config.Config {
	return &config.Config{
		EpochDurationMS: 1000,
		Seed:            1,
		StartTime:       time.Now().Add(time.Hour),
		Nodes: []config.PeerConfig{
			{ID: 0, Host: "127.0.0.1", Port: selfPort},
			{ID: 1, Host: "127.0.0.1", Port: selfPort + 1},
		},
	}
}

func TestNewRejectsUnknownID(t *testing.T) {
	_, err := New(99, testConfig(20001))
	assert.Error(t, err)
}

func TestNewBuildsNodeForKnownID(t *testing.T) {
	n, err := New(0, testConfig(20003))
	require.NoError(t, err)
	assert.NotNil(t, n.Chain())
	assert.True(t, n.Chain().FinalizedTip().IsGenesis())
}

func TestSubmitTransactionDrainedOnce(t *testing.T) {
	n, err := New(0, testConfig(20005))
	require.NoError(t, err)

	n.SubmitTransaction(chain.Transaction{Sender: 0, Receiver: 1, TxID: 1, Amount: 10})
	n.SubmitTransaction(chain.Transaction{Sender: 0, Receiver: 1, TxID: 2, Amount: 20})

	first := n.drainPendingTx()
	require.Len(t, first, 2)

	second := n.drainPendingTx()
	assert.Empty(t, second, "draining must clear the buffer")
}
