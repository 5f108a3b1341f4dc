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

package p2p

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/message"
	"github.com/stretchr/testify/require"
)

// dialRetry dials addr, retrying briefly on failure until timeout.
func dialRetry(addr string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	return nil, lastErr
}

func TestLinkSendReceive(t *testing.T) {
	addrA := Addr{ID: 1, Host: "127.0.0.1", Port: 19991}
	addrB := Addr{ID: 2, Host: "127.0.0.1", Port: 19992}
	peers := map[uint32]Addr{1: addrA, 2: addrB}

	linkA := New(1, addrA.String(), peers, 8)
	linkB := New(2, addrB.String(), peers, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, linkA.Start(ctx, 50*time.Millisecond))
	require.NoError(t, linkB.Start(ctx, 50*time.Millisecond))
	defer linkA.Close()
	defer linkB.Close()

	// give both dialers a moment to connect to each other.
	time.Sleep(200 * time.Millisecond)

	m := message.NewPropose(chain.Genesis(), 1)
	require.NoError(t, linkA.Send(2, m))

	select {
	case got := <-linkB.Inbound():
		require.Equal(t, m.Hash(), got.Hash())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestLinkSendToDownPeerDropsSilently(t *testing.T) {
	peers := map[uint32]Addr{1: {ID: 1, Host: "127.0.0.1", Port: 19993}, 2: {ID: 2, Host: "127.0.0.1", Port: 19994}}
	link := New(1, peers[1].String(), peers, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, link.Start(ctx, time.Hour))
	defer link.Close()

	err := link.Send(2, message.NewVote(chain.Genesis(), 1))
	require.NoError(t, err) // peer 2 never started listening; dial already failed, entry stays nil
}

// TestLinkRoutesTxnFrameToSink exercises the external transaction
// ingress: a raw TXN frame on the listening socket must be routed to
// the registered sink rather than appearing on Inbound.
func TestLinkRoutesTxnFrameToSink(t *testing.T) {
	addr := Addr{ID: 1, Host: "127.0.0.1", Port: 19995}
	link := New(1, addr.String(), map[uint32]Addr{1: addr}, 8)

	var mu sync.Mutex
	var got chain.Transaction
	received := make(chan struct{})
	link.SetTxnSink(func(tx chain.Transaction) {
		mu.Lock()
		got = tx
		mu.Unlock()
		close(received)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, link.Start(ctx, time.Hour))
	defer link.Close()

	conn, err := dialRetry(addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	tx := &chain.Transaction{Sender: 7, Receiver: 8, TxID: 1, Amount: 42}
	require.NoError(t, message.WriteTxnFrame(conn, tx))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for txn sink invocation")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, *tx, got)
}
