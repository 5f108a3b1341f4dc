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

// Package p2p is the peer link layer: a pool of persistent,
// length-prefixed stream connections to every other participant, with
// lazy reconnection. The peer set is static and known at startup; there
// is no discovery and no protocol handshake.
package p2p

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ground-x/streamlet/chain"
	"github.com/ground-x/streamlet/log"
	"github.com/ground-x/streamlet/message"
	"github.com/pkg/errors"
)

var logger = log.NewModuleLogger(log.P2PModule)

// Addr is a peer's dial target.
type Addr struct {
	ID   uint32
	Host string
	Port uint16
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// peerConn pairs a live socket with the write lock that serializes frame
// writes on it. Concurrent senders (the dispatcher echoing, the epoch
// loop proposing) share one socket per peer; interleaving their writes
// would corrupt frame boundaries.
type peerConn struct {
	wmu  sync.Mutex
	conn net.Conn
}

func (p *peerConn) writeFrame(m *message.Message) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return message.WriteFrame(p.conn, m)
}

// Link owns the outbound socket to every peer plus the listening socket
// that accepts their inbound connections, and exposes a single inbound
// queue that every reader goroutine feeds.
type Link struct {
	selfID     uint32
	listenAddr string
	peers      map[uint32]Addr

	mu    sync.Mutex
	conns map[uint32]*peerConn // nil entry means "disconnected, retry later"

	inbound  chan *message.Message
	listener net.Listener

	txSink func(chain.Transaction)

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Link that will listen on listenAddr and dial every entry
// in peers. selfID is excluded from peers automatically if present.
func New(selfID uint32, listenAddr string, peers map[uint32]Addr, inboundBuffer int) *Link {
	conns := make(map[uint32]*peerConn, len(peers))
	for id := range peers {
		if id == selfID {
			continue
		}
		conns[id] = nil
	}
	return &Link{
		selfID:     selfID,
		listenAddr: listenAddr,
		peers:      peers,
		conns:      conns,
		inbound:    make(chan *message.Message, inboundBuffer),
	}
}

// Inbound is the queue every reader task appends decoded messages to.
func (l *Link) Inbound() <-chan *message.Message {
	return l.inbound
}

// SetTxnSink registers the callback that externally submitted
// transaction frames are routed to. Connections that never send a
// KindTxn frame never invoke it.
func (l *Link) SetTxnSink(sink func(chain.Transaction)) {
	l.txSink = sink
}

// Start opens the listening socket, begins accepting inbound connections,
// dials every peer, and launches the periodic reconnector. reconnectEvery
// is typically half an epoch.
func (l *Link) Start(ctx context.Context, reconnectEvery time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	ln, err := net.Listen("tcp", l.listenAddr)
	if err != nil {
		cancel()
		return errors.Wrap(err, "p2p: listen")
	}
	l.listener = ln

	l.wg.Add(1)
	go l.acceptLoop(ctx)

	for id, addr := range l.peers {
		if id == l.selfID {
			continue
		}
		l.dial(ctx, id, addr)
	}

	l.wg.Add(1)
	go l.reconnectLoop(ctx, reconnectEvery)

	return nil
}

// Close terminates the listener and every peer connection, unblocking any
// goroutine currently reading or writing.
func (l *Link) Close() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.listener != nil {
		l.listener.Close()
	}
	l.mu.Lock()
	for id, c := range l.conns {
		if c != nil {
			c.conn.Close()
		}
		l.conns[id] = nil
	}
	l.mu.Unlock()
	l.wg.Wait()
	close(l.inbound)
}

func (l *Link) acceptLoop(ctx context.Context) {
	defer l.wg.Done()
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Warn("accept failed", "err", err)
				return
			}
		}
		setKeepAlive(conn)
		l.wg.Add(1)
		go l.readLoop(ctx, conn)
	}
}

func (l *Link) readLoop(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close() // unblock the read below on Close
		case <-done:
		}
	}()
	for {
		kind, payload, err := message.ReadAnyFrame(conn)
		if err != nil {
			logger.Debug("reader terminating", "err", err)
			return
		}
		switch kind {
		case message.KindTxn:
			l.handleTxnFrame(payload)
		default:
			m, err := message.Deserialize(payload)
			if err != nil {
				logger.Warn("dropping malformed frame", "err", err)
				continue
			}
			select {
			case l.inbound <- m:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleTxnFrame decodes an externally submitted transaction frame and
// routes it to the registered sink, if any. A malformed frame is dropped
// and logged; the connection stays up.
func (l *Link) handleTxnFrame(payload []byte) {
	tx, err := message.DeserializeTxn(payload)
	if err != nil {
		logger.Warn("dropping malformed transaction frame", "err", err)
		return
	}
	if l.txSink != nil {
		l.txSink(*tx)
	}
}

// dial attempts one outbound connection to id; on success it is recorded,
// on failure the entry is left null for the reconnector to retry.
func (l *Link) dial(ctx context.Context, id uint32, addr Addr) {
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		logger.Debug("dial failed, will retry", "peer", id, "err", err)
		return
	}
	setKeepAlive(conn)

	pc := &peerConn{conn: conn}
	l.mu.Lock()
	l.conns[id] = pc
	l.mu.Unlock()

	l.wg.Add(1)
	go l.readLoop(ctx, conn)
}

func (l *Link) reconnectLoop(ctx context.Context, every time.Duration) {
	defer l.wg.Done()
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			var toRetry []uint32
			for id, c := range l.conns {
				if c == nil {
					toRetry = append(toRetry, id)
				}
			}
			l.mu.Unlock()
			for _, id := range toRetry {
				l.dial(ctx, id, l.peers[id])
			}
		}
	}
}

// Send writes m to peer id. If the socket is down, the message is
// dropped silently; the entry stays nil for the reconnector to heal. On
// a write error the socket is closed and the entry nulled the same way.
func (l *Link) Send(id uint32, m *message.Message) error {
	l.mu.Lock()
	pc := l.conns[id]
	l.mu.Unlock()
	if pc == nil {
		return nil
	}
	if err := pc.writeFrame(m); err != nil {
		l.mu.Lock()
		if l.conns[id] == pc {
			l.conns[id] = nil
		}
		l.mu.Unlock()
		pc.conn.Close()
		logger.Warn("send failed, marking peer disconnected", "peer", id, "err", err)
		return err
	}
	return nil
}

// Broadcast sends m to every known peer.
func (l *Link) Broadcast(m *message.Message) {
	l.mu.Lock()
	ids := make([]uint32, 0, len(l.conns))
	for id := range l.conns {
		ids = append(ids, id)
	}
	l.mu.Unlock()
	for _, id := range ids {
		if err := l.Send(id, m); err != nil {
			continue
		}
	}
}

// PeerCount reports how many peers this link tracks (excluding self).
func (l *Link) PeerCount() int {
	return len(l.conns)
}

func setKeepAlive(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
	}
}
