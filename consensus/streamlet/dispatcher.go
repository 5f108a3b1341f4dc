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

	"github.com/ground-x/streamlet/message"
)

// confusionPollInterval is how often the dispatcher rechecks whether the
// confusion period has ended while it is buffering inbound messages
// instead of delivering them.
const confusionPollInterval = 100 * time.Millisecond

// dispatcher is the single-threaded consumer of a Link's inbound queue.
// It either hands a message straight to the URB layer, or, during a
// confusion period, appends it to an in-memory FIFO for later delivery.
// Once the confusion period ends the buffer drains in arrival order
// before any fresh traffic is consumed. Running this as one goroutine
// keeps delivery order deterministic per node without needing a lock
// around the URB dedup set.
type dispatcher struct {
	inbound         <-chan *message.Message
	urb             *URB
	confusionActive func() bool

	mu     sync.Mutex
	buffer []*message.Message
}

func newDispatcher(inbound <-chan *message.Message, urb *URB, confusionActive func() bool) *dispatcher {
	return &dispatcher{inbound: inbound, urb: urb, confusionActive: confusionActive}
}

// run blocks until ctx is cancelled or the inbound channel is closed.
func (d *dispatcher) run(ctx context.Context) {
	for {
		if d.confusionActive() {
			if !d.buffer1(ctx) {
				return
			}
			continue
		}
		if d.drainOne() {
			continue
		}
		select {
		case m, ok := <-d.inbound:
			if !ok {
				return
			}
			d.urb.HandleInbound(m)
		case <-ctx.Done():
			return
		}
	}
}

// buffer1 appends one inbound message to the hold buffer, or simply
// waits out one poll tick if none arrives, so the confusion predicate is
// rechecked regularly. Returns false if the dispatcher should stop.
func (d *dispatcher) buffer1(ctx context.Context) bool {
	select {
	case m, ok := <-d.inbound:
		if !ok {
			return false
		}
		d.mu.Lock()
		d.buffer = append(d.buffer, m)
		d.mu.Unlock()
		return true
	case <-time.After(confusionPollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}

// drainOne delivers the oldest buffered message, if any, and reports
// whether it did.
func (d *dispatcher) drainOne() bool {
	d.mu.Lock()
	if len(d.buffer) == 0 {
		d.mu.Unlock()
		return false
	}
	m := d.buffer[0]
	d.buffer = d.buffer[1:]
	d.mu.Unlock()
	d.urb.HandleInbound(m)
	return true
}
