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
	"github.com/ground-x/streamlet/common"
	"github.com/ground-x/streamlet/log"
	"github.com/ground-x/streamlet/message"
	"github.com/ground-x/streamlet/metrics"
)

var logger = log.NewModuleLogger(log.ConsensusModule)

// DeliverFunc is invoked exactly once per distinct application message,
// the first time this node observes it by any path.
type DeliverFunc func(m *message.Message)

// linkBroadcaster is the slice of *p2p.Link that URB needs, kept as an
// interface so URB can be exercised in tests without a real socket pair.
type linkBroadcaster interface {
	Broadcast(m *message.Message)
}

// URB implements uniform reliable broadcast by first-echo-flood: a node
// that originates a message sends it directly; a node that receives an
// application message for the first time delivers it locally and floods
// an ECHO of it to every peer; a node that receives an ECHO delivers its
// inner message if that is new, without echoing it again, and drops it
// silently otherwise. A bounded ARC
// window remembers recently delivered hashes so echoes don't re-deliver
// or re-flood indefinitely.
type URB struct {
	link    linkBroadcaster
	selfID  uint32
	seen    *common.HashSet
	deliver DeliverFunc
}

// NewURB wires a URB instance to the given link. windowSize bounds the
// dedup set.
func NewURB(link linkBroadcaster, selfID uint32, windowSize int, deliver DeliverFunc) *URB {
	return &URB{
		link:    link,
		selfID:  selfID,
		seen:    common.NewHashSet(windowSize),
		deliver: deliver,
	}
}

// Broadcast originates a fresh application message: mark it seen locally
// (so our own echo of it, should one arrive via a peer relaying it back,
// is dropped) and flood it directly.
func (u *URB) Broadcast(m *message.Message) {
	u.seen.Add(m.Hash())
	u.deliver(m)
	u.link.Broadcast(m)
}

// HandleInbound processes one message read off the link: application
// messages are delivered-and-echoed on first sight, echoes are unwrapped
// and their inner payload delivered on first sight, with no further echo.
func (u *URB) HandleInbound(m *message.Message) {
	if m.Kind == message.Echo {
		u.observe(m.Inner, false)
		return
	}
	u.observe(m, true)
}

func (u *URB) observe(m *message.Message, echo bool) {
	if !u.seen.Add(m.Hash()) {
		return // already delivered, drop
	}
	metrics.URBDeliverCount.Inc(1)
	u.deliver(m)
	if echo {
		u.link.Broadcast(message.NewEcho(m, u.selfID))
	}
}
