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

package message

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/ground-x/streamlet/chain"
	"github.com/pkg/errors"
)

// maxFrameSize bounds a single decoded frame, guarding against a
// corrupted or hostile length prefix causing an unbounded allocation.
const maxFrameSize = 32 << 20 // 32 MiB

// FrameKind tags what a frame's payload decodes as, so a single listening
// socket can carry both peer-to-peer consensus Messages and externally
// submitted transactions. The tag is the first byte of the
// length-prefixed payload, never part of the canonical hash of either.
type FrameKind byte

const (
	// KindMessage tags a frame whose payload is a serialized Message.
	KindMessage FrameKind = iota
	// KindTxn tags a frame whose payload is a serialized chain.Transaction,
	// submitted directly by an external workload rather than relayed by
	// the consensus protocol.
	KindTxn
)

// Serialize produces the opaque, self-describing payload for m. Peers
// only ever compare payloads through the canonical Message.Hash, so the
// encoding needs to be bijective and stable across nodes but nothing
// stronger; gob satisfies that without a code-generation step.
func Serialize(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errors.Wrap(err, "message: serialize")
	}
	return buf.Bytes(), nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(payload []byte) (*Message, error) {
	var m Message
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "message: deserialize")
	}
	return &m, nil
}

// WriteFrame writes m to w as a big-endian u32 length followed by a
// one-byte KindMessage tag and the serialized payload.
func WriteFrame(w io.Writer, m *Message) error {
	payload, err := Serialize(m)
	if err != nil {
		return err
	}
	return writeTaggedFrame(w, KindMessage, payload)
}

// WriteTxnFrame writes tx to w as a KindTxn frame, the external
// transaction-ingress path.
func WriteTxnFrame(w io.Writer, tx *chain.Transaction) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tx); err != nil {
		return errors.Wrap(err, "message: serialize transaction")
	}
	return writeTaggedFrame(w, KindTxn, buf.Bytes())
}

func writeTaggedFrame(w io.Writer, kind FrameKind, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)+1))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "message: write frame length")
	}
	if _, err := w.Write([]byte{byte(kind)}); err != nil {
		return errors.Wrap(err, "message: write frame kind")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "message: write frame payload")
	}
	return nil
}

// ReadFrame reads one length-prefixed frame from r and decodes it as a
// Message; it is an error for the frame to carry a different FrameKind.
func ReadFrame(r io.Reader) (*Message, error) {
	kind, payload, err := ReadAnyFrame(r)
	if err != nil {
		return nil, err
	}
	if kind != KindMessage {
		return nil, errors.Errorf("message: expected message frame, got kind %d", kind)
	}
	return Deserialize(payload)
}

// ReadAnyFrame reads one length-prefixed frame from r without assuming
// its kind, for callers (the peer link's accept loop) that must route a
// frame to either the consensus dispatcher or the transaction sink
// depending on its tag.
func ReadAnyFrame(r io.Reader) (FrameKind, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err // EOF propagates as-is so callers can detect connection close
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	if size == 0 {
		return 0, nil, errors.New("message: frame has no kind tag")
	}
	if size > maxFrameSize {
		return 0, nil, errors.Errorf("message: frame size %d exceeds maximum %d", size, maxFrameSize)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, errors.Wrap(err, "message: read frame payload")
	}
	return FrameKind(buf[0]), buf[1:], nil
}

// DeserializeTxn is the inverse of WriteTxnFrame's payload encoding.
func DeserializeTxn(payload []byte) (*chain.Transaction, error) {
	var tx chain.Transaction
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&tx); err != nil {
		return nil, errors.Wrap(err, "message: deserialize transaction")
	}
	return &tx, nil
}
