// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire frames and serialises the request/response records
// exchanged between the session core and its clients on a single duplex
// channel. Every record is length-prefixed and carries a type tag, a
// status, a source-id string, and a type-dependent payload.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the fixed sentinel opening every record.
const Magic uint32 = 0x5261793A

// ProtocolVersion is the only version this codec understands. A record
// bearing any other version is a fatal framing error.
const ProtocolVersion uint16 = 1

// headerLen is the fixed byte count of magic+length+version preceding
// the record body. The length field's value is the total on-wire size
// of the record, header included, so a payload of p bytes yields
// length == headerLen+2(type+status)+2(source-id prefix)+len(sourceID)+len(p).
// Concretely: Length = total record bytes; Payload = everything after
// type, status and source-id within those Length bytes.
const headerLen = 8

// Type tags the kind of record on the channel.
type Type uint8

const (
	TypeSession Type = iota + 1
	TypeJoin
	TypeGetConfig
	TypeSetConfig
	TypeBest
	TypeFetch
	TypeReport
	TypeRestart
)

func (t Type) String() string {
	switch t {
	case TypeSession:
		return "SESSION"
	case TypeJoin:
		return "JOIN"
	case TypeGetConfig:
		return "GETCFG"
	case TypeSetConfig:
		return "SETCFG"
	case TypeBest:
		return "BEST"
	case TypeFetch:
		return "FETCH"
	case TypeReport:
		return "REPORT"
	case TypeRestart:
		return "RESTART"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Status tags whether a record is a request or one of the three reply
// kinds.
type Status uint8

const (
	StatusReq Status = iota + 1
	StatusOK
	StatusFail
	StatusBusy
)

func (s Status) String() string {
	switch s {
	case StatusReq:
		return "REQ"
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusBusy:
		return "BUSY"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Record is one message on the channel. Payload holds the type-tagged
// body, already encoded by the helpers in body.go.
type Record struct {
	Type     Type
	Status   Status
	SourceID string
	Payload  []byte
}

// ErrShortRead reports a clean end-of-stream: the peer closed the
// channel between records, with no partial frame pending.
var ErrShortRead = errors.New("wire: short read at record boundary")

// FramingError covers a malformed or mid-frame-truncated record: bad
// magic, unsupported version, or a read that died partway through an
// otherwise-announced frame. It is always fatal to the channel.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string { return "wire: framing error: " + e.Reason }

// WriteRecord serialises rec and writes it to w, looping until every
// byte is transferred.
func WriteRecord(w io.Writer, rec Record) error {
	body := marshalBody(rec)
	total := headerLen + len(body)
	if total > 0xFFFF {
		return &FramingError{Reason: fmt.Sprintf("record too large: %d bytes", total)}
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(total))
	binary.BigEndian.PutUint16(buf[6:8], ProtocolVersion)
	copy(buf[headerLen:], body)

	return writeFull(w, buf)
}

// ReadRecord blocks until a full record is available, or returns
// ErrShortRead on a clean end-of-stream, or a *FramingError on a
// malformed or truncated frame.
func ReadRecord(r io.Reader) (Record, error) {
	hdr := make([]byte, headerLen)
	if err := readFull(r, hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, ErrShortRead
		}
		return Record{}, &FramingError{Reason: err.Error()}
	}

	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != Magic {
		return Record{}, &FramingError{Reason: fmt.Sprintf("bad magic 0x%08x", magic)}
	}
	length := binary.BigEndian.Uint16(hdr[4:6])
	version := binary.BigEndian.Uint16(hdr[6:8])
	if version != ProtocolVersion {
		return Record{}, &FramingError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	if int(length) < headerLen {
		return Record{}, &FramingError{Reason: fmt.Sprintf("length %d shorter than header", length)}
	}

	body := make([]byte, int(length)-headerLen)
	if err := readFull(r, body); err != nil {
		return Record{}, &FramingError{Reason: err.Error()}
	}

	return unmarshalBody(body)
}

// writeFull loops until every byte of buf has been written.
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// readFull loops until len(buf) bytes have been read, distinguishing a
// clean io.EOF (nothing read yet) from a partial read cut off mid-frame
// (io.ErrUnexpectedEOF, or any other error).
func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}

func marshalBody(rec Record) []byte {
	w := newBinWriter()
	w.u8(uint8(rec.Type))
	w.u8(uint8(rec.Status))
	w.str(rec.SourceID)
	w.bytesRaw(rec.Payload)
	return w.bytes_()
}

func unmarshalBody(body []byte) (Record, error) {
	r := newBinReader(body)
	typ := Type(r.u8())
	status := Status(r.u8())
	src := r.str()
	payload := r.rest()
	if r.err != nil {
		return Record{}, &FramingError{Reason: r.err.Error()}
	}
	return Record{Type: typ, Status: status, SourceID: src, Payload: payload}, nil
}
