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

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"harmony/pkg/hspace"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Record{
		Type:     TypeFetch,
		Status:   StatusReq,
		SourceID: "client-1",
		Payload:  FetchBody{LastBestID: 42}.Marshal(),
	}
	if err := WriteRecord(&buf, want); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	got, err := ReadRecord(&buf)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.Type != want.Type || got.Status != want.Status || got.SourceID != want.SourceID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	fb, err := UnmarshalFetchBody(got.Payload)
	if err != nil || fb.LastBestID != 42 {
		t.Fatalf("UnmarshalFetchBody() = (%+v, %v), want LastBestID=42", fb, err)
	}
}

func TestReadRecordCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	_, err := ReadRecord(&buf)
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead on empty stream, got %v", err)
	}
}

func TestReadRecordPartialFrameIsFramingError(t *testing.T) {
	var buf bytes.Buffer
	rec := Record{Type: TypeBest, Status: StatusReq}
	if err := WriteRecord(&buf, rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-1]

	_, err := ReadRecord(bytes.NewReader(truncated))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FramingError on truncated frame, got %v (%T)", err, err)
	}
}

func TestReadRecordBadMagic(t *testing.T) {
	hdr := make([]byte, headerLen)
	binary.BigEndian.PutUint32(hdr[0:4], 0xDEADBEEF)
	binary.BigEndian.PutUint16(hdr[4:6], headerLen)
	binary.BigEndian.PutUint16(hdr[6:8], ProtocolVersion)

	_, err := ReadRecord(bytes.NewReader(hdr))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FramingError on bad magic, got %v", err)
	}
}

func TestReadRecordBadVersion(t *testing.T) {
	hdr := make([]byte, headerLen)
	binary.BigEndian.PutUint32(hdr[0:4], Magic)
	binary.BigEndian.PutUint16(hdr[4:6], headerLen)
	binary.BigEndian.PutUint16(hdr[6:8], ProtocolVersion+1)

	_, err := ReadRecord(bytes.NewReader(hdr))
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FramingError on bad version, got %v", err)
	}
}

// partialWriter only ever accepts one byte per Write call, exercising
// writeFull's loop-until-complete behaviour.
type partialWriter struct {
	buf bytes.Buffer
}

func (p *partialWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return p.buf.Write(b[:1])
}

func TestWriteRecordLoopsUntilComplete(t *testing.T) {
	var pw partialWriter
	rec := Record{Type: TypeJoin, Status: StatusReq, SourceID: "c"}
	if err := WriteRecord(&pw, rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	got, err := ReadRecord(bytes.NewReader(pw.buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if got.Type != TypeJoin || got.SourceID != "c" {
		t.Fatalf("round trip through partial writes failed: %+v", got)
	}
}

// partialReader only ever returns one byte per Read call, exercising
// readFull's loop-until-complete behaviour.
type partialReader struct {
	data []byte
}

func (p *partialReader) Read(b []byte) (int, error) {
	if len(p.data) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.data[:1])
	p.data = p.data[1:]
	return n, nil
}

func TestReadRecordLoopsUntilComplete(t *testing.T) {
	var buf bytes.Buffer
	rec := Record{Type: TypeRestart, Status: StatusOK}
	if err := WriteRecord(&buf, rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	got, err := ReadRecord(&partialReader{data: buf.Bytes()})
	if err != nil {
		t.Fatalf("ReadRecord over one-byte-at-a-time reader: %v", err)
	}
	if got.Type != TypeRestart || got.Status != StatusOK {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestSpaceEncodeDecodeRoundTrip(t *testing.T) {
	space := hspace.Space{
		Name: "demo",
		Dims: []hspace.Dimension{
			hspace.NewInt("x", 0, 9, 1),
			hspace.NewReal("y", 0, 1, 0.25),
			hspace.NewEnum("mode", "fast", "slow"),
		},
	}
	got, err := DecodeSpace(EncodeSpace(space))
	if err != nil {
		t.Fatalf("DecodeSpace: %v", err)
	}
	if !got.Equal(space) {
		t.Fatalf("space round trip mismatch: got %+v, want %+v", got, space)
	}
}

func TestPointEncodeDecodeRoundTrip(t *testing.T) {
	p := hspace.Point{ID: 7, Step: 3, Index: []int64{5, 1}}
	space := hspace.Space{Dims: []hspace.Dimension{
		hspace.NewInt("x", 0, 9, 1),
		hspace.NewEnum("m", "a", "b"),
	}}
	vals := p.Values(space)

	id, step, gotVals, err := DecodePoint(EncodePoint(p, vals))
	if err != nil {
		t.Fatalf("DecodePoint: %v", err)
	}
	if id != 7 || step != 3 {
		t.Fatalf("id/step mismatch: got (%d,%d), want (7,3)", id, step)
	}
	if gotVals[0].Int != 5 || gotVals[1].Str != "b" {
		t.Fatalf("values mismatch: %+v", gotVals)
	}
}

func TestConfigMapEncodeDecodeRoundTrip(t *testing.T) {
	m := map[string]string{"PAUSED": "0", "RANDOM_SEED": "1234"}
	got, err := DecodeConfigMap(EncodeConfigMap(m))
	if err != nil {
		t.Fatalf("DecodeConfigMap: %v", err)
	}
	if len(got) != len(m) || got["PAUSED"] != "0" || got["RANDOM_SEED"] != "1234" {
		t.Fatalf("config map round trip mismatch: %+v", got)
	}
}

func TestSetConfigBodyMarshalUnmarshal(t *testing.T) {
	got, err := UnmarshalSetConfigBody(SetConfigBody{Key: "PAUSED", Value: "1"}.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalSetConfigBody: %v", err)
	}
	if got.Key != "PAUSED" || got.Value != "1" {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestSetConfigBodyMalformedRejected(t *testing.T) {
	if _, err := UnmarshalSetConfigBody([]byte("no-equals-sign")); err == nil {
		t.Fatalf("expected error for body missing '='")
	}
}

func TestFetchReplyBodyRoundTrip(t *testing.T) {
	want := FetchReplyBody{
		Point:      hspace.Point{ID: 3, Step: 1},
		Values:     []hspace.Value{{Kind: hspace.KindInt, Int: 5}},
		HasNewBest: true,
		NewBestID:  9,
	}
	got, err := UnmarshalFetchReplyBody(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalFetchReplyBody: %v", err)
	}
	if got.Point.ID != 3 || !got.HasNewBest || got.NewBestID != 9 {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestReportBodyRoundTrip(t *testing.T) {
	want := ReportBody{CandidateID: 11, Perf: []float64{1.5, 2.25}}
	got, err := UnmarshalReportBody(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalReportBody: %v", err)
	}
	if got.CandidateID != 11 || got.Perf[0] != 1.5 || got.Perf[1] != 2.25 {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestSessionBodyRoundTrip(t *testing.T) {
	want := SessionBody{
		Space:  hspace.Space{Name: "s", Dims: []hspace.Dimension{hspace.NewInt("x", 0, 9, 1)}},
		Config: map[string]string{"CLIENT_COUNT": "1"},
	}
	got, err := UnmarshalSessionBody(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalSessionBody: %v", err)
	}
	if !got.Space.Equal(want.Space) || got.Config["CLIENT_COUNT"] != "1" {
		t.Fatalf("mismatch: %+v", got)
	}
}
