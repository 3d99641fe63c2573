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
	"encoding/binary"
	"fmt"
	"math"
)

// binWriter accumulates a record body using the fixed-width and
// length-prefixed-string primitives every body type in this package
// shares.
type binWriter struct {
	buf []byte
}

func newBinWriter() *binWriter { return &binWriter{} }

func (w *binWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *binWriter) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *binWriter) i32(v int32)  { w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v)) }
func (w *binWriter) i64(v int64)  { w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v)) }
func (w *binWriter) f64(v float64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// str writes a uint16-length-prefixed UTF-8 string.
func (w *binWriter) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// bytes writes a uint32-length-prefixed blob, used for the record's
// final type-dependent payload field.
func (w *binWriter) bytes(b []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// bytesRaw appends b with no length prefix, for nesting an
// already-framed sub-encoding (e.g. a payload built by another encoder).
func (w *binWriter) bytesRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *binWriter) bytes_() []byte { return w.buf }

// binReader consumes a body written by binWriter. A read past the end
// of the buffer latches err and every subsequent read becomes a no-op,
// so callers can chain reads and check err once at the end.
type binReader struct {
	buf []byte
	pos int
	err error
}

func newBinReader(buf []byte) *binReader { return &binReader{buf: buf} }

func (r *binReader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("wire: buffer underrun, need %d bytes at offset %d of %d", n, r.pos, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *binReader) u8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *binReader) u16() uint16 {
	b := r.need(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *binReader) i32() int32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (r *binReader) i64() int64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *binReader) f64() float64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *binReader) str() string {
	n := r.u16()
	b := r.need(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *binReader) bytes() []byte {
	n := r.i32()
	if r.err != nil {
		return nil
	}
	b := r.need(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// rest returns every remaining byte without a length prefix, for the
// record body's final payload field (its own length was already
// consumed by the outer framing).
func (r *binReader) rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf[r.pos:]
	r.pos = len(r.buf)
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
