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
	"fmt"

	"harmony/pkg/hspace"
)

// EncodeDimension serialises a single search-space dimension.
func EncodeDimension(d hspace.Dimension) []byte {
	w := newBinWriter()
	w.u8(uint8(d.Kind))
	w.str(d.Name)
	switch d.Kind {
	case hspace.KindInt, hspace.KindReal:
		w.f64(d.Min)
		w.f64(d.Max)
		w.f64(d.Step)
	case hspace.KindEnum:
		w.u16(uint16(len(d.Values)))
		for _, v := range d.Values {
			w.str(v)
		}
	}
	return w.bytes_()
}

// DecodeDimension is the inverse of EncodeDimension.
func DecodeDimension(b []byte) (hspace.Dimension, error) {
	r := newBinReader(b)
	d := hspace.Dimension{Kind: hspace.Kind(r.u8())}
	d.Name = r.str()
	switch d.Kind {
	case hspace.KindInt, hspace.KindReal:
		d.Min = r.f64()
		d.Max = r.f64()
		d.Step = r.f64()
	case hspace.KindEnum:
		n := r.u16()
		d.Values = make([]string, n)
		for i := range d.Values {
			d.Values[i] = r.str()
		}
	}
	if r.err != nil {
		return hspace.Dimension{}, r.err
	}
	return d, nil
}

// EncodeSpace serialises a whole search-space description.
func EncodeSpace(s hspace.Space) []byte {
	w := newBinWriter()
	w.str(s.Name)
	w.u16(uint16(len(s.Dims)))
	for _, d := range s.Dims {
		enc := EncodeDimension(d)
		w.u16(uint16(len(enc)))
		w.bytesRaw(enc)
	}
	return w.bytes_()
}

// DecodeSpace is the inverse of EncodeSpace.
func DecodeSpace(b []byte) (hspace.Space, error) {
	r := newBinReader(b)
	s := hspace.Space{Name: r.str()}
	n := r.u16()
	s.Dims = make([]hspace.Dimension, n)
	for i := range s.Dims {
		dlen := r.u16()
		raw := r.need(int(dlen))
		if r.err != nil {
			return hspace.Space{}, r.err
		}
		d, err := DecodeDimension(raw)
		if err != nil {
			return hspace.Space{}, err
		}
		s.Dims[i] = d
	}
	if r.err != nil {
		return hspace.Space{}, r.err
	}
	return s, nil
}

// EncodeValue serialises one type-tagged dimension value.
func EncodeValue(v hspace.Value) []byte {
	w := newBinWriter()
	w.u8(uint8(v.Kind))
	switch v.Kind {
	case hspace.KindInt:
		w.i64(v.Int)
	case hspace.KindReal:
		w.f64(v.Real)
	case hspace.KindEnum:
		w.str(v.Str)
	}
	return w.bytes_()
}

// decodeValue reads one type-tagged value from r.
func decodeValue(r *binReader) hspace.Value {
	kind := hspace.Kind(r.u8())
	v := hspace.Value{Kind: kind}
	switch kind {
	case hspace.KindInt:
		v.Int = r.i64()
	case hspace.KindReal:
		v.Real = r.f64()
	case hspace.KindEnum:
		v.Str = r.str()
	}
	return v
}

// EncodePoint serialises a point's id, step, and resolved per-dimension
// values: `id:i32, step:i32, n:i32` followed by n type-tagged values.
func EncodePoint(p hspace.Point, vals []hspace.Value) []byte {
	w := newBinWriter()
	writePoint(w, p, vals)
	return w.bytes_()
}

func writePoint(w *binWriter, p hspace.Point, vals []hspace.Value) {
	w.i32(int32(p.ID))
	w.i32(int32(p.Step))
	w.i32(int32(len(vals)))
	for _, v := range vals {
		w.bytesRaw(EncodeValue(v))
	}
}

// readPoint decodes a point from an in-progress reader, advancing it
// past exactly the bytes the point occupies so further fields (if any)
// can follow in the same body.
func readPoint(r *binReader) (id, step int64, vals []hspace.Value) {
	id = int64(r.i32())
	step = int64(r.i32())
	n := r.i32()
	vals = make([]hspace.Value, n)
	for i := range vals {
		vals[i] = decodeValue(r)
	}
	return id, step, vals
}

// DecodePoint is the inverse of EncodePoint.
func DecodePoint(b []byte) (id, step int64, vals []hspace.Value, err error) {
	r := newBinReader(b)
	id, step, vals = readPoint(r)
	if r.err != nil {
		return 0, 0, nil, r.err
	}
	return id, step, vals, nil
}

// EncodeConfigMap serialises a config snapshot as a count-prefixed list
// of key/value string pairs.
func EncodeConfigMap(m map[string]string) []byte {
	w := newBinWriter()
	w.u16(uint16(len(m)))
	for k, v := range m {
		w.str(k)
		w.str(v)
	}
	return w.bytes_()
}

// DecodeConfigMap is the inverse of EncodeConfigMap.
func DecodeConfigMap(b []byte) (map[string]string, error) {
	r := newBinReader(b)
	n := r.u16()
	m := make(map[string]string, n)
	for i := 0; i < int(n); i++ {
		k := r.str()
		v := r.str()
		m[k] = v
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// SessionBody is the initial SESSION handshake payload: the authoritative
// search space plus the client's requested initial configuration.
type SessionBody struct {
	Space  hspace.Space
	Config map[string]string
}

func (b SessionBody) Marshal() []byte {
	w := newBinWriter()
	sp := EncodeSpace(b.Space)
	w.u16(uint16(len(sp)))
	w.bytesRaw(sp)
	w.bytesRaw(EncodeConfigMap(b.Config))
	return w.bytes_()
}

func UnmarshalSessionBody(b []byte) (SessionBody, error) {
	r := newBinReader(b)
	splen := r.u16()
	spraw := r.need(int(splen))
	if r.err != nil {
		return SessionBody{}, r.err
	}
	sp, err := DecodeSpace(spraw)
	if err != nil {
		return SessionBody{}, err
	}
	cfg, err := DecodeConfigMap(r.rest())
	if err != nil {
		return SessionBody{}, err
	}
	return SessionBody{Space: sp, Config: cfg}, nil
}

// JoinBody carries the candidate client's search-space description; on
// OK the reply echoes back the session's authoritative space.
type JoinBody struct {
	Space hspace.Space
}

func (b JoinBody) Marshal() []byte { return EncodeSpace(b.Space) }

func UnmarshalJoinBody(b []byte) (JoinBody, error) {
	sp, err := DecodeSpace(b)
	if err != nil {
		return JoinBody{}, err
	}
	return JoinBody{Space: sp}, nil
}

// GetConfigBody carries the requested key; the reply's Payload is the
// raw value string bytes.
type GetConfigBody struct {
	Key string
}

func (b GetConfigBody) Marshal() []byte { return []byte(b.Key) }

func UnmarshalGetConfigBody(b []byte) GetConfigBody { return GetConfigBody{Key: string(b)} }

// SetConfigBody carries "key=value"; the reply's Payload is the prior
// value string (possibly empty if the key was unset).
type SetConfigBody struct {
	Key   string
	Value string
}

func (b SetConfigBody) Marshal() []byte { return []byte(b.Key + "=" + b.Value) }

func UnmarshalSetConfigBody(b []byte) (SetConfigBody, error) {
	s := string(b)
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return SetConfigBody{Key: s[:i], Value: s[i+1:]}, nil
		}
	}
	return SetConfigBody{}, fmt.Errorf("wire: malformed SETCFG body %q, want key=value", s)
}

// FetchBody carries the client's last-known best point id so the reply
// can indicate whether a newer best has since emerged.
type FetchBody struct {
	LastBestID int64
}

func (b FetchBody) Marshal() []byte {
	w := newBinWriter()
	w.i64(b.LastBestID)
	return w.bytes_()
}

func UnmarshalFetchBody(b []byte) (FetchBody, error) {
	r := newBinReader(b)
	id := r.i64()
	if r.err != nil {
		return FetchBody{}, r.err
	}
	return FetchBody{LastBestID: id}, nil
}

// FetchReplyBody carries the dequeued (or current-best) candidate and,
// when FETCH raced a new best, that best's id.
type FetchReplyBody struct {
	Point      hspace.Point
	Values     []hspace.Value
	NewBestID  int64
	HasNewBest bool
}

func (b FetchReplyBody) Marshal() []byte {
	w := newBinWriter()
	writePoint(w, b.Point, b.Values)
	if b.HasNewBest {
		w.u8(1)
		w.i64(b.NewBestID)
	} else {
		w.u8(0)
	}
	return w.bytes_()
}

func UnmarshalFetchReplyBody(b []byte) (FetchReplyBody, error) {
	r := newBinReader(b)
	id, step, vals := readPoint(r)
	hasNew := r.u8() != 0
	var newBestID int64
	if hasNew {
		newBestID = r.i64()
	}
	if r.err != nil {
		return FetchReplyBody{}, r.err
	}
	return FetchReplyBody{
		Point:      hspace.Point{ID: id, Step: step, Index: nil},
		Values:     vals,
		HasNewBest: hasNew,
		NewBestID:  newBestID,
	}, nil
}

// ReportBody carries the candidate id and its measured performance
// vector.
type ReportBody struct {
	CandidateID int64
	Perf        []float64
}

func (b ReportBody) Marshal() []byte {
	w := newBinWriter()
	w.i64(b.CandidateID)
	w.i32(int32(len(b.Perf)))
	for _, p := range b.Perf {
		w.f64(p)
	}
	return w.bytes_()
}

func UnmarshalReportBody(b []byte) (ReportBody, error) {
	r := newBinReader(b)
	id := r.i64()
	n := r.i32()
	perf := make([]float64, n)
	for i := range perf {
		perf[i] = r.f64()
	}
	if r.err != nil {
		return ReportBody{}, r.err
	}
	return ReportBody{CandidateID: id, Perf: perf}, nil
}

// BestBody carries a single point, used as the reply to BEST. FETCH's
// BUSY fallback uses FetchReplyBody instead, and RESTART replies carry
// no payload.
type BestBody struct {
	Point  hspace.Point
	Values []hspace.Value
}

func (b BestBody) Marshal() []byte { return EncodePoint(b.Point, b.Values) }

func UnmarshalBestBody(b []byte) (BestBody, error) {
	id, step, vals, err := DecodePoint(b)
	if err != nil {
		return BestBody{}, err
	}
	return BestBody{Point: hspace.Point{ID: id, Step: step}, Values: vals}, nil
}

// RestartBody is empty; RESTART carries no payload in either direction.
type RestartBody struct{}

func (RestartBody) Marshal() []byte { return nil }
