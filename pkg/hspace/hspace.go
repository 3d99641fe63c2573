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

// Package hspace describes the multi-dimensional search space a tuning
// session explores, and the points drawn from it. Every dimension,
// regardless of declared type, is internally a finite index domain
// [0, N); a Point is the vector of those indices plus session-assigned
// metadata (id, step).
package hspace

import (
	"fmt"
	"math"
)

// Kind identifies the declared type of a dimension.
type Kind int

const (
	KindInt Kind = iota
	KindReal
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Dimension is one named axis of the search space. Int and Real dimensions
// are defined by an inclusive [Min, Max] range sampled at Step; Enum
// dimensions are defined by an explicit value list.
type Dimension struct {
	Name   string
	Kind   Kind
	Min    float64
	Max    float64
	Step   float64
	Values []string
}

// NewInt declares an integer dimension stepping from min to max by step.
func NewInt(name string, min, max, step int64) Dimension {
	return Dimension{Name: name, Kind: KindInt, Min: float64(min), Max: float64(max), Step: float64(step)}
}

// NewReal declares a real dimension enumerated at a fixed step.
func NewReal(name string, min, max, step float64) Dimension {
	return Dimension{Name: name, Kind: KindReal, Min: min, Max: max, Step: step}
}

// NewEnum declares a categorical dimension over a fixed value list.
func NewEnum(name string, values ...string) Dimension {
	return Dimension{Name: name, Kind: KindEnum, Values: append([]string(nil), values...)}
}

// Size returns N, the number of distinct indices this dimension admits.
func (d Dimension) Size() int64 {
	switch d.Kind {
	case KindInt, KindReal:
		if d.Step <= 0 {
			return 1
		}
		return int64(math.Floor((d.Max-d.Min)/d.Step)) + 1
	case KindEnum:
		return int64(len(d.Values))
	default:
		return 0
	}
}

// Value is a type-tagged scalar drawn from a dimension at a given index.
type Value struct {
	Kind Kind
	Int  int64
	Real float64
	Str  string
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindEnum:
		return v.Str
	default:
		return ""
	}
}

// ValueAt converts an in-range index into the dimension's typed value.
func (d Dimension) ValueAt(idx int64) Value {
	switch d.Kind {
	case KindInt:
		return Value{Kind: KindInt, Int: int64(d.Min) + idx*int64(d.Step)}
	case KindReal:
		return Value{Kind: KindReal, Real: d.Min + float64(idx)*d.Step}
	case KindEnum:
		if idx < 0 || int(idx) >= len(d.Values) {
			return Value{Kind: KindEnum}
		}
		return Value{Kind: KindEnum, Str: d.Values[idx]}
	default:
		return Value{}
	}
}

// Equal reports whether two dimensions declare the same domain. JOIN
// acceptance depends on every dimension of a client's space matching.
func (d Dimension) Equal(o Dimension) bool {
	if d.Name != o.Name || d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case KindInt, KindReal:
		return d.Min == o.Min && d.Max == o.Max && d.Step == o.Step
	case KindEnum:
		if len(d.Values) != len(o.Values) {
			return false
		}
		for i := range d.Values {
			if d.Values[i] != o.Values[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Space is the ordered, immutable-after-start sequence of named
// dimensions a session searches over.
type Space struct {
	Name string
	Dims []Dimension
}

// Len returns the dimension count.
func (s Space) Len() int { return len(s.Dims) }

// Equal reports whether two spaces declare the same dimensions in the
// same order. Used by the dispatcher to accept or reject a JOIN.
func (s Space) Equal(o Space) bool {
	if len(s.Dims) != len(o.Dims) {
		return false
	}
	for i := range s.Dims {
		if !s.Dims[i].Equal(o.Dims[i]) {
			return false
		}
	}
	return true
}

// NoPointID marks "no point" — an uninitialized or freed trial slot.
const NoPointID int64 = -1

// Point is a coordinate in the search space: one index per dimension,
// plus a session-unique id and an opaque strategy-owned step tag.
type Point struct {
	ID    int64
	Step  int64
	Index []int64
}

// NewPoint allocates a free ("no point") point sized for the given space.
func NewPoint(dims int) Point {
	return Point{ID: NoPointID, Index: make([]int64, dims)}
}

// Free reports whether this point represents an empty trial slot.
func (p Point) Free() bool { return p.ID == NoPointID }

// Clone returns a deep copy; strategies and layers must not retain
// references to a trial's point beyond the call that receives it, so any
// code that needs the value past that point must clone it first.
func (p Point) Clone() Point {
	idx := make([]int64, len(p.Index))
	copy(idx, p.Index)
	return Point{ID: p.ID, Step: p.Step, Index: idx}
}

// Values renders every dimension's typed value for this point against
// the given space. Space and Point must have the same dimension count.
func (p Point) Values(s Space) []Value {
	vals := make([]Value, len(s.Dims))
	for i, d := range s.Dims {
		vals[i] = d.ValueAt(p.Index[i])
	}
	return vals
}
