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

package random

import (
	"testing"

	"harmony/internal/harmony/core"
	"harmony/pkg/hcfg"
	"harmony/pkg/hperf"
	"harmony/pkg/hspace"
)

func testSpace() hspace.Space {
	return hspace.Space{Name: "t", Dims: []hspace.Dimension{
		hspace.NewInt("x", 0, 9, 1),
		hspace.NewReal("y", 0, 1, 0.1),
	}}
}

func newStrategy(t *testing.T, seed int64) *Strategy {
	t.Helper()
	store := hcfg.New()
	if seed != 0 {
		store.Set(hcfg.KeyRandomSeed, "7")
	}
	s, err := New(store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	strat := s.(*Strategy)
	if err := strat.Init(nil, testSpace()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return strat
}

func TestGenerateStaysInDimensionBounds(t *testing.T) {
	s := newStrategy(t, 7)
	space := testSpace()

	for i := 0; i < 200; i++ {
		point := hspace.NewPoint(space.Len())
		if err := s.Generate(nil, &core.Flow{}, &point); err != nil {
			t.Fatalf("Generate: %v", err)
		}
		for d, dim := range space.Dims {
			if point.Index[d] < 0 || point.Index[d] >= dim.Size() {
				t.Fatalf("dimension %d index %d out of range [0, %d)", d, point.Index[d], dim.Size())
			}
		}
	}
}

func TestAnalyzeTracksLowerIsBetter(t *testing.T) {
	s := newStrategy(t, 7)

	worse := &core.Trial{Point: hspace.Point{ID: 1, Index: []int64{1, 1}}, Perf: hperf.Vector{10}}
	better := &core.Trial{Point: hspace.Point{ID: 2, Index: []int64{2, 2}}, Perf: hperf.Vector{1}}

	if err := s.Analyze(nil, worse); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Best().ID != 1 {
		t.Fatalf("Best().ID = %d, want 1", s.Best().ID)
	}

	if err := s.Analyze(nil, better); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Best().ID != 2 {
		t.Fatalf("Best().ID = %d, want 2 after a strictly better trial", s.Best().ID)
	}

	if err := s.Analyze(nil, worse); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Best().ID != 2 {
		t.Fatalf("Best().ID = %d, want 2 (a worse trial must not displace the incumbent)", s.Best().ID)
	}
}

func TestBestBeforeAnyAnalyzeIsFree(t *testing.T) {
	s := newStrategy(t, 7)
	if !s.Best().Free() {
		t.Fatalf("Best() should be a free point before Analyze has ever run")
	}
}
