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

// Package exhaustive implements a deterministic sweep strategy: the
// point id, reduced modulo each dimension's size, is its index on that
// dimension. Every id therefore maps to the same point forever, which
// makes this strategy useful for reproducing a run or walking a space
// exhaustively in point-id order.
package exhaustive

import (
	"harmony/internal/harmony/core"
	"harmony/internal/harmony/plugin"
	"harmony/pkg/hcfg"
	"harmony/pkg/hperf"
	"harmony/pkg/hspace"
)

// Name is the value clients set SESSION_STRATEGY to in order to select
// this strategy.
const Name = "exhaustive"

func init() {
	plugin.RegisterStrategy(Name, New)
}

// Strategy sweeps the space deterministically: point.ID mod dimension
// size gives the index on each dimension.
type Strategy struct {
	space hspace.Space

	best     hspace.Point
	bestPerf hperf.Vector
	have     bool
}

// New constructs an exhaustive sweep strategy.
func New(store *hcfg.Store) (core.Strategy, error) {
	return &Strategy{}, nil
}

// Init records the space being swept.
func (s *Strategy) Init(e *core.Engine, space hspace.Space) error {
	s.space = space
	s.have = false
	return nil
}

// Generate derives every dimension's index from the point's own id, so
// the sweep is a pure function of id and needs no internal cursor.
func (s *Strategy) Generate(e *core.Engine, flow *core.Flow, point *hspace.Point) error {
	for i, d := range s.space.Dims {
		n := d.Size()
		if n <= 0 {
			point.Index[i] = 0
			continue
		}
		point.Index[i] = point.ID % n
	}
	return nil
}

// Rejected rewrites the point exactly as Generate does, from the point's
// unchanged id, so it produces the same coordinates that were rejected;
// it does not obtain a fresh id or step past the rejected point.
func (s *Strategy) Rejected(e *core.Engine, flow *core.Flow, point *hspace.Point) error {
	return s.Generate(e, flow, point)
}

// Analyze records trial as the new best whenever its first performance
// value improves on the incumbent.
func (s *Strategy) Analyze(e *core.Engine, trial *core.Trial) error {
	if !s.have || betterThan(trial.Perf, s.bestPerf) {
		s.best = trial.Point.Clone()
		s.bestPerf = trial.Perf
		s.have = true
	}
	return nil
}

// Best returns the best point seen so far, or a free point if Analyze
// has never been called.
func (s *Strategy) Best() hspace.Point {
	if !s.have {
		return hspace.NewPoint(len(s.space.Dims))
	}
	return s.best
}

func betterThan(a, b hperf.Vector) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return a[0] < b[0]
}
