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

// Package random implements a uniform-random search strategy: every
// Generate call draws an independent index per dimension.
package random

import (
	"math/rand"
	"time"

	"harmony/internal/harmony/core"
	"harmony/internal/harmony/plugin"
	"harmony/pkg/hcfg"
	"harmony/pkg/hperf"
	"harmony/pkg/hspace"
)

// Name is the value clients set SESSION_STRATEGY to in order to select
// this strategy.
const Name = "random"

func init() {
	plugin.RegisterStrategy(Name, New,
		hcfg.KeyInfo{Key: hcfg.KeyRandomSeed, Default: "0", Type: hcfg.TypeInt,
			Desc: "seed for the random search strategy; 0 seeds from the session's current time"},
	)
}

// Strategy draws independent uniform indices per dimension. It tracks
// the best point it has seen by first reported performance value (lower
// is better), mirroring the single-objective convention used throughout
// the session core.
type Strategy struct {
	store *hcfg.Store
	rng   *rand.Rand

	space    hspace.Space
	best     hspace.Point
	bestPerf hperf.Vector
	have     bool
}

// New constructs a random strategy reading its seed from store.
func New(store *hcfg.Store) (core.Strategy, error) {
	return &Strategy{store: store}, nil
}

// Init seeds the generator. A RANDOM_SEED of 0 seeds from the current
// wall-clock time in nanoseconds rather than producing a fixed sequence,
// mirroring the original's srand48(time(NULL)) fallback.
func (s *Strategy) Init(e *core.Engine, space hspace.Space) error {
	s.space = space
	seed := s.store.IntOr(hcfg.KeyRandomSeed, 0)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))
	s.have = false
	return nil
}

// Generate draws a fresh uniform index for every dimension.
func (s *Strategy) Generate(e *core.Engine, flow *core.Flow, point *hspace.Point) error {
	for i, d := range s.space.Dims {
		n := d.Size()
		if n <= 0 {
			point.Index[i] = 0
			continue
		}
		point.Index[i] = s.rng.Int63n(n)
	}
	return nil
}

// Rejected rewrites the point exactly as Generate does: a fresh
// independent draw.
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

// betterThan reports whether a improves on b under the session's
// single-objective, lower-is-better convention, comparing the first
// performance slot only.
func betterThan(a, b hperf.Vector) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return a[0] < b[0]
}
