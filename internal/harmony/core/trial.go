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

package core

import (
	"harmony/pkg/hperf"
	"harmony/pkg/hspace"
)

// Trial pairs a candidate point with its performance vector. A trial
// slot is free when its Point carries hspace.NoPointID.
type Trial struct {
	Point hspace.Point
	Perf  hperf.Vector
}

func (t *Trial) free() bool { return t.Point.ID == hspace.NoPointID }

func (t *Trial) reset(dims int, perfWidth int) {
	t.Point = hspace.NewPoint(dims)
	t.Perf = hperf.New(perfWidth)
}
