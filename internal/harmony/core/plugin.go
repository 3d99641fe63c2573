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

import "harmony/pkg/hspace"

// Strategy is the session's single search algorithm. Generate, Rejected
// and Analyze are mandatory; a strategy opts into the optional hooks by
// additionally implementing StrategyInitializer, StrategyJoiner,
// StrategyConfigurable and/or StrategyFinalizer.
//
// Every hook receives the owning Engine so it can register callbacks or
// inspect session state, rather than reaching for process-wide globals.
type Strategy interface {
	// Generate proposes coordinates for point, which already carries a
	// fresh point id; the strategy may overwrite the id and any
	// dimension index. Setting flow.Status to Wait pauses all further
	// generation until the strategy re-enables it via a callback.
	Generate(e *Engine, flow *Flow, point *hspace.Point) error
	// Rejected is called when a layer's REJECT propagates back to the
	// strategy; it must rewrite point for a fresh attempt.
	Rejected(e *Engine, flow *Flow, point *hspace.Point) error
	// Analyze receives a trial that has completed its full reverse
	// pass, immediately before its slot is freed.
	Analyze(e *Engine, trial *Trial) error
	// Best returns the strategy's current best-known point.
	Best() hspace.Point
}

// StrategyInitializer is an optional Strategy hook run at session start
// and after every RESTART.
type StrategyInitializer interface {
	Init(e *Engine, space hspace.Space) error
}

// StrategyJoiner is an optional Strategy hook run for every accepted
// JOIN.
type StrategyJoiner interface {
	Join(e *Engine, sourceID string) error
}

// StrategyConfigurable is an optional Strategy hook run whenever the
// config store changes, before any layer's equivalent hook.
type StrategyConfigurable interface {
	SetConfig(e *Engine, key, value string) error
}

// StrategyFinalizer is an optional Strategy hook run on RESTART and
// shutdown.
type StrategyFinalizer interface {
	Fini(e *Engine) error
}

// Layer is one stage of the ordered processing stack every point
// travels through. A layer's only mandatory behavior is naming itself;
// it participates in the generate and/or analyze pass by additionally
// implementing LayerGenerator and/or LayerAnalyzer, and opts into
// lifecycle hooks via LayerInitializer, LayerJoiner, LayerConfigurable
// and/or LayerFinalizer.
type Layer interface {
	Name() string
}

// LayerGenerator is the forward-pass hook of a layer.
type LayerGenerator interface {
	Generate(e *Engine, flow *Flow, trial *Trial) error
}

// LayerAnalyzer is the reverse-pass hook of a layer.
type LayerAnalyzer interface {
	Analyze(e *Engine, flow *Flow, trial *Trial) error
}

// LayerInitializer is an optional Layer hook run at session start and
// after every RESTART.
type LayerInitializer interface {
	Init(e *Engine, space hspace.Space) error
}

// LayerJoiner is an optional Layer hook run for every accepted JOIN.
type LayerJoiner interface {
	Join(e *Engine, sourceID string) error
}

// LayerConfigurable is an optional Layer hook run whenever the config
// store changes, after the strategy's equivalent hook and in stack
// order.
type LayerConfigurable interface {
	SetConfig(e *Engine, key, value string) error
}

// LayerFinalizer is an optional Layer hook run on RESTART (in reverse
// stack order) and shutdown.
type LayerFinalizer interface {
	Fini(e *Engine) error
}

// CallbackFunc resolves exactly one trial from a waitlist. trials mirrors
// the waitlist at call time; the callback must set flow.Status to the
// resolved trial's outcome and return that trial's index within trials.
type CallbackFunc func(flow *Flow, trials []*Trial) (resolved int, err error)

// callback is a registered (channel, signed-cursor, resolver) triple, as
// established by a plug-in's call to Engine.CallbackGenerate or
// Engine.CallbackAnalyze while it holds the current cursor.
type callback struct {
	ch    <-chan struct{}
	index int
	fn    CallbackFunc
}
