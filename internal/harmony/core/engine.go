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
	"fmt"

	"harmony/pkg/hcfg"
	"harmony/pkg/hperf"
	"harmony/pkg/hspace"
)

// Engine is the pipeline state machine: it owns the trial pool, ready
// queue, per-layer waitlists and the current workflow cursor, and drives
// every point through the strategy and layer stack. Exactly one Engine
// exists per session; it replaces the process-wide globals of the
// original design so every plug-in hook can reach session state through
// its *Engine argument instead of ambient state.
type Engine struct {
	Space    hspace.Space
	Store    *hcfg.Store
	Pool     *Pool
	Ready    *ReadyQueue
	Strategy Strategy
	Layers   []Layer

	cursor   int
	flow     Flow
	paused   bool
	pausedID int64
	nextID   int64

	genWait []([]int)
	anaWait []([]int)

	callbacks []callback
}

// NewEngine constructs an engine for the given space, config store,
// strategy and layer stack. The pool and ready queue start at zero
// capacity; call Grow once clients begin joining.
func NewEngine(space hspace.Space, store *hcfg.Store, strategy Strategy, layers []Layer, perfWidth int) *Engine {
	e := &Engine{
		Space:    space,
		Store:    store,
		Strategy: strategy,
		Layers:   layers,
		Pool:     NewPool(space.Len(), perfWidth),
		Ready:    NewReadyQueue(),
		pausedID: hspace.NoPointID,
	}
	e.genWait = make([][]int, len(layers))
	e.anaWait = make([][]int, len(layers))
	return e
}

// Grow extends the pool and ready queue to the same target capacity, in
// lockstep, as clients join.
func (e *Engine) Grow(target int) error {
	if err := e.Pool.Grow(target); err != nil {
		return err
	}
	return e.Ready.Grow(target)
}

// CanGenerate reports whether the engine may attempt to produce a new
// trial: there is room in the pool and no strategy-issued Wait is
// currently suppressing generation.
func (e *Engine) CanGenerate() bool {
	return !e.paused && e.Pool.PendingLen() < e.Pool.Capacity()
}

// Generate reserves a free slot and asks the strategy to populate it,
// driving the new trial through the generate-pass workflow. Call only
// when CanGenerate reports true.
func (e *Engine) Generate() error {
	idx, err := e.Pool.AllocateSlot()
	if err != nil {
		return err
	}
	trial := e.Pool.Trial(idx)
	trial.Perf.Reset()
	trial.Point.ID = e.nextID
	e.nextID++

	e.flow = Flow{Status: Accept}
	if err := e.Strategy.Generate(e, &e.flow, &trial.Point); err != nil {
		return pluginErr("strategy", "generate", err)
	}
	if e.flow.Status == Wait {
		trial.Point.ID = hspace.NoPointID
		e.paused = true
		return nil
	}

	e.Pool.Commit(idx)
	e.cursor = 1
	return e.runWorkflow(idx)
}

// runWorkflow drives trial idx through the layer stack starting from
// the engine's current cursor, until it completes a pass or yields on a
// Wait.
func (e *Engine) runWorkflow(idx int) error {
	trial := e.Pool.Trial(idx)

	for e.cursor != 0 && abs(e.cursor) <= len(e.Layers) {
		stackIdx := abs(e.cursor) - 1
		layer := e.Layers[stackIdx]

		e.flow = Flow{Status: Accept}
		if e.cursor < 0 {
			if a, ok := layer.(LayerAnalyzer); ok {
				if err := a.Analyze(e, &e.flow, trial); err != nil {
					return pluginErr(layer.Name(), "analyze", err)
				}
			}
		} else {
			if g, ok := layer.(LayerGenerator); ok {
				if err := g.Generate(e, &e.flow, trial); err != nil {
					return pluginErr(layer.Name(), "generate", err)
				}
			}
		}

		yielded, err := e.transition(idx)
		if err != nil {
			return err
		}
		if yielded {
			return nil
		}
	}

	switch {
	case e.cursor == 0:
		if err := e.Strategy.Analyze(e, trial); err != nil {
			return pluginErr("strategy", "analyze", err)
		}
		e.Pool.FreeSlot(idx)
		e.paused = false
	case e.cursor > len(e.Layers):
		if err := e.Ready.Enqueue(idx); err != nil {
			return err
		}
	default:
		return invariantf("invalid current layer cursor %d", e.cursor)
	}
	return nil
}

// transition applies the standard flow.Status -> cursor transition,
// reporting whether the workflow yielded (the trial is now parked on a
// waitlist and runWorkflow must stop).
func (e *Engine) transition(idx int) (yielded bool, err error) {
	switch e.flow.Status {
	case Accept:
		e.cursor += 1
	case Wait:
		e.handleWait(idx)
		return true, nil
	case Return, Retry:
		e.cursor = -e.cursor
	case Reject:
		if err := e.handleReject(idx); err != nil {
			return false, err
		}
		if e.flow.Status == Wait {
			return true, nil
		}
		e.cursor = 1
	default:
		return false, invariantf("unknown flow status %v", e.flow.Status)
	}
	return false, nil
}

// handleReject asks the strategy to rewrite a rejected point. Only
// valid during the generate pass.
func (e *Engine) handleReject(idx int) error {
	if e.cursor < 0 {
		return invariantf("reject is not valid during the analyze pass")
	}
	trial := e.Pool.Trial(idx)
	e.flow = Flow{Status: Accept}
	if err := e.Strategy.Rejected(e, &e.flow, &trial.Point); err != nil {
		return pluginErr("strategy", "rejected", err)
	}
	if e.flow.Status == Wait {
		e.paused = true
	}
	return nil
}

// handleWait appends idx to the waitlist for the engine's current
// cursor, unless it is already present (a trial resumed by a callback
// that immediately re-issues Wait is left exactly where it was).
func (e *Engine) handleWait(idx int) {
	wl := e.waitlist(e.cursor)
	for _, v := range *wl {
		if v == idx {
			return
		}
	}
	*wl = append(*wl, idx)
}

// waitlist returns the waitlist slice for the given signed cursor:
// generate-side if positive, analyze-side if negative.
func (e *Engine) waitlist(cursor int) *[]int {
	stackIdx := abs(cursor) - 1
	if cursor < 0 {
		return &e.anaWait[stackIdx]
	}
	return &e.genWait[stackIdx]
}

// CallbackGenerate registers fn to resume a trial waiting on the
// generate-side waitlist of the layer currently executing, signaled by
// ch becoming readable. Must be called from within that layer's
// Generate hook, while the engine's cursor still names it.
func (e *Engine) CallbackGenerate(ch <-chan struct{}, fn CallbackFunc) int {
	e.callbacks = append(e.callbacks, callback{ch: ch, index: e.cursor, fn: fn})
	return len(e.callbacks) - 1
}

// CallbackAnalyze is CallbackGenerate's analyze-side counterpart.
func (e *Engine) CallbackAnalyze(ch <-chan struct{}, fn CallbackFunc) int {
	e.callbacks = append(e.callbacks, callback{ch: ch, index: -abs(e.cursor), fn: fn})
	return len(e.callbacks) - 1
}

// Callbacks exposes the registered callback channels so a dispatcher can
// multiplex over them alongside the client connection.
func (e *Engine) Callbacks() []<-chan struct{} {
	chans := make([]<-chan struct{}, len(e.callbacks))
	for i, cb := range e.callbacks {
		chans[i] = cb.ch
	}
	return chans
}

// HandleCallback runs the callback registered at id, resolving one trial
// from the waitlist it was registered against.
func (e *Engine) HandleCallback(id int) error {
	cb := e.callbacks[id]
	e.cursor = cb.index

	wl := e.waitlist(e.cursor)
	if len(*wl) == 0 {
		return invariantf("callback on layer with empty waitlist")
	}

	trials := make([]*Trial, len(*wl))
	for i, trialIdx := range *wl {
		trials[i] = e.Pool.Trial(trialIdx)
	}

	e.flow = Flow{Status: Accept}
	resolved, err := cb.fn(&e.flow, trials)
	if err != nil {
		return pluginErr(e.layerNameForCursor(e.cursor), "callback", err)
	}
	if resolved < 0 || resolved >= len(*wl) {
		return invariantf("callback returned out-of-range waitlist index %d", resolved)
	}
	trialIdx := (*wl)[resolved]

	yielded, err := e.transition(trialIdx)
	if err != nil {
		return err
	}
	if yielded {
		return nil
	}

	last := len(*wl) - 1
	(*wl)[resolved] = (*wl)[last]
	*wl = (*wl)[:last]

	return e.runWorkflow(trialIdx)
}

func (e *Engine) layerNameForCursor(cursor int) string {
	idx := abs(cursor) - 1
	if idx < 0 || idx >= len(e.Layers) {
		return "strategy"
	}
	return e.Layers[idx].Name()
}

// ErrRoguePoint reports a REPORT for a candidate id this engine never
// issued and is not the id most recently served as a BUSY fallback. Per
// the unresolved "rogue point" question inherited from the original
// design, this is treated as a hard protocol error rather than silently
// accepted.
type ErrRoguePoint struct{ CandidateID int64 }

func (e *ErrRoguePoint) Error() string {
	return fmt.Sprintf("harmony: report for unrecognized candidate id %d", e.CandidateID)
}

// Report routes a client-reported performance vector through the
// reverse (analyze) pass, starting at the outermost layer. A REPORT for
// the id most recently served as a BUSY fallback best is accepted and
// silently discarded, since the client was never actually assigned that
// point as a trial.
func (e *Engine) Report(candidateID int64, perf []float64) error {
	idx, ok := e.Pool.FindByPointID(candidateID)
	if !ok {
		if candidateID == e.pausedID {
			return nil
		}
		return &ErrRoguePoint{CandidateID: candidateID}
	}
	if len(perf) != e.Pool.perfWidth {
		return &ErrPerfWidth{Got: len(perf), Want: e.Pool.perfWidth}
	}
	e.pausedID = hspace.NoPointID
	trial := e.Pool.Trial(idx)
	trial.Perf.Copy(hperf.Vector(perf))

	e.cursor = -len(e.Layers)
	return e.runWorkflow(idx)
}

// Fetch pops the ready queue and returns the pool slot index of the
// next trial to hand to a client. If the queue is empty or configPaused
// is set, it instead returns the strategy's current best point and
// records its id as the active pausedID, so a client's inevitable
// REPORT against that point can be discarded rather than rejected as a
// rogue point.
func (e *Engine) Fetch(configPaused bool) (idx int, best hspace.Point, busy bool) {
	if !configPaused {
		if head := e.Ready.Peek(); head >= 0 {
			return e.Ready.Dequeue(), hspace.Point{}, false
		}
	}
	best = e.Strategy.Best()
	e.pausedID = best.ID
	return -1, best, true
}

// SetConfig propagates a configuration change to the strategy, then to
// every layer in stack order, preserving that ordering contract even
// when a hook recursively calls SetConfig itself.
func (e *Engine) SetConfig(key, value string) error {
	e.Store.Set(key, value)

	if sc, ok := e.Strategy.(StrategyConfigurable); ok {
		if err := sc.SetConfig(e, key, value); err != nil {
			return pluginErr("strategy", "setcfg", err)
		}
	}
	for _, l := range e.Layers {
		if lc, ok := l.(LayerConfigurable); ok {
			if err := lc.SetConfig(e, key, value); err != nil {
				return pluginErr(l.Name(), "setcfg", err)
			}
		}
	}
	return nil
}

// Join grows the pool/ready queue for one more client and invokes every
// plug-in's Join hook in strategy-then-stack order.
func (e *Engine) Join(sourceID string, perClient int) error {
	if err := e.Grow(e.Pool.Capacity() + perClient); err != nil {
		return err
	}
	if sj, ok := e.Strategy.(StrategyJoiner); ok {
		if err := sj.Join(e, sourceID); err != nil {
			return pluginErr("strategy", "join", err)
		}
	}
	for _, l := range e.Layers {
		if lj, ok := l.(LayerJoiner); ok {
			if err := lj.Join(e, sourceID); err != nil {
				return pluginErr(l.Name(), "join", err)
			}
		}
	}
	return nil
}

// Init runs the strategy's and every layer's Init hook, in stack order.
// Call once at session start, before the first Generate.
func (e *Engine) Init() error {
	if si, ok := e.Strategy.(StrategyInitializer); ok {
		if err := si.Init(e, e.Space); err != nil {
			return pluginErr("strategy", "init", err)
		}
	}
	for _, l := range e.Layers {
		if li, ok := l.(LayerInitializer); ok {
			if err := li.Init(e, e.Space); err != nil {
				return pluginErr(l.Name(), "init", err)
			}
		}
	}
	return nil
}

// Fini runs every layer's Fini hook in reverse stack order, then the
// strategy's. Call on session shutdown.
func (e *Engine) Fini() error {
	for i := len(e.Layers) - 1; i >= 0; i-- {
		if lf, ok := e.Layers[i].(LayerFinalizer); ok {
			if err := lf.Fini(e); err != nil {
				return pluginErr(e.Layers[i].Name(), "fini", err)
			}
		}
	}
	if sf, ok := e.Strategy.(StrategyFinalizer); ok {
		if err := sf.Fini(e); err != nil {
			return pluginErr("strategy", "fini", err)
		}
	}
	return nil
}

// Restart tears down every layer's Fini in reverse stack order, then
// re-initialises the strategy and every layer's Init in forward order.
// The pool and ready queue are left untouched: no trial history is
// preserved, but capacity is not recreated either.
func (e *Engine) Restart() error {
	if err := e.Fini(); err != nil {
		return err
	}
	if err := e.Init(); err != nil {
		return err
	}

	e.paused = false
	e.pausedID = hspace.NoPointID
	e.cursor = 0
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
