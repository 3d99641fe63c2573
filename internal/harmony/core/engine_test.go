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
	"testing"

	"harmony/pkg/hcfg"
	"harmony/pkg/hspace"
)

// countingStrategy generates points with strictly increasing first-
// dimension index, and records every trial handed to Analyze.
type countingStrategy struct {
	next     int64
	analyzed []int64
	best     hspace.Point
}

func (s *countingStrategy) Generate(e *Engine, flow *Flow, point *hspace.Point) error {
	point.Index[0] = s.next
	s.next++
	return nil
}

func (s *countingStrategy) Rejected(e *Engine, flow *Flow, point *hspace.Point) error {
	point.Index[0] = s.next
	s.next++
	return nil
}

func (s *countingStrategy) Analyze(e *Engine, trial *Trial) error {
	s.analyzed = append(s.analyzed, trial.Point.ID)
	s.best = trial.Point.Clone()
	return nil
}

func (s *countingStrategy) Best() hspace.Point { return s.best }

// passLayer accepts every trial on both passes and records the order it
// saw them in.
type passLayer struct {
	name string
	gen  []int64
	ana  []int64
}

func (l *passLayer) Name() string { return l.name }

func (l *passLayer) Generate(e *Engine, flow *Flow, trial *Trial) error {
	l.gen = append(l.gen, trial.Point.ID)
	return nil
}

func (l *passLayer) Analyze(e *Engine, flow *Flow, trial *Trial) error {
	l.ana = append(l.ana, trial.Point.ID)
	return nil
}

func testSpace() hspace.Space {
	return hspace.Space{Name: "t", Dims: []hspace.Dimension{hspace.NewInt("x", 0, 100, 1)}}
}

func newTestEngine(t *testing.T, strategy Strategy, layers []Layer, capacity int) *Engine {
	t.Helper()
	e := NewEngine(testSpace(), hcfg.New(), strategy, layers, 1)
	if err := e.Grow(capacity); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	return e
}

func TestEngineGenerateThroughReadyQueue(t *testing.T) {
	strat := &countingStrategy{}
	layer := &passLayer{name: "l1"}
	e := newTestEngine(t, strat, []Layer{layer}, 2)

	if !e.CanGenerate() {
		t.Fatalf("CanGenerate() = false, want true")
	}
	if err := e.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(layer.gen) != 1 {
		t.Fatalf("layer saw %d generate calls, want 1", len(layer.gen))
	}
	if e.Ready.Peek() < 0 {
		t.Fatalf("expected a ready trial after a clean generate pass")
	}
}

func TestEngineReportDrivesAnalyzeAndFreesSlot(t *testing.T) {
	strat := &countingStrategy{}
	layer := &passLayer{name: "l1"}
	e := newTestEngine(t, strat, []Layer{layer}, 2)

	if err := e.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	idx := e.Ready.Dequeue()
	id := e.Pool.Trial(idx).Point.ID

	if err := e.Report(id, []float64{42}); err != nil {
		t.Fatalf("Report: %v", err)
	}

	if len(layer.ana) != 1 || layer.ana[0] != id {
		t.Fatalf("layer analyze saw %v, want [%d]", layer.ana, id)
	}
	if len(strat.analyzed) != 1 || strat.analyzed[0] != id {
		t.Fatalf("strategy analyzed %v, want [%d]", strat.analyzed, id)
	}
	if e.Pool.PendingLen() != 0 {
		t.Fatalf("PendingLen() = %d after analyze, want 0", e.Pool.PendingLen())
	}
}

func TestEngineReportUnknownCandidateIsRoguePointError(t *testing.T) {
	strat := &countingStrategy{}
	e := newTestEngine(t, strat, nil, 1)

	err := e.Report(999, []float64{1})
	if err == nil {
		t.Fatalf("expected error reporting an unknown candidate id")
	}
	if _, ok := err.(*ErrRoguePoint); !ok {
		t.Fatalf("error = %T, want *ErrRoguePoint", err)
	}
}

func TestEngineReportAgainstPausedIDIsDiscarded(t *testing.T) {
	strat := &countingStrategy{}
	e := newTestEngine(t, strat, nil, 1)

	_, best, busy := e.Fetch(false)
	if !busy {
		t.Fatalf("expected Fetch to report busy against an empty ready queue")
	}

	if err := e.Report(best.ID, []float64{1}); err != nil {
		t.Fatalf("Report against the paused fallback id should be silently accepted: %v", err)
	}
}

func TestEngineFetchReturnsReadyTrial(t *testing.T) {
	strat := &countingStrategy{}
	layer := &passLayer{name: "l1"}
	e := newTestEngine(t, strat, []Layer{layer}, 1)

	if err := e.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	idx, _, busy := e.Fetch(false)
	if busy {
		t.Fatalf("expected a ready trial, got busy")
	}
	if e.Pool.Trial(idx).Point.ID != 0 {
		t.Fatalf("Fetch returned slot for point id %d, want 0", e.Pool.Trial(idx).Point.ID)
	}
}

// waitLayer waits on every Generate call; its trial only advances once a
// registered callback resolves it, as the callback itself decides the
// resolved trial's flow status without the hook running again.
type waitLayer struct {
	name string
	ch   chan struct{}
}

func (l *waitLayer) Name() string { return l.name }

func (l *waitLayer) Generate(e *Engine, flow *Flow, trial *Trial) error {
	l.ch = make(chan struct{}, 1)
	e.CallbackGenerate(l.ch, func(flow *Flow, trials []*Trial) (int, error) {
		flow.Status = Accept
		return 0, nil
	})
	flow.Status = Wait
	return nil
}

func TestEngineWaitThenCallbackResumes(t *testing.T) {
	strat := &countingStrategy{}
	layer := &waitLayer{name: "w1"}
	e := newTestEngine(t, strat, []Layer{layer}, 1)

	if err := e.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if e.CanGenerate() {
		t.Fatalf("CanGenerate() = true while a trial is parked on a wait list")
	}
	if e.Ready.Peek() != -1 {
		t.Fatalf("trial should not be ready before its callback resolves")
	}

	if err := e.HandleCallback(0); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if e.Ready.Peek() < 0 {
		t.Fatalf("expected trial to reach the ready queue after callback resolution")
	}
}

func TestEngineSetConfigOrdersStrategyBeforeLayers(t *testing.T) {
	var order []string
	strat := &orderStrategy{order: &order}
	layer := &orderLayer{name: "l1", order: &order}
	e := newTestEngine(t, strat, []Layer{layer}, 1)

	if err := e.SetConfig("k", "v"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if len(order) != 2 || order[0] != "strategy" || order[1] != "l1" {
		t.Fatalf("SetConfig order = %v, want [strategy l1]", order)
	}
	if got := e.Store.Get("k"); got != "v" {
		t.Fatalf("Store.Get(k) = %q, want v", got)
	}
}

type orderStrategy struct {
	countingStrategy
	order *[]string
}

func (s *orderStrategy) SetConfig(e *Engine, key, value string) error {
	*s.order = append(*s.order, "strategy")
	return nil
}

type orderLayer struct {
	passLayer
	name  string
	order *[]string
}

func (l *orderLayer) Name() string { return l.name }

func (l *orderLayer) SetConfig(e *Engine, key, value string) error {
	*l.order = append(*l.order, l.name)
	return nil
}

type lifecycleLayer struct {
	passLayer
	name  string
	trace *[]string
}

func (l *lifecycleLayer) Name() string { return l.name }

func (l *lifecycleLayer) Init(e *Engine, space hspace.Space) error {
	*l.trace = append(*l.trace, "init:"+l.name)
	return nil
}

func (l *lifecycleLayer) Fini(e *Engine) error {
	*l.trace = append(*l.trace, "fini:"+l.name)
	return nil
}

func TestEngineRestartOrdersFiniThenInit(t *testing.T) {
	var trace []string
	layerA := &lifecycleLayer{name: "a", trace: &trace}
	layerB := &lifecycleLayer{name: "b", trace: &trace}
	strat := &countingStrategy{}
	e := newTestEngine(t, strat, []Layer{layerA, layerB}, 1)

	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := e.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	want := []string{"init:a", "init:b", "fini:b", "fini:a", "init:a", "init:b"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}
