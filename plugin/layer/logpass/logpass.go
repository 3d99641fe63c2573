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

// Package logpass implements a layer that accepts every trial on both
// passes and logs each one through its own telemetry logger. It
// is a diagnostic stage: insert it anywhere in SESSION_LAYERS to trace
// the points flowing through the stack around it.
package logpass

import (
	"harmony/internal/harmony/core"
	"harmony/internal/harmony/plugin"
	"harmony/internal/harmony/telemetry"
	"harmony/pkg/hcfg"
	"harmony/pkg/hspace"
)

// Name is the value a session's SESSION_LAYERS list uses to reference
// this layer.
const Name = "logpass"

func init() {
	plugin.RegisterLayer(Name, New)
}

// Layer logs every trial it sees and always accepts it.
type Layer struct {
	log *telemetry.Logger
}

// New constructs a logpass layer writing to a dedicated logger.
func New(store *hcfg.Store) (core.Layer, error) {
	return &Layer{log: telemetry.New("[logpass]")}, nil
}

// Name identifies this layer instance.
func (l *Layer) Name() string { return Name }

// Init swaps in a logger prefixed with the space name, once it is
// known.
func (l *Layer) Init(e *core.Engine, space hspace.Space) error {
	l.log = telemetry.New("[logpass " + space.Name + "]")
	return nil
}

// Generate logs the trial's point on the forward pass.
func (l *Layer) Generate(e *core.Engine, flow *core.Flow, trial *core.Trial) error {
	l.log.Infof("generate id=%d index=%v", trial.Point.ID, trial.Point.Index)
	return nil
}

// Analyze logs the trial's point and performance on the reverse pass.
func (l *Layer) Analyze(e *core.Engine, flow *core.Flow, trial *core.Trial) error {
	l.log.Infof("analyze id=%d index=%v perf=%v", trial.Point.ID, trial.Point.Index, trial.Perf)
	return nil
}
