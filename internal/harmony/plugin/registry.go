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

// Package plugin is the compile-time substitute for dynamic plug-in
// loading: strategies and layers register themselves by name from their
// own init() functions, and a session is assembled by looking those
// names up against the registry instead of dlopen-ing a shared object.
package plugin

import (
	"fmt"
	"strings"
	"sync"

	"harmony/internal/harmony/core"
	"harmony/pkg/hcfg"
)

// StrategyFactory builds a fresh core.Strategy instance, registering any
// key-info it declares into store.
type StrategyFactory func(store *hcfg.Store) (core.Strategy, error)

// LayerFactory builds a fresh core.Layer instance, registering any
// key-info it declares into store.
type LayerFactory func(store *hcfg.Store) (core.Layer, error)

type strategyEntry struct {
	factory StrategyFactory
	keys    []hcfg.KeyInfo
}

type layerEntry struct {
	factory LayerFactory
	keys    []hcfg.KeyInfo
}

var (
	mu         sync.RWMutex
	strategies = map[string]strategyEntry{}
	layers     = map[string]layerEntry{}
)

// RegisterStrategy adds a named strategy factory to the registry. Call
// from a plug-in package's init(); panics on a duplicate name, since two
// plug-ins claiming the same name is a build-time programming error, not
// a runtime condition a session can recover from.
func RegisterStrategy(name string, factory StrategyFactory, keys ...hcfg.KeyInfo) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := strategies[name]; exists {
		panic(fmt.Sprintf("plugin: strategy %q already registered", name))
	}
	strategies[name] = strategyEntry{factory: factory, keys: keys}
}

// RegisterLayer adds a named layer factory to the registry. Call from a
// plug-in package's init(); panics on a duplicate name.
func RegisterLayer(name string, factory LayerFactory, keys ...hcfg.KeyInfo) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := layers[name]; exists {
		panic(fmt.Sprintf("plugin: layer %q already registered", name))
	}
	layers[name] = layerEntry{factory: factory, keys: keys}
}

// NewStrategy looks up name and constructs a strategy instance, merging
// its declared key-info into store.
func NewStrategy(name string, store *hcfg.Store) (core.Strategy, error) {
	mu.RLock()
	entry, ok := strategies[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin: unknown strategy %q", name)
	}
	store.RegisterKeyInfo(entry.keys...)
	return entry.factory(store)
}

// NewLayers splits a semicolon-separated layer list (hcfg.LayerSeparator)
// in stack order and constructs each one, merging every layer's declared
// key-info into store as it goes.
func NewLayers(list string, store *hcfg.Store) ([]core.Layer, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	names := strings.Split(list, hcfg.LayerSeparator)
	out := make([]core.Layer, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		mu.RLock()
		entry, ok := layers[name]
		mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("plugin: unknown layer %q", name)
		}
		store.RegisterKeyInfo(entry.keys...)
		l, err := entry.factory(store)
		if err != nil {
			return nil, fmt.Errorf("plugin: building layer %q: %w", name, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// StrategyNames returns every registered strategy name, in no particular
// order, for diagnostics.
func StrategyNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(strategies))
	for name := range strategies {
		out = append(out, name)
	}
	return out
}

// LayerNames returns every registered layer name, in no particular order,
// for diagnostics.
func LayerNames() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(layers))
	for name := range layers {
		out = append(out, name)
	}
	return out
}
