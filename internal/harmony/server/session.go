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

// Package server dispatches the client wire protocol (JOIN, GETCFG,
// SETCFG, BEST, FETCH, REPORT, RESTART) against a core.Engine, and
// multiplexes the client connection with the engine's dynamically
// registered plug-in callbacks.
package server

import (
	"fmt"
	"io"

	"harmony/internal/harmony/core"
	"harmony/internal/harmony/plugin"
	"harmony/internal/harmony/telemetry"
	"harmony/pkg/hcfg"
	"harmony/pkg/wire"
)

// Session owns one engine and the connection its client speaks the wire
// protocol over. One Session is created per accepted connection; the
// engine it wraps is not shared across sessions.
type Session struct {
	Engine *core.Engine
	Store  *hcfg.Store

	conn    io.ReadWriter
	perCli  int
	log     *telemetry.Logger
	metrics *telemetry.Metrics
}

// Handshake reads the initial SESSION request from conn, builds the
// engine it describes (strategy and layers resolved from its config
// against the plug-in registry), runs every plug-in's Init hook, sizes
// the pool, writes the SESSION/OK ack to conn, and returns the ready
// Session.
//
// defaults carries process-level configuration (HARMONY_HOME,
// RANDOM_SEED, and similar launch-time settings sourced from harmonyd's
// own flags rather than the client) applied to any key the client's
// SESSION config left unset, mirroring how the original process
// environment backstops a session's hcfg map.
//
// Mirrors init_session and the initial session-message exchange at the
// top of the original main().
func Handshake(conn io.ReadWriter, log *telemetry.Logger, metrics *telemetry.Metrics, defaults map[string]string) (*Session, error) {
	rec, err := wire.ReadRecord(conn)
	if err != nil {
		return nil, fmt.Errorf("server: reading initial session message: %w", err)
	}
	if rec.Type != wire.TypeSession || rec.Status != wire.StatusReq {
		return nil, &ErrProtocol{Reason: "expected an initial SESSION request"}
	}

	body, err := wire.UnmarshalSessionBody(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("server: decoding session body: %w", err)
	}

	store := hcfg.New()
	store.LoadSnapshot(body.Config)
	for key, value := range defaults {
		if _, ok := store.Lookup(key); !ok {
			store.Set(key, value)
		}
	}

	strategyName := store.Get(hcfg.KeyStrategy)
	strat, err := plugin.NewStrategy(strategyName, store)
	if err != nil {
		return nil, err
	}
	layerList := store.Get(hcfg.KeyLayers)
	layers, err := plugin.NewLayers(layerList, store)
	if err != nil {
		return nil, err
	}

	perfWidth := int(store.IntOr(hcfg.KeyPerfCount, 1))
	engine := core.NewEngine(body.Space, store, strat, layers, perfWidth)
	if err := engine.Init(); err != nil {
		return nil, err
	}

	perCli := int(store.IntOr(hcfg.KeyGenCount, 1))
	if perCli < 1 {
		perCli = 1
	}
	clients := int(store.IntOr(hcfg.KeyClientCount, 1))
	if clients < 1 {
		clients = 1
	}
	if err := engine.Grow(clients * perCli); err != nil {
		return nil, err
	}

	sess := &Session{
		Engine:  engine,
		Store:   store,
		conn:    conn,
		perCli:  perCli,
		log:     log,
		metrics: metrics,
	}

	ack := wire.Record{Type: wire.TypeSession, Status: wire.StatusOK, SourceID: rec.SourceID}
	if err := wire.WriteRecord(conn, ack); err != nil {
		return nil, fmt.Errorf("server: sending session ack: %w", err)
	}
	return sess, nil
}

// Shutdown runs every plug-in's Fini hook. Call once, when the
// connection closes.
func (s *Session) Shutdown() error {
	return s.Engine.Fini()
}
