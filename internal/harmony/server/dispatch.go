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

package server

import (
	"errors"
	"reflect"

	"harmony/internal/harmony/core"
	"harmony/pkg/hcfg"
	"harmony/pkg/wire"
)

// Serve runs the session's dispatch loop until the connection closes or
// an unrecoverable error occurs. It mirrors the original's main() event
// loop: select() over the client descriptor and every registered
// callback descriptor, dispatching a message or resuming a callback,
// then generating as many new trials as the pool has room for.
//
// Go has no fd_set equivalent over arbitrary channels other than
// reflect.Select, so that is used here in place of select()/FD_ISSET.
func (s *Session) Serve() error {
	msgCh := make(chan wire.Record)
	errCh := make(chan error, 1)
	go s.readLoop(msgCh, errCh)

	for {
		if err := s.generatePending(); err != nil {
			return err
		}

		cases := make([]reflect.SelectCase, 1+len(s.Engine.Callbacks()))
		cases[0] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(msgCh)}
		for i, ch := range s.Engine.Callbacks() {
			cases[i+1] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ch)}
		}

		chosen, recv, ok := reflect.Select(cases)
		if chosen == 0 {
			if !ok {
				select {
				case err := <-errCh:
					if errors.Is(err, wire.ErrShortRead) {
						return nil
					}
					return err
				default:
					return nil
				}
			}
			rec := recv.Interface().(wire.Record)
			if err := s.dispatch(rec); err != nil {
				return err
			}
			continue
		}

		if err := s.Engine.HandleCallback(chosen - 1); err != nil {
			return err
		}
	}
}

func (s *Session) readLoop(msgCh chan<- wire.Record, errCh chan<- error) {
	defer close(msgCh)
	for {
		rec, err := wire.ReadRecord(s.conn)
		if err != nil {
			errCh <- err
			return
		}
		msgCh <- rec
	}
}

func (s *Session) generatePending() error {
	for s.Engine.CanGenerate() {
		if err := s.Engine.Generate(); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.TrialsGenerated.Inc()
		}
	}
	return nil
}

// dispatch handles one request record and writes its reply.
func (s *Session) dispatch(rec wire.Record) error {
	s.Store.Set(hcfg.KeyCurrentClient, rec.SourceID)
	defer s.Store.Set(hcfg.KeyCurrentClient, "")

	reply, err := s.handle(rec)
	if err != nil {
		var inv *core.InvariantError
		if errors.As(err, &inv) {
			return err
		}
		reply = wire.Record{
			Type:     rec.Type,
			Status:   wire.StatusFail,
			SourceID: rec.SourceID,
			Payload:  []byte(err.Error()),
		}
	}
	return wire.WriteRecord(s.conn, reply)
}

func (s *Session) handle(rec wire.Record) (wire.Record, error) {
	switch rec.Type {
	case wire.TypeJoin:
		return s.handleJoin(rec)
	case wire.TypeGetConfig:
		return s.handleGetConfig(rec)
	case wire.TypeSetConfig:
		return s.handleSetConfig(rec)
	case wire.TypeBest:
		return s.handleBest(rec)
	case wire.TypeFetch:
		return s.handleFetch(rec)
	case wire.TypeReport:
		return s.handleReport(rec)
	case wire.TypeRestart:
		return s.handleRestart(rec)
	default:
		return wire.Record{}, &ErrProtocol{Reason: "unknown message type " + rec.Type.String()}
	}
}

func (s *Session) handleJoin(rec wire.Record) (wire.Record, error) {
	body, err := wire.UnmarshalJoinBody(rec.Payload)
	if err != nil {
		return wire.Record{}, err
	}
	if !body.Space.Equal(s.Engine.Space) {
		return wire.Record{}, &ErrSpaceMismatch{SourceID: rec.SourceID}
	}
	if err := s.Engine.Join(rec.SourceID, s.perCli); err != nil {
		return wire.Record{}, err
	}
	reply := wire.JoinBody{Space: s.Engine.Space}
	return wire.Record{Type: wire.TypeJoin, Status: wire.StatusOK, SourceID: rec.SourceID, Payload: reply.Marshal()}, nil
}

func (s *Session) handleGetConfig(rec wire.Record) (wire.Record, error) {
	body := wire.UnmarshalGetConfigBody(rec.Payload)
	value := s.Store.Get(body.Key)
	return wire.Record{Type: wire.TypeGetConfig, Status: wire.StatusOK, SourceID: rec.SourceID, Payload: []byte(value)}, nil
}

func (s *Session) handleSetConfig(rec wire.Record) (wire.Record, error) {
	body, err := wire.UnmarshalSetConfigBody(rec.Payload)
	if err != nil {
		return wire.Record{}, err
	}
	oldValue := s.Store.Get(body.Key)
	if err := s.Engine.SetConfig(body.Key, body.Value); err != nil {
		return wire.Record{}, err
	}
	return wire.Record{Type: wire.TypeSetConfig, Status: wire.StatusOK, SourceID: rec.SourceID, Payload: []byte(oldValue)}, nil
}

func (s *Session) handleBest(rec wire.Record) (wire.Record, error) {
	best := s.Engine.Strategy.Best()
	body := wire.BestBody{Point: best, Values: best.Values(s.Engine.Space)}
	return wire.Record{Type: wire.TypeBest, Status: wire.StatusOK, SourceID: rec.SourceID, Payload: body.Marshal()}, nil
}

func (s *Session) handleFetch(rec wire.Record) (wire.Record, error) {
	paused := s.Store.Bool(hcfg.KeyPaused)
	idx, best, busy := s.Engine.Fetch(paused)

	if busy {
		body := wire.FetchReplyBody{Point: best, Values: best.Values(s.Engine.Space)}
		if s.metrics != nil {
			s.metrics.FetchBusy.Inc()
		}
		return wire.Record{Type: wire.TypeFetch, Status: wire.StatusBusy, SourceID: rec.SourceID, Payload: body.Marshal()}, nil
	}

	trial := s.Engine.Pool.Trial(idx)
	body := wire.FetchReplyBody{Point: trial.Point, Values: trial.Point.Values(s.Engine.Space)}
	if s.metrics != nil {
		s.metrics.FetchOK.Inc()
	}
	return wire.Record{Type: wire.TypeFetch, Status: wire.StatusOK, SourceID: rec.SourceID, Payload: body.Marshal()}, nil
}

func (s *Session) handleReport(rec wire.Record) (wire.Record, error) {
	body, err := wire.UnmarshalReportBody(rec.Payload)
	if err != nil {
		return wire.Record{}, err
	}
	if err := s.Engine.Report(body.CandidateID, body.Perf); err != nil {
		return wire.Record{}, err
	}
	if s.metrics != nil {
		s.metrics.TrialsCompleted.Inc()
	}
	return wire.Record{Type: wire.TypeReport, Status: wire.StatusOK, SourceID: rec.SourceID}, nil
}

func (s *Session) handleRestart(rec wire.Record) (wire.Record, error) {
	if err := s.Engine.Restart(); err != nil {
		return wire.Record{}, err
	}
	return wire.Record{Type: wire.TypeRestart, Status: wire.StatusOK, SourceID: rec.SourceID}, nil
}
