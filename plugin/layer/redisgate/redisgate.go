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

// Package redisgate implements a layer that parks every trial on its
// generate-side waitlist until an external Redis Pub/Sub message names
// that trial's point id as cleared to proceed. It is the Go session
// core's equivalent of an externally gated pipeline stage: some outside
// process (a capacity controller, a cluster scheduler) decides when
// each trial may continue, and speaks that decision over a channel
// rather than the session's own socket.
package redisgate

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"harmony/internal/harmony/core"
	"harmony/internal/harmony/plugin"
	"harmony/internal/harmony/telemetry"
	"harmony/pkg/hcfg"
	"harmony/pkg/hspace"
)

// Name is the value a session's SESSION_LAYERS list uses to reference
// this layer.
const Name = "redisgate"

// Configuration keys this layer declares against the session's store.
const (
	KeyAddr    = "REDISGATE_ADDR"
	KeyChannel = "REDISGATE_CHANNEL"
)

func init() {
	plugin.RegisterLayer(Name, New,
		hcfg.KeyInfo{Key: KeyAddr, Default: "127.0.0.1:6379", Type: hcfg.TypeString,
			Desc: "address of the Redis server publishing gate-clear messages"},
		hcfg.KeyInfo{Key: KeyChannel, Default: "harmony:gate", Type: hcfg.TypeString,
			Desc: "Pub/Sub channel carrying cleared point ids"},
	)
}

// Layer waits for a Redis Pub/Sub message naming a trial's point id
// before letting that trial continue through the generate pass.
type Layer struct {
	store *hcfg.Store
	log   *telemetry.Logger

	client *redis.Client
	sub    *redis.PubSub
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[int64]chan<- struct{}
}

// New constructs a redisgate layer. The Redis client is not dialed
// until Init, once the session's config (and therefore REDISGATE_ADDR)
// is final.
func New(store *hcfg.Store) (core.Layer, error) {
	return &Layer{store: store, log: telemetry.New("[redisgate]"), pending: make(map[int64]chan<- struct{})}, nil
}

// Name identifies this layer instance.
func (l *Layer) Name() string { return Name }

// Init dials Redis and subscribes to the configured gate channel,
// starting a background goroutine that resolves pending trials as
// clear messages arrive.
func (l *Layer) Init(e *core.Engine, space hspace.Space) error {
	addr := l.store.Get(KeyAddr)
	channel := l.store.Get(KeyChannel)

	l.client = redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.sub = l.client.Subscribe(ctx, channel)

	go l.listen(ctx)
	return nil
}

// Fini closes the subscription and the client, releasing any trial
// still parked on this layer's waitlist is the caller's responsibility:
// a RESTART is expected to precede a Grow that would ever observe them
// again.
func (l *Layer) Fini(e *core.Engine) error {
	if l.cancel != nil {
		l.cancel()
	}
	if l.sub != nil {
		l.sub.Close()
	}
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}

func (l *Layer) listen(ctx context.Context) {
	ch := l.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			id, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				l.log.Warnf("ignoring non-integer gate message %q", msg.Payload)
				continue
			}
			l.resolve(id)
		}
	}
}

func (l *Layer) resolve(id int64) {
	l.mu.Lock()
	notify, ok := l.pending[id]
	if ok {
		delete(l.pending, id)
	}
	l.mu.Unlock()
	if ok {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

// Generate parks trial on the waitlist and registers a callback that
// resolves it by point id once resolve observes a matching gate
// message.
func (l *Layer) Generate(e *core.Engine, flow *core.Flow, trial *core.Trial) error {
	id := trial.Point.ID
	ch := make(chan struct{}, 1)

	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()

	e.CallbackGenerate(ch, func(flow *core.Flow, trials []*core.Trial) (int, error) {
		for i, t := range trials {
			if t.Point.ID == id {
				flow.Status = core.Accept
				return i, nil
			}
		}
		return 0, fmt.Errorf("redisgate: resolved point %d is no longer on the waitlist", id)
	})

	flow.Status = core.Wait
	return nil
}
