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

package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session's Prometheus collectors. Every field is
// safe for concurrent use; construct one with NewMetrics and register it
// exactly once per process.
//
// The session dispatcher updates TrialsGenerated, TrialsCompleted,
// FetchOK and FetchBusy. TrialsRejected, ReadyDepth, PoolPending,
// WaitlistDepth and PluginErrors are registered and exported, but
// nothing in this repository sets them, so they stay at zero.
type Metrics struct {
	TrialsGenerated prometheus.Counter
	TrialsCompleted prometheus.Counter
	TrialsRejected  prometheus.Counter
	FetchOK         prometheus.Counter
	FetchBusy       prometheus.Counter
	ReadyDepth      prometheus.Gauge
	PoolPending     prometheus.Gauge
	WaitlistDepth   *prometheus.GaugeVec
	PluginErrors    *prometheus.CounterVec
}

// NewMetrics constructs and registers a Metrics set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test binaries.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TrialsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmony_trials_generated_total",
			Help: "Total trials produced by the search strategy.",
		}),
		TrialsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmony_trials_completed_total",
			Help: "Total trials that finished their analyze pass and freed their slot.",
		}),
		TrialsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmony_trials_rejected_total",
			Help: "Total REJECT decisions handled by the strategy during the generate pass.",
		}),
		FetchOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmony_fetch_ok_total",
			Help: "Total FETCH requests answered with a ready point.",
		}),
		FetchBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmony_fetch_busy_total",
			Help: "Total FETCH requests answered BUSY (empty ready queue or generation paused).",
		}),
		ReadyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harmony_ready_queue_depth",
			Help: "Number of trials currently parked in the ready queue.",
		}),
		PoolPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "harmony_pool_pending",
			Help: "Number of occupied trial pool slots.",
		}),
		WaitlistDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harmony_waitlist_depth",
			Help: "Number of trials parked on a layer's generate/analyze waitlist.",
		}, []string{"layer", "pass"}),
		PluginErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harmony_plugin_errors_total",
			Help: "Total errors returned by a strategy or layer hook, by plug-in and entry point.",
		}, []string{"plugin", "entry"}),
	}
	reg.MustRegister(
		m.TrialsGenerated, m.TrialsCompleted, m.TrialsRejected,
		m.FetchOK, m.FetchBusy, m.ReadyDepth, m.PoolPending,
		m.WaitlistDepth, m.PluginErrors,
	)
	return m
}

// ServeHTTP exposes /metrics and /healthz on addr until ctx is canceled.
// Mirrors the teacher's own dedicated-metrics-listener shape
// (cmd/tfd-proxy's promhttp.Handler() wiring), generalized into a
// cancelable background server instead of a bare ListenAndServe call.
func ServeHTTP(ctx context.Context, addr string, reg *prometheus.Registry, log *Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorf("metrics listener on %s stopped: %v", addr, err)
	}
}
