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

// Package main is the session core process: it is never launched
// manually. A controller process dup2()'s an accepted connection onto
// its stdin/stdout before exec'ing it, exactly as the original design
// requires; harmonyd verifies that contract by statting its own stdin
// before doing anything else.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/prometheus/client_golang/prometheus"

	"harmony/internal/harmony/server"
	"harmony/internal/harmony/telemetry"
	"harmony/pkg/hcfg"

	_ "harmony/plugin/layer/logpass"
	_ "harmony/plugin/layer/redisgate"
	_ "harmony/plugin/strategy/exhaustive"
	_ "harmony/plugin/strategy/random"
)

// stdioConn presents stdin/stdout as the single io.ReadWriter the
// server package speaks its wire protocol over.
type stdioConn struct {
	io.Reader
	io.Writer
}

func main() {
	metricsAddr := flag.String("metrics-addr", "", "if non-empty, expose Prometheus /metrics and /healthz on this address (e.g. :9090)")
	logPrefix := flag.String("log-prefix", "[harmonyd]", "prefix for log lines written to stderr")
	logLevel := flag.String("log-level", "info", "minimum log level to emit: debug, info, warn, or error")
	harmonyHome := flag.String("harmony-home", "", "value to provide as HARMONY_HOME when a client's SESSION config doesn't set it")
	randomSeed := flag.String("random-seed", "", "value to provide as RANDOM_SEED when a client's SESSION config doesn't set it")
	flag.Parse()

	log := telemetry.NewLeveled(*logPrefix, telemetry.ParseLevel(*logLevel))

	defaults := make(map[string]string)
	if *harmonyHome != "" {
		defaults[hcfg.KeyHarmonyHome] = *harmonyHome
	}
	if *randomSeed != "" {
		defaults[hcfg.KeyRandomSeed] = *randomSeed
	}

	if err := verifySocket(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "harmonyd should not be launched manually: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *telemetry.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = telemetry.NewMetrics(reg)
		go telemetry.ServeHTTP(ctx, *metricsAddr, reg, log)
	}

	conn := stdioConn{Reader: os.Stdin, Writer: os.Stdout}

	log.Infof("receiving initial session message")
	sess, err := server.Handshake(conn, log, metrics, defaults)
	if err != nil {
		log.Fatalf("handshake failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Serve() }()

	select {
	case err := <-done:
		if err != nil {
			log.Errorf("session ended: %v", err)
		}
	case <-ctx.Done():
		log.Infof("received shutdown signal")
	}

	if err := sess.Shutdown(); err != nil {
		log.Errorf("plug-in shutdown: %v", err)
	}
}

// verifySocket mirrors the original's fstat(STDIN_FILENO)+S_ISSOCK
// guard: harmonyd is only ever meant to be exec'd with its stdin
// already connected to an accepted client socket, never run from an
// interactive shell.
func verifySocket(f *os.File) error {
	var stat unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &stat); err != nil {
		return fmt.Errorf("stat stdin: %w", err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return fmt.Errorf("stdin is not a socket")
	}
	return nil
}
