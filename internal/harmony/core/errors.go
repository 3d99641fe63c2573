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

import "fmt"

// InvariantError reports a violation of an engine-maintained invariant:
// pool overflow, ready-queue overflow, or an unreachable workflow state.
// These indicate a bug in the engine itself and are never recoverable
// by retrying.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("harmony: internal invariant violation: %s", e.Reason)
}

func invariantf(format string, args ...any) error {
	return &InvariantError{Reason: fmt.Sprintf(format, args...)}
}

// PluginError wraps an error returned by a strategy or layer hook,
// identifying which plug-in and which entry point failed.
type PluginError struct {
	Plugin string
	Entry  string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("harmony: plug-in %q failed in %s: %v", e.Plugin, e.Entry, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

func pluginErr(plugin, entry string, err error) error {
	if err == nil {
		return nil
	}
	return &PluginError{Plugin: plugin, Entry: entry, Err: err}
}

// ErrPerfWidth reports a REPORT whose performance vector width doesn't
// match the session's configured PERF_COUNT. Unlike InvariantError, this
// is the client's mistake rather than the engine's, and is handled as an
// ordinary FAIL reply rather than a fatal error.
type ErrPerfWidth struct {
	Got, Want int
}

func (e *ErrPerfWidth) Error() string {
	return fmt.Sprintf("harmony: report perf width %d does not match configured width %d", e.Got, e.Want)
}
