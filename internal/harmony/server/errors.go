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

import "fmt"

// ErrProtocol reports a message that violates the wire protocol's
// expected sequencing or shape (wrong record type, missing handshake,
// unknown message type).
type ErrProtocol struct {
	Reason string
}

func (e *ErrProtocol) Error() string { return "server: protocol error: " + e.Reason }

// ErrSpaceMismatch reports a JOIN whose declared search space does not
// match the session's authoritative space.
type ErrSpaceMismatch struct {
	SourceID string
}

func (e *ErrSpaceMismatch) Error() string {
	return fmt.Sprintf("server: client %q join signature does not match session space", e.SourceID)
}
